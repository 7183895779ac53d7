/*
presets.go - Quick-list quests

PURPOSE:
  The quick list offers common farming spots without needing the quest
  catalog: dailies, free quests, Bleached Earth and event quests. The
  list lives in presets.yaml, embedded at build time.

CAPPED GROUPS:
  A group marked capped (Bleached Earth) makes every preset in it capped,
  so the estimator counts days by the daily clear limit instead of AP.

SEE ALSO:
  - presets.yaml: The data
  - types.go: Quest, the catalog equivalent
*/
package bond

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bondcalc/bond-engine/generic"
)

//go:embed presets.yaml
var presetsYAML []byte

// Preset is a quick-list quest.
type Preset struct {
	Key    string `yaml:"key" json:"key"`
	Name   string `yaml:"name" json:"name"`
	Short  string `yaml:"short" json:"short"`
	AP     int    `yaml:"ap" json:"ap"`
	Bond   int    `yaml:"bond" json:"bond"`
	Capped bool   `yaml:"-" json:"capped"`
}

// Label is the full quick-list name, e.g. "Free Quest Lv80 (21 AP)".
func (p Preset) Label() string {
	return fmt.Sprintf("%s (%d AP)", p.Name, p.AP)
}

// Activity converts the preset into the engine's activity.
func (p Preset) Activity() generic.Activity {
	return generic.Activity{
		ID:        p.Key,
		Name:      p.Label(),
		Cost:      p.AP,
		BaseYield: p.Bond,
		Capped:    p.Capped,
	}
}

// PresetGroup is a labelled section of the quick list.
type PresetGroup struct {
	Label   string   `yaml:"label" json:"label"`
	Capped  bool     `yaml:"capped" json:"capped"`
	Presets []Preset `yaml:"presets" json:"presets"`
}

type presetFile struct {
	Groups []PresetGroup `yaml:"groups"`
}

var (
	presetsOnce    sync.Once
	presetGroups   []PresetGroup
	presetsByKey   map[string]Preset
	presetsLoadErr error
)

// ParsePresets decodes a preset document and validates every entry.
func ParsePresets(data []byte) ([]PresetGroup, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	seen := make(map[string]bool)
	for gi := range f.Groups {
		g := &f.Groups[gi]
		for pi := range g.Presets {
			p := &g.Presets[pi]
			if p.Key == "" {
				return nil, fmt.Errorf("preset %d in group %q has no key", pi, g.Label)
			}
			if seen[p.Key] {
				return nil, fmt.Errorf("duplicate preset key %q", p.Key)
			}
			if p.AP <= 0 || p.Bond <= 0 {
				return nil, fmt.Errorf("preset %q: ap and bond must be positive", p.Key)
			}
			seen[p.Key] = true
			p.Capped = g.Capped
		}
	}
	return f.Groups, nil
}

func loadPresets() {
	presetGroups, presetsLoadErr = ParsePresets(presetsYAML)
	presetsByKey = make(map[string]Preset)
	for _, g := range presetGroups {
		for _, p := range g.Presets {
			presetsByKey[p.Key] = p
		}
	}
}

// PresetGroups returns the quick list in display order.
func PresetGroups() []PresetGroup {
	presetsOnce.Do(loadPresets)
	if presetsLoadErr != nil {
		// embedded data is covered by tests
		panic(presetsLoadErr)
	}
	return presetGroups
}

// LookupPreset finds a preset by key.
func LookupPreset(key string) (Preset, bool) {
	PresetGroups()
	p, ok := presetsByKey[key]
	return p, ok
}
