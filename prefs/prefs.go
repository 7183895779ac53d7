// Package prefs stores per-user calculator preferences in a TOML file.
//
// The file remembers the last region and the bonus toggles so the CLI
// starts where the user left off:
//
//	region = "JP"
//	default_preset = "free_quest_84"
//
//	[modifiers]
//	percent_bonus = 10
//	heroic = true
//	heroic_multiplier = 2
//	frontline = true
//	frontline_percent = "0.20"
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/generic"
)

// Modifiers are the remembered bonus toggles.
type Modifiers struct {
	PercentBonus     int    `toml:"percent_bonus"`
	Heroic           bool   `toml:"heroic"`
	HeroicMultiplier int    `toml:"heroic_multiplier"`
	Frontline        bool   `toml:"frontline"`
	FrontlinePercent string `toml:"frontline_percent"`
}

// Preferences is the preference file.
type Preferences struct {
	Region        string    `toml:"region"`
	DefaultPreset string    `toml:"default_preset,omitempty"`
	Modifiers     Modifiers `toml:"modifiers"`
}

// Default returns preferences for a first run.
func Default() Preferences {
	return Preferences{
		Region: string(bond.RegionNA),
		Modifiers: Modifiers{
			HeroicMultiplier: 1,
			FrontlinePercent: "0.20",
		},
	}
}

// DefaultPath is prefs.toml under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "bondcalc", "prefs.toml"), nil
}

// Load reads preferences from path. A missing file yields Default().
func Load(path string) (Preferences, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to open preferences: %w", err)
	}
	defer file.Close()

	p := Default()
	if err := toml.NewDecoder(file).Decode(&p); err != nil {
		return Preferences{}, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return p, nil
}

// Save writes preferences to path, creating its directory.
func Save(path string, p Preferences) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preferences: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(p); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return nil
}

// RegionValue parses the remembered region.
func (p Preferences) RegionValue() (bond.Region, error) {
	return bond.ParseRegion(p.Region)
}

// ModifierSet converts the remembered toggles into engine modifiers.
func (p Preferences) ModifierSet() (generic.ModifierSet, error) {
	m := p.Modifiers
	mods := generic.ModifierSet{
		PercentBonus: generic.ClampPercentBonus(m.PercentBonus),
		Heroic:       generic.HeroicBonus{Enabled: m.Heroic, Multiplier: m.HeroicMultiplier},
		Frontline:    generic.FrontlineBonus{Enabled: m.Frontline},
	}
	if m.FrontlinePercent != "" {
		pct, err := decimal.NewFromString(m.FrontlinePercent)
		if err != nil {
			return generic.ModifierSet{}, fmt.Errorf("frontline_percent: %w", err)
		}
		mods.Frontline.Percent = pct
	}
	if err := mods.Validate(); err != nil {
		return generic.ModifierSet{}, err
	}
	return mods, nil
}
