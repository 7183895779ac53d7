/*
Package bond provides the Fate/Grand Order specifics on top of the generic
progression engine.

PURPOSE:
  The generic package knows milestone tables, activities and modifiers.
  This package knows what they mean in game:
  - Servants carry a bond growth table (cumulative bond per bond level)
  - Quests cost AP and grant bond per clear
  - Bleached Earth quests are limited to three clears per day
  - Heroic Portrait adds 50 bond (x2 when max limit broken)
  - Frontline bonus is 4%, 20% or 24%

REGIONS:
  NA: api.atlasacademy.io/export/NA
  JP: api.atlasacademy.io/export/JP (English names)

CONSTANTS:
  APRegenPerDay:           one AP every five minutes, 288 per day
  BleachedEarthRunsPerDay: daily clear limit of Bleached Earth quests
  MinutesPerRun:           average clear time used for time estimates

SEE ALSO:
  - presets.go: Quick-list quests
  - wars.go: War display names
  - catalog.go: Catalog provider interface
  - factory/: Ingests upstream JSON into these types
*/
package bond

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bondcalc/bond-engine/generic"
)

// =============================================================================
// REGION
// =============================================================================

// Region is a game server region.
type Region string

const (
	RegionNA Region = "NA"
	RegionJP Region = "JP"
)

// ParseRegion accepts "na"/"jp" in any case; empty means NA.
func ParseRegion(s string) (Region, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NA":
		return RegionNA, nil
	case "JP":
		return RegionJP, nil
	default:
		return "", &generic.InputError{Field: "region", Value: s, Reason: "must be NA or JP"}
	}
}

// FileSuffix is appended to cached file names ("servants_jp.json").
func (r Region) FileSuffix() string {
	if r == RegionJP {
		return "_jp"
	}
	return ""
}

// =============================================================================
// GAME CONSTANTS
// =============================================================================

const (
	APRegenPerDay           = 24 * 12
	BleachedEarthRunsPerDay = 3
	HeroicPortraitBond      = generic.FlatBonusUnit
	MaxBondBonusPercent     = generic.MaxPercentBonus
)

// MinutesPerRun is the average clear time assumed for estimates.
var MinutesPerRun = decimal.RequireFromString("2.5")

// Estimator returns the generic estimator tuned for the game.
func Estimator() generic.Estimator {
	return generic.Estimator{
		MinutesPerRun:      MinutesPerRun,
		DailyResourceRegen: APRegenPerDay,
		CappedRunsPerDay:   BleachedEarthRunsPerDay,
	}
}

// FrontlineOption is a selectable frontline bonus.
type FrontlineOption struct {
	Label   string
	Percent decimal.Decimal
}

// FrontlineOptions lists the frontline bonuses in display order.
var FrontlineOptions = []FrontlineOption{
	{Label: "24% (Event + Frontline)", Percent: decimal.RequireFromString("0.24")},
	{Label: "20% (Frontline)", Percent: decimal.RequireFromString("0.20")},
	{Label: "4% (Support)", Percent: decimal.RequireFromString("0.04")},
}

// =============================================================================
// SERVANT
// =============================================================================

// Servant is a catalog entity with a bond milestone table.
type Servant struct {
	ID           int                    `json:"id"`
	CollectionNo int                    `json:"collectionNo"`
	Name         string                 `json:"name"`
	ClassName    string                 `json:"className"`
	Rarity       int                    `json:"rarity"`
	Cost         int                    `json:"cost"`
	BondGrowth   generic.MilestoneTable `json:"bondGrowth"`
	Traits       []string               `json:"traits,omitempty"`
}

// LevelOption is one entry of the bond level selector.
type LevelOption struct {
	Level  int    `json:"level"`
	Points int    `json:"points"`
	Label  string `json:"label"`
}

// LevelOptions lists Bond 0 through the servant's max bond level.
func (s Servant) LevelOptions() []LevelOption {
	opts := make([]LevelOption, 0, len(s.BondGrowth)+1)
	opts = append(opts, LevelOption{Level: 0, Points: 0, Label: "Bond 0 (0 pts)"})
	for i, points := range s.BondGrowth {
		opts = append(opts, LevelOption{
			Level:  i + 1,
			Points: points,
			Label:  fmt.Sprintf("Bond %d (%s pts)", i+1, FormatNumber(points)),
		})
	}
	return opts
}

// ClassLabel capitalizes the class name ("saber" -> "Saber").
func (s Servant) ClassLabel() string {
	if s.ClassName == "" {
		return ""
	}
	return strings.ToUpper(s.ClassName[:1]) + s.ClassName[1:]
}

// =============================================================================
// QUEST
// =============================================================================

// Quest is a catalog activity.
type Quest struct {
	ID          int         `json:"questId"`
	Name        string      `json:"questName"`
	SpotName    string      `json:"spotName,omitempty"`
	WarLongName string      `json:"warLongName,omitempty"`
	QuestType   string      `json:"questType"`
	ConsumeType string      `json:"consumeType"`
	AfterClear  string      `json:"afterClear"`
	AP          int         `json:"ap"`
	Bond        map[int]int `json:"bond"`

	// Capped is set at ingest for Bleached Earth quests.
	Capped bool `json:"capped"`
}

// BaseBond returns the bond of the lowest phase, or 0 when none is known.
func (q Quest) BaseBond() int {
	if len(q.Bond) == 0 {
		return 0
	}
	phases := make([]int, 0, len(q.Bond))
	for p := range q.Bond {
		phases = append(phases, p)
	}
	sort.Ints(phases)
	return q.Bond[phases[0]]
}

// Farmable reports whether the quest can be repeated for AP.
func (q Quest) Farmable() bool {
	return q.QuestType == "free" &&
		q.ConsumeType == "ap" &&
		(q.AfterClear == "repeatLast" || q.AfterClear == "resetInterval")
}

// DisplayName is "Spot (War)" when the spot is known.
func (q Quest) DisplayName() string {
	war := WarDisplayName(q.WarLongName)
	switch {
	case q.SpotName != "" && war != "":
		return fmt.Sprintf("%s (%s)", q.SpotName, war)
	case q.SpotName != "":
		return q.SpotName
	default:
		return q.Name
	}
}

// Activity converts the quest into the engine's activity.
func (q Quest) Activity() generic.Activity {
	return generic.Activity{
		ID:        fmt.Sprint(q.ID),
		Name:      q.DisplayName(),
		Cost:      q.AP,
		BaseYield: q.BaseBond(),
		Capped:    q.Capped,
	}
}

// IsBleachedEarth reports whether a quest or war name marks Bleached Earth.
// Only the catalog ingest calls this; the engine reads Activity.Capped.
func IsBleachedEarth(names ...string) bool {
	for _, n := range names {
		if strings.Contains(n, "Bleached Earth") {
			return true
		}
	}
	return false
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatNumber renders n with thousands separators.
func FormatNumber(n int) string {
	s := fmt.Sprint(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
