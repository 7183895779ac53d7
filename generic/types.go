/*
Package generic provides the core bond progression engine.

PURPOSE:
  This package contains the domain-agnostic types and algorithms for
  milestone-based progression. Whether the milestones are servant bond
  levels or any other cumulative-points ladder, the same engine answers
  "how many points are left" and "how many runs will that take".

KEY CONCEPTS IN THIS FILE (types.go):
  - MilestoneTable: cumulative point thresholds, one per level
  - LevelSelection / TargetSelection: where the user is and wants to be
  - Activity: a repeatable action with a cost and a base yield
  - ModifierSet: the bonuses applied to an activity's base yield

DESIGN PRINCIPLES:
  1. Purity: every operation is a function of its explicit inputs
  2. Precision: modifier math uses decimal.Decimal so each floor is exact
  3. Immutability: tables and activities are never mutated after loading
  4. Explicit failures: out-of-range input is an error, never clamped silently

USAGE:
  table := generic.MilestoneTable{1000, 2500, 4500}
  points, err := generic.PointsNeeded(table,
      generic.LevelSelection{Level: 1},
      generic.TargetSelection{Level: 3})

SEE ALSO:
  - milestone.go: Milestone resolver
  - modifier.go: Modifier pipeline
  - estimate.go: Run estimator
  - plan.go: Full selection planning
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MILESTONE TABLE
// =============================================================================

// MilestoneTable holds cumulative points per level. Index 0 is the total
// required for level 1; level 0 is implicit and always worth 0 points.
type MilestoneTable []int

// MaxLevel returns the highest level the table defines.
func (t MilestoneTable) MaxLevel() int { return len(t) }

// Threshold returns the cumulative points required for level.
// Level 0 is always 0. The caller must keep level within 0..MaxLevel.
func (t MilestoneTable) Threshold(level int) int {
	if level <= 0 {
		return 0
	}
	return t[level-1]
}

// Validate checks the table invariants: non-empty, non-negative and
// non-decreasing. It runs at the catalog boundary, not in the resolver.
func (t MilestoneTable) Validate() error {
	if len(t) == 0 {
		return &InputError{Field: "milestones", Reason: "table is empty"}
	}
	prev := 0
	for i, v := range t {
		if v < 0 {
			return &InputError{Field: "milestones", Value: fmt.Sprint(v),
				Reason: fmt.Sprintf("level %d threshold is negative", i+1)}
		}
		if v < prev {
			return &InputError{Field: "milestones", Value: fmt.Sprint(v),
				Reason: fmt.Sprintf("level %d threshold is below level %d", i+1, i)}
		}
		prev = v
	}
	return nil
}

// =============================================================================
// SELECTIONS
// =============================================================================

// LevelSelection is the user's current position on a milestone table.
//
// PointsLeft is the "points left to next level" figure shown in game. The
// resolver converts it into the amount already earned toward the next level.
// Zero means "not specified".
type LevelSelection struct {
	Level      int
	PointsLeft int
}

// TargetSelection is the level the user wants to reach.
type TargetSelection struct {
	Level int
}

// =============================================================================
// ACTIVITY
// =============================================================================

// Activity is a repeatable action: one run costs Cost resource units and
// yields BaseYield progress points before modifiers.
type Activity struct {
	ID        string
	Name      string
	Cost      int
	BaseYield int

	// Capped marks the activity category limited to a fixed number of runs
	// per real-world day. Set once by the catalog ingest.
	Capped bool
}

// =============================================================================
// MODIFIERS
// =============================================================================

// HeroicBonus is the flat additive bonus: FlatBonusUnit * Multiplier.
type HeroicBonus struct {
	Enabled    bool
	Multiplier int
}

// FrontlineBonus is the multiplicative percentage bonus applied last.
// Percent is a fraction (0.24 means +24%).
type FrontlineBonus struct {
	Enabled bool
	Percent decimal.Decimal
}

// ModifierSet holds every toggle that transforms a base yield.
// It is transient per calculation and replaced wholesale on change.
type ModifierSet struct {
	PercentBonus int
	Heroic       HeroicBonus
	Frontline    FrontlineBonus
}

// NoModifiers returns a ModifierSet with everything disabled.
func NoModifiers() ModifierSet {
	return ModifierSet{}
}

// =============================================================================
// RUN ESTIMATE
// =============================================================================

// EstimateStatus describes what kind of result an estimate is.
type EstimateStatus string

const (
	StatusReady       EstimateStatus = "ready"
	StatusGoalReached EstimateStatus = "goal_reached"
	StatusNotReady    EstimateStatus = "not_ready"
)

// RunEstimate is the output of the run estimator.
type RunEstimate struct {
	Status           EstimateStatus
	PointsNeeded     int
	BondPerRun       int
	RunsNeeded       int
	TotalCost        int
	EstimatedMinutes decimal.Decimal
	DaysNeeded       int
	Capped           bool
	Message          string
}

// Duration splits EstimatedMinutes into whole hours and rounded minutes.
func (e RunEstimate) Duration() (hours, minutes int) {
	total := e.EstimatedMinutes
	h := total.Div(decimal.NewFromInt(60)).Floor()
	m := total.Mod(decimal.NewFromInt(60)).Round(0)
	return int(h.IntPart()), int(m.IntPart())
}
