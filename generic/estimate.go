/*
estimate.go - Run estimator

PURPOSE:
  Given the points still needed, an activity and a modifier set, computes
  how many runs close the gap and what they cost in resource, time and
  real-world days.

CALCULATION:
  bondPerRun = ApplyModifiers(activity.BaseYield, mods)    (must be > 0)
  runs       = ceil(points / bondPerRun)
  cost       = runs * activity.Cost                     (must fit in int)
  minutes    = runs * MinutesPerRun
  days       = capped ? ceil(runs / CappedRunsPerDay)
                      : ceil(cost / DailyResourceRegen)

SHORT CIRCUITS:
  points == 0 -> StatusGoalReached, every number zero, no pipeline call.

CONFIGURATION:
  Estimator carries the three constants. They are assumptions about play
  speed and regeneration, not measurements, so the server reads them from
  config. DefaultEstimator holds the values the calculator ships with.

EXAMPLE:
  est, err := generic.EstimateRuns(3500, generic.Activity{
      ID: "free-80", Cost: 21, BaseYield: 815,
  }, generic.NoModifiers())
  // est.BondPerRun == 815, est.RunsNeeded == 5

SEE ALSO:
  - modifier.go: ApplyModifiers
  - plan.go: Runs the estimator for a full selection
*/
package generic

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ESTIMATOR
// =============================================================================

// Estimator holds the play-speed and regeneration assumptions.
type Estimator struct {
	// MinutesPerRun is the average wall-clock time of one run.
	MinutesPerRun decimal.Decimal

	// DailyResourceRegen is the resource regenerated per real-world day.
	DailyResourceRegen int

	// CappedRunsPerDay is the daily run limit of capped activities.
	CappedRunsPerDay int
}

// DefaultEstimator uses 2.5 minutes per run, 288 resource per day
// (one unit every five minutes) and three capped runs per day.
var DefaultEstimator = Estimator{
	MinutesPerRun:      decimal.RequireFromString("2.5"),
	DailyResourceRegen: 24 * 12,
	CappedRunsPerDay:   3,
}

// EstimateRuns runs DefaultEstimator.
func EstimateRuns(pointsNeeded int, activity Activity, mods ModifierSet) (*RunEstimate, error) {
	return DefaultEstimator.Estimate(pointsNeeded, activity, mods)
}

// Estimate computes the run estimate for one activity.
func (e Estimator) Estimate(pointsNeeded int, activity Activity, mods ModifierSet) (*RunEstimate, error) {
	if pointsNeeded < 0 {
		return nil, &InputError{Field: "points needed", Value: fmt.Sprint(pointsNeeded), Reason: "must not be negative"}
	}
	if pointsNeeded == 0 {
		return &RunEstimate{
			Status:           StatusGoalReached,
			EstimatedMinutes: decimal.Zero,
			Message:          "Target bond level already reached!",
		}, nil
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := mods.Validate(); err != nil {
		return nil, err
	}
	if activity.Cost <= 0 {
		return nil, &InputError{Field: "cost per run", Value: fmt.Sprint(activity.Cost), Reason: "must be positive"}
	}
	if activity.BaseYield < 0 {
		return nil, &InputError{Field: "bond per run", Value: fmt.Sprint(activity.BaseYield), Reason: "must not be negative"}
	}

	bondPerRun := ApplyModifiers(activity.BaseYield, mods)
	if bondPerRun <= 0 {
		return nil, &DegenerateYieldError{
			ActivityID: activity.ID,
			BaseYield:  activity.BaseYield,
			BondPerRun: bondPerRun,
		}
	}

	runs := ceilDiv(pointsNeeded, bondPerRun)
	if runs > math.MaxInt/activity.Cost {
		return nil, &InputError{Field: "points needed", Value: fmt.Sprint(pointsNeeded), Reason: "too large to estimate"}
	}
	totalCost := runs * activity.Cost

	var days int
	if activity.Capped {
		days = ceilDiv(runs, e.CappedRunsPerDay)
	} else {
		days = ceilDiv(totalCost, e.DailyResourceRegen)
	}

	return &RunEstimate{
		Status:           StatusReady,
		PointsNeeded:     pointsNeeded,
		BondPerRun:       bondPerRun,
		RunsNeeded:       runs,
		TotalCost:        totalCost,
		EstimatedMinutes: e.MinutesPerRun.Mul(decimal.NewFromInt(int64(runs))),
		DaysNeeded:       days,
		Capped:           activity.Capped,
	}, nil
}

// Validate checks the estimator constants.
func (e Estimator) Validate() error {
	if e.DailyResourceRegen <= 0 {
		return &InputError{Field: "daily resource regen", Value: fmt.Sprint(e.DailyResourceRegen), Reason: "must be positive"}
	}
	if e.CappedRunsPerDay <= 0 {
		return &InputError{Field: "capped runs per day", Value: fmt.Sprint(e.CappedRunsPerDay), Reason: "must be positive"}
	}
	if e.MinutesPerRun.IsNegative() {
		return &InputError{Field: "minutes per run", Value: e.MinutesPerRun.String(), Reason: "must not be negative"}
	}
	return nil
}

// ceilDiv is ceil(a/b) for a >= 0, b > 0. It does not overflow.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
