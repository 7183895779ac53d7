/*
plan.go - Full selection planning

PURPOSE:
  Answers the question the calculator asks on every input change:
  "given everything selected so far, what is left and how do I get there?"
  It chains the milestone resolver and the run estimator and turns an
  incomplete selection into a not-ready result instead of an error.

PLANNING PROCESS:
  1. No table, current or target level   -> StatusNotReady
  2. Resolve points needed                 -> InvalidLevel / InvalidInput
  3. Points needed is 0                    -> StatusGoalReached
  4. No activity                           -> StatusNotReady (points kept)
  5. Estimate runs                         -> InvalidInput / DegenerateYield
  6. Return StatusReady with the estimate

STATELESSNESS:
  A Planner holds only its Estimator. Every Plan call gets the whole
  selection; nothing is patched incrementally.

EXAMPLE:
  planner := &Planner{Estimator: DefaultEstimator}
  result, err := planner.Plan(PlanInput{
      Table:    MilestoneTable{1000, 2500, 4500},
      Current:  &LevelSelection{Level: 1},
      Target:   &TargetSelection{Level: 3},
      Activity: &Activity{ID: "fq", Cost: 21, BaseYield: 815},
  })
  // result.PointsNeeded == 3500, result.Estimate.RunsNeeded == 5

SEE ALSO:
  - milestone.go: PointsNeeded
  - estimate.go: Estimator
*/
package generic

// =============================================================================
// PLANNER - Resolves a full selection
// =============================================================================

// Planner runs the resolver and estimator for one selection.
type Planner struct {
	Estimator Estimator
}

// NewPlanner returns a planner using the given estimator.
func NewPlanner(est Estimator) *Planner {
	return &Planner{Estimator: est}
}

// PlanInput is the complete selection. Nil pointers mean "not selected".
type PlanInput struct {
	// The entity's milestone table (nil when no entity is selected)
	Table MilestoneTable

	// Where the user is and wants to be
	Current *LevelSelection
	Target  *TargetSelection

	// The activity to repeat (nil when none is selected)
	Activity *Activity

	// Bonuses
	Modifiers ModifierSet
}

// PlanResult is the derived view of a selection.
type PlanResult struct {
	Status EstimateStatus

	// Points left to reach the target (valid unless StatusNotReady
	// was caused by a missing level selection)
	PointsNeeded int

	// Run estimate (nil unless StatusReady or StatusGoalReached)
	Estimate *RunEstimate

	// Display message for not-ready and goal-reached states
	Message string
}

// Plan resolves a selection into a result.
func (p *Planner) Plan(input PlanInput) (*PlanResult, error) {
	// 1. Incomplete selection is the idle state, not an error
	if len(input.Table) == 0 || input.Current == nil || input.Target == nil {
		return &PlanResult{
			Status:  StatusNotReady,
			Message: UserMessage(ErrMissingSelection),
		}, nil
	}

	// 2. Points needed
	points, err := PointsNeeded(input.Table, *input.Current, *input.Target)
	if err != nil {
		return nil, err
	}

	// 3. Already there
	if points == 0 {
		est, err := p.Estimator.Estimate(0, Activity{}, input.Modifiers)
		if err != nil {
			return nil, err
		}
		return &PlanResult{
			Status:   StatusGoalReached,
			Estimate: est,
			Message:  est.Message,
		}, nil
	}

	// 4. Points are known but no activity yet
	if input.Activity == nil {
		return &PlanResult{
			Status:       StatusNotReady,
			PointsNeeded: points,
			Message:      "Please select a quest",
		}, nil
	}

	// 5. Runs
	est, err := p.Estimator.Estimate(points, *input.Activity, input.Modifiers)
	if err != nil {
		return nil, err
	}

	return &PlanResult{
		Status:       StatusReady,
		PointsNeeded: points,
		Estimate:     est,
	}, nil
}
