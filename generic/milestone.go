/*
milestone.go - Milestone resolver

PURPOSE:
  Derives the points still needed to move from the current level to a
  target level on one milestone table.

RULES:
  target <= current        -> 0 (already satisfied, never negative)
  current == 0             -> table[target-1]
  otherwise                -> table[target-1] - table[current-1]
                              minus what was already earned toward the
                              next level, when PointsLeft is given

POINTS LEFT vs EARNED:
  The game shows "points left to next level". The resolver converts that
  into the earned amount:

    levelDifference = table[current] - table[current-1]
    earned          = levelDifference - PointsLeft

  PointsLeft is clamped to levelDifference, so an oversized value counts
  as "nothing earned yet" and can never raise the result.

EXAMPLE:
  table := MilestoneTable{1000, 2500, 4500}
  PointsNeeded(table, LevelSelection{Level: 2, PointsLeft: 300}, TargetSelection{Level: 3})
  // 2000 - (2000 - 300) = 300

SEE ALSO:
  - types.go: MilestoneTable, LevelSelection, TargetSelection
  - plan.go: Calls PointsNeeded for a full selection
*/
package generic

// PointsNeeded returns the points required to reach target from current.
func PointsNeeded(table MilestoneTable, current LevelSelection, target TargetSelection) (int, error) {
	maxLevel := table.MaxLevel()
	if current.Level < 0 || current.Level > maxLevel {
		return 0, &LevelError{Field: "current", Level: current.Level, MaxLevel: maxLevel}
	}
	if target.Level < 0 || target.Level > maxLevel {
		return 0, &LevelError{Field: "target", Level: target.Level, MaxLevel: maxLevel}
	}
	if current.PointsLeft < 0 {
		return 0, &InputError{Field: "points left", Reason: "must not be negative"}
	}

	if target.Level <= current.Level {
		return 0, nil
	}

	if current.Level == 0 {
		return table[target.Level-1], nil
	}

	total := table[target.Level-1] - table[current.Level-1]

	if current.PointsLeft > 0 {
		// target > current, so current < maxLevel and table[current.Level] exists
		levelDifference := table[current.Level] - table[current.Level-1]
		left := min(current.PointsLeft, levelDifference)
		earned := levelDifference - left
		total -= earned
	}

	return total, nil
}

// PointsToNext returns the distance between current and the next level,
// or 0 at the top of the table. Used to bound the "points left" input.
func PointsToNext(table MilestoneTable, level int) int {
	if level < 0 || level >= table.MaxLevel() {
		return 0
	}
	return table.Threshold(level+1) - table.Threshold(level)
}
