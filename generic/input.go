package generic

import (
	"strconv"
	"strings"
)

// =============================================================================
// FORMATTED NUMBER INPUT
// =============================================================================

// ParseFormattedInt parses a user-entered number such as "12,345".
// Thousands separators and surrounding spaces are ignored. Empty or
// unparsable input yields 0; callers decide whether 0 is acceptable.
func ParseFormattedInt(s string) int {
	cleaned := strings.NewReplacer(",", "", "_", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

// CustomActivityID identifies activities built from manual input.
const CustomActivityID = "custom"

// CustomActivity builds an activity from manual bond-per-run and cost
// fields. Both must parse to a positive number.
func CustomActivity(pointsText, costText string) (Activity, error) {
	points := ParseFormattedInt(pointsText)
	if points <= 0 {
		return Activity{}, &InputError{Field: "bond points per run", Value: pointsText, Reason: "enter a positive number"}
	}
	cost := ParseFormattedInt(costText)
	if cost <= 0 {
		return Activity{}, &InputError{Field: "AP per run", Value: costText, Reason: "enter a positive number"}
	}
	return Activity{
		ID:        CustomActivityID,
		Name:      "Custom Quest",
		Cost:      cost,
		BaseYield: points,
	}, nil
}
