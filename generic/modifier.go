/*
modifier.go - Modifier pipeline

PURPOSE:
  Transforms a base yield into the effective yield per run. The order is
  fixed and every stage floors independently:

    1. withPercent = floor(base * (1 + percent/100))
    2. withFlat    = withPercent + (heroic ? FlatBonusUnit * multiplier : 0)
    3. final       = frontline ? floor(withFlat * (1 + frontlinePercent)) : withFlat

  Reordering the stages or flooring only at the end changes results.

PRECISION:
  All stages run on decimal.Decimal. A float product such as 815 * 1.2
  can land a hair under the true integer and floor one point short.

SEE ALSO:
  - types.go: ModifierSet
  - estimate.go: Uses ApplyModifiers for bond per run
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// FlatBonusUnit is the flat bonus per heroic multiplier step.
	FlatBonusUnit = 50

	MinPercentBonus = 0
	MaxPercentBonus = 300
)

// FrontlinePercents lists the allowed multiplicative bonuses.
var FrontlinePercents = []decimal.Decimal{
	decimal.RequireFromString("0.04"),
	decimal.RequireFromString("0.20"),
	decimal.RequireFromString("0.24"),
}

var hundred = decimal.NewFromInt(100)

// ClampPercentBonus bounds a percentage bonus to 0..300.
func ClampPercentBonus(p int) int {
	return max(MinPercentBonus, min(MaxPercentBonus, p))
}

// Validate reports toggles whose values fall outside their enumerations.
// Disabled bonuses are not checked.
func (m ModifierSet) Validate() error {
	if m.Heroic.Enabled && m.Heroic.Multiplier != 1 && m.Heroic.Multiplier != 2 {
		return &InputError{
			Field:  "heroic multiplier",
			Value:  fmt.Sprint(m.Heroic.Multiplier),
			Reason: "must be 1 or 2",
		}
	}
	if m.Frontline.Enabled && !IsFrontlinePercent(m.Frontline.Percent) {
		return &InputError{
			Field:  "frontline percent",
			Value:  m.Frontline.Percent.String(),
			Reason: "must be one of 0.04, 0.20, 0.24",
		}
	}
	return nil
}

// IsFrontlinePercent reports whether p is an allowed frontline bonus.
func IsFrontlinePercent(p decimal.Decimal) bool {
	for _, allowed := range FrontlinePercents {
		if p.Equal(allowed) {
			return true
		}
	}
	return false
}

// ApplyModifiers runs base through the pipeline. The percent bonus is
// clamped to 0..300; other toggles are used as given (see Validate).
func ApplyModifiers(base int, mods ModifierSet) int {
	percent := decimal.NewFromInt(int64(ClampPercentBonus(mods.PercentBonus)))

	withPercent := decimal.NewFromInt(int64(base)).
		Mul(decimal.NewFromInt(1).Add(percent.Div(hundred))).
		Floor()

	withFlat := withPercent
	if mods.Heroic.Enabled {
		withFlat = withFlat.Add(decimal.NewFromInt(int64(FlatBonusUnit * mods.Heroic.Multiplier)))
	}

	final := withFlat
	if mods.Frontline.Enabled {
		final = withFlat.Mul(decimal.NewFromInt(1).Add(mods.Frontline.Percent)).Floor()
	}

	return int(final.IntPart())
}
