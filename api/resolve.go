/*
resolve.go - Turns API requests into engine inputs

PURPOSE:
  Both the HTTP handlers and the Lambda entrypoint accept the same
  request bodies. This file resolves their references (servant ids,
  quest ids, preset keys, custom text fields) against a catalog and
  runs the planner.

RESOLUTION ORDER:
  Milestone table:  explicit milestones > servantId lookup
  Activity:         custom > preset > questId

SEE ALSO:
  - dto.go: Request types
  - cmd/lambda/main.go: Uses Resolver without a server
*/
package api

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/generic"
)

// Resolver resolves request references against a catalog.
// Catalog may be nil when callers only send explicit tables and
// presets or custom activities.
type Resolver struct {
	Catalog bond.Catalog
	Planner *generic.Planner
}

// NewResolver creates a resolver.
func NewResolver(catalog bond.Catalog, est generic.Estimator) *Resolver {
	return &Resolver{Catalog: catalog, Planner: generic.NewPlanner(est)}
}

// Table returns the milestone table a request names, or nil when it
// names none.
func (r *Resolver) Table(ctx context.Context, src TableSource) (generic.MilestoneTable, error) {
	if len(src.Milestones) > 0 {
		table := generic.MilestoneTable(src.Milestones)
		if err := table.Validate(); err != nil {
			return nil, err
		}
		return table, nil
	}
	if src.ServantID == nil {
		return nil, nil
	}
	region, err := bond.ParseRegion(src.Region)
	if err != nil {
		return nil, err
	}
	servant, err := r.servant(ctx, region, *src.ServantID)
	if err != nil {
		return nil, err
	}
	return servant.BondGrowth, nil
}

func (r *Resolver) servant(ctx context.Context, region bond.Region, id int) (*bond.Servant, error) {
	if r.Catalog == nil {
		return nil, &bond.NotFoundError{Kind: "servant", Region: region, ID: id}
	}
	return r.Catalog.Servant(ctx, region, id)
}

// Activity returns the selected activity, or nil when none is selected.
func (r *Resolver) Activity(ctx context.Context, sel ActivityDTO) (*generic.Activity, error) {
	switch {
	case sel.Custom != nil:
		a, err := generic.CustomActivity(sel.Custom.BondPerRun, sel.Custom.APPerRun)
		if err != nil {
			return nil, err
		}
		return &a, nil

	case sel.Preset != "":
		p, ok := bond.LookupPreset(sel.Preset)
		if !ok {
			return nil, &generic.InputError{Field: "preset", Value: sel.Preset, Reason: "unknown quest preset"}
		}
		a := p.Activity()
		return &a, nil

	case sel.QuestID != nil:
		region, err := bond.ParseRegion(sel.Region)
		if err != nil {
			return nil, err
		}
		if r.Catalog == nil {
			return nil, &bond.NotFoundError{Kind: "quest", Region: region, ID: *sel.QuestID}
		}
		q, err := r.Catalog.Quest(ctx, region, *sel.QuestID)
		if err != nil {
			return nil, err
		}
		a := q.Activity()
		return &a, nil
	}
	return nil, nil
}

// Modifiers converts the bonus toggles. An enabled frontline bonus with
// no percent uses 20%.
func (r *Resolver) Modifiers(m ModifiersDTO) (generic.ModifierSet, error) {
	mods := generic.ModifierSet{
		PercentBonus: generic.ClampPercentBonus(m.PercentBonus),
		Heroic:       generic.HeroicBonus{Enabled: m.Heroic, Multiplier: m.HeroicMultiplier},
		Frontline:    generic.FrontlineBonus{Enabled: m.Frontline},
	}
	if mods.Heroic.Enabled && mods.Heroic.Multiplier == 0 {
		mods.Heroic.Multiplier = 1
	}
	if m.Frontline {
		pct := "0.20"
		if m.FrontlinePercent != "" {
			pct = m.FrontlinePercent
		}
		d, err := decimal.NewFromString(pct)
		if err != nil {
			return generic.ModifierSet{}, &generic.InputError{Field: "frontline percent", Value: pct, Reason: "not a number"}
		}
		mods.Frontline.Percent = d
	}
	if err := mods.Validate(); err != nil {
		return generic.ModifierSet{}, err
	}
	return mods, nil
}

// PointsNeeded resolves a points-needed request.
func (r *Resolver) PointsNeeded(ctx context.Context, req PointsNeededRequest) (*PointsNeededDTO, error) {
	table, err := r.Table(ctx, req.TableSource)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, &generic.InputError{Field: "milestones", Reason: "select a servant or send a milestone table"}
	}
	points, err := generic.PointsNeeded(table,
		generic.LevelSelection{Level: req.Current.Level, PointsLeft: req.Current.PointsLeft},
		generic.TargetSelection{Level: req.TargetLevel})
	if err != nil {
		return nil, err
	}
	return &PointsNeededDTO{
		PointsNeeded: points,
		PointsToNext: generic.PointsToNext(table, req.Current.Level),
		MaxLevel:     table.MaxLevel(),
	}, nil
}

// Estimate resolves an estimate request.
func (r *Resolver) Estimate(ctx context.Context, req EstimateRequest) (*EstimateDTO, error) {
	mods, err := r.Modifiers(req.Modifiers)
	if err != nil {
		return nil, err
	}
	activity, err := r.Activity(ctx, req.Activity)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		if req.PointsNeeded != 0 {
			return nil, &generic.InputError{Field: "activity", Reason: "select a quest, preset or custom values"}
		}
		activity = &generic.Activity{}
	}
	est, err := r.Planner.Estimator.Estimate(req.PointsNeeded, *activity, mods)
	if err != nil {
		return nil, err
	}
	return toEstimateDTO(est, activity.Name), nil
}

// Plan resolves a full selection.
func (r *Resolver) Plan(ctx context.Context, req PlanRequest) (*PlanDTO, error) {
	mods, err := r.Modifiers(req.Modifiers)
	if err != nil {
		return nil, err
	}
	table, err := r.Table(ctx, req.TableSource)
	if err != nil {
		return nil, err
	}

	input := generic.PlanInput{Table: table, Modifiers: mods}
	if req.Current != nil {
		input.Current = &generic.LevelSelection{Level: req.Current.Level, PointsLeft: req.Current.PointsLeft}
	}
	if req.TargetLevel != nil {
		input.Target = &generic.TargetSelection{Level: *req.TargetLevel}
	}
	if req.Activity != nil {
		activity, err := r.Activity(ctx, *req.Activity)
		if err != nil {
			return nil, err
		}
		input.Activity = activity
	}

	result, err := r.Planner.Plan(input)
	if err != nil {
		return nil, err
	}

	var questName string
	if input.Activity != nil {
		questName = input.Activity.Name
	}
	return &PlanDTO{
		Status:       string(result.Status),
		PointsNeeded: result.PointsNeeded,
		Estimate:     toEstimateDTO(result.Estimate, questName),
		Message:      result.Message,
	}, nil
}

// BondPerRun runs the modifier pipeline alone.
func (r *Resolver) BondPerRun(req ModifiersRequest) (*ModifiersResultDTO, error) {
	if req.BaseBond < 0 {
		return nil, &generic.InputError{Field: "base bond", Value: fmt.Sprint(req.BaseBond), Reason: "must not be negative"}
	}
	mods, err := r.Modifiers(req.Modifiers)
	if err != nil {
		return nil, err
	}
	return &ModifiersResultDTO{
		BaseBond:   req.BaseBond,
		BondPerRun: generic.ApplyModifiers(req.BaseBond, mods),
	}, nil
}
