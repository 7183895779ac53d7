/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine and catalog types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Catalog:
    ServantDTO, QuestDTO, PresetGroupDTO

  Calculation:
    PointsNeededRequest, ModifiersRequest, EstimateRequest, PlanRequest
    ModifiersDTO, ActivityDTO, EstimateDTO, PlanDTO

  Admin:
    RefreshRequest (responses use bond.RefreshRun)

NUMBERS FROM TEXT FIELDS:
  Custom activity values arrive as the user typed them ("1,234") and are
  parsed with generic.ParseFormattedInt.

VALIDATION:
  Validation is done by the engine, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - resolve.go: Turns requests into engine inputs
*/
package api

import (
	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/generic"
)

// =============================================================================
// CATALOG
// =============================================================================

// ServantDTO represents a servant in API responses.
type ServantDTO struct {
	ID           int                `json:"id"`
	CollectionNo int                `json:"collectionNo"`
	Name         string             `json:"name"`
	ClassName    string             `json:"className"`
	ClassLabel   string             `json:"classLabel"`
	Rarity       int                `json:"rarity"`
	Cost         int                `json:"cost"`
	MaxBondLevel int                `json:"maxBondLevel"`
	Levels       []bond.LevelOption `json:"levels,omitempty"`
	Traits       []string           `json:"traits,omitempty"`
}

func toServantDTO(s bond.Servant, withLevels bool) ServantDTO {
	dto := ServantDTO{
		ID:           s.ID,
		CollectionNo: s.CollectionNo,
		Name:         s.Name,
		ClassName:    s.ClassName,
		ClassLabel:   s.ClassLabel(),
		Rarity:       s.Rarity,
		Cost:         s.Cost,
		MaxBondLevel: s.BondGrowth.MaxLevel(),
	}
	if withLevels {
		dto.Levels = s.LevelOptions()
		dto.Traits = s.Traits
	}
	return dto
}

// QuestDTO represents a quest in API responses.
type QuestDTO struct {
	ID          int    `json:"questId"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	AP          int    `json:"ap"`
	BaseBond    int    `json:"baseBond"`
	Capped      bool   `json:"capped"`
	Farmable    bool   `json:"farmable"`
}

func toQuestDTO(q bond.Quest) QuestDTO {
	return QuestDTO{
		ID:          q.ID,
		Name:        q.Name,
		DisplayName: q.DisplayName(),
		AP:          q.AP,
		BaseBond:    q.BaseBond(),
		Capped:      q.Capped,
		Farmable:    q.Farmable(),
	}
}

// PresetDTO is a quick-list entry.
type PresetDTO struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Short  string `json:"short"`
	AP     int    `json:"ap"`
	Bond   int    `json:"bond"`
	Capped bool   `json:"capped"`
}

// PresetGroupDTO is a quick-list section.
type PresetGroupDTO struct {
	Label   string      `json:"label"`
	Presets []PresetDTO `json:"presets"`
}

func toPresetGroupDTOs(groups []bond.PresetGroup) []PresetGroupDTO {
	out := make([]PresetGroupDTO, 0, len(groups))
	for _, g := range groups {
		dto := PresetGroupDTO{Label: g.Label, Presets: make([]PresetDTO, 0, len(g.Presets))}
		for _, p := range g.Presets {
			dto.Presets = append(dto.Presets, PresetDTO{
				Key:    p.Key,
				Label:  p.Label(),
				Short:  p.Short,
				AP:     p.AP,
				Bond:   p.Bond,
				Capped: p.Capped,
			})
		}
		out = append(out, dto)
	}
	return out
}

// =============================================================================
// CALCULATION REQUESTS
// =============================================================================

// TableSource names the milestone table: a catalog servant or an explicit
// list of cumulative thresholds. Milestones wins when both are given.
type TableSource struct {
	Region     string `json:"region,omitempty"`
	ServantID  *int   `json:"servantId,omitempty"`
	Milestones []int  `json:"milestones,omitempty"`
}

// LevelSelectionDTO is the current level and the in-game "points left".
type LevelSelectionDTO struct {
	Level      int `json:"level"`
	PointsLeft int `json:"pointsLeft"`
}

// ModifiersDTO carries the bonus toggles.
type ModifiersDTO struct {
	PercentBonus     int    `json:"percentBonus"`
	Heroic           bool   `json:"heroic"`
	HeroicMultiplier int    `json:"heroicMultiplier"`
	Frontline        bool   `json:"frontline"`
	FrontlinePercent string `json:"frontlinePercent,omitempty"`
}

// CustomActivityDTO is the manual bond and AP entry.
type CustomActivityDTO struct {
	BondPerRun string `json:"bondPerRun"`
	APPerRun   string `json:"apPerRun"`
}

// ActivityDTO selects exactly one activity source.
type ActivityDTO struct {
	Region  string             `json:"region,omitempty"`
	QuestID *int               `json:"questId,omitempty"`
	Preset  string             `json:"preset,omitempty"`
	Custom  *CustomActivityDTO `json:"custom,omitempty"`
}

// PointsNeededRequest is the body of POST /api/bond/points-needed.
type PointsNeededRequest struct {
	TableSource
	Current     LevelSelectionDTO `json:"current"`
	TargetLevel int               `json:"targetLevel"`
}

// PointsNeededDTO is the resolver result.
type PointsNeededDTO struct {
	PointsNeeded int `json:"pointsNeeded"`
	PointsToNext int `json:"pointsToNext"`
	MaxLevel     int `json:"maxLevel"`
}

// ModifiersRequest is the body of POST /api/bond/modifiers.
type ModifiersRequest struct {
	BaseBond  int          `json:"baseBond"`
	Modifiers ModifiersDTO `json:"modifiers"`
}

// ModifiersResultDTO is the per-run yield.
type ModifiersResultDTO struct {
	BaseBond   int `json:"baseBond"`
	BondPerRun int `json:"bondPerRun"`
}

// EstimateRequest is the body of POST /api/bond/estimate.
type EstimateRequest struct {
	PointsNeeded int          `json:"pointsNeeded"`
	Activity     ActivityDTO  `json:"activity"`
	Modifiers    ModifiersDTO `json:"modifiers"`
}

// PlanRequest is the body of POST /api/bond/plan. Any part may be
// missing; the plan then reports not_ready.
type PlanRequest struct {
	TableSource
	Current     *LevelSelectionDTO `json:"current,omitempty"`
	TargetLevel *int               `json:"targetLevel,omitempty"`
	Activity    *ActivityDTO       `json:"activity,omitempty"`
	Modifiers   ModifiersDTO       `json:"modifiers"`
}

// =============================================================================
// CALCULATION RESPONSES
// =============================================================================

// EstimateDTO is a run estimate.
type EstimateDTO struct {
	Status           string `json:"status"`
	QuestName        string `json:"questName,omitempty"`
	PointsNeeded     int    `json:"pointsNeeded"`
	BondPerRun       int    `json:"bondPerRun"`
	RunsNeeded       int    `json:"runsNeeded"`
	TotalAP          int    `json:"totalAP"`
	EstimatedMinutes string `json:"estimatedMinutes"`
	Hours            int    `json:"hours"`
	Minutes          int    `json:"minutes"`
	DaysNeeded       int    `json:"daysNeeded"`
	Capped           bool   `json:"capped"`
	Message          string `json:"message,omitempty"`
}

func toEstimateDTO(e *generic.RunEstimate, questName string) *EstimateDTO {
	if e == nil {
		return nil
	}
	hours, minutes := e.Duration()
	dto := &EstimateDTO{
		Status:           string(e.Status),
		PointsNeeded:     e.PointsNeeded,
		BondPerRun:       e.BondPerRun,
		RunsNeeded:       e.RunsNeeded,
		TotalAP:          e.TotalCost,
		EstimatedMinutes: e.EstimatedMinutes.String(),
		Hours:            hours,
		Minutes:          minutes,
		DaysNeeded:       e.DaysNeeded,
		Capped:           e.Capped,
		Message:          e.Message,
	}
	if e.Status == generic.StatusReady {
		dto.QuestName = questName
	}
	return dto
}

// PlanDTO is the full calculator view.
type PlanDTO struct {
	Status       string       `json:"status"`
	PointsNeeded int          `json:"pointsNeeded"`
	Estimate     *EstimateDTO `json:"estimate,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// =============================================================================
// ADMIN
// =============================================================================

// RefreshRequest is the body of POST /api/admin/refresh.
type RefreshRequest struct {
	Region string `json:"region"`
}

// ErrorResponse is the error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
