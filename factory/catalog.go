/*
Package factory converts upstream game data JSON into catalog types.

PURPOSE:
  Atlas Academy exports are large and loosely typed. The factory walks them
  with gjson, keeps the records a bond calculation can use and validates
  every bond table before it reaches the engine. Records that fail are
  skipped and listed in a Report instead of failing the whole import.

SOURCES:
  nice_servant.json (NA), nice_servant_lang_en.json (JP):
    [{"id": 100100, "collectionNo": 2, "name": "Altria Pendragon",
      "className": "saber", "type": "normal", "rarity": 5, "cost": 16,
      "bondGrowth": [1000, 2500, ...], "traits": [{"id": 1, "name": "..."}]}]

  mstQuest.json:      [{"id": 93000001, "name": "...", "type": 2,
                        "consumeType": 1, "actConsume": 21,
                        "afterClear": 3, "spotId": 1001}]
  mstQuestPhase.json: [{"questId": 93000001, "phase": 1, "friendshipExp": 815}]
  mstSpot.json:       [{"id": 1001, "warId": 100, "name": "..."}]
  mstWar.json:        [{"id": 100, "longName": "..."}]
  nice_enums.json:    {"NiceQuestType": {"2": "free"}, ...}

SERVANT RULES:
  - type "normal" when the field is present
  - collectionNo > 0, id not in the 9xxxxx placeholder range
  - className present, bondGrowth a valid milestone table
  - cost > 0, except Mash (shielder) who costs 0
  - Solomon (caster) is an enemy-only entry

QUEST RULES:
  - at least one phase grants bond
  - enum names resolved from nice_enums, falling back to the number
  - Capped when the quest or spot name marks Bleached Earth

SEE ALSO:
  - bond/types.go: Servant and Quest
  - fetch/: Downloads the sources
*/
package factory

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/generic"
)

// ErrMalformedSource is returned when a document is not the expected JSON shape.
var ErrMalformedSource = errors.New("malformed source document")

// =============================================================================
// REPORT
// =============================================================================

// Skip is a record left out of an import.
type Skip struct {
	Kind   string `json:"kind"`
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

// Report summarizes an import.
type Report struct {
	Accepted int    `json:"accepted"`
	Skipped  []Skip `json:"skipped,omitempty"`
}

func (r *Report) skip(kind string, id int64, reason string) {
	r.Skipped = append(r.Skipped, Skip{Kind: kind, ID: id, Reason: reason})
}

// Merge adds other's counts to r.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Accepted += other.Accepted
	r.Skipped = append(r.Skipped, other.Skipped...)
}

func requireArray(name string, raw []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%s: %w: invalid JSON", name, ErrMalformedSource)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return gjson.Result{}, fmt.Errorf("%s: %w: expected an array", name, ErrMalformedSource)
	}
	return doc, nil
}

// =============================================================================
// SERVANTS
// =============================================================================

// ParseNiceServants reads an Atlas nice_servant export.
func ParseNiceServants(raw []byte, region bond.Region) ([]bond.Servant, *Report, error) {
	doc, err := requireArray(fmt.Sprintf("%s servants", region), raw)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	var servants []bond.Servant
	doc.ForEach(func(_, v gjson.Result) bool {
		id := v.Get("id").Int()
		if reason := servantRejection(v); reason != "" {
			report.skip("servant", id, reason)
			return true
		}
		s, err := servantFromResult(v)
		if err != nil {
			report.skip("servant", id, err.Error())
			return true
		}
		servants = append(servants, s)
		return true
	})

	sortServants(servants)
	report.Accepted = len(servants)
	return servants, report, nil
}

// servantRejection returns why a nice servant is not a playable servant,
// or "" when it is.
func servantRejection(v gjson.Result) string {
	className := v.Get("className").String()
	switch {
	case v.Get("type").Exists() && v.Get("type").String() != "normal":
		return "not a normal servant"
	case v.Get("collectionNo").Int() <= 0:
		return "no collection number"
	case strings.HasPrefix(strconv.FormatInt(v.Get("id").Int(), 10), "9"):
		return "placeholder id"
	case className == "":
		return "no class"
	case !v.Get("bondGrowth").IsArray():
		return "no bond growth"
	case strings.Contains(strings.ToLower(v.Get("name").String()), "solomon") &&
		strings.Contains(strings.ToLower(className), "caster"):
		return "enemy-only entry"
	case v.Get("cost").Int() <= 0 && !strings.EqualFold(className, "shielder"):
		return "no cost"
	}
	return ""
}

func servantFromResult(v gjson.Result) (bond.Servant, error) {
	s := bond.Servant{
		ID:           int(v.Get("id").Int()),
		CollectionNo: int(v.Get("collectionNo").Int()),
		Name:         v.Get("name").String(),
		ClassName:    v.Get("className").String(),
		Rarity:       int(v.Get("rarity").Int()),
		Cost:         int(v.Get("cost").Int()),
	}
	v.Get("bondGrowth").ForEach(func(_, p gjson.Result) bool {
		s.BondGrowth = append(s.BondGrowth, int(p.Int()))
		return true
	})
	// nice exports carry {"id", "name"} objects; cached files carry names
	v.Get("traits").ForEach(func(_, t gjson.Result) bool {
		if t.IsObject() {
			s.Traits = append(s.Traits, t.Get("name").String())
		} else {
			s.Traits = append(s.Traits, t.String())
		}
		return true
	})
	if err := s.BondGrowth.Validate(); err != nil {
		return bond.Servant{}, err
	}
	return s, nil
}

// ParseLocalServants reads a cached servants file written by fetch.
func ParseLocalServants(raw []byte) ([]bond.Servant, *Report, error) {
	doc, err := requireArray("servants", raw)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	var servants []bond.Servant
	doc.ForEach(func(_, v gjson.Result) bool {
		s, err := servantFromResult(v)
		if err != nil {
			report.skip("servant", v.Get("id").Int(), err.Error())
			return true
		}
		servants = append(servants, s)
		return true
	})

	sortServants(servants)
	report.Accepted = len(servants)
	return servants, report, nil
}

func sortServants(servants []bond.Servant) {
	sort.SliceStable(servants, func(i, j int) bool {
		return servants[i].CollectionNo < servants[j].CollectionNo
	})
}

// =============================================================================
// QUESTS
// =============================================================================

// QuestSources are the raw documents a quest catalog is built from.
// Spots and Wars may be nil, in which case quests carry no location names.
type QuestSources struct {
	Quests []byte
	Phases []byte
	Spots  []byte
	Wars   []byte
	Enums  []byte
}

type enumTable map[string]string

func (e enumTable) name(v gjson.Result) string {
	key := strconv.FormatInt(v.Int(), 10)
	if n, ok := e[key]; ok {
		return n
	}
	return key
}

func loadEnum(enums gjson.Result, name string) enumTable {
	table := enumTable{}
	enums.Get(name).ForEach(func(k, v gjson.Result) bool {
		table[k.String()] = v.String()
		return true
	})
	return table
}

// BuildQuests joins the master quest tables into catalog quests.
func BuildQuests(src QuestSources) ([]bond.Quest, *Report, error) {
	quests, err := requireArray("mstQuest", src.Quests)
	if err != nil {
		return nil, nil, err
	}
	phases, err := requireArray("mstQuestPhase", src.Phases)
	if err != nil {
		return nil, nil, err
	}
	if !gjson.ValidBytes(src.Enums) {
		return nil, nil, fmt.Errorf("nice_enums: %w: invalid JSON", ErrMalformedSource)
	}
	enums := gjson.ParseBytes(src.Enums)
	questTypes := loadEnum(enums, "NiceQuestType")
	consumeTypes := loadEnum(enums, "NiceConsumeType")
	afterClears := loadEnum(enums, "NiceQuestAfterClearType")

	bondByQuest := make(map[int64]map[int]int)
	phases.ForEach(func(_, p gjson.Result) bool {
		qid := p.Get("questId").Int()
		exp := int(p.Get("friendshipExp").Int())
		if exp <= 0 {
			return true
		}
		if bondByQuest[qid] == nil {
			bondByQuest[qid] = make(map[int]int)
		}
		bondByQuest[qid][int(p.Get("phase").Int())] = exp
		return true
	})

	spotNames, spotWars, err := loadSpots(src.Spots)
	if err != nil {
		return nil, nil, err
	}
	warNames, err := loadWars(src.Wars)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	var out []bond.Quest
	quests.ForEach(func(_, v gjson.Result) bool {
		id := v.Get("id").Int()
		bondMap, ok := bondByQuest[id]
		if !ok {
			report.skip("quest", id, "no bond reward")
			return true
		}
		spotID := v.Get("spotId").Int()
		q := bond.Quest{
			ID:          int(id),
			Name:        v.Get("name").String(),
			SpotName:    spotNames[spotID],
			WarLongName: warNames[spotWars[spotID]],
			QuestType:   questTypes.name(v.Get("type")),
			ConsumeType: consumeTypes.name(v.Get("consumeType")),
			AfterClear:  afterClears.name(v.Get("afterClear")),
			AP:          int(v.Get("actConsume").Int()),
			Bond:        bondMap,
		}
		q.Capped = bond.IsBleachedEarth(q.Name, q.SpotName)
		out = append(out, q)
		return true
	})

	sortQuests(out)
	report.Accepted = len(out)
	return out, report, nil
}

func loadSpots(raw []byte) (names map[int64]string, wars map[int64]int64, err error) {
	names = make(map[int64]string)
	wars = make(map[int64]int64)
	if raw == nil {
		return names, wars, nil
	}
	doc, err := requireArray("mstSpot", raw)
	if err != nil {
		return nil, nil, err
	}
	doc.ForEach(func(_, v gjson.Result) bool {
		id := v.Get("id").Int()
		names[id] = v.Get("name").String()
		wars[id] = v.Get("warId").Int()
		return true
	})
	return names, wars, nil
}

func loadWars(raw []byte) (map[int64]string, error) {
	names := make(map[int64]string)
	if raw == nil {
		return names, nil
	}
	doc, err := requireArray("mstWar", raw)
	if err != nil {
		return nil, err
	}
	doc.ForEach(func(_, v gjson.Result) bool {
		names[v.Get("id").Int()] = v.Get("longName").String()
		return true
	})
	return names, nil
}

// ParseLocalQuests reads a cached quests file written by fetch.
func ParseLocalQuests(raw []byte) ([]bond.Quest, *Report, error) {
	doc, err := requireArray("quests", raw)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	var out []bond.Quest
	doc.ForEach(func(_, v gjson.Result) bool {
		id := v.Get("questId").Int()
		q := bond.Quest{
			ID:          int(id),
			Name:        v.Get("questName").String(),
			SpotName:    v.Get("spotName").String(),
			WarLongName: v.Get("warLongName").String(),
			QuestType:   v.Get("questType").String(),
			ConsumeType: v.Get("consumeType").String(),
			AfterClear:  v.Get("afterClear").String(),
			AP:          int(v.Get("ap").Int()),
			Bond:        make(map[int]int),
		}
		var bad string
		v.Get("bond").ForEach(func(k, b gjson.Result) bool {
			phase, err := strconv.Atoi(k.String())
			if err != nil || b.Int() < 0 {
				bad = fmt.Sprintf("invalid bond entry %q", k.String())
				return false
			}
			q.Bond[phase] = int(b.Int())
			return true
		})
		if bad != "" {
			report.skip("quest", id, bad)
			return true
		}
		q.Capped = v.Get("capped").Bool() || bond.IsBleachedEarth(q.Name, q.SpotName)
		out = append(out, q)
		return true
	})

	sortQuests(out)
	report.Accepted = len(out)
	return out, report, nil
}

func sortQuests(quests []bond.Quest) {
	sort.Slice(quests, func(i, j int) bool { return quests[i].ID < quests[j].ID })
}

// TableFromJSON parses a bare milestone table such as "[1000, 2500]".
func TableFromJSON(raw []byte) (generic.MilestoneTable, error) {
	doc, err := requireArray("milestones", raw)
	if err != nil {
		return nil, err
	}
	var table generic.MilestoneTable
	doc.ForEach(func(_, v gjson.Result) bool {
		table = append(table, int(v.Int()))
		return true
	})
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
