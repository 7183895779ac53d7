/*
main.go - Command-line bond calculator

PURPOSE:
  Answers "how many runs to reach bond N" from the terminal, using the
  cached catalog files and the remembered preferences.

COMMAND-LINE FLAGS:
  Selection:
    -servant     Name search or collection number
    -milestones  Explicit cumulative table ("1000,3000,6000")
    -current     Current bond level (default 0)
    -left        Points left to next level, as shown in game
    -target      Target bond level (default: max)

  Activity (first match wins):
    -bond/-ap    Custom bond and AP per run
    -preset      Quick-list key (see -presets)
    -quest       Quest id from the catalog

  Bonuses (default: remembered preferences):
    -bonus       Percent bonus from craft essences and costumes
    -heroic      Heroic portrait multiplier, 0 to disable
    -frontline   Frontline bonus: 0, 0.04, 0.20 or 0.24

  Other:
    -region      NA or JP
    -data        Catalog directory (default ./data)
    -prefs       Preferences file (default: user config dir)
    -save        Remember region and bonuses
    -presets     List quick-list presets and exit

EXAMPLES:
  bondcalc -servant="altria" -current=10 -target=15 -preset=bleached_90ss
  bondcalc -milestones=1000,3000,6000 -target=3 -bond=815 -ap=21 -bonus=10

SEE ALSO:
  - api/resolve.go: Shared request resolution
  - prefs/prefs.go: Preferences file
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bondcalc/bond-engine/api"
	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/bond/store"
	"github.com/bondcalc/bond-engine/generic"
	"github.com/bondcalc/bond-engine/prefs"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "bondcalc: %s\n", describe(err))
		os.Exit(1)
	}
}

type options struct {
	servant    string
	milestones string
	current    int
	left       string
	target     int

	bond   string
	ap     string
	preset string
	quest  int

	bonus     int
	heroic    int
	frontline string

	region    string
	dataDir   string
	prefsPath string
	save      bool
	presets   bool

	// presetSet is true when -preset was given on the command line rather
	// than taken from the preferences file.
	presetSet bool
}

func parseFlags(args []string, p prefs.Preferences) (*options, *flag.FlagSet, error) {
	o := &options{}
	fs := flag.NewFlagSet("bondcalc", flag.ContinueOnError)

	fs.StringVar(&o.servant, "servant", "", "servant name search or collection number")
	fs.StringVar(&o.milestones, "milestones", "", "cumulative bond table, comma separated")
	fs.IntVar(&o.current, "current", 0, "current bond level")
	fs.StringVar(&o.left, "left", "", "points left to next level")
	fs.IntVar(&o.target, "target", -1, "target bond level (default: max)")

	fs.StringVar(&o.bond, "bond", "", "custom bond per run")
	fs.StringVar(&o.ap, "ap", "", "custom AP per run")
	fs.StringVar(&o.preset, "preset", p.DefaultPreset, "quest preset key")
	fs.IntVar(&o.quest, "quest", 0, "quest id")

	heroic := 0
	if p.Modifiers.Heroic {
		heroic = p.Modifiers.HeroicMultiplier
	}
	frontline := "0"
	if p.Modifiers.Frontline {
		frontline = p.Modifiers.FrontlinePercent
	}
	fs.IntVar(&o.bonus, "bonus", p.Modifiers.PercentBonus, "percent bonus (0-300)")
	fs.IntVar(&o.heroic, "heroic", heroic, "heroic portrait multiplier (0, 1 or 2)")
	fs.StringVar(&o.frontline, "frontline", frontline, "frontline bonus (0, 0.04, 0.20, 0.24)")

	fs.StringVar(&o.region, "region", p.Region, "region (NA or JP)")
	fs.StringVar(&o.dataDir, "data", "./data", "catalog directory")
	fs.StringVar(&o.prefsPath, "prefs", "", "preferences file")
	fs.BoolVar(&o.save, "save", false, "remember region and bonuses")
	fs.BoolVar(&o.presets, "presets", false, "list quest presets and exit")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "preset" {
			o.presetSet = true
		}
	})
	return o, fs, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	prefsPath := prefsPathFrom(args)
	p, err := prefs.Load(prefsPath)
	if err != nil {
		return err
	}

	o, fs, err := parseFlags(args, p)
	if err != nil {
		return err
	}

	if o.presets {
		printPresets(out)
		return nil
	}

	region, err := bond.ParseRegion(o.region)
	if err != nil {
		return err
	}

	mods := modifiersFrom(o)
	if o.save {
		if err := savePrefs(prefsPath, region, o, mods); err != nil {
			return err
		}
	}

	catalog := store.NewMemory()
	if o.servant != "" || o.quest != 0 {
		if _, err := catalog.LoadFiles(ctx, o.dataDir); err != nil {
			return err
		}
	}
	resolver := api.NewResolver(catalog, bond.Estimator())

	req := api.PlanRequest{
		TableSource: api.TableSource{Region: string(region)},
		Current:     &api.LevelSelectionDTO{Level: o.current, PointsLeft: generic.ParseFormattedInt(o.left)},
		Modifiers:   mods,
	}

	var servant *bond.Servant
	switch {
	case o.milestones != "":
		table, err := parseMilestones(o.milestones)
		if err != nil {
			return err
		}
		req.Milestones = table
	case o.servant != "":
		servant, err = findServant(ctx, catalog, region, o.servant)
		if err != nil {
			return err
		}
		req.ServantID = &servant.ID
	default:
		fs.Usage()
		return errors.New("select a servant with -servant or a table with -milestones")
	}

	table, err := resolver.Table(ctx, req.TableSource)
	if err != nil {
		return err
	}
	target := o.target
	if target < 0 {
		target = table.MaxLevel()
	}
	req.TargetLevel = &target

	activity := activityFrom(o, region)
	if activity != nil {
		req.Activity = activity
	}

	plan, err := resolver.Plan(ctx, req)
	if err != nil {
		return err
	}
	printPlan(out, servant, o.current, target, plan)
	return nil
}

// prefsPathFrom finds -prefs before the full parse so its values can
// become flag defaults.
func prefsPathFrom(args []string) string {
	for i, a := range args {
		switch {
		case strings.HasPrefix(a, "-prefs=") || strings.HasPrefix(a, "--prefs="):
			return a[strings.Index(a, "=")+1:]
		case (a == "-prefs" || a == "--prefs") && i+1 < len(args):
			return args[i+1]
		}
	}
	path, err := prefs.DefaultPath()
	if err != nil {
		return "prefs.toml"
	}
	return path
}

func modifiersFrom(o *options) api.ModifiersDTO {
	m := api.ModifiersDTO{PercentBonus: o.bonus}
	if o.heroic > 0 {
		m.Heroic = true
		m.HeroicMultiplier = o.heroic
	}
	if f := strings.TrimSpace(o.frontline); f != "" && f != "0" {
		m.Frontline = true
		m.FrontlinePercent = f
	}
	return m
}

// activityFrom picks custom values, then a -preset flag, then -quest, and
// falls back to the remembered preset.
func activityFrom(o *options, region bond.Region) *api.ActivityDTO {
	switch {
	case o.bond != "" || o.ap != "":
		return &api.ActivityDTO{Custom: &api.CustomActivityDTO{BondPerRun: o.bond, APPerRun: o.ap}}
	case o.presetSet && o.preset != "":
		return &api.ActivityDTO{Preset: o.preset}
	case o.quest != 0:
		return &api.ActivityDTO{Region: string(region), QuestID: &o.quest}
	case o.preset != "":
		return &api.ActivityDTO{Preset: o.preset}
	}
	return nil
}

func savePrefs(path string, region bond.Region, o *options, m api.ModifiersDTO) error {
	p := prefs.Default()
	p.Region = string(region)
	p.DefaultPreset = o.preset
	p.Modifiers.PercentBonus = generic.ClampPercentBonus(m.PercentBonus)
	p.Modifiers.Heroic = m.Heroic
	if m.Heroic {
		p.Modifiers.HeroicMultiplier = m.HeroicMultiplier
	}
	p.Modifiers.Frontline = m.Frontline
	if m.Frontline {
		p.Modifiers.FrontlinePercent = m.FrontlinePercent
	}
	if _, err := p.ModifierSet(); err != nil {
		return err
	}
	return prefs.Save(path, p)
}

func parseMilestones(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	table := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, &generic.InputError{Field: "milestones", Value: part, Reason: "not a number"}
		}
		table = append(table, n)
	}
	return table, nil
}

// findServant matches a collection number exactly, otherwise takes the
// best fuzzy match.
func findServant(ctx context.Context, catalog bond.Catalog, region bond.Region, query string) (*bond.Servant, error) {
	if no, err := strconv.Atoi(query); err == nil {
		servants, err := catalog.Servants(ctx, region)
		if err != nil {
			return nil, err
		}
		for _, s := range servants {
			if s.CollectionNo == no {
				return &s, nil
			}
		}
		return nil, &bond.NotFoundError{Kind: "servant", Region: region, ID: no}
	}

	search, err := bond.NewSearchIndex(catalog, 1)
	if err != nil {
		return nil, err
	}
	hits, err := search.Search(ctx, region, query, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("no servant matches %q in the %s catalog", query, region)
	}
	return &hits[0], nil
}

func printPresets(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, g := range bond.PresetGroups() {
		fmt.Fprintf(tw, "%s\n", g.Label)
		for _, p := range g.Presets {
			fmt.Fprintf(tw, "  %s\t%s\t%s bond\n", p.Key, p.Label(), bond.FormatNumber(p.Bond))
		}
	}
	tw.Flush()
}

func printPlan(out io.Writer, servant *bond.Servant, current, target int, plan *api.PlanDTO) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	if servant != nil {
		fmt.Fprintf(tw, "Servant:\t%s (%s)\n", servant.Name, servant.ClassLabel())
	}
	fmt.Fprintf(tw, "Bond:\t%d -> %d\n", current, target)

	if plan.Status == string(generic.StatusNotReady) && plan.PointsNeeded == 0 {
		fmt.Fprintf(tw, "%s\n", plan.Message)
		return
	}
	fmt.Fprintf(tw, "Points needed:\t%s\n", bond.FormatNumber(plan.PointsNeeded))

	est := plan.Estimate
	if est == nil || plan.Status != string(generic.StatusReady) {
		fmt.Fprintf(tw, "%s\n", plan.Message)
		return
	}
	fmt.Fprintf(tw, "Quest:\t%s\n", est.QuestName)
	fmt.Fprintf(tw, "Bond per run:\t%s\n", bond.FormatNumber(est.BondPerRun))
	fmt.Fprintf(tw, "Runs:\t%s\n", bond.FormatNumber(est.RunsNeeded))
	fmt.Fprintf(tw, "Total AP:\t%s\n", bond.FormatNumber(est.TotalAP))
	fmt.Fprintf(tw, "Time:\t%dh %dm\n", est.Hours, est.Minutes)
	if est.Capped {
		fmt.Fprintf(tw, "Days:\t%d (%d runs per day)\n", est.DaysNeeded, bond.BleachedEarthRunsPerDay)
	} else {
		fmt.Fprintf(tw, "Days:\t%d (natural AP regen)\n", est.DaysNeeded)
	}
}

func describe(err error) string {
	if generic.IsClientError(err) {
		return generic.UserMessage(err)
	}
	return err.Error()
}
