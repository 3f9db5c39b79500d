package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"sales-dashboard-go/internal/config"
	"sales-dashboard-go/internal/dashboard"
	"sales-dashboard-go/internal/dataset"
	"sales-dashboard-go/internal/filter"
	"sales-dashboard-go/internal/logger"
	"sales-dashboard-go/internal/resolver"
	"sales-dashboard-go/internal/session"
	"sales-dashboard-go/internal/types"
)

func main() {
	log := logger.New()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := run(context.Background(), cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.WithError(err).Error("report failed")
		os.Exit(1)
	}
}

// filterFlags collects repeated -filter role=v1,v2 arguments.
type filterFlags []string

func (f *filterFlags) String() string { return strings.Join(*f, " ") }

func (f *filterFlags) Set(v string) error {
	*f = append(*f, v)
	return nil
}

// parseFilters turns role=v1,v2 arguments into a selection. "role=" selects
// nothing for that role.
func parseFilters(args []string) (filter.Selection, error) {
	sel := filter.Selection{}
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("filter %q: want role=value[,value]", arg)
		}
		role, err := resolver.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", arg, err)
		}
		if !role.IsCategorical() {
			return nil, fmt.Errorf("filter %q: %s is not a categorical role", arg, role)
		}
		values := sel[role]
		if values == nil {
			values = []string{}
		}
		for _, v := range strings.Split(raw, ",") {
			if strings.TrimSpace(v) != "" {
				values = append(values, v)
			}
		}
		sel[role] = values
	}
	return sel, nil
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	source := fs.String("source", cfg.DatasetPath, "dataset file, URL or sqlite://file?table=name")
	variant := fs.String("variant", cfg.Variant, "load variant: auto, superstore or derived")
	strategy := fs.String("strategy", cfg.Strategy, "column resolution: exact or heuristic")
	rulesPath := fs.String("rules", cfg.RulesPath, "YAML file overriding column names and keywords")
	noColor := fs.Bool("no-color", false, "disable colored section titles")
	asJSON := fs.Bool("json", false, "print the dashboard as JSON")
	top := fs.Int("top", dashboard.DefaultTopN, "sub-categories to list, 0 = all")
	rows := fs.Int("rows", 0, "raw rows to include in JSON output")
	var filters filterFlags
	fs.Var(&filters, "filter", "role=value[,value] (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := dataset.ParseVariant(*variant)
	if err != nil {
		return err
	}
	st, err := resolver.ParseStrategy(*strategy)
	if err != nil {
		return err
	}
	override, err := parseFilters(filters)
	if err != nil {
		return err
	}
	rules, err := resolver.LoadRules(*rulesPath)
	if err != nil {
		return err
	}
	if *noColor {
		color.NoColor = true
	}

	sess, err := session.NewStore(cfg.SourceTimeout).WithRules(rules).Create(ctx, session.Settings{Source: *source, Variant: v, Strategy: st})
	if err != nil {
		return err
	}
	state, err := sess.Select(ctx, override)
	if err != nil {
		return err
	}

	topN := *top
	if topN == 0 {
		topN = -1
	}
	d := dashboard.Build(state.Dataset, state.Binding, state.Selection, dashboard.Options{
		TopN:           topN,
		RowLimit:       *rows,
		CurrencySymbol: cfg.CurrencySymbol,
	})

	if *asJSON {
		if *rows == 0 {
			d.Rows = nil
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}
	printReport(out, d)
	return nil
}

func printReport(out io.Writer, d types.Dashboard) {
	title := color.New(color.FgYellow)
	loss := color.New(color.FgRed)

	title.Fprintf(out, "Sales report: %s (%s of %s records)\n\n", d.Source, humanize.Comma(int64(d.TotalRows)), humanize.Comma(int64(d.DatasetRows)))

	kpis := tablewriter.NewWriter(out)
	kpis.SetHeader([]string{"Metric", "Value"})
	for _, m := range d.KPIs {
		kpis.Append([]string{m.Label, m.Value})
	}
	kpis.Render()

	for _, c := range d.Charts {
		title.Fprintf(out, "\n%s\n", c.Title)
		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{c.Result.Group.Label(), c.Result.Metric.Label(), "Records"})
		for _, row := range c.Result.Rows {
			table.Append([]string{row.Key, humanize.FormatFloat("#,###.##", row.Value), humanize.Comma(int64(row.Count))})
		}
		table.Render()
		if c.Result.Excluded > 0 {
			fmt.Fprintf(out, "%d records without a readable date left out\n", c.Result.Excluded)
		}
	}

	fmt.Fprintln(out)
	for _, card := range d.Insights {
		line := fmt.Sprintf("* %s. %s\n", card.Insight, card.Action)
		if card.Kind == "loss_regions" {
			loss.Fprint(out, line)
			continue
		}
		fmt.Fprint(out, line)
	}
}
