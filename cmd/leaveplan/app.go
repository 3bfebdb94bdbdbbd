package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"leaveplan/internal/browser"
	"leaveplan/internal/config"
	appLog "leaveplan/internal/log"
	"leaveplan/internal/planning"
	"leaveplan/internal/report"
	"leaveplan/internal/scrape"
	"leaveplan/internal/store"
)

// app carries what every subcommand shares once the root command has
// loaded the configuration.
type app struct {
	configPath string
	cfg        *config.Config
}

func (a *app) browserOptions(headless bool) browser.Options {
	b := a.cfg.Browser
	return browser.Options{
		URL:             a.cfg.URL,
		SessionFile:     a.cfg.SessionFile,
		Headless:        headless,
		Width:           b.Width,
		Height:          b.Height,
		InitialLoad:     b.InitialLoad,
		NavigationDelay: b.NavigationDelay,
		ActionTimeout:   b.ActionTimeout,
	}
}

func (a *app) scrapeOptions() scrape.Options {
	g, s := a.cfg.Geometry, a.cfg.Scrape
	return scrape.Options{
		Mapper: planning.Mapper{
			PointRatio:      g.HalfDayRatio,
			HalfDayMaxPx:    g.HalfDayMaxPx,
			BoxHalfDayRatio: g.BoxHalfDayRatio,
		},
		UseBoxes:        g.UseBoxes,
		WeekendFallback: s.WeekendFallback,
		SkipNames:       s.SkipNames,
		SkipPrefixes:    s.SkipPrefixes,
		Workers:         s.Workers,
		MaxClicks:       a.cfg.Browser.MaxClicks,
		DumpDir:         s.DumpDir,
	}
}

func (a *app) reportOptions(year int) report.Options {
	return report.Options{Year: year, Rules: a.cfg.Rules, Styles: a.cfg.Styles}
}

func (a *app) csvPath(year int) string {
	return filepath.Join(a.cfg.OutputDir, fmt.Sprintf("planning_%d.csv", year))
}

func (a *app) reportPath(year int) string {
	return filepath.Join(a.cfg.OutputDir, fmt.Sprintf("rapport_conges_%d.xlsx", year))
}

// collectOptions are per-run overrides of the configuration.
type collectOptions struct {
	// Snapshots replays saved month pages instead of the live calendar.
	Snapshots string
	// Year is 0 for the configured year.
	Year   int
	Months []time.Month
	// Report also rebuilds the workbook.
	Report bool
}

type collectSummary struct {
	RunID   string
	Year    int
	Saved   []string
	Failed  []string
	Records int
}

// navigator opens the calendar source: the saved snapshots when a directory
// is given, the live page otherwise. The returned func releases it.
func (a *app) navigator(ctx context.Context, snapshots string) (scrape.Navigator, func(), error) {
	if snapshots != "" {
		nav, err := scrape.NewReplay(snapshots)
		if err != nil {
			return nil, nil, err
		}
		return nav, func() {}, nil
	}

	b, err := browser.Open(ctx, a.browserOptions(a.cfg.Browser.Headless))
	if err != nil {
		return nil, nil, err
	}
	if err := b.Load(ctx); err != nil {
		b.Close()
		return nil, nil, err
	}
	return b, b.Close, nil
}

// collect runs one scrape and persists it: every month that produced
// records replaces its stored copy, then the year's CSV is rewritten.
// Failed or empty months keep what the store already had.
func (a *app) collect(ctx context.Context, opts collectOptions) (collectSummary, error) {
	year := opts.Year
	if year == 0 {
		year = a.cfg.TargetYear(time.Now())
	}
	months := opts.Months
	if len(months) == 0 {
		months = a.cfg.TargetMonths()
	}
	sum := collectSummary{RunID: uuid.NewString(), Year: year}

	st, err := store.Open(a.cfg.DataDir)
	if err != nil {
		return sum, err
	}

	nav, release, err := a.navigator(ctx, opts.Snapshots)
	if err != nil {
		return sum, err
	}
	defer release()

	appLog.Info("collect: starting", "run_id", sum.RunID, "year", year, "months", len(months))
	results, runErr := scrape.New(a.scrapeOptions()).Run(ctx, nav, year, months)

	for _, r := range results {
		if r.Err != nil {
			sum.Failed = append(sum.Failed, r.Key())
			continue
		}
		if err := st.SaveMonth(r.Key(), r.Records, sum.RunID); err != nil {
			return sum, err
		}
		sum.Saved = append(sum.Saved, r.Key())
		sum.Records += len(r.Records)
	}

	if len(sum.Saved) > 0 {
		if err := a.export(st, year, opts.Report); err != nil {
			return sum, err
		}
	}

	appLog.Info("collect: finished", "run_id", sum.RunID,
		"saved", len(sum.Saved), "failed", len(sum.Failed), "records", sum.Records)

	if runErr != nil {
		return sum, errors.Wrap(runErr, "collect: run interrupted")
	}
	if len(sum.Saved) == 0 {
		return sum, errors.Errorf("collect: no month collected for %d", year)
	}
	return sum, nil
}

// export rewrites the year's CSV from the store and, when asked, the
// workbook.
func (a *app) export(st *store.Store, year int, withReport bool) error {
	recs, err := st.LoadYear(year)
	if err != nil {
		return err
	}
	if err := store.ExportCSV(a.csvPath(year), recs); err != nil {
		return err
	}
	appLog.Info("export: csv written", "path", a.csvPath(year), "records", len(recs))

	if !withReport {
		return nil
	}
	if err := report.Save(a.reportPath(year), recs, a.reportOptions(year)); err != nil {
		return err
	}
	appLog.Info("export: workbook written", "path", a.reportPath(year))
	return nil
}
