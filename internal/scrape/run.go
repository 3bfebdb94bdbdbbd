package scrape

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"leaveplan/internal/grid"
	appLog "leaveplan/internal/log"
	"leaveplan/internal/model"
)

// Navigator is a calendar showing one month at a time: the live browser or
// a directory of saved snapshots.
type Navigator interface {
	CurrentMonth(ctx context.Context) (time.Month, int, error)
	Previous(ctx context.Context) error
	Next(ctx context.Context) error
	Snapshot(ctx context.Context) (*grid.Page, error)
}

// HTMLSource is implemented by navigators that can serialize the displayed
// month.
type HTMLSource interface {
	HTML(ctx context.Context) (string, error)
}

// MonthResult is the outcome of one month of a run.
type MonthResult struct {
	Year    int
	Month   time.Month
	Records []model.Record
	// Err is set when the month failed; Records is then empty. ErrNoRows
	// is reported here too.
	Err error
}

// Key is "YYYY-MM".
func (r MonthResult) Key() string {
	return MonthKey(r.Year, r.Month)
}

func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

func monthIndex(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

// NavigateTo moves the calendar to year/month, one click at a time, and
// returns the number of clicks.
func (s *Scraper) NavigateTo(ctx context.Context, nav Navigator, year int, month time.Month) (int, error) {
	target := monthIndex(year, month)
	clicks := 0
	for {
		m, y, err := nav.CurrentMonth(ctx)
		if err != nil {
			return clicks, err
		}
		current := monthIndex(y, m)
		if current == target {
			return clicks, nil
		}
		if clicks >= s.opts.MaxClicks {
			return clicks, errors.Wrapf(ErrMaxClicks, "%s after %d clicks", MonthKey(year, month), clicks)
		}
		if current > target {
			err = nav.Previous(ctx)
		} else {
			err = nav.Next(ctx)
		}
		if err != nil {
			return clicks, err
		}
		clicks++
	}
}

// Run collects the given months of a year in calendar order. A month that
// cannot be collected is reported in its MonthResult and the run goes on;
// if the calendar cannot be moved the run stops and returns what it has
// with the navigation error.
func (s *Scraper) Run(ctx context.Context, nav Navigator, year int, months []time.Month) ([]MonthResult, error) {
	m := getMetrics()
	results := make([]MonthResult, 0, len(months))

	for _, month := range sortedMonths(months) {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		clicks, err := s.NavigateTo(ctx, nav, year, month)
		if err != nil {
			m.monthsTotal.WithLabelValues("error").Inc()
			appLog.Error("scrape: navigation failed, stopping", err, "target", MonthKey(year, month), "clicks", clicks)
			return results, err
		}
		appLog.Debug("scrape: month reached", "target", MonthKey(year, month), "clicks", clicks)

		res := s.collect(ctx, nav, year, month)
		results = append(results, res)

		switch {
		case errors.Is(res.Err, ErrNoRows):
			m.monthsTotal.WithLabelValues("empty").Inc()
			appLog.Warn("scrape: no rows for month", "month", res.Key())
		case res.Err != nil:
			m.monthsTotal.WithLabelValues("error").Inc()
			appLog.Error("scrape: month failed", res.Err, "month", res.Key())
		default:
			m.monthsTotal.WithLabelValues("ok").Inc()
			appLog.Info("scrape: month collected", "month", res.Key(), "records", len(res.Records))
		}
	}

	for _, r := range results {
		if r.Err == nil {
			m.lastSuccess.SetToCurrentTime()
			break
		}
	}
	return results, nil
}

func (s *Scraper) collect(ctx context.Context, nav Navigator, year int, month time.Month) MonthResult {
	start := time.Now()
	defer func() { getMetrics().monthLatency.Observe(time.Since(start).Seconds()) }()

	res := MonthResult{Year: year, Month: month}

	if s.opts.DumpDir != "" {
		if src, ok := nav.(HTMLSource); ok {
			if err := s.dump(ctx, src, res.Key()); err != nil {
				appLog.Warn("scrape: html dump failed", "month", res.Key(), "err", err)
			}
		}
	}

	page, err := nav.Snapshot(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Records, res.Err = s.ProcessPage(ctx, page, year, month)
	return res
}

func (s *Scraper) dump(ctx context.Context, src HTMLSource, key string) error {
	html, err := src.HTML(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.opts.DumpDir, 0o755); err != nil {
		return errors.Wrap(err, "scrape: create dump dir")
	}
	path := filepath.Join(s.opts.DumpDir, key+".html")
	return errors.Wrap(os.WriteFile(path, []byte(html), 0o644), "scrape: write dump")
}

// AllMonths is January to December.
func AllMonths() []time.Month {
	out := make([]time.Month, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, m)
	}
	return out
}

func sortedMonths(months []time.Month) []time.Month {
	seen := [13]bool{}
	out := make([]time.Month, 0, len(months))
	for m := time.January; m <= time.December; m++ {
		for _, want := range months {
			if want == m && !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}
