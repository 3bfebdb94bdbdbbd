// Package scrape runs the planning engine over displayed months: it picks
// employee rows, resolves each one and walks the calendar month by month.
package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"leaveplan/internal/grid"
	appLog "leaveplan/internal/log"
	"leaveplan/internal/model"
	"leaveplan/internal/planning"
)

// Rows that are part of the grid but are not employees.
var (
	DefaultSkipNames    = []string{"Mes Collègues"}
	DefaultSkipPrefixes = []string{"Signataire", "Total"}
)

// Options tunes how months are processed.
type Options struct {
	Mapper planning.Mapper

	// UseBoxes measures events against rendered boxes when the page
	// carries them.
	UseBoxes bool

	// WeekendFallback marks Saturdays and Sundays as non-working when a
	// month has no marker at all.
	WeekendFallback bool

	SkipNames    []string
	SkipPrefixes []string

	// Workers bounds concurrent row resolution. <= 0 means one per CPU.
	Workers int

	// MaxClicks bounds navigation towards a target month.
	MaxClicks int

	// DumpDir, when set, receives the HTML of every collected month.
	DumpDir string
}

// DefaultOptions returns the settings of the production calendar.
func DefaultOptions() Options {
	return Options{
		Mapper:       planning.DefaultMapper(),
		SkipNames:    DefaultSkipNames,
		SkipPrefixes: DefaultSkipPrefixes,
		MaxClicks:    50,
	}
}

// Scraper turns pages into records.
type Scraper struct {
	opts Options
}

func New(opts Options) *Scraper {
	if opts.Mapper == (planning.Mapper{}) {
		opts.Mapper = planning.DefaultMapper()
	}
	if opts.MaxClicks <= 0 {
		opts.MaxClicks = 50
	}
	return &Scraper{opts: opts}
}

// IsEmployee reports whether a row name is an employee and not a header or
// totals line.
func (s *Scraper) IsEmployee(name string) bool {
	if name == "" {
		return false
	}
	for _, n := range s.opts.SkipNames {
		if name == n {
			return false
		}
	}
	for _, p := range s.opts.SkipPrefixes {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	return true
}

// NonWorkingDays returns the month's non-working days from the page markers.
func (s *Scraper) NonWorkingDays(page *grid.Page, year int, month time.Month) planning.DaySet {
	days := planning.ExtractNonWorkingDays(page.Markers, year, month)
	if len(days) == 0 && s.opts.WeekendFallback {
		appLog.Warn("scrape: no non-working-day marker, using weekends", "year", year, "month", int(month))
		return planning.WeekendDays(year, month)
	}
	return days
}

// ProcessPage resolves every employee row of a displayed month. Rows are
// resolved concurrently but the records keep the page's row order. A row
// that fails is logged and left out; a page where no employee row resolves
// is ErrNoRows.
func (s *Scraper) ProcessPage(ctx context.Context, page *grid.Page, year int, month time.Month) ([]model.Record, error) {
	m := getMetrics()
	if len(page.Rows) == 0 {
		return nil, ErrNoRows
	}

	nonWorking := s.NonWorkingDays(page, year, month)
	appLog.Info("scrape: month layout",
		"year", year,
		"month", int(month),
		"rows", len(page.Rows),
		"non_working_days", len(nonWorking),
	)

	results := make([][]model.Record, len(page.Rows))
	g, gctx := errgroup.WithContext(ctx)
	if s.opts.Workers > 0 {
		g.SetLimit(s.opts.Workers)
	}

	for i, row := range page.Rows {
		if !s.IsEmployee(row.Name) {
			m.rowsTotal.WithLabelValues("skipped").Inc()
			continue
		}
		i, row := i, row
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := guardRow(func() ([]model.Record, error) {
				return s.ProcessRow(row, year, month, nonWorking)
			})
			if err != nil {
				m.rowsTotal.WithLabelValues("error").Inc()
				appLog.Warn("scrape: row skipped", "employee", row.Name, "year", year, "month", int(month), "err", err)
				return nil
			}
			m.rowsTotal.WithLabelValues("ok").Inc()
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.Record
	for _, recs := range results {
		out = append(out, recs...)
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(ErrNoRows, "none of %d rows resolved", len(page.Rows))
	}
	m.recordsTotal.Add(float64(len(out)))
	return out, nil
}

// guardRow runs one row's resolution and turns a panic into that row's
// error, so one bad row cannot take the month down.
func guardRow(fn func() ([]model.Record, error)) (recs []model.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			recs, err = nil, errors.Errorf("scrape: row panicked: %v", r)
		}
	}()
	return fn()
}

// ProcessRow resolves one employee-month.
func (s *Scraper) ProcessRow(row grid.Row, year int, month time.Month, nonWorking planning.DaySet) ([]model.Record, error) {
	nbDays := planning.DaysIn(year, month)
	cols, err := row.Columns(nbDays, s.opts.UseBoxes)
	if err != nil {
		return nil, err
	}

	employee := model.Employee{Name: row.Name, UID: planning.ExtractUID(row.CorpID)}
	events := s.opts.Mapper.Events(row.RawEvents(), cols, nbDays)

	p := planning.NewMonth(employee, year, month)
	planning.Resolve(p, events, nonWorking)

	appLog.Debug("scrape: row resolved", "employee", employee.Name, "uid", employee.UID, "events", len(events))
	return p.Records(), nil
}
