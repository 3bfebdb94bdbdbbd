package scrape

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveplan/internal/grid"
	"leaveplan/internal/model"
)

func februaryPage() *grid.Page {
	return &grid.Page{
		MonthLabel: "février 2026",
		Rows: []grid.Row{
			{Name: "Mes Collègues"},
			{
				Name:      "Jeanne Martin",
				CorpID:    "HRF344256-0_HRF460606",
				LineWidth: 1120,
				Elements: []grid.Element{
					{Class: "dhx_cal_event_line validated_vcell", Title: "Congés payés", Style: "left:160px; width:120px"},
					{Class: "dhx_cal_event_line telework to_validate_vcell", Title: "Télétravail", Style: "left:405px; width:2px"},
					{Class: "dhx_cal_event_line unknown", Style: "left:0px; width:40px"},
				},
			},
			{Name: "Paul Durand", CorpID: "HRFABC123"},
			{Name: "Total équipe", LineWidth: 1120},
			{Name: "Signataire Direction", LineWidth: 1120},
			{Name: "", LineWidth: 1120},
		},
		Markers: []string{
			"dhx_marked_timespan grey_cell_weekend 2026/02/01",
			"dhx_marked_timespan grey_cell_weekend 2026/02/07",
			"dhx_marked_timespan grey_cell_weekend 2026/02/08",
		},
	}
}

func byDate(recs []model.Record) map[string]model.Record {
	out := make(map[string]model.Record, len(recs))
	for _, r := range recs {
		out[r.Date] = r
	}
	return out
}

func TestProcessPage(t *testing.T) {
	s := New(DefaultOptions())
	rowErrors := testutil.ToFloat64(getMetrics().rowsTotal.WithLabelValues("error"))

	recs, err := s.ProcessPage(context.Background(), februaryPage(), 2026, time.February)
	require.NoError(t, err)
	require.Len(t, recs, 28)

	days := byDate(recs)
	for _, r := range recs {
		assert.Equal(t, "Jeanne Martin", r.Employee)
		assert.Equal(t, "460606", r.UID)
	}

	assert.Equal(t, model.NonWorkingDay, days["2026/02/01"].MorningState)
	assert.Equal(t, model.Leave, days["2026/02/05"].MorningState)
	assert.Equal(t, "Congés payés (Validé)", days["2026/02/06"].AfternoonDetail)
	assert.Equal(t, model.NonWorkingDay, days["2026/02/07"].AfternoonState)
	assert.Equal(t, "", days["2026/02/07"].AfternoonDetail)

	assert.Equal(t, model.RemoteWork, days["2026/02/11"].MorningState)
	assert.Equal(t, "Télétravail (À valider)", days["2026/02/11"].MorningDetail)
	assert.Equal(t, model.Present, days["2026/02/11"].AfternoonState)
	assert.Equal(t, model.Present, days["2026/02/02"].MorningState)

	assert.Equal(t, rowErrors+1, testutil.ToFloat64(getMetrics().rowsTotal.WithLabelValues("error")))
}

func TestProcessPageKeepsRowOrder(t *testing.T) {
	page := &grid.Page{}
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for _, n := range names {
		page.Rows = append(page.Rows, grid.Row{Name: n, LineWidth: 1240})
	}

	opts := DefaultOptions()
	opts.Workers = 3
	recs, err := New(opts).ProcessPage(context.Background(), page, 2026, time.January)
	require.NoError(t, err)
	require.Len(t, recs, 31*len(names))
	for i, n := range names {
		assert.Equal(t, n, recs[i*31].Employee)
		assert.Equal(t, "2026/01/01", recs[i*31].Date)
		assert.Equal(t, "2026/01/31", recs[i*31+30].Date)
	}
}

func TestProcessPageNoRows(t *testing.T) {
	recs, err := New(DefaultOptions()).ProcessPage(context.Background(), &grid.Page{}, 2026, time.March)
	assert.ErrorIs(t, err, ErrNoRows)
	assert.Empty(t, recs)
}

func TestProcessPageNoEmployeeResolved(t *testing.T) {
	page := &grid.Page{Rows: []grid.Row{
		{Name: "Mes Collègues"},
		{Name: "Jeanne Martin"},
		{Name: "Paul Durand"},
	}}
	recs, err := New(DefaultOptions()).ProcessPage(context.Background(), page, 2026, time.February)
	assert.ErrorIs(t, err, ErrNoRows)
	assert.Empty(t, recs)
}

func TestGuardRowRecoversPanic(t *testing.T) {
	recs, err := guardRow(func() ([]model.Record, error) {
		panic("column width must be positive")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column width must be positive")
	assert.Nil(t, recs)

	recs, err = guardRow(func() ([]model.Record, error) {
		return []model.Record{{Employee: "Jeanne Martin"}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestWeekendFallback(t *testing.T) {
	page := &grid.Page{Rows: []grid.Row{{Name: "Jeanne Martin", LineWidth: 1120}}}

	opts := DefaultOptions()
	recs, err := New(opts).ProcessPage(context.Background(), page, 2026, time.February)
	require.NoError(t, err)
	assert.Equal(t, model.Present, recs[0].MorningState)

	opts.WeekendFallback = true
	recs, err = New(opts).ProcessPage(context.Background(), page, 2026, time.February)
	require.NoError(t, err)
	assert.Equal(t, model.NonWorkingDay, recs[0].MorningState)
	assert.Equal(t, model.Present, recs[1].MorningState)
	assert.Equal(t, model.NonWorkingDay, recs[6].AfternoonState)

	// Markers win over the fallback.
	page.Markers = []string{"grey_cell_weekend 2026/02/02"}
	recs, err = New(opts).ProcessPage(context.Background(), page, 2026, time.February)
	require.NoError(t, err)
	assert.Equal(t, model.Present, recs[0].MorningState)
	assert.Equal(t, model.NonWorkingDay, recs[1].MorningState)
}

func TestIsEmployee(t *testing.T) {
	s := New(DefaultOptions())
	assert.True(t, s.IsEmployee("Jeanne Martin"))
	assert.False(t, s.IsEmployee("Mes Collègues"))
	assert.False(t, s.IsEmployee("Signataire 1"))
	assert.False(t, s.IsEmployee("Total"))
	assert.False(t, s.IsEmployee(""))
}

type fakeNav struct {
	pos      time.Time
	pages    map[string]*grid.Page
	failNext string
	clicks   int
}

func newFakeNav(year int, month time.Month) *fakeNav {
	return &fakeNav{pos: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), pages: map[string]*grid.Page{}}
}

func (f *fakeNav) key() string { return f.pos.Format("2006-01") }

func (f *fakeNav) CurrentMonth(context.Context) (time.Month, int, error) {
	return f.pos.Month(), f.pos.Year(), nil
}

func (f *fakeNav) Previous(context.Context) error {
	f.clicks++
	f.pos = f.pos.AddDate(0, -1, 0)
	return nil
}

func (f *fakeNav) Next(context.Context) error {
	if f.key() == f.failNext {
		return errors.New("button not found")
	}
	f.clicks++
	f.pos = f.pos.AddDate(0, 1, 0)
	return nil
}

func (f *fakeNav) Snapshot(context.Context) (*grid.Page, error) {
	p, ok := f.pages[f.key()]
	if !ok {
		return nil, errors.New("snapshot failed")
	}
	return p, nil
}

func (f *fakeNav) HTML(context.Context) (string, error) {
	return "<html>" + f.key() + "</html>", nil
}

func oneRow() *grid.Page {
	return &grid.Page{Rows: []grid.Row{{Name: "Jeanne Martin", LineWidth: 1240}}}
}

func TestNavigateTo(t *testing.T) {
	s := New(DefaultOptions())
	nav := newFakeNav(2026, time.March)

	clicks, err := s.NavigateTo(context.Background(), nav, 2025, time.November)
	require.NoError(t, err)
	assert.Equal(t, 4, clicks)
	assert.Equal(t, "2025-11", nav.key())

	clicks, err = s.NavigateTo(context.Background(), nav, 2025, time.November)
	require.NoError(t, err)
	assert.Zero(t, clicks)

	opts := DefaultOptions()
	opts.MaxClicks = 2
	_, err = New(opts).NavigateTo(context.Background(), nav, 2026, time.June)
	assert.ErrorIs(t, err, ErrMaxClicks)
}

func TestRun(t *testing.T) {
	nav := newFakeNav(2026, time.March)
	nav.pages["2026-01"] = oneRow()
	nav.pages["2026-02"] = &grid.Page{}
	nav.pages["2026-03"] = oneRow()

	empty := testutil.ToFloat64(getMetrics().monthsTotal.WithLabelValues("empty"))

	results, err := New(DefaultOptions()).Run(context.Background(), nav, 2026,
		[]time.Month{time.March, time.January, time.February, time.April, time.January})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "2026-01", results[0].Key())
	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Records, 31)

	assert.ErrorIs(t, results[1].Err, ErrNoRows)
	assert.Empty(t, results[1].Records)

	assert.Len(t, results[2].Records, 31)

	assert.Equal(t, "2026-04", results[3].Key())
	assert.Error(t, results[3].Err)

	assert.Equal(t, 2+3, nav.clicks)
	assert.Equal(t, empty+1, testutil.ToFloat64(getMetrics().monthsTotal.WithLabelValues("empty")))
}

func TestRunStopsWhenNavigationFails(t *testing.T) {
	nav := newFakeNav(2026, time.January)
	nav.pages["2026-01"] = oneRow()
	nav.pages["2026-02"] = oneRow()
	nav.failNext = "2026-02"

	results, err := New(DefaultOptions()).Run(context.Background(), nav, 2026, AllMonths())
	require.Error(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2026-02", results[1].Key())
}

func TestRunDumpsHTML(t *testing.T) {
	dir := t.TempDir()
	nav := newFakeNav(2026, time.January)
	nav.pages["2026-01"] = oneRow()

	opts := DefaultOptions()
	opts.DumpDir = filepath.Join(dir, "html")
	_, err := New(opts).Run(context.Background(), nav, 2026, []time.Month{time.January})
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "html", "2026-01.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>2026-01</html>", string(b))
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := New(DefaultOptions()).Run(ctx, newFakeNav(2026, time.January), 2026, AllMonths())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}

const replayMonth = `<html><body>
<div id="date_now">janvier 2026</div>
<table><tr class="dhx_row_item">
  <td class="dhx_matrix_scell">Jeanne Martin</td>
  <td><div class="dhx_matrix_line" style="width:1240px">
    <div class="dhx_cal_event_line telework validated_vcell" title="Télétravail" style="left:40px; width:40px"></div>
  </div></td>
</tr></table>
<div class="dhx_marked_timespan grey_cell_weekend 2026/01/03"></div>
</body></html>`

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-01.html"), []byte(replayMonth), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-03.html"), []byte(replayMonth), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.html"), []byte("x"), 0o644))

	nav, err := NewReplay(dir)
	require.NoError(t, err)

	m, y, err := nav.CurrentMonth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.January, m)
	assert.Equal(t, 2026, y)

	results, err := New(DefaultOptions()).Run(context.Background(), nav, 2026, []time.Month{time.January, time.February})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	days := byDate(results[0].Records)
	assert.Equal(t, model.RemoteWork, days["2026/01/02"].MorningState)
	assert.Equal(t, model.NonWorkingDay, days["2026/01/03"].MorningState)

	assert.ErrorIs(t, results[1].Err, ErrNoSnapshot)
}

func TestNewReplayEmptyDir(t *testing.T) {
	_, err := NewReplay(t.TempDir())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}
