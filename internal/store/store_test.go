package store

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveplan/internal/model"
)

func sample(date string) []model.Record {
	return []model.Record{
		{
			Employee:        "Jeanne Martin",
			UID:             "460606",
			Date:            date,
			MorningState:    model.Leave,
			MorningDetail:   "Congés payés (Validé)",
			AfternoonState:  model.RemoteWork,
			AfternoonDetail: "Télétravail, \"bureau\" (À valider)",
		},
		{
			Employee:       "Paul Durand",
			Date:           date,
			MorningState:   model.Present,
			AfternoonState: model.NonWorkingDay,
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	for _, bom := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, sample("2026/02/05"), bom))
		assert.Equal(t, bom, strings.HasPrefix(buf.String(), utf8BOM))

		got, err := ReadCSV(&buf)
		require.NoError(t, err)
		assert.Equal(t, sample("2026/02/05"), got)
	}
}

func TestReadCSVReorderedColumns(t *testing.T) {
	in := "date,employee,uid,afternoon_state,afternoon_detail,morning_state,morning_detail\n" +
		"2026/02/05,Jeanne Martin,460606,LEAVE,RTT,PRESENT,\n"
	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.Leave, got[0].AfternoonState)
	assert.Equal(t, "RTT", got[0].AfternoonDetail)
	assert.Equal(t, model.Present, got[0].MorningState)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("employee,date\nx,y\n"))
	assert.ErrorIs(t, err, ErrBadFile)

	bad := strings.Join(Header, ",") + "\nJeanne,1,2026/02/05,HOLIDAY,,PRESENT,\n"
	_, err = ReadCSV(strings.NewReader(bad))
	assert.Error(t, err)

	got, err := ReadCSV(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreMonths(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.SaveMonth("2026-02", sample("2026/02/01"), "run-1"))
	require.NoError(t, s.SaveMonth("2025-12", sample("2025/12/01"), "run-1"))
	require.NoError(t, s.SaveMonth("2026-01", sample("2026/01/01"), "run-2"))

	keys, err := s.Months()
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-12", "2026-01", "2026-02"}, keys)

	meta, err := s.Meta()
	require.NoError(t, err)
	assert.Equal(t, MonthMeta{ScrapedAt: fixed, Records: 2, Employees: 2, RunID: "run-2"}, meta.Months["2026-01"])

	year, err := s.LoadYear(2026)
	require.NoError(t, err)
	require.Len(t, year, 4)
	assert.Equal(t, "2026/01/01", year[0].Date)
	assert.Equal(t, "2026/02/01", year[3].Date)

	all, err := s.LoadAll()
	require.NoError(t, err)
	assert.Len(t, all, 6)

	// Replacing a month keeps a single copy.
	require.NoError(t, s.SaveMonth("2026-02", sample("2026/02/02")[:1], "run-3"))
	feb, err := s.LoadMonth("2026-02")
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, "2026/02/02", feb[0].Date)
}

func TestStoreErrors(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.LoadMonth("2026-05")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LoadMonth("2026/05")
	assert.ErrorIs(t, err, ErrBadKey)
	assert.ErrorIs(t, s.SaveMonth("may", nil, ""), ErrBadKey)

	keys, err := s.Months()
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = Open("")
	assert.Error(t, err)
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "planning_2026.csv")
	require.NoError(t, ExportCSV(path, sample("2026/02/05")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), utf8BOM+"employee,uid,date"))
}

func TestParseKey(t *testing.T) {
	y, m, err := ParseKey("2026-02")
	require.NoError(t, err)
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.February, m)

	_, _, err = ParseKey("2026-13")
	assert.ErrorIs(t, err, ErrBadKey)
}
