package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"leaveplan/internal/model"
)

func TestEventWeight(t *testing.T) {
	cases := []struct {
		code     string
		prefixes []string
		want     float64
	}{
		{"CV", nil, 1},
		{"CV-AM", nil, 0.5},
		{"TP-PM", nil, 0.5},
		{"CV/TV", nil, 1},
		{"CV/TV", []string{"CV"}, 0.5},
		{"CV/TV", []string{"RV"}, 0},
		{"RV", []string{"C"}, 0},
		{"RV-AM", []string{"R"}, 0.5},
		{"T", []string{"T"}, 1},
		{"W", nil, 0},
		{"", nil, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, EventWeight(c.code, c.prefixes), "%q %v", c.code, c.prefixes)
	}
}

// days builds a full month of records for one employee; set overrides
// individual dates.
func days(name, uid string, year int, month time.Month, set map[int][2]model.State) []model.Record {
	var out []model.Record
	for d := 1; d <= time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day(); d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
		r := model.Record{Employee: name, UID: uid, Date: date.Format(model.DateLayout)}
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			r.MorningState, r.AfternoonState = model.NonWorkingDay, model.NonWorkingDay
		}
		if s, ok := set[d]; ok {
			r.MorningState, r.AfternoonState = s[0], s[1]
			if s[0] == model.Leave {
				r.MorningDetail = "Congés payés (Validé)"
			}
			if s[1] == model.Leave {
				r.AfternoonDetail = "Congés payés (Validé)"
			}
		}
		out = append(out, r)
	}
	return out
}

func leave(from, to int) map[int][2]model.State {
	m := map[int][2]model.State{}
	for d := from; d <= to; d++ {
		m[d] = [2]model.State{model.Leave, model.Leave}
	}
	return m
}

func TestRulesConsecutiveRunSpansWeekends(t *testing.T) {
	// 2026-07-06 is a Monday; two working weeks of leave around a weekend.
	set := leave(6, 10)
	for d, s := range leave(13, 17) {
		set[d] = s
	}
	recs := days("Jeanne Martin", "460606", 2026, time.July, set)

	res, err := DefaultRules().Check(recs, 2026)
	require.NoError(t, err)
	assert.Equal(t, 10, res.LongestRun)
	assert.Equal(t, 10.0, res.TotalDays)
	assert.True(t, res.ConsecutiveOK)
	assert.False(t, res.TotalOK)
}

func TestRulesWorkingDayBreaksRun(t *testing.T) {
	set := leave(6, 10)
	for d, s := range leave(14, 17) {
		set[d] = s
	}
	set[13] = [2]model.State{model.Leave, model.Present}
	recs := days("Jeanne Martin", "", 2026, time.July, set)

	res, err := DefaultRules().Check(recs, 2026)
	require.NoError(t, err)
	assert.Equal(t, 10, res.LongestRun)
	assert.Equal(t, 9.5, res.TotalDays)

	// A present day resets the run.
	set[13] = [2]model.State{model.Present, model.Present}
	res, err = DefaultRules().Check(days("Jeanne Martin", "", 2026, time.July, set), 2026)
	require.NoError(t, err)
	assert.Equal(t, 5, res.LongestRun)
}

func TestRulesWindow(t *testing.T) {
	// Leave outside the window does not count.
	recs := days("Jeanne Martin", "", 2026, time.March, leave(2, 31))
	res, err := DefaultRules().Check(recs, 2026)
	require.NoError(t, err)
	assert.Zero(t, res.LongestRun)
	assert.Zero(t, res.TotalDays)

	// Both ends of the window are included.
	r := DefaultRules()
	r.From, r.To = "07-06", "07-06"
	res, err = r.Check(days("Jeanne Martin", "", 2026, time.July, leave(6, 6)), 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LongestRun)

	r.From, r.To = "10-15", "05-15"
	_, err = r.Check(nil, 2026)
	assert.Error(t, err)

	r.From = "15/05"
	_, _, err = r.Window(2026)
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	recs := []model.Record{
		{Employee: "Paul Durand", Date: "2026/02/02",
			MorningState: model.RemoteWork, MorningDetail: "Télétravail (Validé)",
			AfternoonState: model.RemoteWork, AfternoonDetail: "Télétravail (À valider)"},
		{Employee: "Jeanne Martin", UID: "460606", Date: "2026/02/02",
			MorningState: model.Leave, MorningDetail: "RTT (Validé)",
			AfternoonState: model.Leave, AfternoonDetail: "Congés payés"},
		{Employee: "Jeanne Martin", UID: "460606", Date: "2026/02/03",
			MorningState: model.Leave, MorningDetail: "Congés payés (À valider)",
			AfternoonState: model.NonWorkingDay},
	}

	stats, err := Analyze(recs, 2026, DefaultRules())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "Jeanne Martin", stats[0].Name)
	assert.Equal(t, "460606", stats[0].UID)
	assert.Equal(t, map[string]int{"RV": 1, "C": 1, "CP": 1}, stats[0].Halves)
	assert.Equal(t, 0.5, stats[0].Days("RV"))

	assert.Equal(t, "Paul Durand", stats[1].Name)
	assert.Equal(t, map[string]int{"TV": 1, "TP": 1}, stats[1].Halves)
	assert.Zero(t, stats[1].Days("CV"))
}

func TestAnalyzeKeepsHomonymsApart(t *testing.T) {
	recs := []model.Record{
		{Employee: "Marie Dupont", UID: "AAA111", Date: "2026/02/02", MorningState: model.Leave, AfternoonState: model.Leave},
		{Employee: "Marie Dupont", UID: "BBB222", Date: "2026/02/02"},
	}
	stats, err := Analyze(recs, 2026, DefaultRules())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "AAA111", stats[0].UID)
	assert.Equal(t, 2, stats[0].Halves["C"])
	assert.Empty(t, stats[1].Halves)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Jeanne Martin", SheetName("Jeanne Martin"))
	assert.Equal(t, "AB", SheetName("A/B"))
	assert.Equal(t, "Sans nom", SheetName("[]"))
	assert.Equal(t, 31, len([]rune(SheetName(strings.Repeat("é", 40)))))

	n := newSheetNames([]string{SummarySheet, "Mars"})
	assert.Equal(t, "mars (2)", n.take("mars"))
	assert.Equal(t, "Mars (3)", n.take("Mars"))
	long := strings.Repeat("x", 40)
	assert.Equal(t, strings.Repeat("x", 31), n.take(long))
	assert.Equal(t, strings.Repeat("x", 27)+" (2)", n.take(long))
}

func workbookRecords() []model.Record {
	recs := days("Jeanne Martin", "460606", 2026, time.February, map[int][2]model.State{
		2: {model.Leave, model.Leave},
		3: {model.Leave, model.Present},
	})
	recs = append(recs, days("Paul Durand", "", 2026, time.February, nil)...)
	for i := range recs {
		if recs[i].Employee == "Paul Durand" && recs[i].Date == "2026/02/02" {
			recs[i].MorningState, recs[i].MorningDetail = model.RemoteWork, "Télétravail (À valider)"
		}
	}
	// Records of another year are left out.
	recs = append(recs, model.Record{Employee: "Ancien", Date: "2025/12/01", MorningState: model.Leave})
	return recs
}

func TestBuildWorkbook(t *testing.T) {
	opts := Options{Year: 2026, Rules: DefaultRules(), Styles: Styles{Header: "#123456"}}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, workbookRecords(), opts))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, "Février", "Jeanne Martin", "Paul Durand"}, f.GetSheetList())

	raw := excelize.Options{RawCellValue: true}
	get := func(sheet, cell string) string {
		v, err := f.GetCellValue(sheet, cell, raw)
		require.NoError(t, err)
		return v
	}

	// Summary: one row per employee, then the TOTAL row.
	assert.Equal(t, "Jeanne Martin", get(SummarySheet, "A2"))
	assert.Equal(t, "460606", get(SummarySheet, "B2"))
	assert.Equal(t, "1.5", get(SummarySheet, "E2"))
	assert.Equal(t, "Paul Durand", get(SummarySheet, "A3"))
	assert.Equal(t, "0.5", get(SummarySheet, "D3"))
	assert.Equal(t, markFail, get(SummarySheet, "J2"))
	assert.Equal(t, "TOTAL", get(SummarySheet, "A4"))
	formula, err := f.GetCellFormula(SummarySheet, "E4")
	require.NoError(t, err)
	assert.Equal(t, "SUM(E2:E3)", formula)
	assert.Equal(t, "0/2", get(SummarySheet, "J4"))
	assert.Contains(t, get(SummarySheet, "A6"), "15/05 - 15/10")

	// Month sheet: weekday row, day numbers, codes and totals.
	assert.Equal(t, "PLANNING FÉVRIER 2026", get("Février", "A1"))
	assert.Equal(t, "D", get("Février", "B5"))
	assert.Equal(t, "L", get("Février", "C5"))
	assert.Equal(t, "W", get("Février", "B7"))
	assert.Equal(t, "CV", get("Février", "C7"))
	assert.Equal(t, "CV-AM", get("Février", "D7"))
	assert.Equal(t, "TP-AM", get("Février", "C8"))
	assert.Equal(t, "", get("Février", "E8"))
	assert.Equal(t, "TOTAL événements (j)", get("Février", "A10"))
	assert.Equal(t, "1.5", get("Février", "C10"))
	assert.Equal(t, "0.5", get("Février", "D10"))
	assert.Equal(t, "0.5", get("Février", "C11"))
	assert.Equal(t, "1", get("Février", "C12"))
	assert.Equal(t, "", get("Février", "C13"))

	// Calendar sheet: February row, impossible days left blank.
	assert.Equal(t, "Février", get("Jeanne Martin", "A8"))
	assert.Equal(t, "CV", get("Jeanne Martin", "C8"))
	assert.Equal(t, "", get("Jeanne Martin", "AE8"))

}

func TestStylesNormalize(t *testing.T) {
	s := Styles{Header: " #123456 ", DayWidth: -1, NameWidth: 30}
	s.Normalize()
	assert.Equal(t, "123456", s.Header)
	assert.Equal(t, DefaultStyles().LeaveOK, s.LeaveOK)
	assert.Equal(t, 5.5, s.DayWidth)
	assert.Equal(t, 30.0, s.NameWidth)

	assert.Equal(t, s.Weekend, s.codeFill("W"))
	assert.Equal(t, s.Mixed, s.codeFill("CV/TV"))
	assert.Equal(t, s.RTTPen, s.codeFill("RP-PM"))
	assert.Equal(t, s.Mixed, s.codeFill("C"))
	assert.Equal(t, "", s.codeFill(""))
}

func TestBuildStatsAndSave(t *testing.T) {
	_, stats, err := Build(workbookRecords(), Options{Year: 2026, Rules: DefaultRules()})
	require.NoError(t, err)
	require.Len(t, stats, 2)

	path := filepath.Join(t.TempDir(), "out", "rapport_2026.xlsx")
	require.NoError(t, Save(path, workbookRecords(), Options{Year: 2026, Rules: DefaultRules()}))
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 4)
}

func TestBuildRejectsBadRules(t *testing.T) {
	_, _, err := Build(workbookRecords(), Options{Year: 2026})
	assert.Error(t, err)
}

func TestCodes(t *testing.T) {
	c := Codes(workbookRecords())
	assert.Equal(t, "CV", c["460606"]["2026/02/02"])
	assert.Equal(t, "W", c["Paul Durand"]["2026/02/01"])
	assert.Equal(t, "", c["Paul Durand"]["2026/02/03"])
}
