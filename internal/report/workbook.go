package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	appLog "leaveplan/internal/log"
	"leaveplan/internal/model"
	"leaveplan/internal/planning"
)

const (
	SummarySheet = "Synthèse"
	maxSheetName = 31

	markPass = "✓"
	markFail = "✗"
)

var (
	MonthNames = [12]string{
		"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
		"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
	}
	weekdayNames = [7]string{"D", "L", "M", "Me", "J", "V", "S"}
)

// Options configures a workbook.
type Options struct {
	Year   int
	Rules  Rules
	Styles Styles
}

// look is one cell appearance; identical looks share one excelize style.
type look struct {
	Fill     string
	Font     string
	Size     float64
	Bold     bool
	Italic   bool
	Align    string
	Wrap     bool
	NumFmt   string
	Diagonal bool
}

func (l look) style() *excelize.Style {
	s := &excelize.Style{
		Font:      &excelize.Font{Bold: l.Bold, Italic: l.Italic, Size: l.Size, Color: l.Font},
		Fill:      solid(l.Fill),
		Alignment: &excelize.Alignment{Horizontal: l.Align, Vertical: "center", WrapText: l.Wrap},
		Border:    thin,
	}
	if s.Font.Size == 0 {
		s.Font.Size = 10
	}
	if l.Diagonal {
		s.Border = append(slices.Clone(thin), excelize.Border{Type: "diagonalDown", Color: "FF0000", Style: 1})
	}
	if l.NumFmt != "" {
		nf := l.NumFmt
		s.CustomNumFmt = &nf
	}
	return s
}

// builder keeps the first error so sheet code reads as a flat list of cell
// writes.
type builder struct {
	f     *excelize.File
	st    Styles
	cache *styleCache
	err   error
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

func (b *builder) set(sheet string, col, row int, v any) {
	if b.err != nil {
		return
	}
	b.err = b.f.SetCellValue(sheet, cell(col, row), v)
}

func (b *builder) formula(sheet string, col, row int, f string) {
	if b.err != nil {
		return
	}
	b.err = b.f.SetCellFormula(sheet, cell(col, row), f)
}

func (b *builder) paint(sheet string, col, row int, l look) {
	b.paintRange(sheet, col, row, col, row, l)
}

func (b *builder) paintRange(sheet string, c1, r1, c2, r2 int, l look) {
	if b.err != nil {
		return
	}
	id, err := b.cache.get(fmt.Sprintf("%+v", l), l.style)
	if err != nil {
		b.err = err
		return
	}
	b.err = b.f.SetCellStyle(sheet, cell(c1, r1), cell(c2, r2), id)
}

func (b *builder) merge(sheet string, c1, r1, c2, r2 int) {
	if b.err != nil {
		return
	}
	b.err = b.f.MergeCell(sheet, cell(c1, r1), cell(c2, r2))
}

func (b *builder) width(sheet string, c1, c2 int, w float64) {
	if b.err != nil {
		return
	}
	b.err = b.f.SetColWidth(sheet, colName(c1), colName(c2), w)
}

func (b *builder) height(sheet string, row int, h float64) {
	if b.err != nil {
		return
	}
	b.err = b.f.SetRowHeight(sheet, row, h)
}

func (b *builder) freeze(sheet string, col, row int) {
	if b.err != nil {
		return
	}
	pane := "bottomLeft"
	if col > 0 {
		pane = "bottomRight"
	}
	b.err = b.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      col,
		YSplit:      row,
		TopLeftCell: cell(col+1, row+1),
		ActivePane:  pane,
	})
}

func (b *builder) newSheet(name string) {
	if b.err != nil {
		return
	}
	_, b.err = b.f.NewSheet(name)
}

// Build creates the workbook for opts.Year from recs: a summary sheet, one
// sheet per month with data, and one calendar sheet per employee. The
// statistics shown on the summary are returned too.
func Build(recs []model.Record, opts Options) (*excelize.File, []EmployeeStats, error) {
	opts.Styles.Normalize()
	recs = inYear(recs, opts.Year)

	stats, err := Analyze(recs, opts.Year, opts.Rules)
	if err != nil {
		return nil, nil, err
	}

	f := excelize.NewFile()
	b := &builder{f: f, st: opts.Styles, cache: newStyleCache(f)}
	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		f.Close()
		return nil, nil, errors.Wrap(err, "report: rename summary sheet")
	}

	codes := Codes(recs)
	b.summary(stats, opts)
	months := b.monthly(stats, codes, recs, opts.Year)
	names := newSheetNames(append([]string{SummarySheet}, months...))
	for _, s := range stats {
		b.calendar(names.take(s.Name), s, codes, opts.Year)
	}
	if b.err != nil {
		f.Close()
		return nil, nil, errors.Wrap(b.err, "report: build workbook")
	}
	f.SetActiveSheet(0)

	appLog.Info("report: workbook built", "year", opts.Year, "employees", len(stats), "months", len(months))
	return f, stats, nil
}

// Write builds the workbook and writes it to w.
func Write(w io.Writer, recs []model.Record, opts Options) error {
	f, _, err := Build(recs, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	return errors.Wrap(f.Write(w), "report: write workbook")
}

// Save builds the workbook and saves it to path.
func Save(path string, recs []model.Record, opts Options) error {
	f, _, err := Build(recs, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "report: create dir")
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "report: save %s", path)
	}
	appLog.Info("report: workbook saved", "path", path)
	return nil
}

func inYear(recs []model.Record, year int) []model.Record {
	prefix := fmt.Sprintf("%04d/", year)
	out := make([]model.Record, 0, len(recs))
	for _, r := range recs {
		if strings.HasPrefix(r.Date, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func (b *builder) legend(sheet string, lastCol int, title string) {
	b.set(sheet, 1, 1, title)
	b.merge(sheet, 1, 1, lastCol, 1)
	b.paintRange(sheet, 1, 1, lastCol, 1, look{Fill: b.st.Header, Font: "#FFFFFF", Size: 14, Bold: true, Align: "center"})

	b.set(sheet, 1, 2, "LÉGENDE")
	b.paint(sheet, 1, 2, look{Bold: true, Align: "center"})

	items := []struct {
		row, col   int
		text, fill string
		dark       bool
	}{
		{2, 2, "TV = Télétravail validé", b.st.RemoteOK, true},
		{2, 4, "TP = Télétravail à valider", b.st.RemotePen, false},
		{2, 6, "CV = Congés validés", b.st.LeaveOK, true},
		{2, 8, "CP = Congés à valider", b.st.LeavePen, false},
		{3, 2, "RV = RTT validés", b.st.RTTOK, true},
		{3, 4, "RP = RTT à valider", b.st.RTTPen, false},
		{3, 6, "W = Week-end/Férié", b.st.Weekend, false},
		{3, 8, "AM/PM = Demi-journée", b.st.Mixed, false},
	}
	for _, it := range items {
		font := "#000000"
		if it.dark {
			font = "#FFFFFF"
		}
		b.set(sheet, it.col, it.row, it.text)
		b.merge(sheet, it.col, it.row, it.col+1, it.row)
		b.paintRange(sheet, it.col, it.row, it.col+1, it.row, look{Fill: it.fill, Font: font, Size: 8, Bold: true, Align: "center", Wrap: true})
	}
	b.height(sheet, 1, 25)
	b.height(sheet, 2, 22)
	b.height(sheet, 3, 22)
}

func (b *builder) code(sheet string, col, row int, code, rowFill string) {
	l := look{Size: 7, Bold: true, Align: "center", Fill: b.st.codeFill(code)}
	if code == "W" {
		l.Bold, l.Font = false, "#999999"
	}
	if l.Fill == "" {
		l.Fill = rowFill
	}
	if code != "" {
		b.set(sheet, col, row, code)
	}
	b.paint(sheet, col, row, l)
}

func (b *builder) summary(stats []EmployeeStats, opts Options) {
	sheet := SummarySheet
	headers := []string{
		"Collaborateur", "UID",
		"Télétravail\nValidé (j)", "Télétravail\nÀ valider (j)",
		"Congés\nValidés (j)", "Congés\nÀ valider (j)",
		"RTT\nValidés (j)", "RTT\nÀ valider (j)",
		"Statut\ninconnu (j)",
		fmt.Sprintf("Règle %dj\nconsécutifs", opts.Rules.MinConsecutiveDays),
		fmt.Sprintf("Règle %gj\ntotal", opts.Rules.MinTotalDays),
	}
	last := len(headers)
	for i, h := range headers {
		b.set(sheet, i+1, 1, h)
	}
	b.paintRange(sheet, 1, 1, last, 1, look{Fill: b.st.Header, Font: "#FFFFFF", Size: 11, Bold: true, Align: "center", Wrap: true})
	b.height(sheet, 1, 30)

	metric := look{Align: "right", NumFmt: "0.0"}
	row := 2
	for _, s := range stats {
		b.set(sheet, 1, row, s.Name)
		b.set(sheet, 2, row, s.UID)
		b.paintRange(sheet, 1, row, 2, row, look{Align: "left"})
		for i, code := range CountedCodes {
			b.set(sheet, 3+i, row, s.Days(code))
		}
		var unknown float64
		for _, code := range UnknownCodes {
			unknown += s.Days(code)
		}
		b.set(sheet, 9, row, unknown)
		b.paintRange(sheet, 3, row, 9, row, metric)

		for i, ok := range []bool{s.Rules.ConsecutiveOK, s.Rules.TotalOK} {
			mark, fill := markFail, b.st.Fail
			if ok {
				mark, fill = markPass, b.st.Pass
			}
			b.set(sheet, 10+i, row, mark)
			b.paint(sheet, 10+i, row, look{Fill: fill, Size: 14, Bold: true, Align: "center"})
		}
		row++
	}

	total := look{Fill: b.st.Total, Bold: true}
	b.set(sheet, 1, row, "TOTAL")
	b.paintRange(sheet, 1, row, 2, row, total)
	for col := 3; col <= 9; col++ {
		if len(stats) > 0 {
			b.formula(sheet, col, row, fmt.Sprintf("SUM(%s2:%s%d)", colName(col), colName(col), row-1))
		}
	}
	total.Align, total.NumFmt = "right", "0.0"
	b.paintRange(sheet, 3, row, 9, row, total)

	var okRun, okTotal int
	for _, s := range stats {
		if s.Rules.ConsecutiveOK {
			okRun++
		}
		if s.Rules.TotalOK {
			okTotal++
		}
	}
	b.set(sheet, 10, row, fmt.Sprintf("%d/%d", okRun, len(stats)))
	b.set(sheet, 11, row, fmt.Sprintf("%d/%d", okTotal, len(stats)))
	b.paintRange(sheet, 10, row, 11, row, look{Fill: b.st.Total, Bold: true, Align: "center"})

	b.width(sheet, 1, 1, b.st.NameWidth)
	b.width(sheet, 2, 2, b.st.UIDWidth)
	b.width(sheet, 3, 9, b.st.MetricWidth)
	b.width(sheet, 10, 11, b.st.RuleWidth)

	note := row + 2
	from, to, _ := opts.Rules.Window(opts.Year)
	b.set(sheet, 1, note, fmt.Sprintf(
		"Règles RH (période %s - %s) : %dj consécutifs = au moins %d jours d'affilée | %gj total = au moins %g jours (consécutifs ou non)",
		from.Format("02/01"), to.Format("02/01"),
		opts.Rules.MinConsecutiveDays, opts.Rules.MinConsecutiveDays,
		opts.Rules.MinTotalDays, opts.Rules.MinTotalDays))
	b.merge(sheet, 1, note, last, note)
	b.paint(sheet, 1, note, look{Size: 9, Italic: true, Align: "left", Wrap: true})
	b.height(sheet, note, 30)
	b.freeze(sheet, 0, 1)
}

// monthly writes one sheet per month of year present in recs and returns
// the sheet names.
func (b *builder) monthly(stats []EmployeeStats, codes map[string]map[string]string, recs []model.Record, year int) []string {
	var present [13]bool
	for _, r := range recs {
		if d, err := time.Parse(model.DateLayout, r.Date); err == nil {
			present[d.Month()] = true
		}
	}

	var sheets []string
	for m := time.January; m <= time.December; m++ {
		if !present[m] {
			continue
		}
		sheet := MonthNames[m-1]
		sheets = append(sheets, sheet)
		b.newSheet(sheet)

		nbDays := planning.DaysIn(year, m)
		last := nbDays + 1
		b.legend(sheet, last, fmt.Sprintf("PLANNING %s %d", strings.ToUpper(sheet), year))

		header := look{Fill: b.st.Header, Font: "#FFFFFF", Size: 10, Bold: true, Align: "center"}
		b.set(sheet, 1, 6, "Collaborateur")
		for day := 1; day <= nbDays; day++ {
			wd := time.Date(year, m, day, 0, 0, 0, 0, time.UTC).Weekday()
			b.set(sheet, day+1, 5, weekdayNames[wd])
			b.set(sheet, day+1, 6, day)
		}
		b.paintRange(sheet, 1, 5, last, 6, header)
		b.height(sheet, 5, 15)
		b.height(sheet, 6, 18)

		const first = 7
		for i, s := range stats {
			row := first + i
			rowFill := ""
			if i%2 == 0 {
				rowFill = b.st.Name
			}
			b.set(sheet, 1, row, s.Name)
			b.paint(sheet, 1, row, look{Fill: rowFill, Size: 9, Bold: true, Align: "left"})

			days := codes[employeeKey(s)]
			for day := 1; day <= nbDays; day++ {
				date := time.Date(year, m, day, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)
				b.code(sheet, day+1, row, days[date], rowFill)
			}
		}

		totals := []struct {
			label    string
			prefixes []string
		}{
			{"TOTAL événements (j)", nil},
			{"  dont Télétravail (j)", []string{planning.FamilyRemote}},
			{"  dont Congés (j)", []string{planning.FamilyLeave}},
			{"  dont RTT (j)", []string{planning.FamilyRTT}},
		}
		totalRow := first + len(stats) + 1
		for off, t := range totals {
			row := totalRow + off
			b.set(sheet, 1, row, t.label)
			b.paint(sheet, 1, row, look{Fill: b.st.Total, Size: 9, Bold: off == 0, Italic: off > 0, Align: "left"})
			for day := 1; day <= nbDays; day++ {
				date := time.Date(year, m, day, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)
				var sum float64
				for _, s := range stats {
					sum += EventWeight(codes[employeeKey(s)][date], t.prefixes)
				}
				l := look{Fill: b.st.Total, Size: 9, Bold: off == 0, Align: "center", NumFmt: "0"}
				if sum > 0 {
					if sum != float64(int(sum)) {
						l.NumFmt = "0.0"
					}
					b.set(sheet, day+1, row, sum)
				}
				b.paint(sheet, day+1, row, l)
			}
		}

		b.width(sheet, 1, 1, b.st.MonthNameWidth)
		b.width(sheet, 2, last, b.st.DayWidth)
		b.freeze(sheet, 1, 6)
	}
	return sheets
}

func (b *builder) calendar(sheet string, s EmployeeStats, codes map[string]map[string]string, year int) {
	b.newSheet(sheet)
	const last = 32
	b.legend(sheet, last, fmt.Sprintf("PLANNING %d - %s", year, s.Name))

	b.set(sheet, 1, 4, "Code-AM/PM = demi-journée | Code1/Code2 = matin≠après-midi")
	b.merge(sheet, 1, 4, 9, 4)
	b.paintRange(sheet, 1, 4, 9, 4, look{Fill: b.st.Note, Size: 9, Italic: true, Align: "left"})
	b.height(sheet, 4, 20)

	b.set(sheet, 1, 6, "Mois")
	for day := 1; day <= 31; day++ {
		b.set(sheet, day+1, 6, day)
	}
	b.paintRange(sheet, 1, 6, last, 6, look{Fill: b.st.Header, Font: "#FFFFFF", Size: 10, Bold: true, Align: "center"})
	b.height(sheet, 6, 20)
	b.width(sheet, 1, 1, b.st.CalMonthWidth)
	b.width(sheet, 2, last, b.st.CalDayWidth)

	days := codes[employeeKey(s)]
	for m := time.January; m <= time.December; m++ {
		row := 6 + int(m)
		b.set(sheet, 1, row, MonthNames[m-1])
		b.paint(sheet, 1, row, look{Fill: b.st.Month, Bold: true, Align: "center"})

		nbDays := planning.DaysIn(year, m)
		for day := 1; day <= 31; day++ {
			if day > nbDays {
				b.paint(sheet, day+1, row, look{Fill: b.st.Missing, Diagonal: true})
				continue
			}
			date := time.Date(year, m, day, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)
			b.code(sheet, day+1, row, days[date], "")
		}
	}
	b.freeze(sheet, 1, 6)
}

func employeeKey(s EmployeeStats) string {
	return model.Employee{Name: s.Name, UID: s.UID}.Key()
}

// sheetNames hands out valid, unique sheet names.
type sheetNames map[string]struct{}

func newSheetNames(taken []string) sheetNames {
	n := sheetNames{}
	for _, t := range taken {
		n[strings.ToLower(t)] = struct{}{}
	}
	return n
}

// take sanitizes name for use as a sheet title and makes it unique by
// appending " (2)", " (3)", ... as needed.
func (n sheetNames) take(name string) string {
	base := SheetName(name)
	cand := base
	for i := 2; ; i++ {
		if _, ok := n[strings.ToLower(cand)]; !ok {
			break
		}
		suffix := fmt.Sprintf(" (%d)", i)
		cand = truncate(base, maxSheetName-utf8.RuneCountInString(suffix)) + suffix
	}
	n[strings.ToLower(cand)] = struct{}{}
	return cand
}

// SheetName strips the characters a sheet title may not contain and cuts
// it to 31 characters.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" {
		name = "Sans nom"
	}
	return truncate(name, maxSheetName)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
