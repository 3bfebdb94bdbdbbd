package report

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// Styles holds the workbook colors (RGB hex, no leading '#') and column
// widths.
type Styles struct {
	Header    string `yaml:"header"`
	Name      string `yaml:"name"`
	Total     string `yaml:"total"`
	Month     string `yaml:"month"`
	Pass      string `yaml:"pass"`
	Fail      string `yaml:"fail"`
	RemoteOK  string `yaml:"remote_validated"`
	RemotePen string `yaml:"remote_pending"`
	LeaveOK   string `yaml:"leave_validated"`
	LeavePen  string `yaml:"leave_pending"`
	RTTOK     string `yaml:"rtt_validated"`
	RTTPen    string `yaml:"rtt_pending"`
	Weekend   string `yaml:"weekend"`
	Mixed     string `yaml:"mixed"`
	Missing   string `yaml:"missing"`
	Note      string `yaml:"note"`

	NameWidth      float64 `yaml:"name_width"`
	UIDWidth       float64 `yaml:"uid_width"`
	MetricWidth    float64 `yaml:"metric_width"`
	RuleWidth      float64 `yaml:"rule_width"`
	MonthNameWidth float64 `yaml:"month_name_width"`
	DayWidth       float64 `yaml:"day_width"`
	CalMonthWidth  float64 `yaml:"calendar_month_width"`
	CalDayWidth    float64 `yaml:"calendar_day_width"`
}

func DefaultStyles() Styles {
	return Styles{
		Header:    "366092",
		Name:      "D6E4F0",
		Total:     "B4C7E7",
		Month:     "B4C7E7",
		Pass:      "C6EFCE",
		Fail:      "FFC7CE",
		RemoteOK:  "9BC2E6",
		RemotePen: "DDEBF7",
		LeaveOK:   "A9D08E",
		LeavePen:  "E2EFDA",
		RTTOK:     "F4B084",
		RTTPen:    "FCE4D6",
		Weekend:   "D9D9D9",
		Mixed:     "E7E6E6",
		Missing:   "F2F2F2",
		Note:      "FFF9E6",

		NameWidth:      25,
		UIDWidth:       10,
		MetricWidth:    14,
		RuleWidth:      12,
		MonthNameWidth: 24,
		DayWidth:       5.5,
		CalMonthWidth:  12,
		CalDayWidth:    5,
	}
}

// Normalize fills blank colors and non-positive widths from the defaults.
func (s *Styles) Normalize() {
	d := DefaultStyles()
	for _, c := range []struct{ v, def *string }{
		{&s.Header, &d.Header}, {&s.Name, &d.Name}, {&s.Total, &d.Total},
		{&s.Month, &d.Month}, {&s.Pass, &d.Pass}, {&s.Fail, &d.Fail},
		{&s.RemoteOK, &d.RemoteOK}, {&s.RemotePen, &d.RemotePen},
		{&s.LeaveOK, &d.LeaveOK}, {&s.LeavePen, &d.LeavePen},
		{&s.RTTOK, &d.RTTOK}, {&s.RTTPen, &d.RTTPen},
		{&s.Weekend, &d.Weekend}, {&s.Mixed, &d.Mixed},
		{&s.Missing, &d.Missing}, {&s.Note, &d.Note},
	} {
		*c.v = strings.TrimPrefix(strings.TrimSpace(*c.v), "#")
		if *c.v == "" {
			*c.v = *c.def
		}
	}
	for _, w := range []struct{ v, def *float64 }{
		{&s.NameWidth, &d.NameWidth}, {&s.UIDWidth, &d.UIDWidth},
		{&s.MetricWidth, &d.MetricWidth}, {&s.RuleWidth, &d.RuleWidth},
		{&s.MonthNameWidth, &d.MonthNameWidth}, {&s.DayWidth, &d.DayWidth},
		{&s.CalMonthWidth, &d.CalMonthWidth}, {&s.CalDayWidth, &d.CalDayWidth},
	} {
		if *w.v <= 0 {
			*w.v = *w.def
		}
	}
}

// codeFill picks the background of a status-code cell. Codes without an
// approval marker and mixed days share the neutral fill.
func (s Styles) codeFill(code string) string {
	switch {
	case code == "W":
		return s.Weekend
	case strings.Contains(code, "/"):
		return s.Mixed
	case strings.HasPrefix(code, "TV"):
		return s.RemoteOK
	case strings.HasPrefix(code, "TP"):
		return s.RemotePen
	case strings.HasPrefix(code, "CV"):
		return s.LeaveOK
	case strings.HasPrefix(code, "CP"):
		return s.LeavePen
	case strings.HasPrefix(code, "RV"):
		return s.RTTOK
	case strings.HasPrefix(code, "RP"):
		return s.RTTPen
	case code != "":
		return s.Mixed
	}
	return ""
}

var thin = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

func solid(hex string) excelize.Fill {
	if hex == "" {
		return excelize.Fill{}
	}
	return excelize.Fill{Type: "pattern", Color: []string{"#" + hex}, Pattern: 1}
}

// styleCache creates excelize styles on first use so each distinct look is
// registered once per file.
type styleCache struct {
	f   *excelize.File
	ids map[string]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: map[string]int{}}
}

func (c *styleCache) get(key string, build func() *excelize.Style) (int, error) {
	if id, ok := c.ids[key]; ok {
		return id, nil
	}
	id, err := c.f.NewStyle(build())
	if err != nil {
		return 0, err
	}
	c.ids[key] = id
	return id, nil
}
