// Package grid models one rendered month of the team planning: employee rows
// with their overlay elements, plus the page-level non-working-day markers.
//
// A Page is produced either live by the browser (with rendered bounding
// boxes) or offline from a saved HTML snapshot (style attributes only).
package grid

import (
	"regexp"
	"strconv"

	"leaveplan/internal/planning"
)

// Selectors of the DHTMLX timeline markup.
const (
	SelRow        = "tr.dhx_row_item"
	SelNameCell   = "td.dhx_matrix_scell"
	SelDayCell    = "td.dhx_matrix_cell"
	SelLine       = ".dhx_matrix_line"
	SelCorpID     = "[data-corp-id]"
	SelMarker     = "div.dhx_marked_timespan.grey_cell_weekend"
	SelEvent      = "div[class*='cell']:not(.dhx_marked_timespan), div[class*='event']:not(.dhx_marked_timespan)"
	SelMonthLabel = "#date_now"
	SelPrevButton = "div.dhx_cal_prev_button.prev-month"
	SelNextButton = "div.dhx_cal_next_button.next-month"
	AttrCorpID    = "data-corp-id"
)

// Box is a rendered horizontal extent in page pixels.
type Box struct {
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// Element is one overlay element inside a row's matrix line.
type Element struct {
	Class string `json:"class"`
	Title string `json:"title"`
	Style string `json:"style"`
	Box   *Box   `json:"box,omitempty"`
}

// Row is one line of the planning.
type Row struct {
	Name   string `json:"name"`
	CorpID string `json:"corpId"`
	// CellWidths are the declared style widths of the day cells, 0 when a
	// cell has none.
	CellWidths []float64 `json:"cellWidths"`
	// CellBoxes are the rendered day cells, live pages only.
	CellBoxes []Box `json:"cellBoxes,omitempty"`
	// LineWidth is the width of the matrix line: offsetWidth when live, the
	// style width in snapshots. 0 when unknown.
	LineWidth float64   `json:"lineWidth"`
	Elements  []Element `json:"elements"`
}

// Page is one displayed month.
type Page struct {
	MonthLabel string `json:"monthLabel"`
	Rows       []Row  `json:"rows"`
	// Markers are the class strings of the non-working-day markers.
	Markers []string `json:"markers"`
}

var (
	leftRe  = regexp.MustCompile(`left:\s*([\d.]+)px`)
	widthRe = regexp.MustCompile(`width:\s*([\d.]+)px`)
)

// StyleLeft returns the px value of "left:" in an inline style.
func StyleLeft(style string) (float64, bool) {
	return stylePx(leftRe, style)
}

// StyleWidth returns the px value of "width:" in an inline style.
func StyleWidth(style string) (float64, bool) {
	return stylePx(widthRe, style)
}

func stylePx(re *regexp.Regexp, style string) (float64, bool) {
	m := re.FindStringSubmatch(style)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Raw converts the element for the planning engine. An element whose style
// lacks left or width keeps HasStyle false and is dropped downstream unless
// it carries a box.
func (e Element) Raw() planning.RawEvent {
	raw := planning.RawEvent{Class: e.Class, Title: e.Title}
	left, okL := StyleLeft(e.Style)
	width, okW := StyleWidth(e.Style)
	if okL && okW {
		raw.LeftPx, raw.WidthPx, raw.HasStyle = left, width, true
	}
	if e.Box != nil {
		raw.Box = &planning.Box{X: e.Box.X, Width: e.Box.Width}
	}
	return raw
}

// RawEvents converts every element of the row, in DOM order.
func (r Row) RawEvents() []planning.RawEvent {
	out := make([]planning.RawEvent, 0, len(r.Elements))
	for _, e := range r.Elements {
		out = append(out, e.Raw())
	}
	return out
}

// Columns derives the day-column geometry of the row. The declared widths
// of the first nbDays cells are summed, falling back to the line width; the
// total is split evenly over nbDays. When the first cell has a rendered box
// and useBoxes is set, events are measured against it.
func (r Row) Columns(nbDays int, useBoxes bool) (planning.Columns, error) {
	if nbDays <= 0 {
		return planning.Columns{}, ErrNoColumns
	}
	total := 0.0
	for i, w := range r.CellWidths {
		if i >= nbDays {
			break
		}
		total += w
	}
	if total <= 0 {
		total = r.LineWidth
	}
	if total <= 0 {
		return planning.Columns{}, ErrNoColumns
	}

	cols := planning.Columns{Width: total / float64(nbDays)}
	if useBoxes && len(r.CellBoxes) > 0 {
		cols.OriginX = r.CellBoxes[0].X
		cols.UseBoxes = true
	}
	return cols, nil
}
