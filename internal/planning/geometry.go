package planning

import (
	"fmt"
	"math"
)

// Default geometry thresholds.
//
// HalfDayRatioThreshold splits point events from bars: an overlay narrower
// than this fraction of a day column is pinned to the column holding its
// center. It is deliberately independent from half-day detection below.
//
// HalfDayMaxWidthPx is the half-day rule when geometry comes from style
// attributes: the calendar renders half-days as thin markers a few pixels
// wide. BoxHalfDayRatio is the half-day rule when geometry comes from
// rendered bounding boxes, where half-days span roughly half a column.
const (
	HalfDayRatioThreshold = 0.3
	HalfDayMaxWidthPx     = 2.0
	BoxHalfDayRatio       = 0.65
)

// pixel rounding tolerance on column boundaries
const edgeEpsilon = 1e-6

// Period is the half of the day a half-day event occupies.
type Period int

const (
	PeriodUnknown Period = iota
	Morning
	Afternoon
)

func (p Period) String() string {
	switch p {
	case Morning:
		return "am"
	case Afternoon:
		return "pm"
	default:
		return "unknown"
	}
}

// Mode tells the mapper where a horizontal extent came from.
type Mode int

const (
	// ModeStyle: left/width parsed from the element's inline style,
	// relative to the employee's row.
	ModeStyle Mode = iota
	// ModeBox: extent from the rendered bounding box, made relative to the
	// first day column's box.
	ModeBox
)

// Mapper converts horizontal pixel extents into day indices. The zero value
// is not useful; start from DefaultMapper.
type Mapper struct {
	// PointRatio is HALF_DAY_RATIO_THRESHOLD.
	PointRatio float64
	// HalfDayMaxPx is the half-day width limit in ModeStyle.
	HalfDayMaxPx float64
	// BoxHalfDayRatio is the half-day width/column ratio limit in ModeBox.
	BoxHalfDayRatio float64
}

func DefaultMapper() Mapper {
	return Mapper{
		PointRatio:      HalfDayRatioThreshold,
		HalfDayMaxPx:    HalfDayMaxWidthPx,
		BoxHalfDayRatio: BoxHalfDayRatio,
	}
}

// Span is the mapped position of one event inside a month.
type Span struct {
	Start   int // inclusive, 0-based
	End     int // inclusive, 0-based
	HalfDay bool
	// Period is only meaningful when HalfDay is true.
	Period Period
}

// MapToDay maps a style-derived extent. See Map.
func (m Mapper) MapToDay(leftPx, widthPx, colWidthPx float64, nbDays int) Span {
	return m.Map(ModeStyle, leftPx, widthPx, colWidthPx, nbDays)
}

// Map converts an extent [leftPx, leftPx+widthPx) within a row of nbDays
// columns of colWidthPx each into an inclusive day range.
//
// Narrow overlays (width < PointRatio columns) are point events on the
// column of their center; wider ones cover every column they touch. Whether
// the event is a half-day is decided separately, per mode; a half-day is
// pinned to the column of its center and its period follows the center
// relative to that column's midpoint.
//
// colWidthPx and nbDays must be positive: callers compute them from the
// grid, so a non-positive value is an integration bug and panics. Zero-width
// extents must be filtered out before reaching here.
func (m Mapper) Map(mode Mode, leftPx, widthPx, colWidthPx float64, nbDays int) Span {
	if !(colWidthPx > 0) {
		panic(fmt.Sprintf("planning: column width must be positive, got %v", colWidthPx))
	}
	if nbDays <= 0 {
		panic(fmt.Sprintf("planning: month must have days, got %d", nbDays))
	}

	centerPx := leftPx + widthPx/2
	centerDay := int(math.Floor(centerPx / colWidthPx))

	var span Span
	if widthPx < colWidthPx*m.PointRatio {
		d := clamp(centerDay, 0, nbDays-1)
		span.Start, span.End = d, d
	} else {
		start := int(math.Floor(leftPx/colWidthPx + edgeEpsilon))
		end := int(math.Ceil((leftPx+widthPx)/colWidthPx-edgeEpsilon)) - 1
		span.Start = clamp(start, 0, nbDays-1)
		span.End = clamp(end, span.Start, nbDays-1)
	}

	span.HalfDay = m.isHalfDay(mode, widthPx, colWidthPx)
	if span.HalfDay {
		// A half-day belongs to one day: the column holding its center.
		d := clamp(centerDay, 0, nbDays-1)
		span.Start, span.End = d, d
		span.Period = periodOf(centerPx, colWidthPx, nbDays)
	}
	return span
}

func (m Mapper) isHalfDay(mode Mode, widthPx, colWidthPx float64) bool {
	if mode == ModeBox {
		return widthPx/colWidthPx < m.BoxHalfDayRatio
	}
	return widthPx <= m.HalfDayMaxPx
}

func periodOf(centerPx, colWidthPx float64, nbDays int) Period {
	day := clamp(int(math.Floor(centerPx/colWidthPx)), 0, nbDays-1)
	offset := centerPx - float64(day)*colWidthPx
	if offset < colWidthPx/2 {
		return Morning
	}
	return Afternoon
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
