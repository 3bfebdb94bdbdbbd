package planning

import (
	"math"

	"leaveplan/internal/model"
)

// Box is a rendered horizontal extent in page coordinates.
type Box struct {
	X     float64
	Width float64
}

// RawEvent is one overlay element found in an employee's row.
type RawEvent struct {
	Class string
	Title string

	// Style geometry, relative to the row. HasStyle is false when the style
	// attribute had no usable left/width.
	LeftPx   float64
	WidthPx  float64
	HasStyle bool

	// Box is the rendered bounding box, when the element was measured live.
	Box *Box
}

// Columns describes the day columns of a row.
type Columns struct {
	// Width of one day column in pixels. Must be positive.
	Width float64
	// OriginX is the page x of the first day column. Only used with boxes.
	OriginX float64
	// UseBoxes selects bounding-box geometry over style geometry when an
	// event carries both.
	UseBoxes bool
}

// ClassifiedEvent is a typed, positioned event ready for resolution.
type ClassifiedEvent struct {
	Kind    Kind
	Status  Status
	Detail  string
	Start   int
	End     int
	HalfDay bool
	Period  Period
	// Order is the element's position in the row, the resolution tie-break.
	Order int
}

// State is the half-day state the event writes.
func (e ClassifiedEvent) State() model.State {
	if e.Kind == KindLeave {
		return model.Leave
	}
	return model.RemoteWork
}

// Events classifies and positions the raw events of one row. Unrecognized
// classes, non-working-day markers (harvested separately) and elements with
// missing or degenerate geometry are dropped. Order is the index in raws.
func (m Mapper) Events(raws []RawEvent, cols Columns, nbDays int) []ClassifiedEvent {
	out := make([]ClassifiedEvent, 0, len(raws))
	for i, raw := range raws {
		kind, status, ok := Classify(raw.Class)
		if !ok || kind == KindNonWorkingDay {
			continue
		}
		mode, left, width, ok := geometryOf(raw, cols)
		if !ok {
			continue
		}
		span := m.Map(mode, left, width, cols.Width, nbDays)
		out = append(out, ClassifiedEvent{
			Kind:    kind,
			Status:  status,
			Detail:  BuildDetail(raw.Title, status),
			Start:   span.Start,
			End:     span.End,
			HalfDay: span.HalfDay,
			Period:  span.Period,
			Order:   i,
		})
	}
	return out
}

func geometryOf(raw RawEvent, cols Columns) (Mode, float64, float64, bool) {
	if cols.UseBoxes && raw.Box != nil && usable(raw.Box.X, raw.Box.Width) {
		return ModeBox, raw.Box.X - cols.OriginX, raw.Box.Width, true
	}
	if raw.HasStyle && usable(raw.LeftPx, raw.WidthPx) {
		return ModeStyle, raw.LeftPx, raw.WidthPx, true
	}
	return ModeStyle, 0, 0, false
}

func usable(left, width float64) bool {
	if math.IsNaN(left) || math.IsInf(left, 0) || math.IsNaN(width) || math.IsInf(width, 0) {
		return false
	}
	return width > 0
}
