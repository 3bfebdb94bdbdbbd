package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"leaveplan/internal/model"
)

func TestMapToDay(t *testing.T) {
	m := DefaultMapper()

	tests := []struct {
		name        string
		left, width float64
		want        Span
	}{
		{"bar over three days", 80, 120, Span{Start: 2, End: 4}},
		{"single full day", 160, 40, Span{Start: 4, End: 4}},
		{"half-day marker in the morning", 85, 2, Span{Start: 2, End: 2, HalfDay: true, Period: Morning}},
		{"half-day marker in the afternoon", 105, 2, Span{Start: 2, End: 2, HalfDay: true, Period: Afternoon}},
		{"narrow but not half-day", 84, 8, Span{Start: 2, End: 2}},
		{"bar clamped on the left", -50, 100, Span{Start: 0, End: 1}},
		{"bar clamped on the right", 1180, 100, Span{Start: 29, End: 29}},
		{"point clamped on the right", 1300, 5, Span{Start: 29, End: 29}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.MapToDay(tt.left, tt.width, 40, 30))
		})
	}
}

func TestMapToDayFractionalColumns(t *testing.T) {
	col := 100.0 / 3
	got := DefaultMapper().MapToDay(4*col, 3*col, col, 28)
	assert.Equal(t, 4, got.Start)
	assert.Equal(t, 6, got.End)
	assert.False(t, got.HalfDay)
}

func TestMapBoxMode(t *testing.T) {
	m := DefaultMapper()

	am := m.Map(ModeBox, 0, 20, 40, 31)
	assert.Equal(t, Span{Start: 0, End: 0, HalfDay: true, Period: Morning}, am)

	pm := m.Map(ModeBox, 20, 20, 40, 31)
	assert.Equal(t, Span{Start: 0, End: 0, HalfDay: true, Period: Afternoon}, pm)

	full := m.Map(ModeBox, 40, 38, 40, 31)
	assert.Equal(t, Span{Start: 1, End: 1}, full)

	// An afternoon box overshooting its column stays on its own day.
	overshoot := m.Map(ModeBox, 3*40+20, 21, 40, 31)
	assert.Equal(t, Span{Start: 3, End: 3, HalfDay: true, Period: Afternoon}, overshoot)
}

func TestResolveKeepsOvershootingHalfDayOnItsDay(t *testing.T) {
	m := DefaultMapper()
	span := m.Map(ModeBox, 3*40+20, 21, 40, 28)
	ev := ClassifiedEvent{
		Kind: KindRemoteWork, Detail: "Télétravail",
		Start: span.Start, End: span.End, HalfDay: span.HalfDay, Period: span.Period,
	}

	p := BuildSkeleton(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), 28)
	Resolve(p, []ClassifiedEvent{ev}, DaySet{})

	assert.Equal(t, model.RemoteWork, p.Days[3].Afternoon.State)
	assert.Equal(t, model.Present, p.Days[3].Morning.State)
	assert.Equal(t, model.Present, p.Days[4].Afternoon.State)
}

func TestMapThresholdIsConfigurable(t *testing.T) {
	m := DefaultMapper()
	m.PointRatio = 0.65

	// 0.5 of a column is a point event under 0.65, a bar under 0.3.
	assert.Equal(t, Span{Start: 1, End: 1}, m.MapToDay(30, 20, 40, 10))
	assert.Equal(t, Span{Start: 0, End: 1}, DefaultMapper().MapToDay(30, 20, 40, 10))
}

func TestMapPanicsOnContractViolation(t *testing.T) {
	m := DefaultMapper()
	assert.Panics(t, func() { m.MapToDay(0, 10, 0, 30) })
	assert.Panics(t, func() { m.MapToDay(0, 10, -1, 30) })
	assert.Panics(t, func() { m.MapToDay(0, 10, 40, 0) })
}
