package planning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapperEvents(t *testing.T) {
	raws := []RawEvent{
		{Class: "dhx_cal_event_line validated_vcell", Title: "Congés payés", LeftPx: 160, WidthPx: 120, HasStyle: true},
		{Class: "dhx_marked_timespan grey_cell_weekend 2026/02/07", LeftPx: 240, WidthPx: 40, HasStyle: true},
		{Class: "dhx_matrix_cell", LeftPx: 0, WidthPx: 40, HasStyle: true},
		{Class: "telework to_validate_vcell", Title: "Télétravail", LeftPx: 405, WidthPx: 2, HasStyle: true},
		{Class: "telework validated_vcell", Title: "Télétravail", LeftPx: 40, WidthPx: 0, HasStyle: true},
		{Class: "telework validated_vcell", Title: "Télétravail"},
		{Class: "telework validated_vcell", LeftPx: math.NaN(), WidthPx: 40, HasStyle: true},
	}

	got := DefaultMapper().Events(raws, Columns{Width: 40}, 28)
	require.Len(t, got, 2)

	assert.Equal(t, ClassifiedEvent{
		Kind:   KindLeave,
		Status: StatusValidated,
		Detail: "Congés payés (Validé)",
		Start:  4,
		End:    6,
		Order:  0,
	}, got[0])

	assert.Equal(t, ClassifiedEvent{
		Kind:    KindRemoteWork,
		Status:  StatusPending,
		Detail:  "Télétravail (À valider)",
		Start:   10,
		End:     10,
		HalfDay: true,
		Period:  Morning,
		Order:   3,
	}, got[1])
}

func TestMapperEventsPrefersBoxes(t *testing.T) {
	raws := []RawEvent{
		{
			Class:    "validated_vcell",
			LeftPx:   0,
			WidthPx:  40,
			HasStyle: true,
			Box:      &Box{X: 1020, Width: 20},
		},
		{Class: "validated_vcell", Box: &Box{X: 1040, Width: 40}},
	}
	cols := Columns{Width: 40, OriginX: 1000, UseBoxes: true}

	got := DefaultMapper().Events(raws, cols, 31)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Start)
	assert.True(t, got[0].HalfDay)
	assert.Equal(t, Afternoon, got[0].Period)
	assert.Equal(t, 1, got[1].Start)
	assert.False(t, got[1].HalfDay)

	// Without UseBoxes the style geometry is used and the box-only event
	// has nothing to map.
	cols.UseBoxes = false
	got = DefaultMapper().Events(raws, cols, 31)
	require.Len(t, got, 1)
	assert.False(t, got[0].HalfDay)
}
