package grid

import "errors"

var (
	// ErrNoColumns means a row has neither day-cell widths nor a line width.
	ErrNoColumns = errors.New("grid: row has no usable column width")
	// ErrNoCalendar means the document holds no planning markup at all.
	ErrNoCalendar = errors.New("grid: no planning found in document")
)
