package scrape

import "errors"

var (
	// ErrNoRows means the displayed month has no planning rows. The month
	// is reported empty and the run goes on.
	ErrNoRows = errors.New("scrape: no rows detected")
	// ErrMaxClicks means the target month was not reached in time.
	ErrMaxClicks = errors.New("scrape: navigation click limit reached")
	// ErrNoSnapshot means a replay directory has no file for the month.
	ErrNoSnapshot = errors.New("scrape: no snapshot for month")
)
