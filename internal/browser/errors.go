package browser

import "errors"

var (
	ErrNoURL       = errors.New("browser: target URL is required")
	ErrMonthLabel  = errors.New("browser: unreadable month label")
	ErrNoSession   = errors.New("browser: session file has no cookies")
	ErrLoginExpiry = errors.New("browser: calendar did not show up, session may have expired")
)
