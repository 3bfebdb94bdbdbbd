// Package browser drives a Chromium instance over the team planning page:
// it restores the saved session, reads and moves the displayed month, and
// measures the rendered grid.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"

	"leaveplan/internal/grid"
	appLog "leaveplan/internal/log"
)

// Defaults for Options. Zero delays mean no wait.
const (
	DefaultWidth           = 1920
	DefaultHeight          = 1080
	DefaultActionTimeout   = 30 * time.Second
	DefaultInitialLoad     = 10 * time.Second
	DefaultNavigationDelay = 1500 * time.Millisecond
	DefaultLoginTimeout    = 5 * time.Minute
)

// Options configures a Browser.
type Options struct {
	// URL of the team planning page.
	URL string

	// SessionFile is a storage-state file restored before navigation.
	// Empty means start unauthenticated.
	SessionFile string

	Headless bool

	// Width and Height are the viewport size. The grid scales with the
	// viewport, so a fixed size keeps geometry stable between runs.
	Width  int
	Height int

	// InitialLoad is waited once after the first navigation; the planning
	// widget keeps loading after the DOM is ready.
	InitialLoad time.Duration

	// NavigationDelay is waited after each month change.
	NavigationDelay time.Duration

	// ActionTimeout bounds each individual browser round trip.
	ActionTimeout time.Duration
}

func (o *Options) normalize() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.InitialLoad < 0 {
		o.InitialLoad = 0
	}
	if o.NavigationDelay < 0 {
		o.NavigationDelay = 0
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
}

// Browser is one Chromium tab on the planning page. It is not safe for
// concurrent use: the page has a single displayed month.
type Browser struct {
	opts        Options
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Open starts Chromium and allocates a tab. Call Load to reach the page.
func Open(parent context.Context, opts Options) (*Browser, error) {
	if opts.URL == "" {
		return nil, ErrNoURL
	}
	opts.normalize()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancelTab := chromedp.NewContext(allocCtx)

	// First Run starts the browser process.
	if err := chromedp.Run(ctx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, errors.Wrap(err, "browser: start chromium")
	}

	return &Browser{opts: opts, ctx: ctx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// Close shuts the tab and the browser process.
func (b *Browser) Close() {
	b.cancelTab()
	b.cancelAlloc()
}

// run executes actions on the tab, bounded by the action timeout and by ctx.
func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Load restores the session cookies, opens the planning page and waits for
// the month header.
func (b *Browser) Load(ctx context.Context) error {
	actions := []chromedp.Action{
		network.Enable(),
		chromedp.EmulateViewport(int64(b.opts.Width), int64(b.opts.Height)),
	}

	if b.opts.SessionFile != "" {
		sess, err := LoadSession(b.opts.SessionFile)
		if err != nil {
			return err
		}
		actions = append(actions, network.SetCookies(sess.Params()))
		appLog.Debug("browser: session restored", "cookies", len(sess.Cookies), "file", b.opts.SessionFile)
	}

	actions = append(actions,
		chromedp.Navigate(b.opts.URL),
		chromedp.WaitReady(grid.SelMonthLabel, chromedp.ByQuery),
	)

	appLog.Info("browser: loading planning", "url", b.opts.URL)
	if err := b.run(ctx, b.opts.ActionTimeout+b.opts.InitialLoad, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(ErrLoginExpiry, err.Error())
	}
	return sleep(ctx, b.opts.InitialLoad)
}

// MonthLabel returns the header text of the displayed month.
func (b *Browser) MonthLabel(ctx context.Context) (string, error) {
	var text string
	err := b.run(ctx, b.opts.ActionTimeout,
		chromedp.WaitReady(grid.SelMonthLabel, chromedp.ByQuery),
		chromedp.TextContent(grid.SelMonthLabel, &text, chromedp.ByQuery),
	)
	if err != nil {
		return "", errors.Wrap(err, "browser: read month label")
	}
	return text, nil
}

// CurrentMonth parses the displayed month.
func (b *Browser) CurrentMonth(ctx context.Context) (time.Month, int, error) {
	label, err := b.MonthLabel(ctx)
	if err != nil {
		return 0, 0, err
	}
	return ParseMonthLabel(label)
}

// Previous shows the previous month.
func (b *Browser) Previous(ctx context.Context) error {
	return b.click(ctx, grid.SelPrevButton)
}

// Next shows the next month.
func (b *Browser) Next(ctx context.Context) error {
	return b.click(ctx, grid.SelNextButton)
}

func (b *Browser) click(ctx context.Context, sel string) error {
	if err := b.run(ctx, b.opts.ActionTimeout, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return errors.Wrapf(err, "browser: click %s", sel)
	}
	return sleep(ctx, b.opts.NavigationDelay)
}

// Snapshot measures the displayed month.
func (b *Browser) Snapshot(ctx context.Context) (*grid.Page, error) {
	var page grid.Page
	if err := b.run(ctx, b.opts.ActionTimeout, chromedp.Evaluate(snapshotJS, &page)); err != nil {
		return nil, errors.Wrap(err, "browser: snapshot")
	}
	return &page, nil
}

// HTML returns the serialized document, for offline replay.
func (b *Browser) HTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, b.opts.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", errors.Wrap(err, "browser: outer html")
	}
	return html, nil
}

// CaptureSession opens the planning page without cookies and waits for the
// user to sign in by hand; once the month header shows up, every cookie of
// the browser is returned as a session. The browser must not be headless.
func (b *Browser) CaptureSession(ctx context.Context, loginTimeout time.Duration) (*Session, error) {
	if loginTimeout <= 0 {
		loginTimeout = DefaultLoginTimeout
	}
	appLog.Info("browser: waiting for manual sign-in", "url", b.opts.URL, "timeout", loginTimeout.String())

	err := b.run(ctx, loginTimeout,
		network.Enable(),
		chromedp.Navigate(b.opts.URL),
		chromedp.WaitVisible(grid.SelMonthLabel, chromedp.ByQuery),
	)
	if err != nil {
		return nil, errors.Wrap(err, "browser: sign-in not completed")
	}

	var cookies []*network.Cookie
	err = b.run(ctx, b.opts.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, errors.Wrap(err, "browser: read cookies")
	}
	return SessionFromCookies(cookies), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
