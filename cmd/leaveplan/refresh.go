package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	appLog "leaveplan/internal/log"
)

// refresher runs a collection in the background, at most one at a time,
// either on its cron schedule or when triggered through the API.
type refresher struct {
	ctx     context.Context
	run     func(ctx context.Context) error
	onDone  func()
	running atomic.Bool
	wg      sync.WaitGroup
	cron    *cron.Cron
}

func newRefresher(ctx context.Context, run func(ctx context.Context) error) *refresher {
	return &refresher{ctx: ctx, run: run}
}

// Trigger starts a run unless one is in progress. It reports whether a run
// was started.
func (r *refresher) Trigger() bool {
	if !r.running.CompareAndSwap(false, true) {
		appLog.Warn("refresh: already running, trigger ignored")
		return false
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.running.Store(false)

		start := time.Now()
		appLog.Info("refresh: starting")
		if err := r.run(r.ctx); err != nil {
			appLog.Error("refresh: failed", err, "duration", time.Since(start).String())
		} else {
			appLog.Info("refresh: completed", "duration", time.Since(start).String())
		}
		if r.onDone != nil {
			r.onDone()
		}
	}()
	return true
}

// Schedule triggers a run on every tick of a standard 5-field cron spec
// evaluated in loc. An empty spec schedules nothing.
func (r *refresher) Schedule(spec string, loc *time.Location) error {
	if spec == "" {
		return nil
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() { r.Trigger() }); err != nil {
		return errors.Wrapf(err, "refresh: invalid schedule %q", spec)
	}
	c.Start()
	r.cron = c

	next := c.Entries()[0].Next
	appLog.Info("refresh: scheduled", "cron", spec, "next", next.Format(time.RFC3339))
	return nil
}

// Stop halts the schedule and waits for a run in progress.
func (r *refresher) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
	r.wg.Wait()
}
