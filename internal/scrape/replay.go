package scrape

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"leaveplan/internal/grid"
)

// Replay is a Navigator over saved month snapshots, one "YYYY-MM.html" per
// month in a directory (the layout the dump option writes).
type Replay struct {
	dir     string
	current time.Time
}

// NewReplay opens dir positioned on its earliest snapshot.
func NewReplay(dir string) (*Replay, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, errors.Wrap(err, "scrape: list snapshots")
	}

	var first time.Time
	for _, f := range files {
		t, err := time.Parse("2006-01", strings.TrimSuffix(filepath.Base(f), ".html"))
		if err != nil {
			continue
		}
		if first.IsZero() || t.Before(first) {
			first = t
		}
	}
	if first.IsZero() {
		return nil, errors.Wrapf(ErrNoSnapshot, "in %s", dir)
	}
	return &Replay{dir: dir, current: first}, nil
}

func (r *Replay) CurrentMonth(context.Context) (time.Month, int, error) {
	return r.current.Month(), r.current.Year(), nil
}

func (r *Replay) Previous(context.Context) error {
	r.current = r.current.AddDate(0, -1, 0)
	return nil
}

func (r *Replay) Next(context.Context) error {
	r.current = r.current.AddDate(0, 1, 0)
	return nil
}

func (r *Replay) path() string {
	return filepath.Join(r.dir, r.current.Format("2006-01")+".html")
}

func (r *Replay) Snapshot(context.Context) (*grid.Page, error) {
	path := r.path()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNoSnapshot, "%s", r.current.Format("2006-01"))
	}
	return grid.ParseFile(path)
}

func (r *Replay) HTML(context.Context) (string, error) {
	b, err := os.ReadFile(r.path())
	if err != nil {
		return "", errors.Wrap(err, "scrape: read snapshot")
	}
	return string(b), nil
}
