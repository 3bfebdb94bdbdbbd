// Package store keeps collected records on disk: one CSV per month plus a
// meta.json index, under a single directory.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"

	"leaveplan/internal/model"
)

var (
	ErrNotFound = errors.New("store: month not found")
	ErrBadFile  = errors.New("store: malformed record file")
	ErrBadKey   = errors.New("store: month key must be YYYY-MM")
)

const metaFile = "meta.json"

// MonthMeta describes one stored month.
type MonthMeta struct {
	ScrapedAt time.Time `json:"scraped_at"`
	Records   int       `json:"records"`
	Employees int       `json:"employees"`
	RunID     string    `json:"run_id,omitempty"`
}

// Meta is the index of the store, keyed by "YYYY-MM".
type Meta struct {
	Months map[string]MonthMeta `json:"months"`
}

// Store is safe for concurrent use within one process.
type Store struct {
	dir string
	mu  sync.RWMutex
	now func() time.Time
}

// Open uses dir as a store, creating it if needed.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pkgerrors.Wrap(err, "store: create dir")
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

// ParseKey validates a "YYYY-MM" month key.
func ParseKey(key string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, pkgerrors.Wrapf(ErrBadKey, "%q", key)
	}
	return t.Year(), t.Month(), nil
}

func (s *Store) monthPath(key string) string {
	return filepath.Join(s.dir, key+".csv")
}

// SaveMonth replaces the records of one month.
func (s *Store) SaveMonth(key string, recs []model.Record, runID string) error {
	if _, _, err := ParseKey(key); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs, false); err != nil {
		return pkgerrors.Wrap(err, "store: encode month")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.monthPath(key), buf.Bytes(), 0o644); err != nil {
		return pkgerrors.Wrapf(err, "store: write %s", key)
	}

	meta, err := s.readMeta()
	if err != nil {
		return err
	}
	meta.Months[key] = MonthMeta{
		ScrapedAt: s.now().UTC(),
		Records:   len(recs),
		Employees: countEmployees(recs),
		RunID:     runID,
	}
	return s.writeMeta(meta)
}

// LoadMonth returns the records of one month, or ErrNotFound.
func (s *Store) LoadMonth(key string) ([]model.Record, error) {
	if _, _, err := ParseKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadMonth(key)
}

func (s *Store) loadMonth(key string) ([]model.Record, error) {
	f, err := os.Open(s.monthPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, pkgerrors.Wrapf(ErrNotFound, "%s", key)
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "store: open %s", key)
	}
	defer f.Close()

	recs, err := ReadCSV(f)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "store: %s", key)
	}
	return recs, nil
}

// Months lists the stored month keys in ascending order.
func (s *Store) Months() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, err := s.readMeta()
	if err != nil {
		return nil, err
	}
	return sortedKeys(meta), nil
}

// Meta returns a copy of the index.
func (s *Store) Meta() (Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readMeta()
}

// LoadYear concatenates the stored months of a year in calendar order.
func (s *Store) LoadYear(year int) ([]model.Record, error) {
	prefix := strconv.Itoa(year) + "-"
	return s.load(func(key string) bool { return strings.HasPrefix(key, prefix) })
}

// LoadAll concatenates every stored month in calendar order.
func (s *Store) LoadAll() ([]model.Record, error) {
	return s.load(func(string) bool { return true })
}

func (s *Store) load(keep func(string) bool) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.readMeta()
	if err != nil {
		return nil, err
	}
	var out []model.Record
	for _, key := range sortedKeys(meta) {
		if !keep(key) {
			continue
		}
		recs, err := s.loadMonth(key)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// ExportCSV writes recs to path as one combined file, with a byte order
// mark for spreadsheet tools.
func ExportCSV(path string, recs []model.Record) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs, true); err != nil {
		return pkgerrors.Wrap(err, "store: encode export")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pkgerrors.Wrap(err, "store: create export dir")
	}
	return pkgerrors.Wrap(writeFileAtomic(path, buf.Bytes(), 0o644), "store: write export")
}

func (s *Store) readMeta() (Meta, error) {
	meta := Meta{Months: map[string]MonthMeta{}}
	b, err := os.ReadFile(filepath.Join(s.dir, metaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return meta, pkgerrors.Wrap(err, "store: read meta")
	}
	if err := json.Unmarshal(b, &meta); err != nil {
		return meta, pkgerrors.Wrap(err, "store: decode meta")
	}
	if meta.Months == nil {
		meta.Months = map[string]MonthMeta{}
	}
	return meta, nil
}

func (s *Store) writeMeta(meta Meta) error {
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "store: encode meta")
	}
	return pkgerrors.Wrap(writeFileAtomic(filepath.Join(s.dir, metaFile), b, 0o644), "store: write meta")
}

func sortedKeys(meta Meta) []string {
	keys := make([]string, 0, len(meta.Months))
	for k := range meta.Months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func countEmployees(recs []model.Record) int {
	seen := map[string]struct{}{}
	for _, r := range recs {
		seen[r.EmployeeRef().Key()] = struct{}{}
	}
	return len(seen)
}

// writeFileAtomic writes to a temp file in the same directory, then renames.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".leaveplan-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
