// Package store persists scrape results as JSON files in an output directory
// and mirrors them to optional Postgres and Redis sinks.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"pilotjobs/internal/model"
)

// DateLayout is the format of History keys.
const DateLayout = "2006-01-02"

// Output file names, relative to the store directory.
const (
	DocumentFile = "jobs.json"
	HistoryFile  = "jobs_history.json"
	TodayFile    = "jobs_today.json"
)

// Store reads and writes the JSON documents of one output directory.
type Store struct {
	dir           string
	retentionDays int
}

// New returns a Store rooted at dir that keeps retentionDays of history.
func New(dir string, retentionDays int) *Store {
	return &Store{dir: dir, retentionDays: retentionDays}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// RetentionDays returns how many days of history Save keeps.
func (s *Store) RetentionDays() int { return s.retentionDays }

// Path returns the location of name inside the output directory.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// Load reads jobs.json. A missing file yields an empty document and no error;
// a malformed file is an error.
func (s *Store) Load() (*model.Document, error) {
	data, err := os.ReadFile(s.Path(DocumentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", DocumentFile, err)
	}

	doc := model.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", DocumentFile, err)
	}
	if doc.History == nil {
		doc.History = model.History{}
	}
	if doc.Results == nil {
		doc.Results = map[string]model.SourceResult{}
	}
	return doc, nil
}

// Save trims the history relative to now, then writes jobs.json,
// jobs_history.json and jobs_today.json.
func (s *Store) Save(doc *model.Document, now time.Time) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	before := len(doc.History)
	doc.History = TrimHistory(doc.History, Cutoff(now, s.retentionDays))
	if dropped := before - len(doc.History); dropped > 0 {
		log.Printf("[store] Trimmed %d day(s) older than %d days", dropped, s.retentionDays)
	}

	files := []struct {
		name string
		v    any
	}{
		{DocumentFile, doc},
		{HistoryFile, doc.History},
		{TodayFile, doc.Today},
	}
	for _, f := range files {
		if err := writeJSON(s.Path(f.name), f.v); err != nil {
			return err
		}
	}

	log.Printf("[store] Saved %d job(s) today, %d day(s) of history to %s", len(doc.Today), len(doc.History), s.dir)
	return nil
}

// Cutoff returns the first day kept when retaining days of history.
func Cutoff(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

// TrimHistory returns a copy of h without entries dated before cutoff.
// Entries on or after cutoff are carried over unmodified; keys that do not
// parse as a date are dropped.
func TrimHistory(h model.History, cutoff time.Time) model.History {
	y, m, d := cutoff.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	out := make(model.History, len(h))
	for key, jobs := range h {
		t, err := time.Parse(DateLayout, key)
		if err != nil {
			log.Printf("[store] Dropping history key %q: %v", key, err)
			continue
		}
		if t.Before(day) {
			continue
		}
		out[key] = jobs
	}
	return out
}

// PreviousDay returns the most recent history entry strictly before today.
func PreviousDay(h model.History, today string) (string, []model.Job, bool) {
	keys := make([]string, 0, len(h))
	for k := range h {
		if k < today {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", nil, false
	}
	sort.Strings(keys)
	last := keys[len(keys)-1]
	return last, h[last], true
}

// writeJSON writes v to path through a temp file so readers never observe a
// partial document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
