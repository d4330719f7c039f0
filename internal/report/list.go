package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested report does not exist.
var ErrNotFound = errors.New("report not found")

// Entry describes a stored report file.
type Entry struct {
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
	Size      int64     `json:"size"`
}

// List returns the reports in dir started at or after since, oldest first.
// A zero since returns every report. A missing directory holds no reports.
func List(dir string, since time.Time) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	var entries []Entry
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		startedAt, ok := parseName(item.Name())
		if !ok {
			continue
		}
		if !since.IsZero() && startedAt.Before(since) {
			continue
		}
		info, err := item.Info()
		if err != nil {
			return nil, fmt.Errorf("stat report %s: %w", item.Name(), err)
		}
		entries = append(entries, Entry{Name: item.Name(), StartedAt: startedAt, Size: info.Size()})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].StartedAt.Before(entries[j].StartedAt)
	})
	return entries, nil
}

// Read returns the content of the named report. Names that are not report
// file names are rejected as not found.
func Read(dir, name string) ([]byte, error) {
	if filepath.Base(name) != name {
		return nil, ErrNotFound
	}
	if _, ok := parseName(name); !ok {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", name, err)
	}
	return data, nil
}

func parseName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	t, err := time.ParseInLocation(TimeLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
