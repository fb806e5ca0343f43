package publisher

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MetadataState records whether an article's companion JSON could be used.
type MetadataState string

const (
	MetadataOK         MetadataState = "ok"
	MetadataMissing    MetadataState = "missing"
	MetadataUnreadable MetadataState = "unreadable"
)

// ErrMetadataMissing marks an article without a companion JSON file.
var ErrMetadataMissing = errors.New("publisher: metadata file missing")

// MetadataError explains why a companion JSON file could not be used.
type MetadataError struct {
	Path string
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("publisher: unreadable metadata %s: %v", e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// HistoryEntry is one saved article as seen by History. Topic is never empty:
// it falls back to the file stem when metadata is unusable.
type HistoryEntry struct {
	Timestamp     string        `json:"timestamp"`
	Time          time.Time     `json:"time,omitempty"`
	Topic         string        `json:"topic"`
	File          string        `json:"file"`
	Path          string        `json:"path"`
	ModTime       time.Time     `json:"mod_time"`
	Metadata      *Metadata     `json:"metadata,omitempty"`
	MetadataState MetadataState `json:"metadata_state"`
	MetadataErr   error         `json:"-"`
}

// History lists saved articles newest first by modification time. A missing or
// corrupt metadata file never fails the listing; it is reported on the entry.
func (p *Publisher) History() ([]HistoryEntry, error) {
	dirEntries, err := os.ReadDir(p.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("publisher: list %s: %w", p.dir, err)
	}

	var entries []HistoryEntry
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".md" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		entries = append(entries, p.historyEntry(de.Name(), info.ModTime()))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ModTime.Equal(entries[j].ModTime) {
			return entries[i].File > entries[j].File
		}
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

func (p *Publisher) historyEntry(name string, modTime time.Time) HistoryEntry {
	stem := strings.TrimSuffix(name, ".md")
	entry := HistoryEntry{
		File:    name,
		Path:    filepath.Join(p.dir, name),
		ModTime: modTime,
		Topic:   stem,
	}
	entry.Timestamp, entry.Time = parseStamp(stem)

	meta, err := readMetadata(filepath.Join(p.dir, stem+".json"))
	switch {
	case errors.Is(err, ErrMetadataMissing):
		entry.MetadataState = MetadataMissing
		entry.MetadataErr = err
	case err != nil:
		entry.MetadataState = MetadataUnreadable
		entry.MetadataErr = err
	default:
		entry.MetadataState = MetadataOK
		entry.Metadata = &meta
		if strings.TrimSpace(meta.Topic) != "" {
			entry.Topic = meta.Topic
		}
	}
	return entry
}

func readMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{}, ErrMetadataMissing
		}
		return Metadata{}, &MetadataError{Path: path, Err: err}
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, &MetadataError{Path: path, Err: err}
	}
	return meta, nil
}

// parseStamp reads the YYYYMMDD_HHMMSS prefix of a file stem. Stems written by
// other tools fall back to their first underscore-separated segment.
func parseStamp(stem string) (string, time.Time) {
	if len(stem) >= len(TimestampLayout) {
		prefix := stem[:len(TimestampLayout)]
		if t, err := time.ParseInLocation(TimestampLayout, prefix, time.Local); err == nil {
			return prefix, t
		}
	}
	return strings.SplitN(stem, "_", 2)[0], time.Time{}
}
