// Package syncstate holds the local record of files already uploaded.
//
// The record is identified by relative path only. It is a monotonically
// growing set of synced paths plus a newest-first log of upload events; the
// log is informational and never consulted when deciding what to upload.
package syncstate

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// EventTimeLayout is the on-disk format of Event.Time (local time).
const EventTimeLayout = "02/01/2006, 15:04:05"

// Event records one successful upload batch.
type Event struct {
	Time          time.Time
	NewFilesCount int
	NewFiles      []string
}

type eventJSON struct {
	Time          string   `json:"time"`
	NewFilesCount int      `json:"new_files_count"`
	NewFiles      []string `json:"new_files"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	files := e.NewFiles
	if files == nil {
		files = []string{}
	}
	return json.Marshal(eventJSON{
		Time:          e.Time.Local().Format(EventTimeLayout),
		NewFilesCount: e.NewFilesCount,
		NewFiles:      files,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := time.ParseInLocation(EventTimeLayout, raw.Time, time.Local)
	if err != nil {
		return fmt.Errorf("invalid event time %q: %w", raw.Time, err)
	}
	e.Time = t
	e.NewFilesCount = raw.NewFilesCount
	e.NewFiles = make([]string, 0, len(raw.NewFiles))
	for _, f := range raw.NewFiles {
		e.NewFiles = append(e.NewFiles, CanonicalPath(f))
	}
	return nil
}

// State is the in-memory sync record. It is not safe for concurrent use;
// the planner owns it and serializes access.
type State struct {
	synced []string
	index  map[string]struct{}
	events []Event
}

type document struct {
	SyncedFiles  []string `json:"synced_files"`
	UploadEvents []Event  `json:"upload_events"`
}

// New returns an empty state.
func New() *State {
	return &State{
		synced: []string{},
		index:  make(map[string]struct{}),
		events: []Event{},
	}
}

// Contains reports whether p is recorded as synced.
func (s *State) Contains(p string) bool {
	_, ok := s.index[CanonicalPath(p)]
	return ok
}

// Len returns the number of synced paths.
func (s *State) Len() int {
	return len(s.synced)
}

// SyncedFiles returns the synced paths in the order they were recorded.
func (s *State) SyncedFiles() []string {
	out := make([]string, len(s.synced))
	copy(out, s.synced)
	return out
}

// Events returns the upload log, newest first.
func (s *State) Events() []Event {
	out := make([]Event, len(s.events))
	for i, e := range s.events {
		files := make([]string, len(e.NewFiles))
		copy(files, e.NewFiles)
		out[i] = Event{Time: e.Time, NewFilesCount: e.NewFilesCount, NewFiles: files}
	}
	return out
}

// Diff returns the members of local that are not synced yet, canonicalized,
// de-duplicated and sorted.
func (s *State) Diff(local []string) []string {
	seen := make(map[string]struct{}, len(local))
	var fresh []string
	for _, p := range local {
		c := CanonicalPath(p)
		if _, done := s.index[c]; done {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		fresh = append(fresh, c)
	}
	sort.Strings(fresh)
	return fresh
}

// Commit marks files as synced and prepends an event for the batch.
func (s *State) Commit(files []string, at time.Time) {
	recorded := make([]string, 0, len(files))
	for _, f := range files {
		c := CanonicalPath(f)
		recorded = append(recorded, c)
		s.add(c)
	}
	s.events = append([]Event{{Time: at, NewFilesCount: len(recorded), NewFiles: recorded}}, s.events...)
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := New()
	for _, p := range s.synced {
		c.add(p)
	}
	c.events = s.Events()
	return c
}

func (s *State) add(p string) {
	if _, ok := s.index[p]; ok {
		return
	}
	s.index[p] = struct{}{}
	s.synced = append(s.synced, p)
}

func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(document{SyncedFiles: s.synced, UploadEvents: s.events})
}

// UnmarshalJSON accepts missing or null keys as empty. Paths are
// canonicalized so a record written on another OS still matches.
func (s *State) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	fresh := New()
	for _, p := range doc.SyncedFiles {
		if c := CanonicalPath(p); c != "." {
			fresh.add(c)
		}
	}
	if doc.UploadEvents != nil {
		fresh.events = doc.UploadEvents
	}
	*s = *fresh
	return nil
}

// CanonicalPath normalizes a relative path: forward slashes, no "./" or
// redundant elements, Unicode NFC. Backslashes are treated as separators.
func CanonicalPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		p = "."
	}
	return norm.NFC.String(p)
}
