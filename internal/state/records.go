// File: internal/state/records.go

// Package state owns the filesystem records shared with cooperating
// processes: the persisted pause flag and the cooperative ownership marker.
// Timestamps are epoch seconds so any cooperating tool can read them.
//
// All reads are best-effort: a missing or corrupt record is treated as the
// safe default, never raised.
package state

import (
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	pauseFile  = "pause.json"
	ownerFile  = "owner.json"
	statusFile = "status.json"
)

// PauseRecord persists the manual pause flag across restarts.
type PauseRecord struct {
	Paused bool    `json:"paused"`
	TS     float64 `json:"ts"`
}

// Marker is the shared ownership record polled by the action gate. An empty
// owner means the controls are free. It is a cooperative optimization, not a
// safety boundary; a misbehaving peer can still violate it.
type Marker struct {
	Owner string  `json:"owner"`
	InUse bool    `json:"in_use"`
	TS    float64 `json:"ts"`
}

// Stale reports whether the marker is older than maxAge. A marker without a
// timestamp is treated as fresh so existing records keep their meaning.
func (m Marker) Stale(maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 || m.TS <= 0 {
		return false
	}
	age := now.Sub(time.Unix(0, int64(m.TS*float64(time.Second))))
	return age > maxAge
}

// Store reads and writes the shared records under one directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates the directory eagerly; the records themselves are created
// on first write.
func NewStore(dir string) *Store {
	_ = os.MkdirAll(dir, 0o755)
	return &Store{dir: dir, now: time.Now}
}

// PausePath is exposed so a watcher can monitor the record for external
// edits by the control panel.
func (s *Store) PausePath() string { return filepath.Join(s.dir, pauseFile) }
func (s *Store) ownerPath() string { return filepath.Join(s.dir, ownerFile) }

// writeAtomic writes via a temp file and rename so concurrent readers never
// observe a torn record.
func writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readInto(path string, v any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SavePause records the pause flag with the current timestamp. Called on
// every toggle.
func (s *Store) SavePause(paused bool) {
	_ = writeAtomic(s.PausePath(), PauseRecord{
		Paused: paused,
		TS:     float64(s.now().UnixNano()) / float64(time.Second),
	})
}

// LoadPause reads the persisted pause flag, honoring it only if the record is
// younger than maxAge. A stale record is treated as unpaused so a crashed
// process cannot permanently wedge future runs.
func (s *Store) LoadPause(maxAge time.Duration) bool {
	var rec PauseRecord
	if !readInto(s.PausePath(), &rec) {
		return false
	}
	if !rec.Paused {
		return false
	}
	if rec.TS <= 0 {
		return false
	}
	age := s.now().Sub(time.Unix(0, int64(rec.TS*float64(time.Second))))
	return age < maxAge
}

// LoadMarker reads the ownership marker. A missing record means unowned.
func (s *Store) LoadMarker() Marker {
	var m Marker
	readInto(s.ownerPath(), &m)
	return m
}

// SetOwner marks the current logical owner of the controls. Empty owner
// releases them.
func (s *Store) SetOwner(owner string) {
	_ = writeAtomic(s.ownerPath(), Marker{
		Owner: owner,
		InUse: owner != "",
		TS:    float64(s.now().UnixNano()) / float64(time.Second),
	})
}

// SaveStatus publishes the agent's latest status snapshot for external
// readers (the status command, the control panel).
func (s *Store) SaveStatus(v any) {
	_ = writeAtomic(filepath.Join(s.dir, statusFile), v)
}

// LoadStatusRaw returns the raw status record, or nil when no agent has
// published one.
func (s *Store) LoadStatusRaw() []byte {
	data, err := os.ReadFile(filepath.Join(s.dir, statusFile))
	if err != nil {
		return nil
	}
	return data
}

// OwnershipCheck returns the gate input: true when the marker permits this
// process to act (free, ours, or stale).
func (s *Store) OwnershipCheck(self string, staleAfter time.Duration) func() bool {
	return func() bool {
		m := s.LoadMarker()
		if m.Owner == "" || m.Owner == self {
			return true
		}
		return m.Stale(staleAfter, s.now())
	}
}
