// Package backup writes and restores full store snapshots as timestamped
// JSON files on disk.
package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hyowon/folio/internal/contracts"
	"github.com/hyowon/folio/internal/store"
	"github.com/hyowon/folio/pkg/logger"
)

const (
	filePrefix  = "backup-"
	fileSuffix  = ".json"
	stampLayout = "20060102-150405"
)

// Manager owns the backup directory and the snapshot files in it
type Manager struct {
	dir string
	st  *store.Store
	log *logger.Logger
	now func() time.Time
}

// New creates a Manager over dir, creating the directory if needed
func New(dir string, st *store.Store, log *logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &Manager{dir: dir, st: st, log: log, now: time.Now}, nil
}

// Dir returns the backup directory path
func (m *Manager) Dir() string {
	return m.dir
}

// Create serializes the current store state into a new backup file named
// by the current timestamp, and returns the file path.
func (m *Manager) Create() (string, error) {
	snap := m.st.Snapshot()
	data, err := Encode(snap)
	if err != nil {
		return "", err
	}

	name := filePrefix + m.now().Format(stampLayout) + fileSuffix
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	m.log.WithField("file", name).Info("backup created")
	return path, nil
}

// List returns the backup file names in the directory, newest first. The
// timestamped naming makes the lexicographic order the chronological one.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Latest returns the path of the newest backup file, or ok=false when the
// directory holds none.
func (m *Manager) Latest() (string, bool, error) {
	names, err := m.List()
	if err != nil {
		return "", false, err
	}
	if len(names) == 0 {
		return "", false, nil
	}
	return filepath.Join(m.dir, names[0]), true, nil
}

// Restore replaces the store with the contents of the named backup file.
// A file that cannot be read or decoded leaves the store untouched.
func (m *Manager) Restore(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	return m.RestoreData(data)
}

// RestoreData replaces the store with a decoded snapshot document. The
// decode happens before any state changes, so malformed input is
// all-or-nothing.
func (m *Manager) RestoreData(data []byte) error {
	snap, err := Decode(data)
	if err != nil {
		return err
	}
	m.st.Restore(snap)
	return nil
}

// LoadLatest restores the newest backup if one exists. Failures are
// logged and swallowed: an unreadable backup at boot must not keep the
// service from starting with an empty store.
func (m *Manager) LoadLatest() {
	path, ok, err := m.Latest()
	if err != nil {
		m.log.WithError(err).Warn("backup scan failed, starting empty")
		return
	}
	if !ok {
		m.log.Info("no backup found, starting empty")
		return
	}
	if err := m.Restore(path); err != nil {
		m.log.WithError(err).WithField("file", filepath.Base(path)).
			Warn("backup restore failed, starting empty")
		return
	}
	m.log.WithField("file", filepath.Base(path)).Info("state restored from backup")
}

// Encode serializes a snapshot as indented JSON
func Encode(snap contracts.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses and normalizes a snapshot document
func Decode(data []byte) (contracts.Snapshot, error) {
	var snap contracts.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return contracts.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.Normalize()
	return snap, nil
}
