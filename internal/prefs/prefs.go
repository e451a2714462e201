// Package prefs persists small user preferences as JSON files. The only
// preference today is the portfolio column order of the summary view.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SummaryOrder stores the user's preferred portfolio ordering for the
// summary view. The stored list may drift from the live portfolio set;
// Order reconciles it on every read.
type SummaryOrder struct {
	mu   sync.Mutex
	path string
}

// NewSummaryOrder creates a SummaryOrder backed by the file at path
func NewSummaryOrder(path string) *SummaryOrder {
	return &SummaryOrder{path: path}
}

// Order returns the portfolio names ordered by the saved preference:
// saved names that still exist first, in saved order, then any portfolio
// the preference has not seen yet, in the caller's order.
func (s *SummaryOrder) Order(names []string) []string {
	saved := s.load()

	existing := make(map[string]bool, len(names))
	for _, name := range names {
		existing[name] = true
	}

	ordered := make([]string, 0, len(names))
	placed := make(map[string]bool, len(names))
	for _, name := range saved {
		if existing[name] && !placed[name] {
			ordered = append(ordered, name)
			placed[name] = true
		}
	}
	for _, name := range names {
		if !placed[name] {
			ordered = append(ordered, name)
			placed[name] = true
		}
	}
	return ordered
}

// Save persists a new preferred ordering
func (s *SummaryOrder) Save(order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(order, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary order: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write summary order: %w", err)
	}
	return nil
}

// load reads the saved ordering; a missing or unreadable file means no
// preference.
func (s *SummaryOrder) load() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		return nil
	}
	return order
}
