package contracts

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the wire format for timestamps in transactions, history
// points, and backup snapshots. Second precision; lexicographic order
// matches chronological order.
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp is a second-precision timestamp serialized as
// "YYYY-MM-DD HH:MM:SS"
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to second precision
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.Truncate(time.Second)}
}

// Now returns the current time as a Timestamp
func Now() Timestamp {
	return NewTimestamp(time.Now())
}

// String formats the timestamp in the wire layout
func (t Timestamp) String() string {
	return t.Format(TimeLayout)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(TimeLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// Before reports whether t is before other
func (t Timestamp) Before(other Timestamp) bool {
	return t.Time.Before(other.Time)
}
