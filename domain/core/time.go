package core

import (
	"time"
)

// Timestamp wraps time.Time with consistent UTC handling and JSON formatting.
type Timestamp struct {
	t time.Time
}

// Now returns the current time as a Timestamp.
func Now() Timestamp {
	return Timestamp{t: time.Now().UTC()}
}

// NewTimestamp creates a Timestamp from a time.Time, normalizing to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC()}
}

// Time returns the underlying time.Time.
func (ts Timestamp) Time() time.Time {
	return ts.t
}

// IsZero reports whether the timestamp is the zero time.
func (ts Timestamp) IsZero() bool {
	return ts.t.IsZero()
}

// Before reports whether ts is before other.
func (ts Timestamp) Before(other Timestamp) bool {
	return ts.t.Before(other.t)
}

// After reports whether ts is after other.
func (ts Timestamp) After(other Timestamp) bool {
	return ts.t.After(other.t)
}

// Sub returns the duration ts - other.
func (ts Timestamp) Sub(other Timestamp) time.Duration {
	return ts.t.Sub(other.t)
}

// String formats the timestamp as RFC3339.
func (ts Timestamp) String() string {
	return ts.t.Format(time.RFC3339)
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return ts.t.MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var t time.Time
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	ts.t = t.UTC()
	return nil
}
