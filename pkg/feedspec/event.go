package feedspec

import (
	"fmt"
	"time"
)

// Event is a single activity feed entry: an opaque value scored by a
// Unix-epoch timestamp with sub-second resolution.
// Identity is by Value only; At is the sort score, not part of identity.
// Events are immutable once constructed.
type Event struct {
	Value string  `json:"value"`
	At    float64 `json:"at"`
}

// NewEvent creates an event scored with the current wall time.
func NewEvent(value string) Event {
	return Event{Value: value, At: Now()}
}

// NewEventAt creates an event with an explicit timestamp score.
func NewEventAt(value string, at float64) Event {
	return Event{Value: value, At: at}
}

// Equal reports whether two events carry the same value.
// Timestamps are deliberately ignored.
func (e Event) Equal(other Event) bool {
	return e.Value == other.Value
}

func (e Event) String() string {
	return fmt.Sprintf("%s@%s", e.Value, formatScore(e.At))
}

// Now returns the current wall time as float Unix seconds.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// formatScore renders a timestamp as a fixed-precision decimal, the
// representation used for remote meta keys and score range bounds.
func formatScore(at float64) string {
	return fmt.Sprintf("%.6f", at)
}

// eventLess is the global read ordering: At descending, ties broken by
// Value descending so iteration order is deterministic per user.
func eventLess(a, b Event) bool {
	if a.At != b.At {
		return a.At > b.At
	}
	return a.Value > b.Value
}
