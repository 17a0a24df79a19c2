package feedspec

import (
	"context"
)

// Predicate decides whether an event should be removed by DeleteIf.
// It is invoked once per (userID, event) pair.
type Predicate func(userID string, event Event) bool

// Page describes a pagination request.
// Number is 1-based. A zero PerPage falls back to the provider default.
// Peek leaves the last_read watermark untouched; WithTotal asks for the
// total event count alongside the page.
type Page struct {
	Number    int
	PerPage   int
	Peek      bool
	WithTotal bool
}

// PageResult is the per-user result of Paginate.
// Total is only populated when the request set WithTotal.
type PageResult struct {
	Events []Event
	Total  int
}

// Provider is the storage backend contract for activity feeds.
// Implementations: MemoryProvider, RedisProvider.
//
// Every operation is batch-shaped: it takes a list of user IDs and
// returns a Response holding one result or one captured error per user,
// in input order. A non-nil error return is reserved for argument-level
// problems (empty user list, invalid page) that never reach the backend.
//
// Per-user result types:
//
//	Store         bool        true if newly inserted, false on duplicate value
//	Delete        bool        true if the value was removed
//	DeleteIf      int         number of events removed
//	Wipe          bool        true if prior state existed
//	Paginate      PageResult  events ordered by At descending
//	Fetch         []Event     all events, At descending
//	ResetLastRead float64     the new watermark
//	TotalCount    int
//	UnreadCount   int
//	LastRead      float64
type Provider interface {
	Store(ctx context.Context, userIDs []string, event Event) (*Response, error)
	Delete(ctx context.Context, userIDs []string, event Event) (*Response, error)
	DeleteIf(ctx context.Context, userIDs []string, pred Predicate) (*Response, error)
	Wipe(ctx context.Context, userIDs []string) (*Response, error)
	Paginate(ctx context.Context, userIDs []string, page Page) (*Response, error)
	Fetch(ctx context.Context, userIDs []string) (*Response, error)

	// ResetLastRead moves the unread watermark forward. An at <= 0 means
	// "now". The watermark never decreases.
	ResetLastRead(ctx context.Context, userIDs []string, at float64) (*Response, error)

	TotalCount(ctx context.Context, userIDs []string) (*Response, error)
	UnreadCount(ctx context.Context, userIDs []string) (*Response, error)
	LastRead(ctx context.Context, userIDs []string) (*Response, error)

	// Close releases backend resources.
	Close() error

	// Stats returns provider statistics.
	Stats(ctx context.Context) (*ProviderStats, error)
}

// ProviderStats contains operation counters for a provider instance.
type ProviderStats struct {
	ProviderType     string                 `json:"provider_type"`
	Stores           int64                  `json:"stores"`
	DedupHits        int64                  `json:"dedup_hits"`
	Trims            int64                  `json:"trims"`
	Deletes          int64                  `json:"deletes"`
	Wipes            int64                  `json:"wipes"`
	Paginations      int64                  `json:"paginations"`
	ProviderSpecific map[string]interface{} `json:"provider_specific,omitempty"`
}

// validatePage checks pagination arguments before any backend work.
func validatePage(op string, page Page) error {
	if page.Number < 1 {
		return argumentError(op, "page must be >= 1, got %d", page.Number)
	}
	if page.PerPage < 0 {
		return argumentError(op, "per_page must not be negative, got %d", page.PerPage)
	}
	return nil
}
