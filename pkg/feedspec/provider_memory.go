package feedspec

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bitechdev/FeedSpec/pkg/logger"
)

// MemoryProvider implements Provider using in-process storage.
// Features:
// - Per-user state guarded by a per-user mutex; no global lock is held
//   during an operation
// - Lazy state creation on first write
// - Oldest-first trimming when a user exceeds MaxSize
// - Dump/restore to a flat key-value document for test fixtures
//
// Groups are dispatched sequentially; per-user locks provide the
// isolation a remote pipeline would.
type MemoryProvider struct {
	mu     sync.RWMutex
	states map[string]*userState

	maxSize  int
	dispatch dispatcher

	stats memoryProviderStats
}

type userState struct {
	mu       sync.Mutex
	byValue  map[string]float64
	lastRead float64
}

type memoryProviderStats struct {
	Stores      atomic.Int64
	DedupHits   atomic.Int64
	Trims       atomic.Int64
	Deletes     atomic.Int64
	Wipes       atomic.Int64
	Paginations atomic.Int64
}

// MemoryProviderOptions configures the memory provider.
type MemoryProviderOptions struct {
	// MaxSize caps the number of events kept per user (default 1000).
	MaxSize int

	// BatchSize bounds the number of users per dispatched group (default 10).
	BatchSize int

	// OpTimeout is the overall deadline for a batched call (default none).
	OpTimeout time.Duration
}

// NewMemoryProvider creates a new in-memory feed provider.
func NewMemoryProvider(opts MemoryProviderOptions) *MemoryProvider {
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}

	mp := &MemoryProvider{
		states:  make(map[string]*userState),
		maxSize: opts.MaxSize,
		dispatch: dispatcher{
			provider:  "memory",
			batchSize: opts.BatchSize,
			parallel:  false,
			timeout:   opts.OpTimeout,
		},
	}

	logger.Debug("Memory feed provider initialized (max_size: %d, batch_size: %d)",
		opts.MaxSize, opts.BatchSize)

	return mp
}

// state returns the state for a user, creating it when create is set.
// Reads on absent users see a nil state and report empty results.
func (mp *MemoryProvider) state(userID string, create bool) *userState {
	mp.mu.RLock()
	st := mp.states[userID]
	mp.mu.RUnlock()
	if st != nil || !create {
		return st
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()
	if st = mp.states[userID]; st == nil {
		st = &userState{byValue: make(map[string]float64)}
		mp.states[userID] = st
	}
	return st
}

// sortedLocked returns the user's events ordered by At descending.
// Caller must hold the state lock.
func (st *userState) sortedLocked() []Event {
	events := make([]Event, 0, len(st.byValue))
	for value, at := range st.byValue {
		events = append(events, Event{Value: value, At: at})
	}
	sort.Slice(events, func(i, j int) bool {
		return eventLess(events[i], events[j])
	})
	return events
}

// Store inserts the event for every user; a duplicate value leaves the
// existing score untouched and reports false.
func (mp *MemoryProvider) Store(ctx context.Context, userIDs []string, event Event) (*Response, error) {
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "store", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			st := mp.state(userID, true)
			st.mu.Lock()
			if _, dup := st.byValue[event.Value]; dup {
				st.mu.Unlock()
				mp.stats.DedupHits.Add(1)
				out.set(userID, false)
				continue
			}
			st.byValue[event.Value] = event.At
			trimmed := st.trimLocked(mp.maxSize)
			st.mu.Unlock()

			mp.stats.Stores.Add(1)
			mp.stats.Trims.Add(int64(trimmed))
			out.set(userID, true)
		}
	})
	recordFeedOp("memory", "store", started, err)
	return resp, err
}

// trimLocked evicts lowest-At entries until the set fits maxSize.
// Equal-At ties evict the lexicographically smaller value first.
// Caller must hold the state lock.
func (st *userState) trimLocked(maxSize int) int {
	trimmed := 0
	for len(st.byValue) > maxSize {
		victim := ""
		victimAt := 0.0
		for value, at := range st.byValue {
			if victim == "" || at < victimAt || (at == victimAt && value < victim) {
				victim, victimAt = value, at
			}
		}
		delete(st.byValue, victim)
		trimmed++
	}
	return trimmed
}

// Delete removes the event's value for every user. Idempotent on
// absent values.
func (mp *MemoryProvider) Delete(ctx context.Context, userIDs []string, event Event) (*Response, error) {
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "delete", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			st := mp.state(userID, false)
			if st == nil {
				out.set(userID, false)
				continue
			}
			st.mu.Lock()
			_, existed := st.byValue[event.Value]
			delete(st.byValue, event.Value)
			st.mu.Unlock()
			if existed {
				mp.stats.Deletes.Add(1)
			}
			out.set(userID, existed)
		}
	})
	recordFeedOp("memory", "delete", started, err)
	return resp, err
}

// DeleteIf removes every event the predicate selects, atomically per
// user with respect to concurrent readers. Returns the removed count.
func (mp *MemoryProvider) DeleteIf(ctx context.Context, userIDs []string, pred Predicate) (*Response, error) {
	if pred == nil {
		return nil, argumentError("delete_if", "nil predicate")
	}
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "delete_if", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			st := mp.state(userID, false)
			if st == nil {
				out.set(userID, 0)
				continue
			}
			removed := 0
			// The state lock must not survive a predicate panic.
			st.mu.Lock()
			func() {
				defer st.mu.Unlock()
				for _, event := range st.sortedLocked() {
					if pred(userID, event) {
						delete(st.byValue, event.Value)
						removed++
					}
				}
			}()
			mp.stats.Deletes.Add(int64(removed))
			out.set(userID, removed)
		}
	})
	recordFeedOp("memory", "delete_if", started, err)
	return resp, err
}

// Wipe drops all state for every user, as if freshly created.
func (mp *MemoryProvider) Wipe(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "wipe", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			mp.mu.Lock()
			_, existed := mp.states[userID]
			delete(mp.states, userID)
			mp.mu.Unlock()
			if existed {
				mp.stats.Wipes.Add(1)
			}
			out.set(userID, existed)
		}
	})
	recordFeedOp("memory", "wipe", started, err)
	return resp, err
}

// Paginate returns one page of events, newest first. Unless the request
// peeks, the last_read watermark advances to the newest returned score
// before the result is observable.
func (mp *MemoryProvider) Paginate(ctx context.Context, userIDs []string, page Page) (*Response, error) {
	if err := validatePage("paginate", page); err != nil {
		return nil, err
	}
	if page.PerPage == 0 {
		page.PerPage = DefaultPerPage
	}
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "paginate", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			st := mp.state(userID, false)
			if st == nil {
				out.set(userID, PageResult{Events: []Event{}})
				continue
			}
			st.mu.Lock()
			events := st.sortedLocked()
			total := len(events)
			window := pageWindow(events, page.Number, page.PerPage)
			if !page.Peek && len(window) > 0 && window[0].At > st.lastRead {
				st.lastRead = window[0].At
			}
			st.mu.Unlock()

			mp.stats.Paginations.Add(1)
			result := PageResult{Events: window}
			if page.WithTotal {
				result.Total = total
			}
			out.set(userID, result)
		}
	})
	recordFeedOp("memory", "paginate", started, err)
	return resp, err
}

// pageWindow slices the [(page-1)*perPage, page*perPage) window out of
// events. Pages past the end yield an empty slice, not an error.
func pageWindow(events []Event, number, perPage int) []Event {
	start := (number - 1) * perPage
	if start >= len(events) {
		return []Event{}
	}
	end := start + perPage
	if end > len(events) {
		end = len(events)
	}
	window := make([]Event, end-start)
	copy(window, events[start:end])
	return window
}

// Fetch returns all events for every user, newest first.
func (mp *MemoryProvider) Fetch(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "fetch", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			st := mp.state(userID, false)
			if st == nil {
				out.set(userID, []Event{})
				continue
			}
			st.mu.Lock()
			events := st.sortedLocked()
			st.mu.Unlock()
			out.set(userID, events)
		}
	})
	recordFeedOp("memory", "fetch", started, err)
	return resp, err
}

// ResetLastRead advances the watermark to at, or to the current time
// when at <= 0. The watermark never decreases.
func (mp *MemoryProvider) ResetLastRead(ctx context.Context, userIDs []string, at float64) (*Response, error) {
	if at <= 0 {
		at = Now()
	}
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "reset_last_read", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			st := mp.state(userID, true)
			st.mu.Lock()
			if at > st.lastRead {
				st.lastRead = at
			}
			lastRead := st.lastRead
			st.mu.Unlock()
			out.set(userID, lastRead)
		}
	})
	recordFeedOp("memory", "reset_last_read", started, err)
	return resp, err
}

// TotalCount returns the event count for every user.
func (mp *MemoryProvider) TotalCount(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "total_count", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			st := mp.state(userID, false)
			if st == nil {
				out.set(userID, 0)
				continue
			}
			st.mu.Lock()
			count := len(st.byValue)
			st.mu.Unlock()
			out.set(userID, count)
		}
	})
	recordFeedOp("memory", "total_count", started, err)
	return resp, err
}

// UnreadCount returns the number of events scored past the watermark.
func (mp *MemoryProvider) UnreadCount(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "unread_count", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			st := mp.state(userID, false)
			if st == nil {
				out.set(userID, 0)
				continue
			}
			st.mu.Lock()
			count := 0
			for _, at := range st.byValue {
				if at > st.lastRead {
					count++
				}
			}
			st.mu.Unlock()
			out.set(userID, count)
		}
	})
	recordFeedOp("memory", "unread_count", started, err)
	return resp, err
}

// LastRead returns the current watermark for every user.
func (mp *MemoryProvider) LastRead(ctx context.Context, userIDs []string) (*Response, error) {
	started := time.Now()
	resp, err := mp.dispatch.run(ctx, "last_read", userIDs, func(ctx context.Context, group []string, out *groupResult) {
		for _, userID := range group {
			st := mp.state(userID, false)
			if st == nil {
				out.set(userID, 0.0)
				continue
			}
			st.mu.Lock()
			lastRead := st.lastRead
			st.mu.Unlock()
			out.set(userID, lastRead)
		}
	})
	recordFeedOp("memory", "last_read", started, err)
	return resp, err
}

// Close releases resources. The memory provider holds none.
func (mp *MemoryProvider) Close() error {
	return nil
}

// Stats returns provider statistics.
func (mp *MemoryProvider) Stats(ctx context.Context) (*ProviderStats, error) {
	mp.mu.RLock()
	users := len(mp.states)
	mp.mu.RUnlock()

	return &ProviderStats{
		ProviderType: "memory",
		Stores:       mp.stats.Stores.Load(),
		DedupHits:    mp.stats.DedupHits.Load(),
		Trims:        mp.stats.Trims.Load(),
		Deletes:      mp.stats.Deletes.Load(),
		Wipes:        mp.stats.Wipes.Load(),
		Paginations:  mp.stats.Paginations.Load(),
		ProviderSpecific: map[string]interface{}{
			"max_size": mp.maxSize,
			"users":    users,
		},
	}, nil
}
