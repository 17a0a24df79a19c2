package feedspec

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bitechdev/FeedSpec/pkg/logger"
)

// dispatcher fans a batch operation out to user groups of at most
// batchSize and merges per-user results into a Response.
//
// Parallel dispatch runs each group on its own goroutine (remote
// backends pipeline each group on one pooled connection); sequential
// dispatch processes groups in order (the in-memory backend relies on
// per-user locks instead).
type dispatcher struct {
	provider  string
	batchSize int
	parallel  bool
	timeout   time.Duration
}

// groupResult collects results for one dispatched group. Writes after
// the overall deadline fired are dropped; users already completed keep
// their values.
type groupResult struct {
	mu       *sync.Mutex
	resp     *Response
	sealed   *bool
	provider string
	op       string
}

func (g *groupResult) set(userID string, value interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if *g.sealed {
		return
	}
	g.resp.set(userID, value)
}

func (g *groupResult) fail(userID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if *g.sealed {
		return
	}
	g.resp.fail(userID, err)
	if fe, ok := err.(*FeedError); ok {
		recordUserError(g.provider, g.op, fe.Kind)
	}
}

// done reports whether the user already has an entry.
func (g *groupResult) done(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.resp.entries[userID]
	return ok
}

// groupFunc executes one operation for every user in the group,
// reporting each user's outcome on out.
type groupFunc func(ctx context.Context, group []string, out *groupResult)

// run validates the user list, partitions it, dispatches the groups and
// returns the merged Response. Argument errors return synchronously;
// everything else is captured per user.
func (d *dispatcher) run(ctx context.Context, op string, userIDs []string, fn groupFunc) (*Response, error) {
	if len(userIDs) == 0 {
		return nil, argumentError(op, "empty user list")
	}
	for _, userID := range userIDs {
		if userID == "" {
			return nil, argumentError(op, "blank user ID in list")
		}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp := newResponse(userIDs)
	groups := partition(userIDs, d.batchSize)

	var mu sync.Mutex
	sealed := false
	out := &groupResult{mu: &mu, resp: resp, sealed: &sealed, provider: d.provider, op: op}

	recordBatchDispatch(d.provider, op, len(userIDs), len(groups))
	if len(groups) > 1 || d.parallel {
		dispatchID := uuid.NewString()
		logger.Debug("dispatch %s op=%s users=%d groups=%d", dispatchID, op, len(userIDs), len(groups))
	}

	runGroup := func(group []string) {
		defer logger.CatchPanic("feedspec.dispatch")
		fn(ctx, group, out)
	}

	if d.parallel {
		var wg sync.WaitGroup
		for _, group := range groups {
			wg.Add(1)
			go func(group []string) {
				defer wg.Done()
				runGroup(group)
			}(group)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
		}
	} else {
		for _, group := range groups {
			if ctx.Err() != nil {
				break
			}
			runGroup(group)
		}
	}

	// Seal the response, then backfill every user left without an entry:
	// deadline expiry yields a Timeout, anything else (a recovered panic,
	// a group that never reported) a provider error. Completed users
	// retain their results.
	mu.Lock()
	sealed = true
	for _, userID := range userIDs {
		if _, ok := resp.entries[userID]; ok {
			continue
		}
		if ctx.Err() != nil {
			resp.fail(userID, wrapError(ErrTimeout, op, userID, ctx.Err()))
			recordUserError(d.provider, op, ErrTimeout)
		} else {
			resp.fail(userID, newError(ErrProvider, op, userID, "no result reported"))
			recordUserError(d.provider, op, ErrProvider)
		}
	}
	mu.Unlock()

	return resp, nil
}

// partition splits userIDs into groups of at most batchSize, preserving
// order. A non-positive batchSize yields a single group.
func partition(userIDs []string, batchSize int) [][]string {
	if batchSize <= 0 || batchSize >= len(userIDs) {
		return [][]string{userIDs}
	}
	groups := make([][]string, 0, (len(userIDs)+batchSize-1)/batchSize)
	for start := 0; start < len(userIDs); start += batchSize {
		end := start + batchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		groups = append(groups, userIDs[start:end])
	}
	return groups
}
