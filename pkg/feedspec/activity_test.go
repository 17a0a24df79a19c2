package feedspec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faultyProvider wraps a MemoryProvider and fails every operation for
// user IDs listed in failFor, mimicking a backend with a subset of
// unhealthy shards.
type faultyProvider struct {
	*MemoryProvider
	failFor map[string]bool
}

func (f *faultyProvider) poison(resp *Response, op string) *Response {
	for _, userID := range resp.Keys() {
		if f.failFor[userID] {
			resp.fail(userID, newError(ErrTransport, op, userID, "shard unavailable"))
		}
	}
	return resp
}

func (f *faultyProvider) Store(ctx context.Context, userIDs []string, event Event) (*Response, error) {
	resp, err := f.MemoryProvider.Store(ctx, userIDs, event)
	if err != nil {
		return nil, err
	}
	return f.poison(resp, "store"), nil
}

func (f *faultyProvider) Fetch(ctx context.Context, userIDs []string) (*Response, error) {
	resp, err := f.MemoryProvider.Fetch(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	return f.poison(resp, "fetch"), nil
}

func newTestFeed(t *testing.T, provider Provider, cfg FeedConfig) *Feed {
	t.Helper()
	cfg.Provider = provider
	feed, err := NewRegistry().Define("test-feed", cfg)
	require.NoError(t, err)
	return feed
}

func TestActivityPartialFailureIsolation(t *testing.T) {
	provider := &faultyProvider{
		MemoryProvider: NewMemoryProvider(MemoryProviderOptions{}),
		failFor:        map[string]bool{"2": true},
	}
	feed := newTestFeed(t, provider, FeedConfig{})
	ctx := context.Background()

	activity := feed.Activity("1", "2", "3")
	resp, err := activity.Store(ctx, NewEventAt("x", 100))
	require.NoError(t, err)

	assert.True(t, resp.HasErrors())
	assert.Equal(t, []string{"1", "2", "3"}, resp.Keys())

	ok, err := resp.Bool("1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = resp.Bool("2")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTransport))

	ok, err = resp.Bool("3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestActivityPaginateUsesFeedPageSize(t *testing.T) {
	provider := NewMemoryProvider(MemoryProviderOptions{})
	feed := newTestFeed(t, provider, FeedConfig{PerPage: 2})
	ctx := context.Background()

	activity := feed.Activity("1")
	for i := 1; i <= 5; i++ {
		activity.Store(ctx, NewEventAt(string(rune('a'+i)), float64(i)))
	}

	resp, err := activity.Paginate(ctx, Page{Number: 1})
	require.NoError(t, err)
	page, err := resp.Page("1")
	require.NoError(t, err)
	assert.Len(t, page.Events, 2)

	// An explicit per_page overrides the feed default.
	resp, err = activity.Paginate(ctx, Page{Number: 1, PerPage: 4})
	require.NoError(t, err)
	page, err = resp.Page("1")
	require.NoError(t, err)
	assert.Len(t, page.Events, 4)
}

func TestActivityUserIDsCopy(t *testing.T) {
	feed := newTestFeed(t, NewMemoryProvider(MemoryProviderOptions{}), FeedConfig{})
	activity := feed.Activity("1", "2")

	ids := activity.UserIDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"1", "2"}, activity.UserIDs())
}

func TestUserActivityUnwraps(t *testing.T) {
	feed := newTestFeed(t, NewMemoryProvider(MemoryProviderOptions{}), FeedConfig{})
	ctx := context.Background()
	user := feed.ActivityFor("42")

	ok, err := user.Store(ctx, NewEventAt("a", 10))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = user.Store(ctx, NewEventAt("a", 20))
	require.NoError(t, err)
	assert.False(t, ok, "duplicate store unwraps to false")

	user.Store(ctx, NewEventAt("b", 30))

	total, err := user.TotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	events, err := user.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Value)

	page, err := user.Paginate(ctx, Page{Number: 1, PerPage: 1})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)

	lastRead, err := user.LastRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 30.0, lastRead)

	unread, err := user.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	removed, err := user.DeleteIf(ctx, func(userID string, event Event) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	wiped, err := user.Wipe(ctx)
	require.NoError(t, err)
	assert.True(t, wiped)
}

func TestUserActivitySurfacesCapturedError(t *testing.T) {
	provider := &faultyProvider{
		MemoryProvider: NewMemoryProvider(MemoryProviderOptions{}),
		failFor:        map[string]bool{"7": true},
	}
	feed := newTestFeed(t, provider, FeedConfig{})

	_, err := feed.ActivityFor("7").Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrTransport))
}

func TestScopeDelegatesAndBinds(t *testing.T) {
	feed := newTestFeed(t, NewMemoryProvider(MemoryProviderOptions{}), FeedConfig{})
	ctx := context.Background()

	err := feed.WithScope([]string{"1", "2"}, map[string]interface{}{"source": "billing"}, func(scope *Scope) error {
		source, ok := scope.Binding("source")
		require.True(t, ok)
		assert.Equal(t, "billing", source)

		_, missing := scope.Binding("absent")
		assert.False(t, missing)

		resp, err := scope.Store(ctx, NewEventAt("invoice", 100))
		require.NoError(t, err)
		assert.False(t, resp.HasErrors())

		resp, err = scope.UnreadCount(ctx)
		require.NoError(t, err)
		for _, userID := range []string{"1", "2"} {
			n, err := resp.Int(userID)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		}
		return nil
	})
	require.NoError(t, err)

	// A nil bindings map still yields a usable scope.
	err = feed.WithScope([]string{"1"}, nil, func(scope *Scope) error {
		_, ok := scope.Binding("anything")
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}
