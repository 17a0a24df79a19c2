package feedspec

// Defaults applied when a feed definition leaves an option unset.
const (
	DefaultPerPage   = 50
	DefaultBatchSize = 10
	DefaultNamespace = "feedspec"
)

// ProviderFactory builds a provider bound to a feed at Define time.
type ProviderFactory func(feedName string, cfg FeedConfig) (Provider, error)

// FeedConfig is the immutable configuration of a named feed.
// Exactly one of Provider (a pre-built, already-bound instance) or
// Factory must be set.
type FeedConfig struct {
	Provider Provider
	Factory  ProviderFactory

	// PerPage is the default page size for Paginate (default 50).
	PerPage int

	// BatchSize bounds the number of users dispatched together (default 10).
	BatchSize int

	// Namespace prefixes every key a remote provider touches.
	Namespace string

	// MaxSize caps events kept per user (default PerPage * 10).
	MaxSize int
}

func (c FeedConfig) withDefaults() FeedConfig {
	if c.PerPage <= 0 {
		c.PerPage = DefaultPerPage
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.MaxSize <= 0 {
		c.MaxSize = c.PerPage * 10
	}
	return c
}

// sameAs compares the settled configuration of two definitions.
// Factory identity cannot be compared; a pre-built provider compares
// by instance.
func (c FeedConfig) sameAs(other FeedConfig) bool {
	return c.Provider == other.Provider &&
		c.PerPage == other.PerPage &&
		c.BatchSize == other.BatchSize &&
		c.Namespace == other.Namespace &&
		c.MaxSize == other.MaxSize
}

// Feed is a named, configured binding of a provider to a namespace and
// paging policy. Feeds are created through a Registry and are safe to
// share across goroutines.
type Feed struct {
	name     string
	cfg      FeedConfig
	provider Provider
}

// Name returns the feed's registered name.
func (f *Feed) Name() string {
	return f.name
}

// Config returns the feed's settled configuration.
func (f *Feed) Config() FeedConfig {
	return f.cfg
}

// Provider returns the backing provider.
func (f *Feed) Provider() Provider {
	return f.provider
}

// Activity binds the feed to one or many users; every operation
// returns a Response keyed by user ID.
func (f *Feed) Activity(userIDs ...string) *Activity {
	return &Activity{feed: f, userIDs: userIDs}
}

// ActivityFor binds the feed to a single user; operations return
// unwrapped scalars and raise that user's captured error directly.
func (f *Feed) ActivityFor(userID string) *UserActivity {
	return &UserActivity{inner: f.Activity(userID), userID: userID}
}
