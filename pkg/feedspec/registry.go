package feedspec

import (
	"sort"
	"sync"

	"github.com/bitechdev/FeedSpec/pkg/logger"
)

// Registry is a mapping from feed name to configured Feed. Definitions
// are write-once: redefining a name with a different configuration is
// a ConfigError, redefining with the same configuration returns the
// existing feed.
type Registry struct {
	mu    sync.RWMutex
	feeds map[string]*Feed
}

// NewRegistry creates an empty feed registry.
func NewRegistry() *Registry {
	return &Registry{feeds: make(map[string]*Feed)}
}

// Define registers a feed under name. Defaults are applied before the
// provider factory runs, so a factory sees the settled configuration.
func (r *Registry) Define(name string, cfg FeedConfig) (*Feed, error) {
	if name == "" {
		return nil, configError("feed name is required")
	}
	cfg = cfg.withDefaults()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.feeds[name]; ok {
		if existing.cfg.sameAs(cfg) {
			return existing, nil
		}
		return nil, configError("feed %q is already defined with a different configuration", name)
	}

	provider := cfg.Provider
	if provider == nil {
		if cfg.Factory == nil {
			return nil, configError("feed %q needs a provider or a provider factory", name)
		}
		built, err := cfg.Factory(name, cfg)
		if err != nil {
			return nil, err
		}
		provider = built
		cfg.Provider = built
	}

	feed := &Feed{name: name, cfg: cfg, provider: provider}
	r.feeds[name] = feed

	logger.Debug("Feed %q defined (per_page: %d, batch_size: %d, namespace: %s, max_size: %d)",
		name, cfg.PerPage, cfg.BatchSize, cfg.Namespace, cfg.MaxSize)

	return feed, nil
}

// Lookup returns the feed registered under name.
func (r *Registry) Lookup(name string) (*Feed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	feed, ok := r.feeds[name]
	if !ok {
		return nil, configError("feed %q is not defined", name)
	}
	return feed, nil
}

// Names returns all defined feed names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.feeds))
	for name := range r.feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every defined feed's provider.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, feed := range r.feeds {
		if err := feed.provider.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// defaultRegistry backs the package-level convenience functions.
var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry the package-level
// Define and Lookup delegate to.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Define registers a feed in the default registry.
func Define(name string, cfg FeedConfig) (*Feed, error) {
	return defaultRegistry.Define(name, cfg)
}

// Lookup returns a feed from the default registry.
func Lookup(name string) (*Feed, error) {
	return defaultRegistry.Lookup(name)
}
