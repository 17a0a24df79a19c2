package metrics

import (
	"net/http"
	"time"
)

// Provider defines the interface for metric collection.
type Provider interface {
	// RecordFeedOp records duration and outcome of one batched feed
	// operation against a provider backend.
	RecordFeedOp(provider, op string, duration time.Duration, err error)

	// RecordBatchDispatch records the fan-out shape of a batched call.
	RecordBatchDispatch(provider, op string, users, groups int)

	// RecordUserError records a per-user captured error by kind.
	RecordUserError(provider, op, kind string)

	// Handler returns an HTTP handler exposing the metrics endpoint.
	Handler() http.Handler
}

// globalProvider is the global metrics provider.
var globalProvider Provider

// SetProvider sets the global metrics provider.
func SetProvider(p Provider) {
	globalProvider = p
}

// GetProvider returns the current metrics provider, falling back to a
// no-op when none is set.
func GetProvider() Provider {
	if globalProvider == nil {
		return &NoOpProvider{}
	}
	return globalProvider
}

// NoOpProvider is a no-op implementation of Provider.
type NoOpProvider struct{}

func (n *NoOpProvider) RecordFeedOp(provider, op string, duration time.Duration, err error) {}
func (n *NoOpProvider) RecordBatchDispatch(provider, op string, users, groups int)          {}
func (n *NoOpProvider) RecordUserError(provider, op, kind string)                           {}
func (n *NoOpProvider) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Metrics provider not configured"))
	})
}
