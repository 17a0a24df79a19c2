package metrics

import (
	"fmt"

	"github.com/bitechdev/FeedSpec/pkg/config"
)

// NewProviderFromConfig creates a metrics provider based on the
// configuration. Disabled metrics yield the no-op provider.
func NewProviderFromConfig(cfg config.MetricsConfig) (Provider, error) {
	if !cfg.Enabled {
		return &NoOpProvider{}, nil
	}

	switch cfg.Provider {
	case "prometheus", "":
		return NewPrometheusProvider(), nil
	case "noop":
		return &NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown metrics provider: %s", cfg.Provider)
	}
}
