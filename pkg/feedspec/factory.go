package feedspec

import (
	"github.com/bitechdev/FeedSpec/pkg/config"
)

// NewProviderFromConfig creates a provider for a named feed based on a
// file-side feed definition and the shared Redis connection settings.
func NewProviderFromConfig(feedName string, cfg config.FeedConfig, redisCfg config.RedisConfig) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider(MemoryProviderOptions{
			MaxSize:   cfg.MaxSize,
			BatchSize: cfg.BatchSize,
			OpTimeout: cfg.OpTimeout,
		}), nil

	case "redis":
		return NewRedisProvider(RedisProviderOptions{
			Host:        redisCfg.Host,
			Port:        redisCfg.Port,
			Password:    redisCfg.Password,
			DB:          redisCfg.DB,
			PoolSize:    redisCfg.PoolSize,
			PoolTimeout: redisCfg.PoolTimeout,
			MaxRetries:  redisCfg.MaxRetries,
			Namespace:   cfg.Namespace,
			Feed:        feedName,
			MaxSize:     cfg.MaxSize,
			BatchSize:   cfg.BatchSize,
			OpTimeout:   cfg.OpTimeout,
		})

	default:
		return nil, configError("unknown feed provider: %s", cfg.Provider)
	}
}

// RegisterFromConfig defines every feed named in cfg.Feeds on the
// registry, constructing providers from the file-side definitions.
func RegisterFromConfig(registry *Registry, cfg *config.Config) error {
	for name, feedCfg := range cfg.Feeds {
		settled := FeedConfig{
			PerPage:   feedCfg.PerPage,
			BatchSize: feedCfg.BatchSize,
			Namespace: feedCfg.Namespace,
			MaxSize:   feedCfg.MaxSize,
		}.withDefaults()

		fileCfg := feedCfg
		fileCfg.Namespace = settled.Namespace
		fileCfg.MaxSize = settled.MaxSize
		fileCfg.BatchSize = settled.BatchSize
		fileCfg.PerPage = settled.PerPage

		provider, err := NewProviderFromConfig(name, fileCfg, cfg.Redis)
		if err != nil {
			return err
		}

		if _, err := registry.Define(name, FeedConfig{
			Provider:  provider,
			PerPage:   fileCfg.PerPage,
			BatchSize: fileCfg.BatchSize,
			Namespace: fileCfg.Namespace,
			MaxSize:   fileCfg.MaxSize,
		}); err != nil {
			return err
		}
	}
	return nil
}
