package feedspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefineAndLookup(t *testing.T) {
	registry := NewRegistry()
	provider := NewMemoryProvider(MemoryProviderOptions{})

	feed, err := registry.Define("notifications", FeedConfig{Provider: provider})
	require.NoError(t, err)
	assert.Equal(t, "notifications", feed.Name())

	found, err := registry.Lookup("notifications")
	require.NoError(t, err)
	assert.Same(t, feed, found)

	_, err = registry.Lookup("missing")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrConfig))
}

func TestRegistryDefineAppliesDefaults(t *testing.T) {
	registry := NewRegistry()
	feed, err := registry.Define("timeline", FeedConfig{Provider: NewMemoryProvider(MemoryProviderOptions{})})
	require.NoError(t, err)

	cfg := feed.Config()
	assert.Equal(t, DefaultPerPage, cfg.PerPage)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultNamespace, cfg.Namespace)
	assert.Equal(t, DefaultPerPage*10, cfg.MaxSize)
}

func TestRegistryRedefineSameConfigReturnsExisting(t *testing.T) {
	registry := NewRegistry()
	provider := NewMemoryProvider(MemoryProviderOptions{})
	cfg := FeedConfig{Provider: provider, PerPage: 20}

	first, err := registry.Define("alerts", cfg)
	require.NoError(t, err)

	second, err := registry.Define("alerts", cfg)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistryRedefineDifferentConfigFails(t *testing.T) {
	registry := NewRegistry()
	provider := NewMemoryProvider(MemoryProviderOptions{})

	_, err := registry.Define("alerts", FeedConfig{Provider: provider, PerPage: 20})
	require.NoError(t, err)

	_, err = registry.Define("alerts", FeedConfig{Provider: provider, PerPage: 30})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrConfig))
}

func TestRegistryDefineValidation(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Define("", FeedConfig{Provider: NewMemoryProvider(MemoryProviderOptions{})})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrConfig))

	_, err = registry.Define("orphan", FeedConfig{})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrConfig))
}

func TestRegistryDefineRunsFactoryWithSettledConfig(t *testing.T) {
	registry := NewRegistry()

	var seen FeedConfig
	_, err := registry.Define("factory-feed", FeedConfig{
		Factory: func(feedName string, cfg FeedConfig) (Provider, error) {
			seen = cfg
			return NewMemoryProvider(MemoryProviderOptions{MaxSize: cfg.MaxSize}), nil
		},
		PerPage: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, seen.PerPage)
	assert.Equal(t, 250, seen.MaxSize)
	assert.Equal(t, DefaultNamespace, seen.Namespace)
}

func TestRegistryNames(t *testing.T) {
	registry := NewRegistry()
	registry.Define("zebra", FeedConfig{Provider: NewMemoryProvider(MemoryProviderOptions{})})
	registry.Define("apple", FeedConfig{Provider: NewMemoryProvider(MemoryProviderOptions{})})

	assert.Equal(t, []string{"apple", "zebra"}, registry.Names())
}

func TestBuilderDefineWith(t *testing.T) {
	registry := NewRegistry()

	feed, err := registry.DefineWith("built", func(b *Builder) {
		b.Provider(NewMemoryProvider(MemoryProviderOptions{})).
			PerPage(15).
			BatchSize(5).
			Namespace("custom")
	})
	require.NoError(t, err)

	cfg := feed.Config()
	assert.Equal(t, 15, cfg.PerPage)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, "custom", cfg.Namespace)
	assert.Equal(t, 150, cfg.MaxSize)
}

func TestBuilderRejectsDuplicateOption(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.DefineWith("dup", func(b *Builder) {
		b.Provider(NewMemoryProvider(MemoryProviderOptions{})).
			PerPage(10).
			PerPage(20)
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrConfig))
	assert.Contains(t, err.Error(), "per_page")
}
