package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkart/fulfillment/internal/infrastructure/config"
)

// port 1 refuses connections immediately, so the Redis attempt fails fast
func unreachableRedisConfig() config.RedisConfig {
	return config.RedisConfig{Host: "127.0.0.1", Port: 1}
}

func TestTokenStoreFactory_CreateStore(t *testing.T) {
	t.Run("falls back to in-memory when Redis is unreachable", func(t *testing.T) {
		factory := NewTokenStoreFactory(unreachableRedisConfig())

		store, err := factory.CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryTokenStore{}, store)
	})

	t.Run("fails when fallback is disabled", func(t *testing.T) {
		factory := NewTokenStoreFactory(unreachableRedisConfig(), WithInMemoryFallback(false))

		store, err := factory.CreateStore()
		require.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), "Redis required")
	})
}
