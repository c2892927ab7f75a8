package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askvinny/agent-performance-backend/internal/core/services"
)

func TestSelectionStore(t *testing.T) {
	store := services.NewSelectionStore(services.SelectionStoreConfig{
		CleanupInterval: time.Minute,
		TTL:             30 * time.Minute,
	})

	t.Run("unknown session", func(t *testing.T) {
		_, ok := store.Get("nobody")
		assert.False(t, ok)
	})

	t.Run("set then get", func(t *testing.T) {
		store.Set("session-1", 3)

		index, ok := store.Get("session-1")
		assert.True(t, ok)
		assert.Equal(t, 3, index)
	})

	t.Run("sessions do not leak into each other", func(t *testing.T) {
		store.Set("session-a", 0)
		store.Set("session-b", 5)

		indexA, _ := store.Get("session-a")
		indexB, _ := store.Get("session-b")
		assert.Equal(t, 0, indexA)
		assert.Equal(t, 5, indexB)
	})

	t.Run("overwrite", func(t *testing.T) {
		store.Set("session-1", 3)
		store.Set("session-1", 1)

		index, _ := store.Get("session-1")
		assert.Equal(t, 1, index)
	})
}
