package services

import (
	"sync"
	"time"
)

// SelectionStore holds each session's selected week index. Sessions are
// isolated from one another; an entry is dropped after TTL of inactivity
// so abandoned sessions do not accumulate.
type SelectionStore struct {
	selections map[string]*selection
	mu         sync.RWMutex
}

type selection struct {
	index    int
	lastSeen time.Time
}

// SelectionStoreConfig holds selection store configuration
type SelectionStoreConfig struct {
	CleanupInterval time.Duration // How often to clean up stale sessions
	TTL             time.Duration // How long to keep inactive sessions
}

// DefaultSelectionStoreConfig returns a sensible default configuration
func DefaultSelectionStoreConfig() SelectionStoreConfig {
	return SelectionStoreConfig{
		CleanupInterval: time.Minute,
		TTL:             30 * time.Minute,
	}
}

// NewSelectionStore creates a selection store and starts its background
// cleanup goroutine.
func NewSelectionStore(cfg SelectionStoreConfig) *SelectionStore {
	s := &SelectionStore{
		selections: make(map[string]*selection),
	}

	go s.cleanupSessions(cfg.CleanupInterval, cfg.TTL)

	return s
}

// Get returns the stored index for a session, if any.
func (s *SelectionStore) Get(sessionID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, exists := s.selections[sessionID]
	if !exists {
		return 0, false
	}

	sel.lastSeen = time.Now()
	return sel.index, true
}

// Set stores the selected index for a session.
func (s *SelectionStore) Set(sessionID string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selections[sessionID] = &selection{index: index, lastSeen: time.Now()}
}

// cleanupSessions removes sessions that haven't been seen recently
func (s *SelectionStore) cleanupSessions(interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		for id, sel := range s.selections {
			if time.Since(sel.lastSeen) > ttl {
				delete(s.selections, id)
			}
		}
		s.mu.Unlock()
	}
}
