package token

import (
	"sync"
	"time"
)

// RevokedSessionCache remembers logged-out sessions until every access token
// minted for them has expired.
type RevokedSessionCache interface {
	Add(sessionID string, until time.Time) error
	IsRevoked(sessionID string) bool
	Cleanup(now time.Time) // Remove entries whose tokens have all expired
}

// InMemoryRevokedSessionCache is a simple in-memory implementation
type InMemoryRevokedSessionCache struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

func NewInMemoryRevokedSessionCache() RevokedSessionCache {
	return &InMemoryRevokedSessionCache{
		revoked: make(map[string]time.Time),
	}
}

func (c *InMemoryRevokedSessionCache) Add(sessionID string, until time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[sessionID] = until
	return nil
}

func (c *InMemoryRevokedSessionCache) IsRevoked(sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[sessionID]
	return exists
}

func (c *InMemoryRevokedSessionCache) Cleanup(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, until := range c.revoked {
		if now.After(until) {
			delete(c.revoked, id)
		}
	}
}
