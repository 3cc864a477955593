package repository

import (
	"strings"
	"time"

	"codebattle/internal/common/cache"
	"codebattle/internal/game/model"
)

// SessionCache keeps resolved room sessions in process memory.
type SessionCache interface {
	Get(roomID string) (model.SessionData, bool)
	Put(roomID string, data model.SessionData)
	Invalidate(roomID string)
}

// LRUSessionCache is a bounded SessionCache with per-entry TTL.
type LRUSessionCache struct {
	lru *cache.LRU[model.SessionData]
}

func NewLRUSessionCache(maxRooms int, ttl time.Duration) *LRUSessionCache {
	return &LRUSessionCache{lru: cache.NewLRU[model.SessionData](maxRooms, ttl)}
}

func (c *LRUSessionCache) Get(roomID string) (model.SessionData, bool) {
	return c.lru.Get(strings.TrimSpace(roomID))
}

func (c *LRUSessionCache) Put(roomID string, data model.SessionData) {
	c.lru.Set(strings.TrimSpace(roomID), data)
}

func (c *LRUSessionCache) Invalidate(roomID string) {
	c.lru.Delete(strings.TrimSpace(roomID))
}
