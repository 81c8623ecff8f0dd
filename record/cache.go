package record

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CacheSchemaVersion is bumped whenever the cached view layout changes
const CacheSchemaVersion = "1.0"

// StatusView is the cached authoritative view of one opportunity
type StatusView struct {
	Version  string
	Status   string
	CachedAt time.Time
}

// Cache is an expirable LRU of authoritative status views keyed by opportunity id
type Cache struct {
	lru *expirable.LRU[string, StatusView]
}

// NewCache creates a cache holding at most size views, each for at most ttl
func NewCache(size int, ttl time.Duration) *Cache {
	return &Cache{
		lru: expirable.NewLRU[string, StatusView](size, nil, ttl),
	}
}

// Get returns the cached view, dropping entries written under an older schema
func (c *Cache) Get(id string) (StatusView, bool) {
	view, ok := c.lru.Get(id)
	if !ok {
		return StatusView{}, false
	}
	if view.Version != CacheSchemaVersion {
		c.lru.Remove(id)
		return StatusView{}, false
	}
	return view, true
}

// Set stores the current authoritative status for id
func (c *Cache) Set(id, status string) {
	c.lru.Add(id, StatusView{
		Version:  CacheSchemaVersion,
		Status:   status,
		CachedAt: time.Now(),
	})
}

// Invalidate drops the view for id
func (c *Cache) Invalidate(id string) {
	c.lru.Remove(id)
}

// Purge drops every view
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of cached views
func (c *Cache) Len() int {
	return c.lru.Len()
}
