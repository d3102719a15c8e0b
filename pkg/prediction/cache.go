// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package prediction

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// intentCacheSize bounds the number of distinct (project, fingerprint)
// predictions held in memory at once.
const intentCacheSize = 2048

// intentCacheTTL is how long a cached prediction remains eligible for
// reuse before it must be recomputed.
const intentCacheTTL = time.Hour

type cacheEntry struct {
	result  Result
	cachedAt int64
}

// IntentCache fronts the predict pipeline with a bounded, TTL-aware
// cache keyed by (project, intent fingerprint), avoiding repeated full
// composite-scoring passes for an unchanged editing context.
type IntentCache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, cacheEntry]
}

// NewIntentCache returns an empty IntentCache.
func NewIntentCache() *IntentCache {
	c, err := lru.New[string, cacheEntry](intentCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which intentCacheSize
		// never is.
		panic(err)
	}
	return &IntentCache{lru: c}
}

func cacheKey(project, fingerprint string) string {
	return project + "\x00" + fingerprint
}

// Get returns the cached Result for (project, fingerprint) if present
// and not older than intentCacheTTL as of now.
func (c *IntentCache) Get(project, fingerprint string, now int64) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(cacheKey(project, fingerprint))
	if !ok {
		return Result{}, false
	}
	if now-entry.cachedAt > int64(intentCacheTTL.Seconds()) {
		c.lru.Remove(cacheKey(project, fingerprint))
		return Result{}, false
	}
	return entry.result, true
}

// Put stores result under (project, fingerprint), evicting the least
// recently used entry if the cache is full.
func (c *IntentCache) Put(project, fingerprint string, result Result, now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(cacheKey(project, fingerprint), cacheEntry{result: result, cachedAt: now})
}

// Invalidate drops any cached prediction for (project, fingerprint),
// used when the underlying file set changes materially enough that a
// stale prediction would mislead.
func (c *IntentCache) Invalidate(project, fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(cacheKey(project, fingerprint))
}

// Len reports the number of entries currently cached, used by
// GET /predict/stats.
func (c *IntentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
