package blockxz

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultMaxCache and defaultMaxBlockSize match the source system's
// defaults (§4.7): up to 100 decompressed blocks resident, none
// larger than 100,000 uncompressed bytes.
const (
	defaultMaxCache     = 100
	defaultMaxBlockSize = 100000
)

// blockCache is a bounded map of block index to decompressed bytes.
// Eviction is LRU, per §4.7/§9 — the source leaves the policy
// unspecified, but this package follows the spec's mandate rather
// than the source's arbitrary popitem() eviction. It is implemented
// with hashicorp/golang-lru, whose Cache[K,V] already is exactly this
// contract (bounded cardinality, least-recently-used eviction, O(1)
// get/add).
type blockCache struct {
	lru *lru.Cache[int, []byte]
}

// newBlockCache creates a cache that holds at most maxEntries blocks.
func newBlockCache(maxEntries int) (*blockCache, error) {
	c, err := lru.New[int, []byte](maxEntries)
	if err != nil {
		return nil, newErr(KindIoError, "creating block cache", err)
	}
	return &blockCache{lru: c}, nil
}

func (c *blockCache) get(block int) ([]byte, bool) {
	return c.lru.Get(block)
}

func (c *blockCache) add(block int, data []byte) {
	c.lru.Add(block, data)
}

func (c *blockCache) clear() {
	c.lru.Purge()
}
