package catalog

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TieredCache keeps every value in two tiers: a short-lived fresh tier that
// short-circuits lookups, and a long-lived stale tier that is only consulted
// when the upstream fails. Values are replaced wholesale, never mutated.
type TieredCache[V any] struct {
	fresh *expirable.LRU[string, V]
	stale *expirable.LRU[string, V]
}

func NewTieredCache[V any](size int, freshTTL, staleTTL time.Duration) *TieredCache[V] {
	return &TieredCache[V]{
		fresh: expirable.NewLRU[string, V](size, nil, freshTTL),
		stale: expirable.NewLRU[string, V](size, nil, staleTTL),
	}
}

func (c *TieredCache[V]) GetFresh(key string) (V, bool) {
	return c.fresh.Get(key)
}

// GetStale returns the fallback entry. Reading it does not extend its TTL.
func (c *TieredCache[V]) GetStale(key string) (V, bool) {
	return c.stale.Get(key)
}

func (c *TieredCache[V]) SetBoth(key string, value V) {
	c.fresh.Add(key, value)
	c.stale.Add(key, value)
}

func (c *TieredCache[V]) Purge() {
	c.fresh.Purge()
	c.stale.Purge()
}
