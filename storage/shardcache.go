package storage

import "container/list"

// ShardData is the parsed contents of one index shard file: composite key
// to ordered posting list of document ids.
type ShardData map[string][]string

// ShardCache bounds the number of parsed index shards an index engine
// instance keeps resident, evicting on a first-entered-first-evicted
// basis. Eviction never writes anything back — shard writes are eager, so
// the cache only ever holds content already durable on disk (see
// index.Engine). This is a simplified, single-list descendant of a
// segmented-LRU buffer pool: the spec calls for plain FIFO residency, not
// promote-on-access LRU, so there is no protected/probation split here.
type ShardCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently entered, back = oldest
}

type cacheEntry struct {
	key  string
	data ShardData
}

// NewShardCache returns a cache holding at most capacity shards. A
// non-positive capacity is treated as 1.
func NewShardCache(capacity int) *ShardCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ShardCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached shard data for key, if resident.
func (c *ShardCache) Get(key string) (ShardData, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry).data, true
}

// Put inserts or replaces the cached data for key, evicting the oldest
// entry if the cache is already at capacity.
func (c *ShardCache) Put(key string, data ShardData) {
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).data = data
		return
	}
	if len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	el := c.order.PushFront(&cacheEntry{key: key, data: data})
	c.entries[key] = el
}

// Invalidate drops key from the cache, if present, so the next Get forces
// a reload from disk.
func (c *ShardCache) Invalidate(key string) {
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

func (c *ShardCache) evictOldest() {
	back := c.order.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*cacheEntry)
	c.order.Remove(back)
	delete(c.entries, entry.key)
}

// Len returns the number of shards currently resident.
func (c *ShardCache) Len() int {
	return len(c.entries)
}

// Clear empties the cache.
func (c *ShardCache) Clear() {
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
