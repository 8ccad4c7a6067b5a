package router

import "sync"

// Entry is one decoded bus message.
type Entry map[string]any

// Cache holds the most recent messages per topic in fixed-capacity rings.
// When a ring is full the oldest entry is evicted, so memory stays bounded
// however long the process runs.
type Cache struct {
	capacity int

	mu     sync.RWMutex
	topics map[string]*ring
}

type ring struct {
	entries []Entry
	next    int
	full    bool
}

// NewCache creates a cache with the given per-topic capacity.
// Capacities below one fall back to one.
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		topics:   make(map[string]*ring),
	}
}

// Append records an entry for a topic, evicting the oldest when full.
func (c *Cache) Append(topic string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.topics[topic]
	if !ok {
		r = &ring{entries: make([]Entry, c.capacity)}
		c.topics[topic] = r
	}

	r.entries[r.next] = entry
	r.next = (r.next + 1) % c.capacity
	if r.next == 0 {
		r.full = true
	}
}

// Latest returns the newest entry for a topic, or false when the topic has
// never received a message.
func (c *Cache) Latest(topic string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.topics[topic]
	if !ok {
		return nil, false
	}

	idx := r.next - 1
	if idx < 0 {
		idx = c.capacity - 1
	}
	entry := r.entries[idx]
	if entry == nil {
		return nil, false
	}
	return entry, true
}

// Len reports how many entries a topic currently holds.
func (c *Cache) Len(topic string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.topics[topic]
	if !ok {
		return 0
	}
	if r.full {
		return c.capacity
	}
	return r.next
}
