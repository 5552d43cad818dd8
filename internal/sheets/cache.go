package sheets

import (
	"sync"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-sheet-actions/internal/pdf"
)

// fieldCache remembers the calculable fields of recently listed sheets.
// Entries are dropped whenever the sheet is modified.
type fieldCache struct {
	mu       sync.Mutex
	capacity int
	items    map[uuid.UUID]*fieldEntry
	head     *fieldEntry // most recently used
	tail     *fieldEntry // least recently used
	hits     int64
	misses   int64
}

type fieldEntry struct {
	id     uuid.UUID
	fields []pdf.FieldDescriptor
	prev   *fieldEntry
	next   *fieldEntry
}

// CacheStats reports field cache usage.
type CacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate_percent"`
	Size     int     `json:"current_size"`
	Capacity int     `json:"max_capacity"`
}

func newFieldCache(capacity int) *fieldCache {
	if capacity <= 0 {
		capacity = 64
	}
	c := &fieldCache{
		capacity: capacity,
		items:    make(map[uuid.UUID]*fieldEntry),
		head:     &fieldEntry{},
		tail:     &fieldEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *fieldCache) get(id uuid.UUID) ([]pdf.FieldDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[id]
	if !ok {
		c.misses++
		return nil, false
	}
	c.unlink(e)
	c.pushFront(e)
	c.hits++
	return cloneFields(e.fields), true
}

func (c *fieldCache) put(id uuid.UUID, fields []pdf.FieldDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[id]; ok {
		e.fields = cloneFields(fields)
		c.unlink(e)
		c.pushFront(e)
		return
	}

	e := &fieldEntry{id: id, fields: cloneFields(fields)}
	c.pushFront(e)
	c.items[id] = e

	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.unlink(lru)
		delete(c.items, lru.id)
	}
}

func (c *fieldCache) invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[id]; ok {
		c.unlink(e)
		delete(c.items, id)
	}
}

func (c *fieldCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	return CacheStats{
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  hitRate,
		Size:     len(c.items),
		Capacity: c.capacity,
	}
}

func (c *fieldCache) pushFront(e *fieldEntry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *fieldCache) unlink(e *fieldEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func cloneFields(fields []pdf.FieldDescriptor) []pdf.FieldDescriptor {
	return append([]pdf.FieldDescriptor{}, fields...)
}
