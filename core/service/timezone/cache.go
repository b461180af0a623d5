package timezone

import (
	"sync"
)

// =============================================================================
// Bounded alias cache with O(1) LRU eviction (doubly linked list)
// =============================================================================

type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

// AliasCache memoizes resolved timezone labels. It is owned by the resolver
// instance that it is injected into; there is no process-wide implicit cache.
type AliasCache struct {
	mu       sync.Mutex
	data     map[string]string
	capacity int

	lruHead *lruNode // most recently used (dummy head)
	lruTail *lruNode // least recently used (dummy tail)
	nodeMap map[string]*lruNode
}

// MinCacheCapacity is the smallest capacity the cache accepts.
const MinCacheCapacity = 128

// NewAliasCache creates a cache holding at least MinCacheCapacity entries.
func NewAliasCache(capacity int) *AliasCache {
	if capacity < MinCacheCapacity {
		capacity = MinCacheCapacity
	}

	head := &lruNode{}
	tail := &lruNode{}
	head.next = tail
	tail.prev = head

	return &AliasCache{
		data:     make(map[string]string, capacity),
		capacity: capacity,
		lruHead:  head,
		lruTail:  tail,
		nodeMap:  make(map[string]*lruNode, capacity),
	}
}

// Get returns the cached zone id for a label and refreshes its recency.
func (c *AliasCache) Get(label string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	zone, ok := c.data[label]
	if !ok {
		return "", false
	}
	c.moveToFront(c.nodeMap[label])
	return zone, true
}

// Put stores a resolution, evicting the least recently used entry when full.
func (c *AliasCache) Put(label, zone string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.nodeMap[label]; ok {
		c.data[label] = zone
		c.moveToFront(node)
		return
	}

	if len(c.data) >= c.capacity {
		c.evictOldest()
	}

	node := &lruNode{key: label}
	c.nodeMap[label] = node
	c.data[label] = zone
	c.pushFront(node)
}

// Len returns the number of cached labels.
func (c *AliasCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *AliasCache) pushFront(node *lruNode) {
	node.prev = c.lruHead
	node.next = c.lruHead.next
	c.lruHead.next.prev = node
	c.lruHead.next = node
}

func (c *AliasCache) unlink(node *lruNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

func (c *AliasCache) moveToFront(node *lruNode) {
	c.unlink(node)
	c.pushFront(node)
}

func (c *AliasCache) evictOldest() {
	oldest := c.lruTail.prev
	if oldest == c.lruHead {
		return
	}
	c.unlink(oldest)
	delete(c.nodeMap, oldest.key)
	delete(c.data, oldest.key)
}
