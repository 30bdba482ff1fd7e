package zork

import "sync"

// Entry is the cached view of a conversation→thread mapping.
type Entry struct {
	ThreadID        string
	CreatedAtUnixMs int64
}

// threadCache is a process-wide, lossy mirror of the store. It starts empty
// after a restart and is repopulated lazily per conversation. Entries are
// only removed on a new-game purge; size is unbounded.
type threadCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func newThreadCache() *threadCache {
	return &threadCache{entries: map[string]Entry{}}
}

func (c *threadCache) Get(conversationID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[conversationID]
	return e, ok
}

func (c *threadCache) Put(conversationID string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[conversationID] = e
}

func (c *threadCache) Delete(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, conversationID)
}

func (c *threadCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
