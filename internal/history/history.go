package history

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// maxEntries bounds the cached transcript per identity; older entries are
// dropped. The durable message log in the store remains the source of truth.
const maxEntries = 10

type Entry struct {
	Role string
	Text string
}

// Cache is a short-lived per-identity transcript cache used to avoid
// redundant store reads when building validation context. Entries expire
// on their own after the TTL.
type Cache struct {
	mu    sync.Mutex
	items *gocache.Cache
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{items: gocache.New(ttl, 2*ttl)}
}

func (c *Cache) AppendUser(identityHash, text string) {
	c.append(identityHash, Entry{Role: "user", Text: text})
}

func (c *Cache) AppendAssistant(identityHash, text string) {
	c.append(identityHash, Entry{Role: "assistant", Text: text})
}

func (c *Cache) append(identityHash string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var entries []Entry
	if v, ok := c.items.Get(identityHash); ok {
		entries = v.([]Entry)
	}
	entries = append(entries, e)
	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}
	c.items.SetDefault(identityHash, entries)
}

// Recent returns the cached transcript for an identity, oldest first.
func (c *Cache) Recent(identityHash string) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items.Get(identityHash)
	if !ok {
		return nil
	}
	entries := v.([]Entry)
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

func (c *Cache) Reset(identityHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Delete(identityHash)
}
