package dimension

import (
	"strconv"
	"strings"
)

// Kind names one dimension table.
type Kind string

const (
	KindConference   Kind = "conference"
	KindOrganization Kind = "organization"
	KindCalling      Kind = "calling"
	KindSpeaker      Kind = "speaker"
)

// Stats counts cache lookups since the last Reset.
type Stats struct {
	Hits   int
	Misses int
}

// Cache maps natural keys to row ids per dimension.
type Cache struct {
	entries map[Kind]map[string]int64
	stats   Stats
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	c := &Cache{}
	c.Reset()
	return c
}

// Reset discards every cached id and zeroes the counters.
func (c *Cache) Reset() {
	c.entries = make(map[Kind]map[string]int64, 4)
	c.stats = Stats{}
}

// Lookup returns the cached id for key and records a hit or miss.
func (c *Cache) Lookup(kind Kind, key string) (int64, bool) {
	id, ok := c.entries[kind][key]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return id, ok
}

// Store caches id under key. Zero ids are ignored.
func (c *Cache) Store(kind Kind, key string, id int64) {
	if id == 0 {
		return
	}
	bucket := c.entries[kind]
	if bucket == nil {
		bucket = make(map[string]int64)
		c.entries[kind] = bucket
	}
	bucket[key] = id
}

// Len reports how many ids are cached for kind.
func (c *Cache) Len(kind Kind) int {
	return len(c.entries[kind])
}

// Stats returns the lookup counters.
func (c *Cache) Stats() Stats {
	return c.stats
}

func conferenceKey(year int, season string) string {
	return strconv.Itoa(year) + "|" + season
}

func callingKey(name string, organizationID int64) string {
	return strconv.FormatInt(organizationID, 10) + "|" + strings.TrimSpace(name)
}
