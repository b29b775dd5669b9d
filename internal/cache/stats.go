package cache

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Stats is a best-effort snapshot for the developer diagnostics panel.
type Stats struct {
	Size                   int      `json:"size"`
	Keys                   []string `json:"keys"`
	ApproximateMemoryUsage int      `json:"approximate_memory_usage"`
	Hits                   int64    `json:"hits"`
	Misses                 int64    `json:"misses"`
}

// Stats reports entry count, keys and an approximate byte footprint. Entries
// that expired but were not yet swept are included.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	keys := make([]string, 0, len(c.items))
	mem := 0
	for k, it := range c.items {
		keys = append(keys, k)
		mem += len(k) + approxSize(it.Value)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return Stats{
		Size:                   len(keys),
		Keys:                   keys,
		ApproximateMemoryUsage: mem,
		Hits:                   c.hits.Load(),
		Misses:                 c.misses.Load(),
	}
}

func approxSize(v any) int {
	if b, err := json.Marshal(v); err == nil {
		return len(b)
	}
	return len(fmt.Sprint(v))
}
