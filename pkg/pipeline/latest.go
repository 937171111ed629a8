package pipeline

import (
	"sync"

	"github.com/enviromon/enviromon/pkg/model"
)

// latestCache is a lock-guarded single-slot cache holding the most recent
// successfully processed reading. Written by both the poll loop and the
// on-demand path, read by the API layer.
type latestCache struct {
	mu      sync.RWMutex
	reading model.Reading
	set     bool
}

func (c *latestCache) store(r model.Reading) {
	c.mu.Lock()
	c.reading = r
	c.set = true
	c.mu.Unlock()
}

func (c *latestCache) load() (model.Reading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reading, c.set
}
