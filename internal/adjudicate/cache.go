package adjudicate

import (
	"context"
	"sync"

	"github.com/sells-group/monument-cli/internal/model"
)

// VerdictCache stores verdicts by decision key. Get returns nil, nil on miss.
type VerdictCache interface {
	GetVerdict(ctx context.Context, key model.DecisionKey) (*model.Verdict, error)
	PutVerdict(ctx context.Context, key model.DecisionKey, v model.Verdict) error
}

// MemoryCache is an in-process VerdictCache.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[model.DecisionKey]model.Verdict
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[model.DecisionKey]model.Verdict)}
}

// GetVerdict implements VerdictCache.
func (c *MemoryCache) GetVerdict(_ context.Context, key model.DecisionKey) (*model.Verdict, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// PutVerdict implements VerdictCache.
func (c *MemoryCache) PutVerdict(_ context.Context, key model.DecisionKey, v model.Verdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = v
	return nil
}

// Len returns the number of cached verdicts.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
