package conversation

import (
	"context"
	"sync"
)

// Handles are the vendor identifiers a conversation accumulates across sends
type Handles struct {
	ThreadID string `json:"thread_id,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}

// HandleCache holds one conversation's handles between sends. Clear must be
// called before a new conversation begins.
type HandleCache interface {
	Load(ctx context.Context) (Handles, error)
	Save(ctx context.Context, handles Handles) error
	Clear(ctx context.Context) error
}

// MemoryCache keeps handles for the lifetime of the value
type MemoryCache struct {
	mu      sync.RWMutex
	handles Handles
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Load(_ context.Context) (Handles, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handles, nil
}

func (c *MemoryCache) Save(_ context.Context, handles Handles) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles = handles
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handles = Handles{}
	return nil
}

// Guard admits one send at a time per conversation key. TryAcquire returns
// ErrBusy when the key is already held.
type Guard interface {
	TryAcquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryGuard is a Guard for a single process
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) TryAcquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return nil, ErrBusy
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}
