// Package conversation tracks interaction sequences: multi-request user
// flows whose scratch state must outlive a single request but not the flow.
//
// A Conversation starts out transient and is only remembered by its Manager
// after Begin. It stays registered until End is called or until it has gone
// unused for longer than its timeout.
package conversation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultTimeout is how long an idle long-running conversation is kept.
const DefaultTimeout = 30 * time.Minute

// Manager registers long-running conversations holding state of type T.
type Manager[T any] struct {
	cache   *cache.Cache
	timeout time.Duration
	logger  *slog.Logger
}

// NewManager returns a Manager whose conversations expire after timeout of
// inactivity. A non-positive timeout selects DefaultTimeout.
func NewManager[T any](timeout time.Duration, logger *slog.Logger) *Manager[T] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := cache.New(timeout, cleanupInterval(timeout))
	c.OnEvicted(func(id string, _ any) {
		logger.Debug("conversation released", "conversation", id)
	})

	return &Manager[T]{cache: c, timeout: timeout, logger: logger}
}

func cleanupInterval(timeout time.Duration) time.Duration {
	return min(max(timeout/2, time.Second), time.Minute)
}

// New returns a transient conversation carrying state. It is not registered
// until Begin is called.
func (m *Manager[T]) New(state T) *Conversation[T] {
	return &Conversation[T]{
		manager:   m,
		id:        uuid.NewString(),
		timeout:   m.timeout,
		transient: true,
		State:     state,
	}
}

// Get returns the long-running conversation with the given id and restarts
// its timeout.
func (m *Manager[T]) Get(id string) (*Conversation[T], bool) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, false
	}
	c := v.(*Conversation[T])
	_ = m.cache.Replace(id, c, c.Timeout())
	return c, true
}

// Count returns the number of registered conversations, including expired
// ones the janitor has not collected yet.
func (m *Manager[T]) Count() int {
	return m.cache.ItemCount()
}

// Conversation is one interaction sequence. Callers must hold its lock while
// touching State; Lock serialises requests that share a conversation id.
type Conversation[T any] struct {
	sync.Mutex

	manager *Manager[T]
	id      string

	mu        sync.RWMutex
	timeout   time.Duration
	transient bool

	State T
}

// ID returns the conversation id handed to clients.
func (c *Conversation[T]) ID() string {
	return c.id
}

// Begin promotes the conversation to long-running and registers it. Calling
// Begin on a long-running conversation only restarts its timeout.
func (c *Conversation[T]) Begin() {
	c.mu.Lock()
	c.transient = false
	timeout := c.timeout
	c.mu.Unlock()

	c.manager.cache.Set(c.id, c, timeout)
	c.manager.logger.Debug("conversation started", "conversation", c.id, "timeout", timeout)
}

// End demotes the conversation to transient and unregisters it. Its state is
// released once the current request drops its reference.
func (c *Conversation[T]) End() {
	c.mu.Lock()
	wasTransient := c.transient
	c.transient = true
	c.mu.Unlock()

	if !wasTransient {
		c.manager.cache.Delete(c.id)
	}
}

// IsTransient reports whether the conversation is not registered.
func (c *Conversation[T]) IsTransient() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transient
}

// Timeout returns the idle timeout.
func (c *Conversation[T]) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

// SetTimeout changes the idle timeout; a registered conversation picks it up
// immediately.
func (c *Conversation[T]) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	transient := c.transient
	c.mu.Unlock()

	if !transient {
		_ = c.manager.cache.Replace(c.id, c, d)
	}
}
