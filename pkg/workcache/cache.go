// Package workcache tracks discovered work items in memory until a worker
// has finished processing them.
package workcache

import (
	"sync"
	"time"
)

// Status represents the processing state of a work item.
type Status string

const (
	// StatusNew marks an item that still needs processing
	StatusNew Status = "new"
	// StatusCompleted marks an item that a worker finished
	StatusCompleted Status = "completed"
	// StatusAbandoned marks an item that exhausted its retry budget
	StatusAbandoned Status = "abandoned"
)

// Default retry settings
const (
	DefaultMaxAttempts = 8
	DefaultBaseBackoff = 30 * time.Second
	DefaultMaxBackoff  = 30 * time.Minute
)

// Entry is a newly discovered key and the payload the worker needs to process it.
type Entry[K comparable, T any] struct {
	Key     K
	Payload T
}

// Item is a snapshot of a cached work item.
type Item[K comparable, T any] struct {
	Key         K
	Payload     T
	Status      Status
	Attempts    int
	NextAttempt time.Time
	LastError   string
	AddedAt     time.Time
}

// Counts is a per-status breakdown of the cache contents.
type Counts struct {
	New       int
	Completed int
	Abandoned int
}

// Cache is a process-wide set of work items keyed by K.
type Cache[K comparable, T any] struct {
	mu          sync.Mutex
	items       map[K]*Item[K, T]
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	now         func() time.Time
}

// Option configures a Cache.
type Option func(*settings)

type settings struct {
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	now         func() time.Time
}

// WithMaxAttempts sets how many failed attempts an item may accumulate before it is abandoned
func WithMaxAttempts(n int) Option {
	return func(s *settings) {
		s.maxAttempts = n
	}
}

// WithBackoff sets the base and maximum retry delay after a failed attempt
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(s *settings) {
		s.baseBackoff = base
		s.maxBackoff = maxDelay
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}

// New creates an empty cache.
func New[K comparable, T any](opts ...Option) *Cache[K, T] {
	s := settings{
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
		maxBackoff:  DefaultMaxBackoff,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.maxBackoff < s.baseBackoff {
		s.maxBackoff = s.baseBackoff
	}

	return &Cache[K, T]{
		items:       make(map[K]*Item[K, T]),
		maxAttempts: s.maxAttempts,
		baseBackoff: s.baseBackoff,
		maxBackoff:  s.maxBackoff,
		now:         s.now,
	}
}

// AddMany inserts every entry whose key is not yet known and returns how many
// were added. A known key is left untouched whatever its status, so a second
// discovery pass never resets a completed item back to new.
func (c *Cache[K, T]) AddMany(entries ...Entry[K, T]) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	added := 0
	for _, e := range entries {
		if _, exists := c.items[e.Key]; exists {
			continue
		}
		c.items[e.Key] = &Item[K, T]{
			Key:     e.Key,
			Payload: e.Payload,
			Status:  StatusNew,
			AddedAt: now,
		}
		added++
	}
	return added
}

// GetPending returns a snapshot of the new items that are due for processing.
// Items may be completed or pruned by another goroutine after the snapshot is taken.
func (c *Cache[K, T]) GetPending() []Item[K, T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	pending := make([]Item[K, T], 0, len(c.items))
	for _, item := range c.items {
		if item.Status != StatusNew || item.NextAttempt.After(now) {
			continue
		}
		pending = append(pending, *item)
	}
	return pending
}

// MarkCompleted flips a new item to completed. Absent or already completed keys are ignored.
func (c *Cache[K, T]) MarkCompleted(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, ok := c.items[key]; ok && item.Status == StatusNew {
		item.Status = StatusCompleted
		item.LastError = ""
	}
}

// MarkFailed records a failed attempt and schedules the next one with
// exponential backoff. It returns the resulting status; once the attempt
// budget is spent the item is abandoned and no longer reported as pending.
func (c *Cache[K, T]) MarkFailed(key K, err error) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return ""
	}
	if item.Status != StatusNew {
		return item.Status
	}

	item.Attempts++
	if err != nil {
		item.LastError = err.Error()
	}
	if item.Attempts >= c.maxAttempts {
		item.Status = StatusAbandoned
		return item.Status
	}
	item.NextAttempt = c.now().Add(c.backoff(item.Attempts))
	return item.Status
}

// PruneCompleted deletes every completed item and returns how many were removed.
func (c *Cache[K, T]) PruneCompleted() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, item := range c.items {
		if item.Status == StatusCompleted {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Get returns a snapshot of a single item.
func (c *Cache[K, T]) Get(key K) (Item[K, T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return Item[K, T]{}, false
	}
	return *item, true
}

// Len returns the number of tracked items regardless of status.
func (c *Cache[K, T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Counts returns the number of items per status.
func (c *Cache[K, T]) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()

	var counts Counts
	for _, item := range c.items {
		switch item.Status {
		case StatusNew:
			counts.New++
		case StatusCompleted:
			counts.Completed++
		case StatusAbandoned:
			counts.Abandoned++
		}
	}
	return counts
}

// backoff doubles the base delay per attempt and caps it at maxBackoff.
func (c *Cache[K, T]) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := c.baseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= c.maxBackoff {
			return c.maxBackoff
		}
	}
	return delay
}
