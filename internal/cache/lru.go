// Package cache holds small in-process caches.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Recent remembers keys for a bounded time and count. The worker uses it to
// skip redelivered events.
type Recent struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
}

type entry struct {
	key       string
	expiresAt time.Time
}

// NewRecent keeps at most maxSize keys, each for ttl.
func NewRecent(maxSize int, ttl time.Duration) *Recent {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Recent{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Seen reports whether key was added and has not expired.
func (r *Recent) Seen(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	elem, ok := r.items[key]
	if !ok {
		return false
	}
	if r.now().After(elem.Value.(*entry).expiresAt) {
		r.remove(elem)
		return false
	}
	r.lru.MoveToFront(elem)
	return true
}

// Add records key, evicting the least recently used key when full.
func (r *Recent) Add(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := &entry{key: key, expiresAt: r.now().Add(r.ttl)}
	if elem, ok := r.items[key]; ok {
		elem.Value = e
		r.lru.MoveToFront(elem)
		return
	}

	r.items[key] = r.lru.PushFront(e)
	if r.lru.Len() > r.maxSize {
		r.remove(r.lru.Back())
	}
}

func (r *Recent) remove(elem *list.Element) {
	delete(r.items, elem.Value.(*entry).key)
	r.lru.Remove(elem)
}

// CleanExpired drops expired keys and returns how many were removed.
func (r *Recent) CleanExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for elem := r.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry).expiresAt) {
			r.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Len returns the number of tracked keys, expired or not.
func (r *Recent) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
