package repository

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/anime-shed/reply-assistant-go/internal/reply"
)

type entry struct {
	result    *reply.AnalysisResult
	expiresAt time.Time
}

// MemoryAnalysisRepository keeps recent results in memory. Entries expire
// after the TTL and the oldest entry is evicted once capacity is reached.
type MemoryAnalysisRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

// NewMemoryAnalysisRepository creates a repository. Non-positive ttl or
// capacity fall back to 30 minutes and 500 entries.
func NewMemoryAnalysisRepository(ttl time.Duration, capacity int) *MemoryAnalysisRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryAnalysisRepository{
		ttl:      ttl,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// SaveAnalysisResult stores result under its ID, replacing any previous one.
func (r *MemoryAnalysisRepository) SaveAnalysisResult(ctx context.Context, result *reply.AnalysisResult) error {
	if result == nil || result.ID == "" {
		return ErrInvalidResult
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.evictExpired(now)

	if el, ok := r.items[result.ID]; ok {
		r.order.Remove(el)
		delete(r.items, result.ID)
	}
	for r.order.Len() >= r.capacity {
		r.removeOldest()
	}

	r.items[result.ID] = r.order.PushBack(&entry{result: result, expiresAt: now.Add(r.ttl)})
	return nil
}

// GetAnalysisResult returns the result or ErrAnalysisNotFound.
func (r *MemoryAnalysisRepository) GetAnalysisResult(ctx context.Context, id string) (*reply.AnalysisResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.items[id]
	if !ok {
		return nil, ErrAnalysisNotFound
	}
	e := el.Value.(*entry)
	if !r.now().Before(e.expiresAt) {
		r.order.Remove(el)
		delete(r.items, id)
		return nil, ErrAnalysisNotFound
	}
	return e.result, nil
}

// Len returns the number of live results.
func (r *MemoryAnalysisRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictExpired(r.now())
	return r.order.Len()
}

// entries are appended in save order, so expiry is checked from the front.
func (r *MemoryAnalysisRepository) evictExpired(now time.Time) {
	for el := r.order.Front(); el != nil; el = r.order.Front() {
		if now.Before(el.Value.(*entry).expiresAt) {
			return
		}
		r.removeOldest()
	}
}

func (r *MemoryAnalysisRepository) removeOldest() {
	el := r.order.Front()
	if el == nil {
		return
	}
	r.order.Remove(el)
	delete(r.items, el.Value.(*entry).result.ID)
}
