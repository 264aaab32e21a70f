// Package cache implements the process-wide query cache shared by every view.
// Queries provide tags; mutations invalidate tags. Invalidation re-fetches every
// active query holding a matching tag and evicts the inactive ones.
package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"deal-analyzer-client/internal/common/logger"
	"deal-analyzer-client/internal/common/metrics"
	"deal-analyzer-client/internal/common/observability"
)

// FetchFunc performs the network call behind a query.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Query describes one cacheable read. Key identifies the endpoint and its
// arguments; Provides derives the tags from the response body.
type Query struct {
	Key      string
	Endpoint string
	Fetch    FetchFunc
	Provides func(data []byte) []Tag
}

// Listener receives the outcome of every re-fetch of a subscribed query.
type Listener func(data []byte, err error)

type entry struct {
	query       Query
	data        []byte
	tags        []Tag
	hasData     bool
	fetchSeq    uint64
	storedSeq   uint64
	missed      []Tag
	missedSeq   uint64
	listeners   map[uint64]Listener
	subscribers int
}

type Store struct {
	mu         sync.Mutex
	entries    map[string]*entry
	group      singleflight.Group
	generation uint64
	pending    int
	idle       chan struct{}
	nextID     uint64

	baseCtx context.Context
	cancel  context.CancelFunc
	log     logger.Logger
	obs     *observability.Observability
}

func NewStore(log logger.Logger, obs *observability.Observability) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		entries: make(map[string]*entry),
		baseCtx: ctx,
		cancel:  cancel,
		log:     log.WithFields(map[string]interface{}{"component": "cache"}),
		obs:     obs,
	}
}

// Query returns the cached body for q.Key or fetches it. Concurrent identical
// misses share one network call, which keeps running while any caller waits;
// a caller whose ctx ends gets ctx.Err() without cancelling the others. Errors
// are not cached.
func (s *Store) Query(ctx context.Context, q Query) ([]byte, error) {
	s.mu.Lock()
	if e, ok := s.entries[q.Key]; ok && e.hasData {
		data := e.data
		s.mu.Unlock()
		metrics.CacheHits.WithLabelValues(q.Endpoint).Inc()
		s.log.Debug("Cache hit", map[string]interface{}{"key": q.Key})
		return data, nil
	}
	gen := s.generation
	s.mu.Unlock()

	metrics.CacheMisses.WithLabelValues(q.Endpoint).Inc()
	ch := s.group.DoChan(q.Key, func() (interface{}, error) {
		s.mu.Lock()
		seq := s.bumpSeq(q)
		s.mu.Unlock()

		fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		stop := context.AfterFunc(s.baseCtx, cancel)
		defer func() {
			stop()
			cancel()
		}()

		data, err := q.Fetch(fetchCtx)
		if err != nil {
			s.dropEmpty(q.Key)
			return nil, err
		}
		s.store(q, gen, seq, data)
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscription marks a query as active. Unsubscribe releases it.
type Subscription struct {
	store *Store
	key   string
	id    uint64
	owner *entry
	once  sync.Once
}

// Subscribe registers q as active so invalidation re-fetches it instead of
// evicting it. onUpdate may be nil.
func (s *Store) Subscribe(q Query, onUpdate Listener) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[q.Key]
	if !ok {
		e = &entry{query: q, listeners: make(map[uint64]Listener)}
		s.entries[q.Key] = e
	}
	e.query = q
	e.subscribers++

	s.nextID++
	id := s.nextID
	if onUpdate != nil {
		e.listeners[id] = onUpdate
	}
	return &Subscription{store: s, key: q.Key, id: id, owner: e}
}

func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		s := sub.store
		s.mu.Lock()
		defer s.mu.Unlock()

		e, ok := s.entries[sub.key]
		if !ok || e != sub.owner {
			return
		}
		delete(e.listeners, sub.id)
		e.subscribers--
		if e.subscribers == 0 && !e.hasData {
			delete(s.entries, sub.key)
		}
	})
}

// Invalidate applies tags to every entry. Each active entry with a matching tag
// is re-fetched exactly once in the background; inactive ones are evicted.
// It returns the keys scheduled for re-fetch.
func (s *Store) Invalidate(tags ...Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	for _, t := range tags {
		metrics.CacheInvalidations.WithLabelValues(t.Type).Inc()
		s.obs.RecordInvalidation(s.baseCtx, t.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var scheduled []string
	for key, e := range s.entries {
		if !matchesAny(tags, e.tags) {
			// The tags of a body still in flight are unknown; store checks
			// them against these once it lands.
			if e.fetchSeq > e.storedSeq {
				e.missed = append(e.missed, tags...)
				e.missedSeq = e.fetchSeq
			}
			continue
		}
		if e.subscribers == 0 {
			delete(s.entries, key)
			s.log.Debug("Evicted inactive query", map[string]interface{}{"key": key})
			continue
		}
		scheduled = append(scheduled, key)
		s.scheduleRefetch(e)
	}
	return scheduled
}

// Settle blocks until every scheduled re-fetch has finished or ctx is done.
func (s *Store) Settle(ctx context.Context) error {
	s.mu.Lock()
	if s.pending == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset drops every entry and subscription. Fetches already in flight finish
// but their results are discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.entries = make(map[string]*entry)
	s.log.Debug("Cache reset", nil)
}

// Close cancels outstanding re-fetches.
func (s *Store) Close() {
	s.cancel()
}

// Cached returns the stored body and tags for key.
func (s *Store) Cached(key string) ([]byte, []Tag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.hasData {
		return nil, nil, false
	}
	return e.data, append([]Tag(nil), e.tags...), true
}

// Active reports the number of subscribers of key.
func (s *Store) Active(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.subscribers
	}
	return 0
}

// scheduleRefetch must be called with s.mu held.
func (s *Store) scheduleRefetch(e *entry) {
	q := e.query
	gen := s.generation
	seq := s.bumpSeq(q)
	metrics.CacheRefetches.WithLabelValues(q.Endpoint).Inc()

	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++

	go func() {
		defer s.refetchDone()

		data, err := q.Fetch(s.baseCtx)
		if err != nil {
			s.log.Warn("Re-fetch failed", map[string]interface{}{"key": q.Key, "error": err.Error()})
			s.notify(q.Key, gen, nil, err)
			return
		}
		if s.store(q, gen, seq, data) {
			s.notify(q.Key, gen, data, nil)
		}
	}()
}

// bumpSeq must be called with s.mu held.
func (s *Store) bumpSeq(q Query) uint64 {
	e, ok := s.entries[q.Key]
	if !ok {
		e = &entry{query: q, listeners: make(map[uint64]Listener)}
		s.entries[q.Key] = e
	}
	e.fetchSeq++
	return e.fetchSeq
}

// store records data unless the cache was reset or a newer fetch already landed.
// A body whose fetch started before a matching invalidation is stale: an
// inactive entry drops it, an active one keeps it and is re-fetched once.
func (s *Store) store(q Query, gen, seq uint64, data []byte) bool {
	var tags []Tag
	if q.Provides != nil {
		tags = q.Provides(data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	e, ok := s.entries[q.Key]
	if !ok {
		e = &entry{query: q, listeners: make(map[uint64]Listener)}
		s.entries[q.Key] = e
	}
	if seq < e.storedSeq {
		return false
	}

	stale := len(e.missed) > 0 && seq <= e.missedSeq && matchesAny(e.missed, tags)
	refetch := stale && e.fetchSeq <= e.missedSeq
	if stale || seq >= e.missedSeq {
		e.missed = nil
	}
	if stale && e.subscribers == 0 {
		if !e.hasData {
			delete(s.entries, q.Key)
		}
		s.log.Debug("Dropped stale response", map[string]interface{}{"key": q.Key})
		return false
	}

	e.storedSeq = seq
	e.data = data
	e.tags = tags
	e.hasData = true
	if refetch {
		s.scheduleRefetch(e)
	}
	return true
}

func (s *Store) refetchDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

func (s *Store) dropEmpty(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && !e.hasData && e.subscribers == 0 {
		delete(s.entries, key)
	}
}

func (s *Store) notify(key string, gen uint64, data []byte, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	var listeners []Listener
	if e, ok := s.entries[key]; ok {
		for _, l := range e.listeners {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(data, err)
	}
}
