package query

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/rpcquery/cache"
	"github.com/jonwraymond/rpcquery/observe"
	"github.com/jonwraymond/rpcquery/querykey"
	"github.com/jonwraymond/rpcquery/resilience"
	"github.com/jonwraymond/rpcquery/response"
)

// Status is the lifecycle state of a cached query.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryState is a snapshot of one cached query.
type QueryState struct {
	Key            querykey.Key
	Data           *response.Result
	Error          error
	Status         Status
	DataUpdatedAt  time.Time
	ErrorUpdatedAt time.Time
	FetchCount     int
	Invalidated    bool
}

type entry struct {
	key         querykey.Key
	opts        QueryOptions
	result      *response.Result
	err         error
	updatedAt   time.Time
	errorAt     time.Time
	accessedAt  time.Time
	fetchCount  int
	invalidated bool

	// gen advances on every invalidation and direct write. resultGen is the
	// gen at which the current result was produced; a fetch that started
	// at an older gen than resultGen is superseded and its outcome dropped.
	gen       uint64
	resultGen uint64
}

func (e *entry) state() QueryState {
	s := QueryState{
		Key:            e.key,
		Data:           e.result,
		Error:          e.err,
		DataUpdatedAt:  e.updatedAt,
		ErrorUpdatedAt: e.errorAt,
		FetchCount:     e.fetchCount,
		Invalidated:    e.invalidated,
		Status:         StatusPending,
	}
	switch {
	case e.err != nil && !e.errorAt.Before(e.updatedAt):
		s.Status = StatusError
	case e.result != nil:
		s.Status = StatusSuccess
	}
	return s
}

func (e *entry) fresh(now time.Time, staleTime time.Duration) bool {
	return e.result != nil && !e.invalidated && staleTime > 0 && now.Sub(e.updatedAt) < staleTime
}

// Client caches query results by key.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent fetches of one key
//     share a single call of the query function.
//   - Context: a caller whose ctx ends stops waiting; the shared fetch
//     keeps running for the other callers and the cache.
//   - Errors: query errors are returned as is and kept on the entry; they
//     never replace cached data.
type Client struct {
	defaults   Defaults
	persister  *cache.Persister
	middleware *observe.Middleware
	logger     observe.Logger
	parallel   int

	mu      sync.Mutex
	entries map[string]*entry
	flights singleflight.Group
}

// NewClient creates an empty query cache.
func NewClient(opts ...Option) *Client {
	c := &Client{
		entries: make(map[string]*entry),
		logger:  observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaults.GCTime <= 0 {
		c.defaults.GCTime = DefaultGCTime
	}
	if c.defaults.Retry == nil {
		c.defaults.Retry = DefaultRetry()
	}
	if c.logger == nil {
		c.logger = observe.NopLogger()
	}
	if c.parallel <= 0 {
		c.parallel = DefaultRefetchParallel
	}
	return c
}

// Defaults returns the client's effective defaults.
func (c *Client) Defaults() Defaults {
	return c.defaults
}

func (c *Client) staleTime(opts QueryOptions) time.Duration {
	if opts.StaleTime != 0 {
		return opts.StaleTime
	}
	return c.defaults.StaleTime
}

func (c *Client) gcTime(opts QueryOptions) time.Duration {
	if opts.GCTime > 0 {
		return opts.GCTime
	}
	return c.defaults.GCTime
}

func (c *Client) retry(opts QueryOptions) *resilience.Retry {
	if opts.Retry != nil {
		return opts.Retry
	}
	return c.defaults.Retry
}

// FetchQuery returns fresh cached data for opts.Key or fetches it.
//
// Data younger than StaleTime that has not been invalidated is returned
// without calling Fn. On a miss the persister, if any, is consulted first.
func (c *Client) FetchQuery(ctx context.Context, opts QueryOptions) (*response.Result, error) {
	if len(opts.Key) == 0 {
		return nil, ErrEmptyKey
	}
	id := opts.Key.String()
	now := time.Now()

	c.mu.Lock()
	c.collectLocked(now)
	e := c.entries[id]
	if opts.Fn == nil && e != nil && e.opts.Fn != nil {
		opts = e.opts
	}
	if opts.Fn == nil {
		c.mu.Unlock()
		return nil, ErrNoQueryFn
	}
	if e == nil {
		e = &entry{key: opts.Key}
		c.entries[id] = e
	}
	e.opts = opts
	e.accessedAt = now
	if e.fresh(now, c.staleTime(opts)) {
		res := e.result
		c.mu.Unlock()
		return res, nil
	}
	miss := e.result == nil
	c.mu.Unlock()

	if miss && c.Restore(ctx, opts.Key) {
		c.mu.Lock()
		e := c.entries[id]
		if e != nil && e.fresh(now, c.staleTime(opts)) {
			res := e.result
			c.mu.Unlock()
			return res, nil
		}
		c.mu.Unlock()
	}

	return c.fetchShared(ctx, id, opts)
}

// EnsureQueryData returns cached data for opts.Key regardless of staleness,
// fetching only when there is none.
func (c *Client) EnsureQueryData(ctx context.Context, opts QueryOptions) (*response.Result, error) {
	if res, ok := c.GetQueryData(opts.Key); ok {
		return res, nil
	}
	return c.FetchQuery(ctx, opts)
}

func (c *Client) fetchShared(ctx context.Context, id string, opts QueryOptions) (*response.Result, error) {
	ch := c.flights.DoChan(id, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), id, opts)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res, _ := r.Val.(*response.Result)
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) fetch(ctx context.Context, id string, opts QueryOptions) (*response.Result, error) {
	c.mu.Lock()
	var start uint64
	if e := c.entries[id]; e != nil {
		start = e.gen
	}
	c.mu.Unlock()

	meta := observe.OperationMeta{
		Kind:   observe.KindQuery,
		Method: opts.Key.Method(),
		Path:   opts.Key.Path(),
		Key:    opts.Key.Hash(),
	}
	exec := resilience.NewExecutor(resilience.WithRetry(c.retry(opts)))
	res, err := c.middleware.Run(ctx, meta, func(ctx context.Context, _ observe.OperationMeta) (*response.Result, error) {
		return resilience.Do(ctx, exec, func(ctx context.Context) (*response.Result, error) {
			return opts.Fn(ctx, opts.Key)
		})
	})

	now := time.Now()
	c.mu.Lock()
	e := c.entries[id]
	if e == nil {
		e = &entry{key: opts.Key, opts: opts, gen: start, resultGen: start}
		c.entries[id] = e
	}
	e.fetchCount++
	e.accessedAt = now
	current := start >= e.resultGen
	switch {
	case !current:
	case err != nil:
		e.err, e.errorAt = err, now
	default:
		e.result, e.updatedAt, e.resultGen = res, now, start
		e.err = nil
		// An invalidation that arrived during the fetch still stands.
		if start == e.gen {
			e.invalidated = false
		}
	}
	persist := current && start == e.gen
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if persist {
		c.persist(ctx, opts.Key, res, opts.PersistTTL)
	}
	return res, nil
}

// Restore loads key from the persister into the cache. It reports whether
// an entry was restored. Entries already holding data are left alone.
func (c *Client) Restore(ctx context.Context, key querykey.Key) bool {
	if c.persister == nil || len(key) == 0 {
		return false
	}
	saved, ok := c.persister.Load(ctx, key)
	if !ok {
		return false
	}

	id := key.String()
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[id]
	if e == nil {
		e = &entry{key: key}
		c.entries[id] = e
	}
	if e.result != nil {
		return false
	}
	e.result, e.updatedAt, e.accessedAt = saved.Result, saved.SavedAt, now
	c.logger.Debug(ctx, "query restored", observe.F("rpcquery.key", key.Hash()))
	return true
}

// GetQueryData returns the cached data for key.
func (c *Client) GetQueryData(key querykey.Key) (*response.Result, bool) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collectLocked(now)
	e := c.entries[key.String()]
	if e == nil || e.result == nil {
		return nil, false
	}
	e.accessedAt = now
	return e.result, true
}

// SetQueryData replaces the cached data for key. A nil res clears it.
func (c *Client) SetQueryData(ctx context.Context, key querykey.Key, res *response.Result) {
	c.UpdateQueryData(ctx, key, func(*response.Result) *response.Result { return res })
}

// UpdateQueryData atomically replaces the cached data for key with
// fn(previous) and returns both values.
func (c *Client) UpdateQueryData(ctx context.Context, key querykey.Key, fn func(prev *response.Result) *response.Result) (prev, updated *response.Result) {
	if len(key) == 0 {
		return nil, nil
	}
	id := key.String()
	now := time.Now()

	c.mu.Lock()
	c.collectLocked(now)
	e := c.entries[id]
	if e == nil {
		e = &entry{key: key}
		c.entries[id] = e
	}
	prev = e.result
	updated = fn(prev)
	e.gen++
	e.result, e.resultGen = updated, e.gen
	e.accessedAt = now
	if updated != nil {
		e.updatedAt, e.invalidated = now, false
	} else {
		e.updatedAt = time.Time{}
	}
	opts := e.opts
	c.mu.Unlock()

	if updated == nil {
		if c.persister != nil {
			_ = c.persister.Remove(ctx, key)
		}
	} else {
		c.persist(ctx, key, updated, opts.PersistTTL)
	}
	return prev, updated
}

// GetQueryState returns a snapshot of the query for key.
func (c *Client) GetQueryState(key querykey.Key) (QueryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key.String()]
	if e == nil {
		return QueryState{}, false
	}
	return e.state(), true
}

// Queries returns snapshots of the matching queries ordered by key.
func (c *Client) Queries(f Filters) []QueryState {
	matched := c.match(f)
	out := make([]QueryState, 0, len(matched))
	c.mu.Lock()
	for _, e := range matched {
		if c.entries[e.key.String()] == e {
			out = append(out, e.state())
		}
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// InvalidateQueries marks the matching queries stale and drops their
// persisted copies. With RefetchAll, matching queries that have a query
// function are refetched and the first error is returned.
func (c *Client) InvalidateQueries(ctx context.Context, f Filters) error {
	candidates := c.match(f)
	var matched []*entry
	var refetch []QueryOptions
	c.mu.Lock()
	for _, e := range candidates {
		id := e.key.String()
		if c.entries[id] != e {
			continue
		}
		matched = append(matched, e)
		e.invalidated = true
		e.gen++
		// A fetch already in flight started before the invalidation; the
		// next fetch must not join it.
		c.flights.Forget(id)
		if f.RefetchType == RefetchAll && e.opts.Fn != nil {
			refetch = append(refetch, e.opts)
		}
	}
	keys := entryKeys(matched)
	c.mu.Unlock()

	c.unpersist(ctx, f, keys)
	c.logger.Debug(ctx, "queries invalidated",
		observe.F("matched", len(matched)),
		observe.F("refetch", len(refetch)),
	)

	if len(refetch) == 0 {
		return nil
	}
	return c.fetchAll(ctx, refetch)
}

// RefetchQueries refetches the matching queries that have a query function,
// ignoring staleness.
func (c *Client) RefetchQueries(ctx context.Context, f Filters) error {
	f.RefetchType = RefetchAll
	return c.InvalidateQueries(ctx, f)
}

// RemoveQueries deletes the matching queries and their persisted copies. It
// returns how many cached queries were removed.
func (c *Client) RemoveQueries(ctx context.Context, f Filters) int {
	candidates := c.match(f)
	var matched []*entry
	c.mu.Lock()
	for _, e := range candidates {
		id := e.key.String()
		if c.entries[id] != e {
			continue
		}
		matched = append(matched, e)
		delete(c.entries, id)
	}
	keys := entryKeys(matched)
	c.mu.Unlock()

	c.unpersist(ctx, f, keys)
	return len(matched)
}

// Clear removes every cached query. Persisted entries are kept.
func (c *Client) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// PrefetchQueries fetches every query concurrently and returns the first
// error. Successful results are cached even when another fetch fails.
func (c *Client) PrefetchQueries(ctx context.Context, opts ...QueryOptions) error {
	return c.fetchAll(ctx, opts)
}

func (c *Client) fetchAll(ctx context.Context, all []QueryOptions) error {
	var g errgroup.Group
	g.SetLimit(c.parallel)
	for _, opts := range all {
		g.Go(func() error {
			_, err := c.FetchQuery(ctx, opts)
			return err
		})
	}
	return g.Wait()
}

func (c *Client) persist(ctx context.Context, key querykey.Key, res *response.Result, ttl time.Duration) {
	if c.persister == nil {
		return
	}
	if err := c.persister.Save(ctx, key, res, ttl); err != nil {
		c.logger.Warn(ctx, "query persist failed",
			observe.F("rpcquery.key", key.Hash()),
			observe.F("error", err.Error()),
		)
	}
}

func (c *Client) unpersist(ctx context.Context, f Filters, keys []querykey.Key) {
	if c.persister == nil {
		return
	}
	for _, k := range keys {
		_ = c.persister.Remove(ctx, k)
	}
	if f.Exact || f.Predicate != nil {
		return
	}
	if _, err := c.persister.RemoveMatching(ctx, f.Key); err != nil {
		c.logger.Warn(ctx, "persisted query removal failed", observe.F("error", err.Error()))
	}
}

// match returns the entries selected by f. The key filter runs under c.mu;
// the predicate runs on snapshots after the lock is released, so it may call
// back into the client. Callers must check that an entry is still cached
// before acting on it.
func (c *Client) match(f Filters) []*entry {
	c.mu.Lock()
	c.collectLocked(time.Now())
	var candidates []*entry
	var states []QueryState
	for _, e := range c.entries {
		if len(f.Key) > 0 {
			if f.Exact && !e.key.Equal(f.Key) {
				continue
			}
			if !f.Exact && !e.key.HasPrefix(f.Key) {
				continue
			}
		}
		candidates = append(candidates, e)
		if f.Predicate != nil {
			states = append(states, e.state())
		}
	}
	c.mu.Unlock()

	if f.Predicate == nil {
		return candidates
	}
	out := candidates[:0]
	for i, e := range candidates {
		if f.Predicate(states[i]) {
			out = append(out, e)
		}
	}
	return out
}

// collectLocked drops entries unused for longer than their GC time.
func (c *Client) collectLocked(now time.Time) {
	for id, e := range c.entries {
		if !e.accessedAt.IsZero() && now.Sub(e.accessedAt) > c.gcTime(e.opts) {
			delete(c.entries, id)
		}
	}
}

func entryKeys(entries []*entry) []querykey.Key {
	keys := make([]querykey.Key, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.key)
	}
	return keys
}
