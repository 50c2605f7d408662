// Package registry implements the per-query buffer registry: a sharded
// map of query entries, each a bounded FIFO of pages plus the bookkeeping
// needed to emit end-of-stream exactly once.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"hash/fnv"
	"sync"
	"time"

	"github.com/vijayshc/trino-teradata-exchange/internal/config"
	"github.com/vijayshc/trino-teradata-exchange/internal/ifaces"
	"github.com/vijayshc/trino-teradata-exchange/internal/model"
)

const shardCount = 32

// shard is one RWMutex-guarded partition of the query map. Sharding by qid
// hash keeps register/lookup traffic for unrelated queries from
// serializing on a single lock.
type shard struct {
	mu      sync.RWMutex
	entries map[string]*queryEntry
}

// Registry is the process-wide table of in-flight queries.
type Registry struct {
	shards [shardCount]*shard
	cfg    *config.Config
	log    ifaces.Logger
	obs    ifaces.Observer

	evictionTTL time.Duration
	stopSweep   chan struct{}
}

// New builds a registry and starts its background eviction sweep.
func New(cfg *config.Config, log ifaces.Logger, obs ifaces.Observer) *Registry {
	if obs == nil {
		obs = ifaces.NoOpObserver{}
	}
	// A caller that builds Config by hand may leave the TTL zero, which
	// would panic the sweep ticker and evict everything instantly; clamp
	// to the documented default instead.
	ttl := cfg.QueryEvictionTTL
	if ttl <= 0 {
		ttl = config.Default().QueryEvictionTTL
	}
	r := &Registry{cfg: cfg, log: log, obs: obs, evictionTTL: ttl, stopSweep: make(chan struct{})}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]*queryEntry)}
	}
	go r.sweepLoop()
	return r
}

// Stop halts the background eviction sweep. Safe to call once.
func (r *Registry) Stop() {
	close(r.stopSweep)
}

func (r *Registry) shardFor(qid string) *shard {
	h := fnv.New32a()
	h.Write([]byte(qid))
	return r.shards[h.Sum32()%shardCount]
}

// RegisterQuery creates a new entry for qid with a freshly minted
// capability token, returning the token the caller must hand to producers.
// Idempotent: the dispatcher and the page source can each arrive first, so
// a second call for the same qid returns the token already minted rather
// than erroring.
func (r *Registry) RegisterQuery(qid string) (token string, err error) {
	sh := r.shardFor(qid)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, exists := sh.entries[qid]; exists {
		return e.token, nil
	}
	token, err = newToken()
	if err != nil {
		return "", err
	}
	sh.entries[qid] = newQueryEntry(qid, token, r.cfg.PerQueryQueueCapacity)
	if r.log != nil {
		r.log.Info("query registered", "qid", qid)
	}
	return token, nil
}

// RegisterSchema attaches the pull-side schema to qid, creating the query
// entry (with a freshly minted token) if the page source registers the
// schema before the dispatcher has called RegisterQuery.
func (r *Registry) RegisterSchema(qid string, schema *model.Schema) error {
	sh := r.shardFor(qid)
	sh.mu.Lock()
	e, ok := sh.entries[qid]
	if !ok {
		token, err := newToken()
		if err != nil {
			sh.mu.Unlock()
			return err
		}
		e = newQueryEntry(qid, token, r.cfg.PerQueryQueueCapacity)
		sh.entries[qid] = e
	}
	sh.mu.Unlock()

	e.schema.Store(schema)
	return nil
}

// WaitForSchema blocks (bounded by cfg.SchemaWaitTimeout) until the schema
// for qid is available, for producer connections that race both the
// dispatcher's RegisterQuery and the page source's RegisterSchema: a qid
// with no entry yet retries exactly like one with an entry but no schema,
// since both cases resolve the instant the racing registration call lands.
func (r *Registry) WaitForSchema(ctx context.Context, qid string) (*model.Schema, error) {
	if s, ok := r.trySchema(qid); ok {
		return s, nil
	}

	deadline := time.Now().Add(r.cfg.SchemaWaitTimeout)
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, ErrSchemaNotRegistered
			}
			return nil, ErrCancelled
		case <-ticker.C:
			if s, ok := r.trySchema(qid); ok {
				return s, nil
			}
			if time.Now().After(deadline) {
				return nil, ErrSchemaNotRegistered
			}
		}
	}
}

func (r *Registry) trySchema(qid string) (*model.Schema, bool) {
	e, ok := r.lookup(qid)
	if !ok {
		return nil, false
	}
	s := e.schema.Load()
	return s, s != nil
}

// ValidateToken reports whether token is the one minted for qid.
func (r *Registry) ValidateToken(qid, token string) error {
	e, ok := r.lookup(qid)
	if !ok {
		return ErrUnknownQuery
	}
	if e.token != token {
		return ErrUnauthorized
	}
	return nil
}

// IncrementProducers records one more in-flight producer connection for
// qid. Every successful call must be matched by exactly one
// DecrementProducers, even along error paths: producer accounting is what
// gates end-of-stream.
func (r *Registry) IncrementProducers(qid string) error {
	e, ok := r.lookup(qid)
	if !ok {
		return ErrUnknownQuery
	}
	e.activeProducers.Add(1)
	return nil
}

// DecrementProducers records that one producer connection has finished,
// potentially unblocking EOS emission.
func (r *Registry) DecrementProducers(qid string) error {
	e, ok := r.lookup(qid)
	if !ok {
		return ErrUnknownQuery
	}
	e.activeProducers.Add(-1)
	e.maybeEmitEOS()
	return nil
}

// SignalJobFinished marks qid's producer job as complete, potentially
// unblocking EOS emission.
func (r *Registry) SignalJobFinished(qid string) error {
	e, ok := r.lookup(qid)
	if !ok {
		return ErrUnknownQuery
	}
	e.jobFinished.Store(true)
	e.maybeEmitEOS()
	return nil
}

// PushPage enqueues a decoded page for qid, blocking under backpressure
// until either space frees up, ctx is cancelled, or the configured timeout
// elapses.
func (r *Registry) PushPage(ctx context.Context, qid string, page *model.Page) error {
	e, ok := r.lookup(qid)
	if !ok {
		return ErrUnknownQuery
	}
	if e.isClosed() {
		return ErrCancelled
	}
	select {
	case e.pages <- page:
		r.obs.ObservePage(qid)
		return nil
	case <-e.closed:
		return ErrCancelled
	default:
	}

	timer := time.NewTimer(r.cfg.PagePollTimeout)
	defer timer.Stop()
	select {
	case e.pages <- page:
		r.obs.ObservePage(qid)
		return nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return ErrBackpressureTimeout
		}
		return ErrCancelled
	case <-e.closed:
		return ErrCancelled
	case <-timer.C:
		return ErrBackpressureTimeout
	}
}

// PollPage dequeues the next page for qid, blocking up to
// cfg.PagePollTimeout. ok is false on timeout; the caller must retry rather
// than treat a timeout as end-of-stream.
func (r *Registry) PollPage(ctx context.Context, qid string) (page *model.Page, ok bool, err error) {
	e, found := r.lookup(qid)
	if !found {
		return nil, false, ErrUnknownQuery
	}

	timer := time.NewTimer(r.cfg.PagePollTimeout)
	defer timer.Stop()
	select {
	case p := <-e.pages:
		e.lastDrainAt.Store(time.Now().UnixNano())
		return p, true, nil
	case <-ctx.Done():
		return nil, false, ErrCancelled
	case <-timer.C:
		return nil, false, nil
	}
}

// CleanupOnFailure immediately revokes qid, without waiting for the TTL
// sweep, and unblocks anyone waiting on it. The dispatcher uses it when the
// producer job collaborator reports failure: consumers must still observe
// EOS, but no further data is coming. Pages already queued are released,
// and any push racing this call is silently discarded rather than
// delivered. The entry stays in the map so the page source can still poll
// the EOS sentinel; Deregister or the sweep removes it.
func (r *Registry) CleanupOnFailure(qid string) {
	e, ok := r.lookup(qid)
	if !ok {
		return
	}
	// Close first so PushPage rejects new arrivals before we drain, then
	// drop whatever is already queued. maybeEmitEOS below pushes directly
	// into e.pages and is not gated by e.closed, so the sentinel still
	// lands in the now-empty queue.
	e.close()
	e.drainQueuedPages()
	e.jobFinished.Store(true)
	e.activeProducers.Store(0)
	e.maybeEmitEOS()
}

// Deregister removes qid's entry entirely. Called by the page source once
// it has observed EOS, or to abort a query early. Same teardown as
// CleanupOnFailure: forbid further pushes and release whatever is
// still queued so nothing outlives the entry's removal from the map.
func (r *Registry) Deregister(qid string) {
	sh := r.shardFor(qid)
	sh.mu.Lock()
	e, ok := sh.entries[qid]
	if ok {
		delete(sh.entries, qid)
	}
	sh.mu.Unlock()
	if !ok {
		return
	}
	e.close()
	e.drainQueuedPages()
}

func (r *Registry) lookup(qid string) (*queryEntry, bool) {
	sh := r.shardFor(qid)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[qid]
	return e, ok
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
