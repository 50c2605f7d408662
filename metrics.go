package exchange

import (
	"sync"
	"sync/atomic"

	"github.com/vijayshc/trino-teradata-exchange/internal/ifaces"
)

// Observer receives per-query profiling events; re-exported from
// internal/ifaces so embedding callers can implement it without importing
// an internal package. See internal/ifaces.Observer for the method set.
type Observer = ifaces.Observer

// NoOpObserver discards every event.
type NoOpObserver = ifaces.NoOpObserver

// QueryMetrics accumulates the profiling counters for a single query:
// network bytes read, bytes after decompression, decode time, enqueue
// time, and page count. Every field is updated with atomic adds and never
// blocks, so it is safe to attach to the hot ingestion path.
type QueryMetrics struct {
	NetworkBytesRead  atomic.Uint64
	DecompressedBytes atomic.Uint64
	DecodeNanos       atomic.Uint64
	EnqueueNanos      atomic.Uint64
	PageCount         atomic.Uint64
}

// MetricsObserver is an Observer that accumulates events into a per-query
// QueryMetrics table. The no-op default stays on the hot path when nobody
// is reading.
type MetricsObserver struct {
	mu      sync.Mutex
	byQuery map[string]*QueryMetrics
}

// NewMetricsObserver builds an empty MetricsObserver.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{byQuery: make(map[string]*QueryMetrics)}
}

func (m *MetricsObserver) entry(qid string) *QueryMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byQuery[qid]
	if !ok {
		e = &QueryMetrics{}
		m.byQuery[qid] = e
	}
	return e
}

// Snapshot returns the current counters for qid, or nil if nothing has
// been observed for it yet.
func (m *MetricsObserver) Snapshot(qid string) *QueryMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byQuery[qid]
}

// Forget drops qid's accumulated counters. Nothing in the bridge calls it
// on its own (closing a page source does not), so a query's entry stays in
// the map until Forget is called for it.
func (m *MetricsObserver) Forget(qid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byQuery, qid)
}

func (m *MetricsObserver) ObserveNetworkRead(qid string, n uint64) {
	m.entry(qid).NetworkBytesRead.Add(n)
}

func (m *MetricsObserver) ObserveDecompressed(qid string, n uint64) {
	m.entry(qid).DecompressedBytes.Add(n)
}

func (m *MetricsObserver) ObserveDecodeLatency(qid string, n uint64) {
	m.entry(qid).DecodeNanos.Add(n)
}

func (m *MetricsObserver) ObserveEnqueueLatency(qid string, n uint64) {
	m.entry(qid).EnqueueNanos.Add(n)
}

func (m *MetricsObserver) ObservePage(qid string) { m.entry(qid).PageCount.Add(1) }

var _ Observer = (*MetricsObserver)(nil)
