package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vijayshc/trino-teradata-exchange/internal/model"
)

// queryEntry holds everything the registry tracks for one in-flight
// query. Every field reachable without the mutex is an atomic; the mutex
// itself only guards the EOS-emission critical section, which must run
// exactly once.
type queryEntry struct {
	qid   string
	token string

	mu sync.Mutex

	schema atomic.Pointer[model.Schema]

	pages chan *model.Page

	activeProducers atomic.Int64
	jobFinished     atomic.Bool
	eosEmitted      atomic.Bool

	registeredAt time.Time
	lastDrainAt  atomic.Int64 // unix nanos, updated on every successful poll

	closeOnce sync.Once
	closed    chan struct{}
}

func newQueryEntry(qid, token string, queueCapacity int) *queryEntry {
	e := &queryEntry{
		qid:          qid,
		token:        token,
		pages:        make(chan *model.Page, queueCapacity),
		registeredAt: time.Now(),
		closed:       make(chan struct{}),
	}
	e.lastDrainAt.Store(e.registeredAt.UnixNano())
	return e
}

// maybeEmitEOS enqueues the EOS sentinel exactly once, the instant the job
// is finished and no producer is still pushing. Must run under e.mu: two
// goroutines racing decrementProducers and signalJobFinished must not both
// observe activeProducers==0 && jobFinished and both enqueue.
func (e *queryEntry) maybeEmitEOS() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.eosEmitted.Load() {
		return
	}
	if !e.jobFinished.Load() || e.activeProducers.Load() > 0 {
		return
	}
	e.eosEmitted.Store(true)
	// The sentinel must never block the caller: the queue may be full of
	// undrained data pages at this instant. Try a non-blocking send first;
	// if the queue is full, hand the send to a goroutine that also races
	// e.closed, so an abort (Deregister or CleanupOnFailure) that revokes
	// the entry before the queue drains unblocks it instead of leaking it.
	select {
	case e.pages <- model.EOS:
	default:
		go func() {
			select {
			case e.pages <- model.EOS:
			case <-e.closed:
			}
		}()
	}
}

// drainQueuedPages discards every page currently sitting in the FIFO,
// releasing them to the garbage collector without delivering them to the
// pull side. Must run after e.close() so no producer can refill the queue
// concurrently.
func (e *queryEntry) drainQueuedPages() {
	for {
		select {
		case <-e.pages:
		default:
			return
		}
	}
}

func (e *queryEntry) isClosed() bool {
	select {
	case <-e.closed:
		return true
	default:
		return false
	}
}

func (e *queryEntry) close() {
	e.closeOnce.Do(func() { close(e.closed) })
}
