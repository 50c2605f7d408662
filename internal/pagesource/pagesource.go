// Package pagesource implements the pull-side iterator: a thin,
// context-aware wrapper over the registry's bounded poll, turning a
// query's buffered pages into a lazy sequence for the query engine.
package pagesource

import (
	"context"
	"sync"

	"github.com/vijayshc/trino-teradata-exchange/internal/model"
	"github.com/vijayshc/trino-teradata-exchange/internal/registry"
)

// poller is the subset of *registry.Registry a PageSource needs, narrowed
// so tests can substitute a fake without standing up a whole registry.
type poller interface {
	RegisterSchema(qid string, schema *model.Schema) error
	PollPage(ctx context.Context, qid string) (*model.Page, bool, error)
	Deregister(qid string)
}

var _ poller = (*registry.Registry)(nil)

// PageSource is a single query's pull-side cursor. It is not safe for
// concurrent use by multiple goroutines; the query engine drives one
// PageSource from one thread of control.
type PageSource struct {
	qid string
	reg poller

	closeOnce sync.Once
	closed    bool
	sawEOS    bool
}

// New registers qid's schema and returns a cursor over its pages. Must be
// called before the first producer connects: a producer that arrives first
// blocks in its own schema-wait retry loop instead of racing this call.
func New(reg poller, qid string, schema *model.Schema) (*PageSource, error) {
	if err := reg.RegisterSchema(qid, schema); err != nil {
		return nil, err
	}
	return &PageSource{qid: qid, reg: reg}, nil
}

// NextPage blocks (bounded by the registry's configured poll timeout) for
// the next page. ok is false both on a bounded-wait timeout (retry) and
// after EOS has been consumed (stop); callers distinguish the two via Done.
func (p *PageSource) NextPage(ctx context.Context) (page *model.Page, ok bool, err error) {
	if p.closed || p.sawEOS {
		return nil, false, nil
	}

	pg, ok, err := p.reg.PollPage(ctx, p.qid)
	if err != nil || !ok {
		return nil, false, err
	}
	if pg.IsEOS() {
		p.sawEOS = true
		return nil, false, nil
	}
	return pg, true, nil
}

// Done reports whether end-of-stream has been observed.
func (p *PageSource) Done() bool {
	return p.sawEOS
}

// Close deregisters the query, releasing any pages still queued. Idempotent
// so the query engine can call it unconditionally during cleanup.
func (p *PageSource) Close() {
	p.closeOnce.Do(func() {
		p.closed = true
		p.reg.Deregister(p.qid)
	})
}
