// Package exchange implements a high-throughput ingestion bridge between a
// producer-side job runner and a pull-based query engine: producers stream
// framed, columnar batches over TCP into a per-query buffer, and the query
// engine drains that buffer as a lazy page sequence.
package exchange

import (
	"context"
	"net"

	"github.com/vijayshc/trino-teradata-exchange/internal/config"
	"github.com/vijayshc/trino-teradata-exchange/internal/dispatch"
	"github.com/vijayshc/trino-teradata-exchange/internal/logging"
	"github.com/vijayshc/trino-teradata-exchange/internal/model"
	"github.com/vijayshc/trino-teradata-exchange/internal/pagesource"
	"github.com/vijayshc/trino-teradata-exchange/internal/registry"
	"github.com/vijayshc/trino-teradata-exchange/internal/server"
)

// Re-exported types so embedding callers never need to import internal
// packages directly.
type (
	Config           = config.Config
	Schema           = model.Schema
	ColumnDescriptor = model.ColumnDescriptor
	WireTag          = model.WireTag
	Page             = model.Page
	Descriptor       = dispatch.Descriptor
	OrderSpec        = dispatch.OrderSpec
	AggregationSpec  = dispatch.AggregationSpec
	JobRequest       = dispatch.JobRequest
	JobRunner        = dispatch.JobRunner
)

const (
	TagInteger      = model.TagInteger
	TagBigint       = model.TagBigint
	TagDouble       = model.TagDouble
	TagDate         = model.TagDate
	TagTime         = model.TagTime
	TagTimestamp    = model.TagTimestamp
	TagDecimalShort = model.TagDecimalShort
	TagDecimalLong  = model.TagDecimalLong
	TagVarchar      = model.TagVarchar
)

// Bridge wires together the ingestion server, the query buffer registry,
// and the dispatcher into one running instance.
type Bridge struct {
	cfg  *config.Config
	reg  *registry.Registry
	srv  *server.Server
	disp *dispatch.Dispatcher
	log  *logging.Logger
}

// NewBridge builds a Bridge from cfg, a JobRunner collaborator, and an
// optional Observer (NoOpObserver if nil). If log is nil, a default
// stderr logger is used.
func NewBridge(cfg *config.Config, runner JobRunner, obs Observer, log *logging.Logger) *Bridge {
	if log == nil {
		log = logging.Default()
	}
	reg := registry.New(cfg, log, obs)
	srv := server.New(cfg, reg, log, obs)
	bcast := dispatch.NewBroadcaster(cfg.BroadcastTimeout, log)
	disp := dispatch.New(reg, runner, bcast, cfg, log)

	return &Bridge{cfg: cfg, reg: reg, srv: srv, disp: disp, log: log}
}

// Serve starts the ingestion server's accept loop. Call Stop to shut it
// down.
func (b *Bridge) Serve() error {
	return b.srv.Start()
}

// Stop halts the ingestion server and the registry's background sweep.
func (b *Bridge) Stop() error {
	b.reg.Stop()
	return b.srv.Stop()
}

// Addr returns the ingestion server's bound address.
func (b *Bridge) Addr() net.Addr {
	return b.srv.Addr()
}

// NewPageSource registers schema as the expected columns for qid and
// returns a pull-side cursor for it. Must be called before the dispatcher
// submits the corresponding job.
func (b *Bridge) NewPageSource(qid string, schema *Schema) (*pagesource.PageSource, error) {
	return pagesource.New(b.reg, qid, schema)
}

// Dispatch runs the full dispatch sequence for qid: register the query
// buffer and schema, optionally await dynamic predicates, submit the job,
// and broadcast JOB_FINISHED to every advertised consumer endpoint.
func (b *Bridge) Dispatch(ctx context.Context, qid string, schema *Schema, descriptor *Descriptor, fut *dispatch.DynamicPredicateFuture) error {
	return b.disp.Dispatch(ctx, qid, schema, descriptor, fut)
}

// NewDynamicPredicateFuture returns an unresolved dynamic-predicate future
// for use with Dispatch.
func NewDynamicPredicateFuture() *dispatch.DynamicPredicateFuture {
	return dispatch.NewDynamicPredicateFuture()
}

// NewDescriptor returns an empty job descriptor ready for pushdown
// application.
func NewDescriptor() *Descriptor {
	return dispatch.NewDescriptor()
}
