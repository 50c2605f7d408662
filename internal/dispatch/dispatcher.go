package dispatch

import (
	"context"
	"fmt"

	"github.com/vijayshc/trino-teradata-exchange/internal/config"
	"github.com/vijayshc/trino-teradata-exchange/internal/ifaces"
	"github.com/vijayshc/trino-teradata-exchange/internal/model"
)

// registrar is the subset of *registry.Registry the dispatcher drives.
// Narrowed to an interface so tests can exercise the orchestration without
// a live registry.
type registrar interface {
	RegisterQuery(qid string) (token string, err error)
	RegisterSchema(qid string, schema *model.Schema) error
	SignalJobFinished(qid string) error
	CleanupOnFailure(qid string)
}

// JobRequest is everything the producer job runner collaborator needs to
// launch producers for one query.
type JobRequest struct {
	QueryID                 string
	Descriptor              *Descriptor
	TargetConsumerEndpoints []string
	DynToken                string
	TargetBatchSize         int
	CompressionAlgorithm    string

	// EnforceProxyAuth tells the runner whether a proxy-user setup
	// failure on the producer side must abort the job or may be ignored.
	EnforceProxyAuth bool
}

// JobRunner submits a producer-side job and blocks until it completes or
// fails.
type JobRunner interface {
	SubmitJob(ctx context.Context, req JobRequest) error
}

// Dispatcher orchestrates one query's full lifecycle: buffer/schema
// registration, optional dynamic-predicate wait, job submission, and
// broadcast-then-local-finish teardown.
type Dispatcher struct {
	reg    registrar
	runner JobRunner
	bcast  *Broadcaster
	cfg    *config.Config
	log    ifaces.Logger
}

// New builds a Dispatcher.
func New(reg registrar, runner JobRunner, bcast *Broadcaster, cfg *config.Config, log ifaces.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, runner: runner, bcast: bcast, cfg: cfg, log: log}
}

// Dispatch runs the full dispatch sequence for one query. If fut is
// non-nil and dynamic-predicate pushdown is pending, Dispatch awaits it
// (bounded by cfg.DynamicFilterTimeout) before assembling the final
// descriptor.
func (d *Dispatcher) Dispatch(ctx context.Context, qid string, schema *model.Schema, descriptor *Descriptor, fut *DynamicPredicateFuture) error {
	token, err := d.reg.RegisterQuery(qid)
	if err != nil {
		return fmt.Errorf("register query %s: %w", qid, err)
	}
	if err := d.reg.RegisterSchema(qid, schema); err != nil {
		return fmt.Errorf("register schema %s: %w", qid, err)
	}

	if fut != nil {
		predicates, timedOut := fut.WaitContext(ctx, d.cfg.DynamicFilterTimeout)
		if timedOut {
			d.log.Warn("dynamic predicate wait timed out, proceeding unfiltered", "qid", qid)
		} else {
			descriptor.WithPredicates(predicates, nil)
		}
	}

	// The planner applies pushdown unconditionally; the enable flags are
	// enforced here so a disabled rule never reaches the producer job.
	if !d.cfg.EnableTopNPushdown && descriptor.OrderBy != nil {
		descriptor.OrderBy = nil
		descriptor.Limit = nil
	}
	if !d.cfg.EnableAggregationPushdown {
		descriptor.Aggregation = nil
	}
	descriptor.Normalize()

	req := JobRequest{
		QueryID:                 qid,
		Descriptor:              descriptor,
		TargetConsumerEndpoints: d.cfg.AdvertisedEndpoints,
		DynToken:                token,
		TargetBatchSize:         d.cfg.TargetBatchSize,
		CompressionAlgorithm:    d.cfg.CompressionAlgorithm,
		EnforceProxyAuth:        d.cfg.EnforceProxyAuth,
	}

	jobErr := d.runner.SubmitJob(ctx, req)
	if jobErr != nil {
		d.log.Warn("producer job failed", "qid", qid, "err", jobErr)
		d.reg.CleanupOnFailure(qid)
	}

	// Capture the token locally before broadcasting: the broadcaster must
	// never read it back out of the registry, since SignalJobFinished
	// below can race a consumer's own teardown of the same query.
	localToken := token
	d.bcast.Broadcast(d.cfg.AdvertisedEndpoints, localToken, qid)

	if jobErr == nil {
		if err := d.reg.SignalJobFinished(qid); err != nil {
			return fmt.Errorf("signal job finished %s: %w", qid, err)
		}
	}

	if jobErr != nil {
		return fmt.Errorf("producer job failed for %s: %w", qid, jobErr)
	}
	return nil
}
