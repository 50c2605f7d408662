package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vijayshc/trino-teradata-exchange/internal/config"
	"github.com/vijayshc/trino-teradata-exchange/internal/model"
)

type fakeRegistrar struct {
	mu             sync.Mutex
	tokens         map[string]string
	schemas        map[string]*model.Schema
	finishedCalled map[string]bool
	cleanupCalled  map[string]bool
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{
		tokens:         map[string]string{},
		schemas:        map[string]*model.Schema{},
		finishedCalled: map[string]bool{},
		cleanupCalled:  map[string]bool{},
	}
}

func (f *fakeRegistrar) RegisterQuery(qid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[qid] = "tok-" + qid
	return f.tokens[qid], nil
}

func (f *fakeRegistrar) RegisterSchema(qid string, schema *model.Schema) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemas[qid] = schema
	return nil
}

func (f *fakeRegistrar) SignalJobFinished(qid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishedCalled[qid] = true
	return nil
}

func (f *fakeRegistrar) CleanupOnFailure(qid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanupCalled[qid] = true
}

type fakeRunner struct {
	err error
}

func (r *fakeRunner) SubmitJob(ctx context.Context, req JobRequest) error {
	return r.err
}

func testDispatcher(t *testing.T, reg *fakeRegistrar, runner JobRunner) *Dispatcher {
	t.Helper()
	cfg := config.Default()
	cfg.AdvertisedEndpoints = nil // no real endpoints: Broadcast over an empty list is a no-op
	cfg.DynamicFilterTimeout = 50 * time.Millisecond
	bcast := NewBroadcaster(50*time.Millisecond, nil)
	return New(reg, runner, bcast, cfg, noopLogger{})
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func TestDispatch_HappyPath_SignalsFinished(t *testing.T) {
	reg := newFakeRegistrar()
	d := testDispatcher(t, reg, &fakeRunner{})

	err := d.Dispatch(context.Background(), "q-1", &model.Schema{}, NewDescriptor(), nil)
	require.NoError(t, err)
	require.True(t, reg.finishedCalled["q-1"])
	require.False(t, reg.cleanupCalled["q-1"])
}

func TestDispatch_JobFailure_StillCleansUpAndDoesNotSignalFinished(t *testing.T) {
	reg := newFakeRegistrar()
	d := testDispatcher(t, reg, &fakeRunner{err: errors.New("boom")})

	err := d.Dispatch(context.Background(), "q-2", &model.Schema{}, NewDescriptor(), nil)
	require.Error(t, err)
	require.True(t, reg.cleanupCalled["q-2"])
	require.False(t, reg.finishedCalled["q-2"])
}

func TestDispatch_DynamicPredicateTimeout_ProceedsUnfiltered(t *testing.T) {
	reg := newFakeRegistrar()
	d := testDispatcher(t, reg, &fakeRunner{})
	fut := NewDynamicPredicateFuture() // never resolved

	descriptor := NewDescriptor()
	err := d.Dispatch(context.Background(), "q-3", &model.Schema{}, descriptor, fut)
	require.NoError(t, err)
	require.Empty(t, descriptor.Predicates)
}

func TestDispatch_DynamicPredicateResolved_MergesIntoDescriptor(t *testing.T) {
	reg := newFakeRegistrar()
	d := testDispatcher(t, reg, &fakeRunner{})
	fut := NewDynamicPredicateFuture()
	fut.Resolve([]string{"x > 10"})

	descriptor := NewDescriptor()
	err := d.Dispatch(context.Background(), "q-4", &model.Schema{}, descriptor, fut)
	require.NoError(t, err)
	require.Contains(t, descriptor.Predicates, "x > 10")
}

func TestDispatch_DisabledPushdownsStrippedFromDescriptor(t *testing.T) {
	reg := newFakeRegistrar()
	cfg := config.Default()
	cfg.AdvertisedEndpoints = nil
	cfg.EnableTopNPushdown = false
	cfg.EnableAggregationPushdown = false
	d := New(reg, &fakeRunner{}, NewBroadcaster(50*time.Millisecond, nil), cfg, noopLogger{})

	descriptor := NewDescriptor()
	descriptor.WithTopN(&OrderSpec{Columns: []string{"a"}}, 10)

	err := d.Dispatch(context.Background(), "q-5", &model.Schema{}, descriptor, nil)
	require.NoError(t, err)
	require.Nil(t, descriptor.OrderBy)
	require.Nil(t, descriptor.Limit)
	require.Nil(t, descriptor.Aggregation)
}
