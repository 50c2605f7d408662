package dispatch

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescriptor_TopNAndLimitMutuallyExclusive(t *testing.T) {
	d := NewDescriptor()
	n := int64(10)
	d.WithTopN(&OrderSpec{Columns: []string{"a"}}, n)
	require.NotNil(t, d.OrderBy)
	require.NotNil(t, d.Limit)

	before := *d.Limit
	d.WithLimit(20)
	require.Equal(t, before, *d.Limit, "a second limit must not override an existing top-n")
	require.NotEmpty(t, d.Unenforced)
}

func TestDescriptor_LimitAloneHasNoOrdering(t *testing.T) {
	d := NewDescriptor()
	d.WithLimit(5)
	require.Nil(t, d.OrderBy)
	require.NotNil(t, d.Limit)
	require.Equal(t, int64(5), *d.Limit)
}

func TestDescriptor_AggregationRefusedAfterLimit(t *testing.T) {
	d := NewDescriptor()
	d.WithLimit(5)
	d.WithAggregation(&AggregationSpec{Function: "SUM", InputCol: "x", OutputCol: "sum_x"})
	require.Nil(t, d.Aggregation)
	require.NotEmpty(t, d.Unenforced)
}

func TestDescriptor_AggregationRejectsUnsupportedFunction(t *testing.T) {
	d := NewDescriptor()
	d.WithAggregation(&AggregationSpec{Function: "MEDIAN", InputCol: "x", OutputCol: "med_x"})
	require.Nil(t, d.Aggregation)
	require.NotEmpty(t, d.Unenforced)
}

// TestDescriptor_NormalizeIsIdempotent: applying Normalize twice yields a
// deeply equal descriptor.
func TestDescriptor_NormalizeIsIdempotent(t *testing.T) {
	d := NewDescriptor().
		WithProjection([]string{"a", "b", "a"}).
		WithPredicates([]string{"a > 1", "a > 1"}, []string{"unenforceable"})
	d.WithAggregation(&AggregationSpec{
		Function:    "COUNT",
		InputCol:    "a",
		OutputCol:   "cnt",
		GroupByCols: []string{"b", "b", "a"},
	})

	first := *d.Normalize()
	second := *d.Normalize()
	require.True(t, reflect.DeepEqual(first, second))
}

func TestDescriptor_ProjectionPreservesInputOrder(t *testing.T) {
	d := NewDescriptor().WithProjection([]string{"c", "a", "b"})
	require.Equal(t, []string{"c", "a", "b"}, d.Projection)
}
