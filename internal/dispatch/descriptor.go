// Package dispatch implements the dispatcher, the control-signal
// broadcaster, and the job descriptor assembler.
package dispatch

// OrderSpec is the column ordering of a Top-N pushdown.
type OrderSpec struct {
	Columns    []string
	Descending []bool // parallel to Columns
}

// AggregationSpec describes one pushed-down grouped aggregate.
type AggregationSpec struct {
	Function    string // COUNT, SUM, MIN, MAX, AVG
	InputCol    string
	OutputCol   string
	GroupByCols []string
}

// supportedAggregateFunctions is the closed set of pushable aggregates.
var supportedAggregateFunctions = map[string]bool{
	"COUNT": true,
	"SUM":   true,
	"MIN":   true,
	"MAX":   true,
	"AVG":   true,
}

// Descriptor is the normalized, deterministic job description handed to
// the producer job runner. Top-N is OrderBy != nil && Limit != nil; LIMIT
// alone is OrderBy == nil && Limit != nil.
type Descriptor struct {
	Projection  []string
	Predicates  []string
	Unenforced  []string
	OrderBy     *OrderSpec
	Limit       *int64
	Aggregation *AggregationSpec
}

// NewDescriptor builds an empty descriptor ready for incremental pushdown
// application.
func NewDescriptor() *Descriptor {
	return &Descriptor{}
}

// WithProjection sets the projected catalog base column names, in the
// order the planner supplied them.
func (d *Descriptor) WithProjection(columns []string) *Descriptor {
	d.Projection = append([]string(nil), columns...)
	return d
}

// WithPredicates appends decidable predicates as conjunctive clauses and
// reports any undecidable domain in Unenforced rather than dropping it
// silently.
func (d *Descriptor) WithPredicates(decidable, unenforced []string) *Descriptor {
	d.Predicates = append(d.Predicates, decidable...)
	d.Unenforced = append(d.Unenforced, unenforced...)
	return d
}

// WithTopN sets an ordered limit. Refused (descriptor unchanged, note
// appended to Unenforced) if a LIMIT or aggregation is already present.
func (d *Descriptor) WithTopN(order *OrderSpec, n int64) *Descriptor {
	if d.Limit != nil || d.Aggregation != nil {
		d.Unenforced = append(d.Unenforced, "top-n: limit or aggregation already present")
		return d
	}
	d.OrderBy = order
	d.Limit = &n
	return d
}

// WithLimit sets an unordered sample limit. Refused if an ordering or
// aggregation is already present.
func (d *Descriptor) WithLimit(n int64) *Descriptor {
	if d.OrderBy != nil || d.Aggregation != nil {
		d.Unenforced = append(d.Unenforced, "limit: ordering or aggregation already present")
		return d
	}
	d.Limit = &n
	return d
}

// WithAggregation pushes down a grouped aggregate. Refused when a limit,
// ordering, or prior aggregation is already present.
func (d *Descriptor) WithAggregation(spec *AggregationSpec) *Descriptor {
	if d.Limit != nil || d.OrderBy != nil || d.Aggregation != nil {
		d.Unenforced = append(d.Unenforced, "aggregation: limit, ordering, or prior aggregation already present")
		return d
	}
	if !supportedAggregateFunctions[spec.Function] {
		d.Unenforced = append(d.Unenforced, "aggregation: unsupported function "+spec.Function)
		return d
	}
	d.Aggregation = spec
	return d
}

// Normalize deduplicates the descriptor's slice fields deterministically.
// It is idempotent: calling it twice on an already normalized descriptor
// yields a value equal by reflect.DeepEqual, since it only ever dedups in
// input order, never mutating based on external state.
func (d *Descriptor) Normalize() *Descriptor {
	d.Projection = dedupPreserveOrder(d.Projection)
	d.Predicates = dedupPreserveOrder(d.Predicates)
	d.Unenforced = dedupPreserveOrder(d.Unenforced)
	if d.OrderBy != nil {
		d.OrderBy.Columns = dedupPreserveOrder(d.OrderBy.Columns)
	}
	if d.Aggregation != nil {
		d.Aggregation.GroupByCols = dedupPreserveOrder(d.Aggregation.GroupByCols)
	}
	return d
}

func dedupPreserveOrder(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
