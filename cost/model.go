package cost

import (
	"math"

	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/props"
)

// Model is implemented by a cost model: something that can assign a
// local cost to a physical operator given the logical properties of its
// group and of its children (spec.md §4.1: local_cost). It is an
// interface, mirroring both the teacher fork's memo.Coster and the
// CockroachDB xform.Coster shape in the reference pack, so a test can
// substitute a biased model (cf. the teacher's own biased_coster_test.go)
// without touching the task engine.
type Model interface {
	LocalCost(op operator.Operator, local props.Logical, children []props.Logical) Cost
}

// Default is the cost model built from the fixed constant table in
// spec.md §4.2.
type Default struct {
	Catalog catalog.Catalog
}

var _ Model = Default{}

// LocalCost computes the incremental IO+CPU cost of a single physical
// operator, not including its children's cost (the task engine sums
// children's costs separately in OptimizeInputs).
func (d Default) LocalCost(op operator.Operator, local props.Logical, children []props.Logical) Cost {
	switch o := op.(type) {
	case operator.FileScan:
		pages := float64(local.TableStatistics.PageCount)
		if pages == 0 {
			pages = 1
		}
		return Cost{IO: pages * SequentialIOCost, CPU: local.Cardinality * CPUReadCost}

	case operator.Filter:
		n := childCardinality(children, 0)
		return Cost{CPU: n * PredicateCost}

	case operator.IdxFilter:
		n := local.Cardinality
		return Cost{IO: n * RandomIOCost / BlockFactorIndex, CPU: n * IndexProbeCost}

	case operator.Truncate:
		return Cost{CPU: childCardinality(children, 0) * TouchCopyCost}

	case operator.NLJoin:
		l, r := childCardinality(children, 0), childCardinality(children, 1)
		return Cost{CPU: l * r * CompareMoveCost}

	case operator.BlockNLJoin:
		l, r := childCardinality(children, 0), childCardinality(children, 1)
		return Cost{CPU: (l + l*r/BlockFactorTable) * CompareMoveCost}

	case operator.IdxNLJoin:
		l := childCardinality(children, 0)
		return Cost{IO: l * RandomIOCost / BlockFactorIndex, CPU: l * IndexProbeCost}

	case operator.MergeJoin:
		l, r := childCardinality(children, 0), childCardinality(children, 1)
		return Cost{CPU: (l + r) * CompareMoveCost}

	case operator.HashJoin:
		l, r := childCardinality(children, 0), childCardinality(children, 1)
		return Cost{CPU: r*HashCost + l*HashProbeCost}

	case operator.HybridHashJoin:
		l, r := childCardinality(children, 0), childCardinality(children, 1)
		return Cost{IO: (l + r) * SequentialIOCost / BlockFactorTable, CPU: r*HashCost + l*HashProbeCost}

	case operator.BitmapIdxJoin:
		l := childCardinality(children, 0)
		return Cost{IO: l * RandomIOCost / BlockFactorBitmap, CPU: l * IndexProbeCost}

	case operator.GJoin:
		l, r := childCardinality(children, 0), childCardinality(children, 1)
		return Cost{CPU: l * r * ApplyCost}

	case operator.HashDuplicates:
		n := childCardinality(children, 0)
		return Cost{CPU: n * HashCost}

	case operator.HashAggregate:
		n := childCardinality(children, 0)
		return Cost{CPU: n * (HashCost + ApplyCost*float64(len(o.Functions)))}

	case operator.SortAggregate:
		n := childCardinality(children, 0)
		return Cost{CPU: n * ApplyCost * float64(len(o.Functions))}

	case operator.Sort:
		n := childCardinality(children, 0)
		if n <= 1 {
			return Cost{CPU: n * CompareMoveCost}
		}
		return Cost{CPU: n * math.Log2(n) * CompareMoveCost}

	default:
		return Zero
	}
}

func childCardinality(children []props.Logical, i int) float64 {
	if i >= len(children) {
		return 0
	}
	return children[i].Cardinality
}

// TouchCopy returns the touch-copy lower bound for a group's logical
// properties (spec.md §4.2 / glossary "Touch-copy cost"): the cost of
// moving every qualifying tuple through the plan once.
//
//	sum_over_base_tables(max-column-unique-cardinality(t))
//	  + cardinality - min - max
//
// where min/max are the minimum and maximum of that per-table max-UC
// collection, times TouchCopyCost (IO=0). The min/max subtraction trims
// the two extreme per-table contributions so a single huge dimension
// table doesn't dominate the bound for a join of many small tables; this
// matches the Columbia optimizer's touch-copy formula in original_source.
func TouchCopy(l props.Logical) Cost {
	if l.IsBaseTable {
		return Zero
	}
	var sum, min, max float64
	first := true
	for _, uc := range l.BaseTableMaxUC {
		sum += uc
		if first || uc < min {
			min = uc
		}
		if first || uc > max {
			max = uc
		}
		first = false
	}
	bound := sum + l.Cardinality - min - max
	if bound < 0 {
		bound = 0
	}
	return Cost{CPU: bound * TouchCopyCost}
}

// Fetching returns the expected IO to read the base-table blocks implied
// by each base table's max column unique cardinality (spec.md §4.2
// glossary "Fetching cost"), added to a group's lower bound only when
// column-unique-cardinality pruning is enabled.
func Fetching(cat catalog.Catalog, l props.Logical) Cost {
	if cat == nil {
		return Zero
	}
	pageSize := float64(cat.PageSize())
	if pageSize == 0 {
		pageSize = 1
	}
	var io, cpu float64
	for table, uc := range l.BaseTableMaxUC {
		td, err := cat.LookupTable(tableName(cat, table))
		width := 0
		if err == nil {
			for _, c := range td.Schema {
				width += c.SizeBytes
			}
		}
		blocks := math.Ceil(uc * float64(width) / pageSize)
		io += blocks * RandomIOCost
		cpu += CPUReadCost
	}
	return Cost{IO: io, CPU: cpu}
}

// tableName is a small helper so Fetching can re-resolve a table's
// descriptor from its id; narrow catalogs that only index by name can
// return "" here, in which case LookupTable's failure degrades Fetching
// to zero width (a conservative under-estimate, never a panic).
func tableName(cat catalog.Catalog, id catalog.TableID) string {
	type named interface{ NameOf(catalog.TableID) string }
	if n, ok := cat.(named); ok {
		return n.NameOf(id)
	}
	return ""
}
