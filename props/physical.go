package props

import (
	"fmt"

	"github.com/tnusser/cascadeopt/operator"
)

// Order names the physical data order a group may be required to, or may
// produce (spec.md §4.7).
type Order uint8

const (
	OrderAny Order = iota
	OrderHeap
	OrderSorted
	OrderHashed
)

func (o Order) String() string {
	switch o {
	case OrderAny:
		return "Any"
	case OrderHeap:
		return "Heap"
	case OrderSorted:
		return "Sorted"
	case OrderHashed:
		return "Hashed"
	default:
		return "?"
	}
}

// Physical is a required or produced physical-properties value. OrderKey
// is required for Sorted (an ordered sort key) and Hashed (treated as an
// unordered column set: direction is ignored) and must be empty for Any
// and Heap. ProjectedColumns being nil means "all columns"; a non-nil,
// possibly-empty set restricts to exactly those columns.
type Physical struct {
	Order           Order
	OrderKey        []operator.SortKeyEntry
	ProjectedColumns *ColSet
}

// Any is the wildcard, least-restrictive requirement: it is the initial
// search context used by OptimizeGroup on the root group, and it matches
// any produced Physical value (spec.md §4.7: "Equality treats Any as a
// wildcard").
func Any() Physical { return Physical{Order: OrderAny} }

// Equals reports whether req is satisfied by produced, treating OrderAny
// on either side as a wildcard for Order and OrderKey. ProjectedColumns
// is checked literally: a nil requirement matches anything, a non-nil
// requirement must be a subset of what's produced (nil produced means
// "all columns", which satisfies any requirement).
//
// Per spec.md §9 open question 2, no hash function is defined for
// Physical at all: Physical equality/lookup in the winners cache is a
// linear scan, never a map key, so the Any-wildcard/hashCode tension the
// source left unresolved does not need resolving here.
func (p Physical) Equals(other Physical) bool {
	if p.Order != OrderAny && other.Order != OrderAny {
		if p.Order != other.Order {
			return false
		}
		if !sortKeysEqual(p.OrderKey, other.OrderKey) {
			return false
		}
	} else if p.Order != OrderAny || other.Order != OrderAny {
		// One side is Any (wildcard): Any is compatible with anything for
		// Order/OrderKey, so no further check is needed here.
	}
	if p.ProjectedColumns != nil {
		if other.ProjectedColumns == nil {
			return true
		}
		return p.ProjectedColumns.SubsetOf(*other.ProjectedColumns)
	}
	return true
}

// StrictEquals is literal equality, with no Any-wildcard treatment: Any
// matches only Any. The winners cache (spec.md §3 invariant 4: "at most
// one winner per (group, required-physical-properties)") uses this, not
// Equals, for cache-key identity — Equals' wildcard semantics are for
// testing whether a *produced* value satisfies a *required* one, a
// different question from "is this the same cache key". Keeping the two
// separate sidesteps the hashCode/Any tension spec.md §9 open question 2
// flags, without inventing a hash function for Physical.
func (p Physical) StrictEquals(other Physical) bool {
	if p.Order != other.Order {
		return false
	}
	if !sortKeysEqual(p.OrderKey, other.OrderKey) {
		return false
	}
	if (p.ProjectedColumns == nil) != (other.ProjectedColumns == nil) {
		return false
	}
	if p.ProjectedColumns != nil && !p.ProjectedColumns.Equals(*other.ProjectedColumns) {
		return false
	}
	return true
}

func sortKeysEqual(a, b []operator.SortKeyEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (p Physical) String() string {
	if p.Order == OrderAny {
		return "Any"
	}
	return fmt.Sprintf("%s%v", p.Order, p.OrderKey)
}

// DerivePhysical computes the physical properties a physical operator
// actually produces, given its own private data and its children's
// produced physical properties (spec.md §4.1: derive_physical_properties).
func DerivePhysical(op operator.Operator, childPhys []Physical) Physical {
	switch o := op.(type) {
	case operator.FileScan:
		return Physical{Order: OrderHeap}
	case operator.Filter, operator.Truncate:
		if len(childPhys) > 0 {
			return childPhys[0]
		}
		return Physical{Order: OrderHeap}
	case operator.IdxFilter:
		if len(o.SortKey) > 0 {
			return Physical{Order: OrderSorted, OrderKey: o.SortKey}
		}
		if len(childPhys) > 0 {
			return childPhys[0]
		}
		return Physical{Order: OrderHeap}
	case operator.MergeJoin:
		if len(childPhys) > 0 {
			return childPhys[0]
		}
		return Physical{Order: OrderHeap}
	case operator.Sort:
		return Physical{Order: OrderSorted, OrderKey: o.Key}
	case operator.HashAggregate, operator.HashDuplicates:
		return Physical{Order: OrderHeap}
	case operator.SortAggregate:
		return Physical{Order: OrderSorted, OrderKey: sortKeyFromColumns(o.GroupBy)}
	default:
		return Physical{Order: OrderHeap}
	}
}

func sortKeyFromColumns(cols []operator.ColumnID) []operator.SortKeyEntry {
	out := make([]operator.SortKeyEntry, len(cols))
	for i, c := range cols {
		out[i] = operator.SortKeyEntry{Column: c}
	}
	return out
}

// SatisfyRequired reports whether a physical operator can satisfy a
// required Physical value for the childIndex'th child, and if so what
// physical properties that child must itself satisfy (spec.md §4.1:
// satisfy_required_properties). Logical operators trivially always
// satisfy, requiring OrderAny of their children — callers never invoke
// this for a logical operator in practice, since only physical
// multi-expressions are costed, but the trivial case is included for
// completeness against spec.md's "Logical operators implement the last
// two trivially" statement.
func SatisfyRequired(op operator.Operator, required Physical, childIndex int) (feasible bool, childRequired Physical) {
	if operator.IsLogical(op) {
		return true, Any()
	}
	switch o := op.(type) {
	case operator.FileScan:
		return required.Order == OrderAny || required.Order == OrderHeap, Any()
	case operator.Filter, operator.Truncate:
		return true, required
	case operator.IdxFilter:
		// IdxFilter reads through the index directly; it doesn't care
		// what physical plan its child group settles on.
		return true, Any()
	case operator.MergeJoin:
		key := make([]operator.SortKeyEntry, len(o.Keys))
		for i, k := range o.Keys {
			if childIndex == 0 {
				key[i] = operator.SortKeyEntry{Column: k.Left}
			} else {
				key[i] = operator.SortKeyEntry{Column: k.Right}
			}
		}
		return true, Physical{Order: OrderSorted, OrderKey: key}
	case operator.Sort:
		return true, Any()
	case operator.HashAggregate, operator.HashDuplicates:
		return true, Any()
	case operator.SortAggregate:
		return true, Physical{Order: OrderSorted, OrderKey: sortKeyFromColumns(o.GroupBy)}
	default:
		return true, Any()
	}
}
