package operator

import (
	"fmt"

	"github.com/tnusser/cascadeopt/catalog"
)

// Physical operators carry only the private data needed to distinguish
// one physical choice from another (e.g. which index a scan uses). Their
// behavior — local_cost, derive_physical_properties,
// satisfy_required_properties (spec.md §4.1) — is implemented one layer
// up, in packages cost and props, as dispatch over Type() rather than as
// methods here: those behaviors need the props/cost types, and this
// package must stay free of that dependency so props and cost can both
// import it without a cycle.

// FileScan is the physical table-scan operator implementing GetTable.
type FileScan struct {
	Table catalog.TableID
	Name  string
}

func (FileScan) Kind() Kind        { return KindPhysical }
func (FileScan) Type() Type        { return TypeFileScan }
func (FileScan) Arity() int        { return 0 }
func (FileScan) IsCommuting() bool { return false }
func (f FileScan) String() string  { return fmt.Sprintf("FileScan(%s)", f.Name) }
func (f FileScan) Equals(other Operator) bool {
	o, ok := other.(FileScan)
	return ok && o.Table == f.Table
}

// Filter is the physical implementation of Select: evaluate a predicate
// row by row over its child.
type Filter struct {
	Predicate Expr
}

func (Filter) Kind() Kind        { return KindPhysical }
func (Filter) Type() Type        { return TypeFilter }
func (Filter) Arity() int        { return 1 }
func (Filter) IsCommuting() bool { return false }
func (f Filter) String() string  { return fmt.Sprintf("Filter(%s)", f.Predicate) }
func (f Filter) Equals(other Operator) bool {
	o, ok := other.(Filter)
	return ok && o.Predicate.String() == f.Predicate.String()
}

// IdxFilter implements Select using an index to avoid a full scan,
// evaluating any residual predicate the index can't absorb over the
// index's output. SortKey, when non-empty, is the backing index's sort
// key: IdxFilter then produces rows in that order independent of
// whatever its child's own physical plan would otherwise produce, since
// it bypasses the child's scan entirely.
type IdxFilter struct {
	Index     string
	SortKey   []SortKeyEntry
	Predicate Expr
}

func (IdxFilter) Kind() Kind        { return KindPhysical }
func (IdxFilter) Type() Type        { return TypeIdxFilter }
func (IdxFilter) Arity() int        { return 1 }
func (IdxFilter) IsCommuting() bool { return false }
func (f IdxFilter) String() string  { return fmt.Sprintf("IdxFilter(%s, %s)", f.Index, f.Predicate) }
func (f IdxFilter) Equals(other Operator) bool {
	o, ok := other.(IdxFilter)
	return ok && o.Index == f.Index && o.Predicate.String() == f.Predicate.String()
}

// Truncate is a physical operator that discards columns not needed by
// any ancestor, the physical analogue of a no-op Project.
type Truncate struct {
	Columns []ColumnID
}

func (Truncate) Kind() Kind        { return KindPhysical }
func (Truncate) Type() Type        { return TypeTruncate }
func (Truncate) Arity() int        { return 1 }
func (Truncate) IsCommuting() bool { return false }
func (t Truncate) String() string  { return fmt.Sprintf("Truncate(%v)", t.Columns) }
func (t Truncate) Equals(other Operator) bool {
	o, ok := other.(Truncate)
	if !ok || len(o.Columns) != len(t.Columns) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

// joinPhysBase is the private data shared by all physical join
// operators: the equi-join key pairs and any residual filter EqJoin
// didn't absorb.
type joinPhysBase struct {
	Keys     []KeyPair
	Residual Expr
}

func joinEquals(a, b joinPhysBase) bool {
	if len(a.Keys) != len(b.Keys) || a.Residual.String() != b.Residual.String() {
		return false
	}
	for i := range a.Keys {
		if a.Keys[i] != b.Keys[i] {
			return false
		}
	}
	return true
}

// NLJoin is the physical nested-loop join: for every left row, scan the
// entire right input.
type NLJoin struct{ joinPhysBase }

func (NLJoin) Kind() Kind        { return KindPhysical }
func (NLJoin) Type() Type        { return TypeNLJoin }
func (NLJoin) Arity() int        { return 2 }
func (NLJoin) IsCommuting() bool { return false }
func (j NLJoin) String() string  { return fmt.Sprintf("NLJoin(%v)", j.Keys) }
func (j NLJoin) Equals(other Operator) bool {
	o, ok := other.(NLJoin)
	return ok && joinEquals(j.joinPhysBase, o.joinPhysBase)
}

// BlockNLJoin batches left rows into blocks before scanning the right
// input once per block, amortizing the right-side scan cost.
type BlockNLJoin struct{ joinPhysBase }

func (BlockNLJoin) Kind() Kind        { return KindPhysical }
func (BlockNLJoin) Type() Type        { return TypeBlockNLJoin }
func (BlockNLJoin) Arity() int        { return 2 }
func (BlockNLJoin) IsCommuting() bool { return false }
func (j BlockNLJoin) String() string  { return fmt.Sprintf("BlockNLJoin(%v)", j.Keys) }
func (j BlockNLJoin) Equals(other Operator) bool {
	o, ok := other.(BlockNLJoin)
	return ok && joinEquals(j.joinPhysBase, o.joinPhysBase)
}

// IdxNLJoin probes an index on the right input for each left row instead
// of scanning it.
type IdxNLJoin struct {
	joinPhysBase
	Index string
}

func (IdxNLJoin) Kind() Kind        { return KindPhysical }
func (IdxNLJoin) Type() Type        { return TypeIdxNLJoin }
func (IdxNLJoin) Arity() int        { return 2 }
func (IdxNLJoin) IsCommuting() bool { return false }
func (j IdxNLJoin) String() string  { return fmt.Sprintf("IdxNLJoin(%s, %v)", j.Index, j.Keys) }
func (j IdxNLJoin) Equals(other Operator) bool {
	o, ok := other.(IdxNLJoin)
	return ok && o.Index == j.Index && joinEquals(j.joinPhysBase, o.joinPhysBase)
}

// MergeJoin requires both inputs sorted on the join keys and merges them
// in a single pass.
type MergeJoin struct{ joinPhysBase }

func (MergeJoin) Kind() Kind        { return KindPhysical }
func (MergeJoin) Type() Type        { return TypeMergeJoin }
func (MergeJoin) Arity() int        { return 2 }
func (MergeJoin) IsCommuting() bool { return false }
func (j MergeJoin) String() string  { return fmt.Sprintf("MergeJoin(%v)", j.Keys) }
func (j MergeJoin) Equals(other Operator) bool {
	o, ok := other.(MergeJoin)
	return ok && joinEquals(j.joinPhysBase, o.joinPhysBase)
}

// HashJoin builds an in-memory hash table over one input and probes it
// with the other.
type HashJoin struct{ joinPhysBase }

func (HashJoin) Kind() Kind        { return KindPhysical }
func (HashJoin) Type() Type        { return TypeHashJoin }
func (HashJoin) Arity() int        { return 2 }
func (HashJoin) IsCommuting() bool { return false }
func (j HashJoin) String() string  { return fmt.Sprintf("HashJoin(%v)", j.Keys) }
func (j HashJoin) Equals(other Operator) bool {
	o, ok := other.(HashJoin)
	return ok && joinEquals(j.joinPhysBase, o.joinPhysBase)
}

// HybridHashJoin spills its hash table to disk in partitions when it
// doesn't fit in memory.
type HybridHashJoin struct{ joinPhysBase }

func (HybridHashJoin) Kind() Kind        { return KindPhysical }
func (HybridHashJoin) Type() Type        { return TypeHybridHashJoin }
func (HybridHashJoin) Arity() int        { return 2 }
func (HybridHashJoin) IsCommuting() bool { return false }
func (j HybridHashJoin) String() string  { return fmt.Sprintf("HybridHashJoin(%v)", j.Keys) }
func (j HybridHashJoin) Equals(other Operator) bool {
	o, ok := other.(HybridHashJoin)
	return ok && joinEquals(j.joinPhysBase, o.joinPhysBase)
}

// BitmapIdxJoin joins by OR-ing per-key index bitmaps before fetching
// matching rows.
type BitmapIdxJoin struct {
	joinPhysBase
	Index string
}

func (BitmapIdxJoin) Kind() Kind        { return KindPhysical }
func (BitmapIdxJoin) Type() Type        { return TypeBitmapIdxJoin }
func (BitmapIdxJoin) Arity() int        { return 2 }
func (BitmapIdxJoin) IsCommuting() bool { return false }
func (j BitmapIdxJoin) String() string  { return fmt.Sprintf("BitmapIdxJoin(%s, %v)", j.Index, j.Keys) }
func (j BitmapIdxJoin) Equals(other Operator) bool {
	o, ok := other.(BitmapIdxJoin)
	return ok && o.Index == j.Index && joinEquals(j.joinPhysBase, o.joinPhysBase)
}

// GJoin is a generic join fallback for non-equi join predicates, costed
// as a nested-loop join with an arbitrary residual predicate.
type GJoin struct {
	Predicate Expr
}

func (GJoin) Kind() Kind        { return KindPhysical }
func (GJoin) Type() Type        { return TypeGJoin }
func (GJoin) Arity() int        { return 2 }
func (GJoin) IsCommuting() bool { return false }
func (j GJoin) String() string  { return fmt.Sprintf("GJoin(%s)", j.Predicate) }
func (j GJoin) Equals(other Operator) bool {
	o, ok := other.(GJoin)
	return ok && o.Predicate.String() == j.Predicate.String()
}

// HashDuplicates implements Distinct by hashing entire rows.
type HashDuplicates struct{}

func (HashDuplicates) Kind() Kind        { return KindPhysical }
func (HashDuplicates) Type() Type        { return TypeHashDuplicates }
func (HashDuplicates) Arity() int        { return 1 }
func (HashDuplicates) IsCommuting() bool { return false }
func (HashDuplicates) String() string    { return "HashDuplicates" }
func (HashDuplicates) Equals(other Operator) bool {
	_, ok := other.(HashDuplicates)
	return ok
}

// HashAggregate implements Aggregate by hashing on the grouping columns.
type HashAggregate struct {
	GroupBy   []ColumnID
	Functions []AggregateFunc
}

func (HashAggregate) Kind() Kind        { return KindPhysical }
func (HashAggregate) Type() Type        { return TypeHashAggregate }
func (HashAggregate) Arity() int        { return 1 }
func (HashAggregate) IsCommuting() bool { return false }
func (a HashAggregate) String() string  { return fmt.Sprintf("HashAggregate(%v)", a.GroupBy) }
func (a HashAggregate) Equals(other Operator) bool {
	o, ok := other.(HashAggregate)
	if !ok || len(o.GroupBy) != len(a.GroupBy) || len(o.Functions) != len(a.Functions) {
		return false
	}
	for i := range a.GroupBy {
		if a.GroupBy[i] != o.GroupBy[i] {
			return false
		}
	}
	for i := range a.Functions {
		if a.Functions[i] != o.Functions[i] {
			return false
		}
	}
	return true
}

// SortAggregate implements Aggregate by relying on its child being
// sorted on the grouping columns, avoiding a hash table.
type SortAggregate struct {
	GroupBy   []ColumnID
	Functions []AggregateFunc
}

func (SortAggregate) Kind() Kind        { return KindPhysical }
func (SortAggregate) Type() Type        { return TypeSortAggregate }
func (SortAggregate) Arity() int        { return 1 }
func (SortAggregate) IsCommuting() bool { return false }
func (a SortAggregate) String() string  { return fmt.Sprintf("SortAggregate(%v)", a.GroupBy) }
func (a SortAggregate) Equals(other Operator) bool {
	o, ok := other.(SortAggregate)
	if !ok || len(o.GroupBy) != len(a.GroupBy) || len(o.Functions) != len(a.Functions) {
		return false
	}
	for i := range a.GroupBy {
		if a.GroupBy[i] != o.GroupBy[i] {
			return false
		}
	}
	for i := range a.Functions {
		if a.Functions[i] != o.Functions[i] {
			return false
		}
	}
	return true
}

// Sort is the sole enforcer operator in the algebra: it changes a
// group's physical ordering without changing its logical content
// (spec.md glossary, "Enforcer").
type Sort struct {
	Key []SortKeyEntry
}

func (Sort) Kind() Kind        { return KindPhysical }
func (Sort) Type() Type        { return TypeSort }
func (Sort) Arity() int        { return 1 }
func (Sort) IsCommuting() bool { return false }
func (s Sort) String() string  { return fmt.Sprintf("Sort(%v)", s.Key) }
func (s Sort) Equals(other Operator) bool {
	o, ok := other.(Sort)
	if !ok || len(o.Key) != len(s.Key) {
		return false
	}
	for i := range s.Key {
		if s.Key[i] != o.Key[i] {
			return false
		}
	}
	return true
}
