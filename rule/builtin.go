package rule

import (
	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
)

// Builtin returns the rule set a freshly constructed optimizer registers
// by default: one transformation rule and the implementation rule for
// every physical operator spec.md §4.1 names. Rules are grounded on
// spec.md §4.1's operator algebra and, for shape, on TiDB's Cascades
// transformation/implementation rule split (reference pack).
func Builtin() *Set {
	return NewSet(
		mergeAdjacentSelects(),

		implementGetTable(),
		implementSelectFilter(),
		implementSelectIdxFilter(),
		implementProjectTruncate(),
		implementDistinct(),
		implementHashAggregate(),
		implementSortAggregate(),
		implementOrderBySort(),
		implementEqJoinNLJoin(),
		implementEqJoinBlockNLJoin(),
		implementEqJoinHashJoin(),
		implementEqJoinMergeJoin(),
		implementEqJoinIdxNLJoin(),
		implementEqJoinHybridHashJoin(),
		implementEqJoinBitmapIdxJoin(),
		implementSelectEqJoinGJoin(),
	)
}

// mergeAdjacentSelects folds Select(Select(p1, x), p2) into a single
// Select(AND(p1, p2), x) — a transformation rule in the spec.md §4.4
// sense (logical substitute, may relocate the inner child into a new
// group reference, never creates a new group here since AND-folding keeps
// arity 1). Grounded on the general "predicate conjunction merging"
// transformation present in every Cascades-lineage optimizer in the
// reference pack.
func mergeAdjacentSelects() *Rule {
	return &Rule{
		Name:    "MergeAdjacentSelects",
		Kind:    KindTransformation,
		Trigger: operator.TypeSelect,
		Pattern: Pattern{Op: operator.TypeSelect, Children: []Pattern{
			{Op: operator.TypeSelect, Children: []Pattern{Any()}},
		}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			outer := b.Expr.Op.(operator.Select)
			inner := b.Children[0].Expr.Op.(operator.Select)
			grandchild := b.Children[0].Expr.Inputs[0]
			merged := operator.Select{Predicate: operator.NewCompare(operator.CompareAnd, outer.Predicate, inner.Predicate)}
			return memo.Tree{Op: merged, Inputs: []memo.Input{memo.FromGroup(grandchild)}}, true
		},
	}
}

func implementGetTable() *Rule {
	return &Rule{
		Name:    "GetTableToFileScan",
		Kind:    KindImplementation,
		Trigger: operator.TypeGetTable,
		Pattern: Pattern{Op: operator.TypeGetTable},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			gt := b.Expr.Op.(operator.GetTable)
			return memo.Tree{Op: operator.FileScan{Table: gt.Table, Name: gt.Name}}, true
		},
	}
}

func implementSelectFilter() *Rule {
	return &Rule{
		Name:    "SelectToFilter",
		Kind:    KindImplementation,
		Trigger: operator.TypeSelect,
		Pattern: Pattern{Op: operator.TypeSelect, Children: []Pattern{Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			s := b.Expr.Op.(operator.Select)
			return memo.Tree{
				Op:     operator.Filter{Predicate: s.Predicate},
				Inputs: []memo.Input{memo.FromGroup(b.Expr.Inputs[0])},
			}, true
		},
	}
}

// implementSelectIdxFilter fires only when the Select's child is (one
// member of) a GetTable group and the predicate is a simple equality on a
// column that leads an index's sort key (spec.md §4 scenario 4).
func implementSelectIdxFilter() *Rule {
	return &Rule{
		Name:    "SelectToIdxFilter",
		Kind:    KindImplementation,
		Trigger: operator.TypeSelect,
		Pattern: Pattern{Op: operator.TypeSelect, Children: []Pattern{
			{Op: operator.TypeGetTable},
		}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 {
			if _, ok := findIndex(b, ss); ok {
				return 2 // prefer over a plain Filter when applicable
			}
			return 0
		},
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			idx, ok := findIndex(b, ss)
			if !ok {
				return memo.Tree{}, false
			}
			s := b.Expr.Op.(operator.Select)
			return memo.Tree{
				Op:     operator.IdxFilter{Index: idx.Name, SortKey: sortKeyFromIndex(idx), Predicate: s.Predicate},
				Inputs: []memo.Input{memo.FromGroup(b.Expr.Inputs[0])},
			}, true
		},
	}
}

// findIndex resolves the index backing an equality predicate's column, if
// any. Bitmap indexes are skipped here: they're reserved for
// implementEqJoinBitmapIdxJoin, never a plain single-table filter.
func findIndex(b *Binding, ss *memo.SearchSpace) (catalog.IndexDescriptor, bool) {
	s := b.Expr.Op.(operator.Select)
	col, ok := equalityColumn(s.Predicate)
	if !ok {
		return catalog.IndexDescriptor{}, false
	}
	gt := b.Children[0].Expr.Op.(operator.GetTable)
	indexes, err := ss.Catalog.IndexesOf(gt.Table)
	if err != nil {
		return catalog.IndexDescriptor{}, false
	}
	for _, idx := range indexes {
		if operator.ValidateIndexDescriptor(idx) != nil {
			continue
		}
		if len(idx.SortKey) > 0 && operator.ColumnID(idx.SortKey[0]) == col {
			return idx, true
		}
	}
	return catalog.IndexDescriptor{}, false
}

// sortKeyFromIndex converts a catalog index's sort key columns into the
// operator package's ascending sort key shape.
func sortKeyFromIndex(idx catalog.IndexDescriptor) []operator.SortKeyEntry {
	out := make([]operator.SortKeyEntry, len(idx.SortKey))
	for i, c := range idx.SortKey {
		out[i] = operator.SortKeyEntry{Column: operator.ColumnID(c)}
	}
	return out
}

// equalityColumn reports the column referenced by a top-level `col = const`
// predicate, if that is the predicate's shape.
func equalityColumn(e operator.Expr) (operator.ColumnID, bool) {
	cmp, ok := e.Op.(operator.Compare)
	if !ok || cmp.CmpOp != operator.CompareEq || len(e.Children) != 2 {
		return 0, false
	}
	if gc, ok := e.Children[0].Op.(operator.GetColumn); ok {
		if _, ok := e.Children[1].Op.(operator.Constant); ok {
			return gc.Column, true
		}
	}
	if gc, ok := e.Children[1].Op.(operator.GetColumn); ok {
		if _, ok := e.Children[0].Op.(operator.Constant); ok {
			return gc.Column, true
		}
	}
	return 0, false
}

// implementProjectTruncate implements Project as Truncate: both just
// restrict the output column set, so Truncate is the physical analogue
// of a no-op Project (operator.Truncate's doc comment).
func implementProjectTruncate() *Rule {
	return &Rule{
		Name:    "ProjectToTruncate",
		Kind:    KindImplementation,
		Trigger: operator.TypeProject,
		Pattern: Pattern{Op: operator.TypeProject, Children: []Pattern{Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			p := b.Expr.Op.(operator.Project)
			return memo.Tree{
				Op:     operator.Truncate{Columns: p.Columns},
				Inputs: []memo.Input{memo.FromGroup(b.Expr.Inputs[0])},
			}, true
		},
	}
}

func implementDistinct() *Rule {
	return &Rule{
		Name:    "DistinctToHashDuplicates",
		Kind:    KindImplementation,
		Trigger: operator.TypeDistinct,
		Pattern: Pattern{Op: operator.TypeDistinct, Children: []Pattern{Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			return memo.Tree{
				Op:     operator.HashDuplicates{},
				Inputs: []memo.Input{memo.FromGroup(b.Expr.Inputs[0])},
			}, true
		},
	}
}

func implementHashAggregate() *Rule {
	return &Rule{
		Name:    "AggregateToHashAggregate",
		Kind:    KindImplementation,
		Trigger: operator.TypeAggregate,
		Pattern: Pattern{Op: operator.TypeAggregate, Children: []Pattern{Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			a := b.Expr.Op.(operator.Aggregate)
			return memo.Tree{
				Op:     operator.HashAggregate{GroupBy: a.GroupBy, Functions: a.Functions},
				Inputs: []memo.Input{memo.FromGroup(b.Expr.Inputs[0])},
			}, true
		},
	}
}

func implementSortAggregate() *Rule {
	return &Rule{
		Name:    "AggregateToSortAggregate",
		Kind:    KindImplementation,
		Trigger: operator.TypeAggregate,
		Pattern: Pattern{Op: operator.TypeAggregate, Children: []Pattern{Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 {
			if len(b.Expr.Op.(operator.Aggregate).GroupBy) == 0 {
				return 0
			}
			return 1
		},
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			a := b.Expr.Op.(operator.Aggregate)
			return memo.Tree{
				Op:     operator.SortAggregate{GroupBy: a.GroupBy, Functions: a.Functions},
				Inputs: []memo.Input{memo.FromGroup(b.Expr.Inputs[0])},
			}, true
		},
	}
}

func implementOrderBySort() *Rule {
	return &Rule{
		Name:    "OrderByToSort",
		Kind:    KindImplementation,
		Trigger: operator.TypeOrderBy,
		Pattern: Pattern{Op: operator.TypeOrderBy, Children: []Pattern{Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			o := b.Expr.Op.(operator.OrderBy)
			return memo.Tree{
				Op:     operator.Sort{Key: o.Key},
				Inputs: []memo.Input{memo.FromGroup(b.Expr.Inputs[0])},
			}, true
		},
	}
}

func joinInputs(b *Binding) []memo.Input {
	return []memo.Input{memo.FromGroup(b.Expr.Inputs[0]), memo.FromGroup(b.Expr.Inputs[1])}
}

func implementEqJoinNLJoin() *Rule {
	return &Rule{
		Name:    "EqJoinToNLJoin",
		Kind:    KindImplementation,
		Trigger: operator.TypeEqJoin,
		Pattern: Pattern{Op: operator.TypeEqJoin, Children: []Pattern{Any(), Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			j := b.Expr.Op.(operator.EqJoin)
			var nl operator.NLJoin
			nl.Keys = j.Keys
			return memo.Tree{Op: nl, Inputs: joinInputs(b)}, true
		},
	}
}

func implementEqJoinBlockNLJoin() *Rule {
	return &Rule{
		Name:    "EqJoinToBlockNLJoin",
		Kind:    KindImplementation,
		Trigger: operator.TypeEqJoin,
		Pattern: Pattern{Op: operator.TypeEqJoin, Children: []Pattern{Any(), Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			j := b.Expr.Op.(operator.EqJoin)
			var bnl operator.BlockNLJoin
			bnl.Keys = j.Keys
			return memo.Tree{Op: bnl, Inputs: joinInputs(b)}, true
		},
	}
}

func implementEqJoinHashJoin() *Rule {
	return &Rule{
		Name:    "EqJoinToHashJoin",
		Kind:    KindImplementation,
		Trigger: operator.TypeEqJoin,
		Pattern: Pattern{Op: operator.TypeEqJoin, Children: []Pattern{Any(), Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			j := b.Expr.Op.(operator.EqJoin)
			var hj operator.HashJoin
			hj.Keys = j.Keys
			return memo.Tree{Op: hj, Inputs: joinInputs(b)}, true
		},
	}
}

func implementEqJoinMergeJoin() *Rule {
	return &Rule{
		Name:    "EqJoinToMergeJoin",
		Kind:    KindImplementation,
		Trigger: operator.TypeEqJoin,
		Pattern: Pattern{Op: operator.TypeEqJoin, Children: []Pattern{Any(), Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			j := b.Expr.Op.(operator.EqJoin)
			var mj operator.MergeJoin
			mj.Keys = j.Keys
			return memo.Tree{Op: mj, Inputs: joinInputs(b)}, true
		},
	}
}

// implementEqJoinIdxNLJoin fires when the join's right child is (one
// member of) a GetTable group and the right-side join column leads a
// non-bitmap index on that table, probing the index once per left row
// instead of scanning the whole right input.
func implementEqJoinIdxNLJoin() *Rule {
	return &Rule{
		Name:    "EqJoinToIdxNLJoin",
		Kind:    KindImplementation,
		Trigger: operator.TypeEqJoin,
		Pattern: Pattern{Op: operator.TypeEqJoin, Children: []Pattern{
			Any(),
			{Op: operator.TypeGetTable},
		}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 {
			if _, ok := findJoinIndex(b, ss, false); ok {
				return 2 // prefer over a scanning join when applicable
			}
			return 0
		},
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			idx, ok := findJoinIndex(b, ss, false)
			if !ok {
				return memo.Tree{}, false
			}
			j := b.Expr.Op.(operator.EqJoin)
			var inj operator.IdxNLJoin
			inj.Keys = j.Keys
			inj.Index = idx.Name
			return memo.Tree{Op: inj, Inputs: joinInputs(b)}, true
		},
	}
}

// implementEqJoinHybridHashJoin offers HybridHashJoin as an always
// available alternative, the same way the other scanning/hashing join
// rules do — its cost model is what makes it win only when the build
// side doesn't fit comfortably in memory.
func implementEqJoinHybridHashJoin() *Rule {
	return &Rule{
		Name:    "EqJoinToHybridHashJoin",
		Kind:    KindImplementation,
		Trigger: operator.TypeEqJoin,
		Pattern: Pattern{Op: operator.TypeEqJoin, Children: []Pattern{Any(), Any()}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			j := b.Expr.Op.(operator.EqJoin)
			var hhj operator.HybridHashJoin
			hhj.Keys = j.Keys
			return memo.Tree{Op: hhj, Inputs: joinInputs(b)}, true
		},
	}
}

// implementEqJoinBitmapIdxJoin fires when the join's right child is a
// GetTable group and the right-side join column leads a bitmap index on
// that table. A bitmap index already present in the catalog remains
// usable here even though operator.ValidateIndexDescriptor rejects
// creating new ones (spec.md §7 kind 4): this rule only reads it.
func implementEqJoinBitmapIdxJoin() *Rule {
	return &Rule{
		Name:    "EqJoinToBitmapIdxJoin",
		Kind:    KindImplementation,
		Trigger: operator.TypeEqJoin,
		Pattern: Pattern{Op: operator.TypeEqJoin, Children: []Pattern{
			Any(),
			{Op: operator.TypeGetTable},
		}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 {
			if _, ok := findJoinIndex(b, ss, true); ok {
				return 3 // prefer over a plain index probe when applicable
			}
			return 0
		},
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			idx, ok := findJoinIndex(b, ss, true)
			if !ok {
				return memo.Tree{}, false
			}
			j := b.Expr.Op.(operator.EqJoin)
			var bij operator.BitmapIdxJoin
			bij.Keys = j.Keys
			bij.Index = idx.Name
			return memo.Tree{Op: bij, Inputs: joinInputs(b)}, true
		},
	}
}

// findJoinIndex resolves an index on the join's right-side GetTable
// child whose leading sort key column matches a join key's right column.
// bitmap selects whether to look for a bitmap-typed index (for
// BitmapIdxJoin) or a non-bitmap one (for IdxNLJoin).
func findJoinIndex(b *Binding, ss *memo.SearchSpace, bitmap bool) (catalog.IndexDescriptor, bool) {
	j := b.Expr.Op.(operator.EqJoin)
	gt := b.Children[1].Expr.Op.(operator.GetTable)
	indexes, err := ss.Catalog.IndexesOf(gt.Table)
	if err != nil {
		return catalog.IndexDescriptor{}, false
	}
	for _, idx := range indexes {
		if (idx.Type == "bitmap") != bitmap {
			continue
		}
		if len(idx.SortKey) == 0 {
			continue
		}
		for _, k := range j.Keys {
			if operator.ColumnID(idx.SortKey[0]) == k.Right {
				return idx, true
			}
		}
	}
	return catalog.IndexDescriptor{}, false
}

// implementSelectEqJoinGJoin collapses a residual predicate left over an
// equi-join into a single generic join, the only way a GJoin can ever be
// produced: the algebra has no dedicated non-equi-join logical operator,
// so this is the one shape in which EqJoin's "Residual" case arises.
func implementSelectEqJoinGJoin() *Rule {
	return &Rule{
		Name:    "SelectEqJoinToGJoin",
		Kind:    KindImplementation,
		Trigger: operator.TypeSelect,
		Pattern: Pattern{Op: operator.TypeSelect, Children: []Pattern{
			{Op: operator.TypeEqJoin, Children: []Pattern{Any(), Any()}},
		}},
		Promise: func(b *Binding, ss *memo.SearchSpace) float64 { return 1 },
		Substitute: func(b *Binding, ss *memo.SearchSpace) (memo.Tree, bool) {
			s := b.Expr.Op.(operator.Select)
			join := b.Children[0].Expr
			return memo.Tree{
				Op:     operator.GJoin{Predicate: s.Predicate},
				Inputs: []memo.Input{memo.FromGroup(join.Inputs[0]), memo.FromGroup(join.Inputs[1])},
			}, true
		},
	}
}
