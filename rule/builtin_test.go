package rule_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/rule"
)

func testCatalog() *catalog.Memory {
	cat := catalog.NewMemory(8192)
	cat.AddTable(catalog.TableDescriptor{
		ID:   1,
		Name: "t",
		Schema: []catalog.ColumnDescriptor{
			{ID: 1, Name: "a", Type: "int", SizeBytes: 8},
		},
		Statistics: catalog.TableStatistics{Cardinality: 1000, PageCount: 1},
		Indexes:    []catalog.IndexDescriptor{{Name: "idx_a", SortKey: []catalog.ColumnID{1}}},
	})
	return cat
}

func newSearchSpace() *memo.SearchSpace {
	cat := testCatalog()
	return memo.New(cat, cost.Default{Catalog: cat}, memo.Config{})
}

func TestMergeAdjacentSelectsFoldsIntoOnePredicate(t *testing.T) {
	ss := newSearchSpace()
	_, tGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "t"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	pred1 := operator.NewCompare(operator.CompareEq, operator.NewGetColumn(1), operator.NewConstant(1))
	pred2 := operator.NewCompare(operator.CompareEq, operator.NewGetColumn(1), operator.NewConstant(2))

	_, innerGroup, err := ss.Insert(memo.Tree{
		Op:     operator.Select{Predicate: pred1},
		Inputs: []memo.Input{memo.FromGroup(tGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	outerExpr, _, err := ss.Insert(memo.Tree{
		Op:     operator.Select{Predicate: pred2},
		Inputs: []memo.Input{memo.FromGroup(innerGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	r := mergeAdjacentSelectsRule(t)
	bindings := rule.Bindings(r.Pattern, outerExpr, ss)
	require.Len(t, bindings, 1)

	tree, ok := r.Substitute(bindings[0], ss)
	require.True(t, ok)
	sel := tree.Op.(operator.Select)
	require.Contains(t, sel.Predicate.String(), "AND")
	require.Equal(t, 1, len(tree.Inputs))
}

func TestImplementSelectIdxFilterPrefersIndexWhenPresent(t *testing.T) {
	ss := newSearchSpace()
	_, tGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "t"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	pred := operator.NewCompare(operator.CompareEq, operator.NewGetColumn(1), operator.NewConstant(5))
	selExpr, _, err := ss.Insert(memo.Tree{
		Op:     operator.Select{Predicate: pred},
		Inputs: []memo.Input{memo.FromGroup(tGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	set := rule.Builtin()
	var idxRule *rule.Rule
	for _, r := range set.MatchingRules(operator.TypeSelect, false) {
		if r.Name == "SelectToIdxFilter" {
			idxRule = r
		}
	}
	require.NotNil(t, idxRule)

	bindings := rule.Bindings(idxRule.Pattern, selExpr, ss)
	require.Len(t, bindings, 1)
	require.Greater(t, idxRule.Promise(bindings[0], ss), 0.0)

	tree, ok := idxRule.Substitute(bindings[0], ss)
	require.True(t, ok)
	idx := tree.Op.(operator.IdxFilter)
	require.Equal(t, "idx_a", idx.Index)
	require.Equal(t, []operator.SortKeyEntry{{Column: 1}}, idx.SortKey)
}

func TestImplementEqJoinIdxNLJoinFiresOnIndexedJoinColumn(t *testing.T) {
	ss := newSearchSpace()
	_, lGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 2, Name: "s"}}, memo.InvalidGroupID)
	require.NoError(t, err)
	_, rGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "t"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	joinExpr, _, err := ss.Insert(memo.Tree{
		Op:     operator.EqJoin{Keys: []operator.KeyPair{{Left: 1, Right: 1}}},
		Inputs: []memo.Input{memo.FromGroup(lGroup), memo.FromGroup(rGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	set := rule.Builtin()
	var idxJoinRule *rule.Rule
	for _, r := range set.MatchingRules(operator.TypeEqJoin, false) {
		if r.Name == "EqJoinToIdxNLJoin" {
			idxJoinRule = r
		}
	}
	require.NotNil(t, idxJoinRule)

	bindings := rule.Bindings(idxJoinRule.Pattern, joinExpr, ss)
	require.Len(t, bindings, 1)
	require.Greater(t, idxJoinRule.Promise(bindings[0], ss), 0.0)

	tree, ok := idxJoinRule.Substitute(bindings[0], ss)
	require.True(t, ok)
	inj := tree.Op.(operator.IdxNLJoin)
	require.Equal(t, "idx_a", inj.Index)
}

func TestImplementEqJoinHybridHashJoinAlwaysFires(t *testing.T) {
	ss := newSearchSpace()
	_, lGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 2, Name: "s"}}, memo.InvalidGroupID)
	require.NoError(t, err)
	_, rGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 3, Name: "u"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	joinExpr, _, err := ss.Insert(memo.Tree{
		Op:     operator.EqJoin{Keys: []operator.KeyPair{{Left: 1, Right: 1}}},
		Inputs: []memo.Input{memo.FromGroup(lGroup), memo.FromGroup(rGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	set := rule.Builtin()
	var hhjRule *rule.Rule
	for _, r := range set.MatchingRules(operator.TypeEqJoin, false) {
		if r.Name == "EqJoinToHybridHashJoin" {
			hhjRule = r
		}
	}
	require.NotNil(t, hhjRule)

	bindings := rule.Bindings(hhjRule.Pattern, joinExpr, ss)
	require.Len(t, bindings, 1)
	tree, ok := hhjRule.Substitute(bindings[0], ss)
	require.True(t, ok)
	require.IsType(t, operator.HybridHashJoin{}, tree.Op)
}

func TestImplementEqJoinBitmapIdxJoinFiresOnBitmapIndex(t *testing.T) {
	cat := catalog.NewMemory(8192)
	cat.AddTable(catalog.TableDescriptor{
		ID:   1,
		Name: "t",
		Schema: []catalog.ColumnDescriptor{
			{ID: 1, Name: "a", Type: "int", SizeBytes: 8},
		},
		Statistics: catalog.TableStatistics{Cardinality: 1000, PageCount: 1},
		Indexes:    []catalog.IndexDescriptor{{Name: "idx_bmp", Type: "bitmap", SortKey: []catalog.ColumnID{1}}},
	})
	ss := memo.New(cat, cost.Default{Catalog: cat}, memo.Config{})

	_, lGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 2, Name: "s"}}, memo.InvalidGroupID)
	require.NoError(t, err)
	_, rGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "t"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	joinExpr, _, err := ss.Insert(memo.Tree{
		Op:     operator.EqJoin{Keys: []operator.KeyPair{{Left: 1, Right: 1}}},
		Inputs: []memo.Input{memo.FromGroup(lGroup), memo.FromGroup(rGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	set := rule.Builtin()
	var bitmapRule *rule.Rule
	for _, r := range set.MatchingRules(operator.TypeEqJoin, false) {
		if r.Name == "EqJoinToBitmapIdxJoin" {
			bitmapRule = r
		}
	}
	require.NotNil(t, bitmapRule)

	bindings := rule.Bindings(bitmapRule.Pattern, joinExpr, ss)
	require.Len(t, bindings, 1)
	require.Greater(t, bitmapRule.Promise(bindings[0], ss), 0.0)

	tree, ok := bitmapRule.Substitute(bindings[0], ss)
	require.True(t, ok)
	bij := tree.Op.(operator.BitmapIdxJoin)
	require.Equal(t, "idx_bmp", bij.Index)
}

func TestImplementSelectEqJoinGJoinCollapsesResidualPredicate(t *testing.T) {
	ss := newSearchSpace()
	_, lGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 2, Name: "s"}}, memo.InvalidGroupID)
	require.NoError(t, err)
	_, rGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "t"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	joinExpr, joinGroup, err := ss.Insert(memo.Tree{
		Op:     operator.EqJoin{Keys: []operator.KeyPair{{Left: 1, Right: 1}}},
		Inputs: []memo.Input{memo.FromGroup(lGroup), memo.FromGroup(rGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)
	_ = joinExpr

	pred := operator.NewCompare(operator.CompareGt, operator.NewGetColumn(2), operator.NewConstant(1))
	selExpr, _, err := ss.Insert(memo.Tree{
		Op:     operator.Select{Predicate: pred},
		Inputs: []memo.Input{memo.FromGroup(joinGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	set := rule.Builtin()
	var gjoinRule *rule.Rule
	for _, r := range set.MatchingRules(operator.TypeSelect, false) {
		if r.Name == "SelectEqJoinToGJoin" {
			gjoinRule = r
		}
	}
	require.NotNil(t, gjoinRule)

	bindings := rule.Bindings(gjoinRule.Pattern, selExpr, ss)
	require.Len(t, bindings, 1)

	tree, ok := gjoinRule.Substitute(bindings[0], ss)
	require.True(t, ok)
	gj := tree.Op.(operator.GJoin)
	require.Contains(t, gj.Predicate.String(), ">")
	require.Len(t, tree.Inputs, 2)
}

func TestImplementProjectTruncateKeepsColumns(t *testing.T) {
	ss := newSearchSpace()
	_, tGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "t"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	projExpr, _, err := ss.Insert(memo.Tree{
		Op:     operator.Project{Columns: []operator.ColumnID{1}},
		Inputs: []memo.Input{memo.FromGroup(tGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	set := rule.Builtin()
	var truncRule *rule.Rule
	for _, r := range set.MatchingRules(operator.TypeProject, false) {
		if r.Name == "ProjectToTruncate" {
			truncRule = r
		}
	}
	require.NotNil(t, truncRule)

	bindings := rule.Bindings(truncRule.Pattern, projExpr, ss)
	require.Len(t, bindings, 1)

	tree, ok := truncRule.Substitute(bindings[0], ss)
	require.True(t, ok)
	trunc := tree.Op.(operator.Truncate)
	require.Equal(t, []operator.ColumnID{1}, trunc.Columns)
}

func mergeAdjacentSelectsRule(t *testing.T) *rule.Rule {
	t.Helper()
	set := rule.Builtin()
	for _, r := range set.MatchingRules(operator.TypeSelect, true) {
		if r.Name == "MergeAdjacentSelects" {
			return r
		}
	}
	t.Fatal("MergeAdjacentSelects rule not registered")
	return nil
}
