package memo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/props"
)

func testCatalog() *catalog.Memory {
	cat := catalog.NewMemory(8192)
	cat.AddTable(catalog.TableDescriptor{
		ID:   1,
		Name: "r",
		Schema: []catalog.ColumnDescriptor{
			{ID: 1, Name: "x", Type: "int", SizeBytes: 8},
		},
		Statistics: catalog.TableStatistics{Cardinality: 100, PageCount: 1},
	})
	cat.AddTable(catalog.TableDescriptor{
		ID:   2,
		Name: "s",
		Schema: []catalog.ColumnDescriptor{
			{ID: 1, Name: "x", Type: "int", SizeBytes: 8},
		},
		Statistics: catalog.TableStatistics{Cardinality: 100, PageCount: 1},
	})
	return cat
}

func newSearchSpace() *memo.SearchSpace {
	return memo.New(testCatalog(), cost.Default{Catalog: testCatalog()}, memo.Config{})
}

func trivialTree() memo.Tree {
	return memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}
}

func TestInsertDuplicateReturnsNilAndDoesNotGrowGroup(t *testing.T) {
	ss := newSearchSpace()

	tree := memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}
	me1, g1, err := ss.Insert(tree, memo.InvalidGroupID)
	require.NoError(t, err)
	require.NotNil(t, me1)

	me2, g2, err := ss.Insert(tree, memo.InvalidGroupID)
	require.NoError(t, err)
	require.Nil(t, me2)
	require.Equal(t, g1, g2)

	count := 0
	for m := ss.Group(g1).Logical(); m != nil; m = m.Next() {
		count++
	}
	require.Equal(t, 1, count)
}

func TestEqJoinCommutativityCanonicalizesToSameGroup(t *testing.T) {
	ss := newSearchSpace()

	_, rGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}, memo.InvalidGroupID)
	require.NoError(t, err)
	_, sGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 2, Name: "s"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	keys := []operator.KeyPair{{Left: 1, Right: 1}}
	_, joinGroup, err := ss.Insert(memo.Tree{
		Op:     operator.EqJoin{Keys: keys},
		Inputs: []memo.Input{memo.FromGroup(rGroup), memo.FromGroup(sGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	swapped := operator.EqJoin{Keys: keys}.Swapped()
	me, swappedGroup, err := ss.Insert(memo.Tree{
		Op:     swapped,
		Inputs: []memo.Input{memo.FromGroup(sGroup), memo.FromGroup(rGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)
	require.Nil(t, me, "swapped EqJoin should be recognized as a duplicate under commutativity")
	require.Equal(t, joinGroup, swappedGroup)
}

func TestInsertRecursiveGroupIsRejected(t *testing.T) {
	ss := newSearchSpace()
	_, g, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	_, _, err = ss.Insert(memo.Tree{
		Op:     operator.Filter{},
		Inputs: []memo.Input{memo.FromGroup(g)},
	}, g)
	require.Error(t, err)
}

func TestGroupMergeUnionsWinnersAndAliases(t *testing.T) {
	ss := newSearchSpace()

	_, gr, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	_, gs, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 2, Name: "s"}}, memo.InvalidGroupID)
	require.NoError(t, err)
	ss.Group(gs).SetWinner(memo.Winner{Required: props.Any(), Cost: cost.Cost{IO: 1}, Ready: true})

	// Pinning a structural duplicate of r's multi-expression onto gs's
	// group forces a merge: the hash lookup finds the existing match in
	// gr, which differs from the explicitly requested target gs.
	me, merged, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}, gs)
	require.NoError(t, err)
	require.Nil(t, me)

	require.Equal(t, ss.Group(gr), ss.Group(gs), "both ids must resolve to the same surviving group")
	require.Equal(t, ss.Group(merged), ss.Group(gr))

	_, ok := ss.Group(gs).FindWinner(props.Any())
	require.True(t, ok, "merge must carry the dying group's winners onto the survivor")
}
