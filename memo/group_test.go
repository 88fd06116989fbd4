package memo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/props"
)

func TestSetWinnerOnlyReplacesOnStrictlyCheaperCost(t *testing.T) {
	g := &memo.Group{ID: 1}

	ok := g.SetWinner(memo.Winner{Required: props.Any(), Cost: cost.Cost{IO: 10}, Ready: true})
	require.True(t, ok)

	// Equal cost must not replace.
	ok = g.SetWinner(memo.Winner{Required: props.Any(), Cost: cost.Cost{IO: 10}, Ready: true})
	require.False(t, ok)

	// Strictly cheaper must replace.
	ok = g.SetWinner(memo.Winner{Required: props.Any(), Cost: cost.Cost{IO: 5}, Ready: true})
	require.True(t, ok)

	w, found := g.FindWinner(props.Any())
	require.True(t, found)
	require.Equal(t, cost.Cost{IO: 5}, w.Cost)

	// More expensive must not replace.
	ok = g.SetWinner(memo.Winner{Required: props.Any(), Cost: cost.Cost{IO: 8}, Ready: true})
	require.False(t, ok)
	w, _ = g.FindWinner(props.Any())
	require.Equal(t, cost.Cost{IO: 5}, w.Cost)
}

func TestGroupInitPropsFromGetTableSeedHasZeroLowerBound(t *testing.T) {
	ss := newSearchSpace()
	_, g, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	group := ss.Group(g)
	require.True(t, group.Props.IsBaseTable)
	require.Equal(t, cost.Zero, group.LowerBound)
}

func TestGroupInitPropsFromNonBaseTableSeedHasPositiveLowerBound(t *testing.T) {
	ss := newSearchSpace()
	_, tGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	pred := operator.NewCompare(operator.CompareEq, operator.NewGetColumn(1), operator.NewConstant(1))
	_, selGroup, err := ss.Insert(memo.Tree{
		Op:     operator.Select{Predicate: pred},
		Inputs: []memo.Input{memo.FromGroup(tGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	group := ss.Group(selGroup)
	require.False(t, group.Props.IsBaseTable)
	require.Greater(t, group.LowerBound.Total(), 0.0)
}

func TestGroupEstimatedSizeIsZeroBelowTwoBaseTables(t *testing.T) {
	ss := newSearchSpace()
	_, tGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}, memo.InvalidGroupID)
	require.NoError(t, err)
	require.Equal(t, float64(0), ss.Group(tGroup).EstimatedSize)
}

func TestGroupEstimatedSizeScalesWithBaseTableCount(t *testing.T) {
	ss := newSearchSpace()
	_, rGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}, memo.InvalidGroupID)
	require.NoError(t, err)
	_, sGroup, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 2, Name: "s"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	_, joinGroup, err := ss.Insert(memo.Tree{
		Op:     operator.EqJoin{Keys: []operator.KeyPair{{Left: 1, Right: 1}}},
		Inputs: []memo.Input{memo.FromGroup(rGroup), memo.FromGroup(sGroup)},
	}, memo.InvalidGroupID)
	require.NoError(t, err)

	require.Equal(t, 10.0, ss.Group(joinGroup).EstimatedSize) // 2^2 * 2.5
}
