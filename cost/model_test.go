package cost_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/props"
)

func TestCostArithmetic(t *testing.T) {
	a := cost.Cost{IO: 1, CPU: 2}
	b := cost.Cost{IO: 0.5, CPU: 0.5}

	require.Equal(t, cost.Cost{IO: 1.5, CPU: 2.5}, a.Add(b))
	require.Equal(t, cost.Cost{IO: 0.5, CPU: 1.5}, a.Sub(b))
	require.True(t, b.Less(a))
	require.False(t, a.Less(b))

	require.True(t, cost.Infinite.Add(a).IsInfinite())
	require.True(t, a.Sub(cost.Infinite).Equals(cost.Zero))
}

func TestCostSubClampsAtZero(t *testing.T) {
	a := cost.Cost{IO: 1, CPU: 1}
	b := cost.Cost{IO: 5, CPU: 5}
	require.Equal(t, cost.Zero, a.Sub(b))
}

func TestInfiniteComparisonPanics(t *testing.T) {
	require.Panics(t, func() { cost.Infinite.Less(cost.Infinite) })
	require.Panics(t, func() { cost.Infinite.Sub(cost.Infinite) })
}

func TestLocalCostFileScan(t *testing.T) {
	model := cost.Default{}
	local := props.Logical{Cardinality: 1000, TableStatistics: catalog.TableStatistics{Cardinality: 1000, PageCount: 1}}
	c := model.LocalCost(operator.FileScan{Name: "t"}, local, nil)
	require.InDelta(t, cost.SequentialIOCost, c.IO, 1e-9)
	require.Greater(t, c.CPU, 0.0)
}

func TestLocalCostHashJoinScalesWithBothInputs(t *testing.T) {
	model := cost.Default{}
	left := props.Logical{Cardinality: 100}
	right := props.Logical{Cardinality: 200}
	c := model.LocalCost(operator.HashJoin{}, props.Logical{}, []props.Logical{left, right})
	require.InDelta(t, 200*cost.HashCost+100*cost.HashProbeCost, c.CPU, 1e-9)
}
