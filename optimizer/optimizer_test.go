package optimizer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/optimizer"
)

func testCatalog() *catalog.Memory {
	cat := catalog.NewMemory(8192)
	cat.AddTable(catalog.TableDescriptor{
		ID:         1,
		Name:       "r",
		Schema:     []catalog.ColumnDescriptor{{ID: 1, Name: "x", Type: "int", SizeBytes: 8}},
		Statistics: catalog.TableStatistics{Cardinality: 1000, PageCount: 10},
		Indexes:    []catalog.IndexDescriptor{{Name: "idx_x", SortKey: []catalog.ColumnID{1}}},
	})
	return cat
}

func newOptimizer(cat *catalog.Memory) *optimizer.Optimizer {
	return optimizer.New(cat, cost.Default{Catalog: cat}, optimizer.Settings{
		GroupPruning:    true,
		ColumnUCPruning: true,
	})
}

func TestOptimizeProducesFileScanForBareTableScan(t *testing.T) {
	cat := testCatalog()
	opt := newOptimizer(cat)

	tree := memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}
	expr, err := opt.Optimize(context.Background(), tree)
	require.NoError(t, err)
	require.Equal(t, operator.TypeFileScan, expr.Op.Type())
}

func TestExplainPreservesSchemaCardinality(t *testing.T) {
	cat := testCatalog()
	opt := newOptimizer(cat)

	tree := memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}
	explained, err := opt.Explain(context.Background(), tree)
	require.NoError(t, err)
	require.Equal(t, float64(1000), explained.Cardinality)
}

func TestOptimizeDefaultsToBuiltinRuleSetWhenNilProvided(t *testing.T) {
	cat := testCatalog()
	opt := optimizer.New(cat, cost.Default{Catalog: cat}, optimizer.Settings{})
	require.NotNil(t, opt.Settings.Rules)

	pred := operator.NewCompare(operator.CompareEq, operator.NewGetColumn(1), operator.NewConstant(3))
	tree := memo.Tree{
		Op: operator.Select{Predicate: pred},
		Inputs: []memo.Input{
			memo.FromExpr(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}),
		},
	}
	expr, err := opt.Optimize(context.Background(), tree)
	require.NoError(t, err)
	require.Equal(t, operator.TypeIdxFilter, expr.Op.Type())
}
