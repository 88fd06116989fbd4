package xplan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/props"
	"github.com/tnusser/cascadeopt/rule"
	"github.com/tnusser/cascadeopt/task"
	"github.com/tnusser/cascadeopt/xplan"
)

func testCatalog() *catalog.Memory {
	cat := catalog.NewMemory(8192)
	cat.AddTable(catalog.TableDescriptor{
		ID:         1,
		Name:       "r",
		Schema:     []catalog.ColumnDescriptor{{ID: 1, Name: "x", Type: "int", SizeBytes: 8}},
		Statistics: catalog.TableStatistics{Cardinality: 1000, PageCount: 10},
	})
	return cat
}

func optimizedScan(t *testing.T) (*memo.SearchSpace, memo.GroupID, int) {
	t.Helper()
	cat := testCatalog()
	ss := memo.New(cat, cost.Default{Catalog: cat}, memo.Config{})

	_, root, err := ss.Insert(memo.Tree{Op: operator.GetTable{Table: 1, Name: "r"}}, memo.InvalidGroupID)
	require.NoError(t, err)

	eng := task.New(ss, rule.Builtin(), task.Settings{GroupPruning: true})
	eng.OptimizeGroup(root, props.Any(), cost.Infinite)
	require.NoError(t, eng.Run())
	return ss, root, eng.RulesFired
}

func TestExtractProducesFileScan(t *testing.T) {
	ss, root, _ := optimizedScan(t)
	expr := xplan.Extract(ss, root, props.Any())
	require.Equal(t, operator.TypeFileScan, expr.Op.Type())
	require.Empty(t, expr.Children)
}

func TestExtractWithStatsReportsGroupsWinnersRulesFired(t *testing.T) {
	ss, root, fired := optimizedScan(t)
	_, stats := xplan.ExtractWithStats(ss, root, props.Any(), fired)
	require.Equal(t, ss.NumGroups(), stats.Groups)
	require.Greater(t, stats.Winners, 0)
	require.Equal(t, fired, stats.RulesFired)
}

func TestExplainAnnotatesCostCardinalityWidth(t *testing.T) {
	ss, root, _ := optimizedScan(t)
	explained := xplan.Explain(ss, root, props.Any())

	require.Equal(t, float64(1000), explained.Cardinality)
	require.Greater(t, explained.Width, 0)
	require.False(t, explained.Cost.IsInfinite())
}

// Explain is a pure read over the search space's winners: calling it
// twice on the same root must produce identical trees.
func TestExplainIsIdempotent(t *testing.T) {
	ss, root, _ := optimizedScan(t)
	first := xplan.Explain(ss, root, props.Any())
	second := xplan.Explain(ss, root, props.Any())
	require.Equal(t, first, second)
}

func TestExplainStringRendersCostLine(t *testing.T) {
	ss, root, _ := optimizedScan(t)
	explained := xplan.Explain(ss, root, props.Any())
	s := explained.String()
	require.Contains(t, s, "cost=")
	require.Contains(t, s, "card=")
}
