// Package xplan implements Extract (spec.md §4.3): walking a completed
// search space from a root group down through winners to produce either a
// bare Expression or, when explain is requested, an ExplainedExpression
// carrying cost/cardinality/width at every node.
//
// Grounded on the teacher fork's buildBestJoinPlan recursive-DFS-over-
// winners shape (sql/memo/memo.go, aperturerobotics-go-mysql-server fork
// in the reference pack).
package xplan

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/tnusser/cascadeopt/cerr"
	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/props"
)

// Expression is the bare extracted plan: an operator plus its extracted
// children.
type Expression struct {
	Op       operator.Operator
	Children []*Expression
}

// ExplainedExpression additionally carries the per-node diagnostics
// spec.md §4.3 names: cost, cardinality, unique cardinality and width.
type ExplainedExpression struct {
	Op       operator.Operator
	Children []*ExplainedExpression

	Cost              cost.Cost
	Cardinality       float64
	UniqueCardinality float64
	Width             int
}

// Stats is the diagnostic counter bundle ExtractWithStats returns
// alongside the plan, for an EXPLAIN ANALYZE style report.
type Stats struct {
	Groups     int
	Winners    int
	RulesFired int
}

// Extract walks ss from root under required, returning the bare physical
// plan. It panics (via cerr.Raise) if the root has no ready winner for
// required — spec.md §4.3: "Failure to find a ready winner is fatal."
func Extract(ss *memo.SearchSpace, root memo.GroupID, required props.Physical) *Expression {
	return extract(ss, root, required)
}

// ExtractWithStats is Extract plus the group/winner/rules-fired counters
// spec.md §6 calls out (spec.md §5.6 supplement).
func ExtractWithStats(ss *memo.SearchSpace, root memo.GroupID, required props.Physical, rulesFired int) (*Expression, Stats) {
	expr := Extract(ss, root, required)
	return expr, Stats{
		Groups:     ss.NumGroups(),
		Winners:    countWinners(ss),
		RulesFired: rulesFired,
	}
}

// Explain is Extract's annotated counterpart, producing an
// ExplainedExpression with cost/cardinality/width at every node.
func Explain(ss *memo.SearchSpace, root memo.GroupID, required props.Physical) *ExplainedExpression {
	return explain(ss, root, required)
}

func extract(ss *memo.SearchSpace, group memo.GroupID, required props.Physical) *Expression {
	g := ss.Group(group)
	w, ok := g.FindWinner(required)
	if !ok || !w.Ready || w.Plan == nil {
		cerr.Raise(cerr.ErrNoReadyWinner.New(group, required))
	}

	children := make([]*Expression, len(w.Plan.Inputs))
	for i, childGroup := range w.Plan.Inputs {
		feasible, childRequired := props.SatisfyRequired(w.Plan.Op, required, i)
		if !feasible {
			cerr.Raise(cerr.ErrNoReadyWinner.New(group, required))
		}
		children[i] = extract(ss, childGroup, childRequired)
	}
	return &Expression{Op: w.Plan.Op, Children: children}
}

func explain(ss *memo.SearchSpace, group memo.GroupID, required props.Physical) *ExplainedExpression {
	g := ss.Group(group)
	w, ok := g.FindWinner(required)
	if !ok || !w.Ready || w.Plan == nil {
		cerr.Raise(cerr.ErrNoReadyWinner.New(group, required))
	}

	children := make([]*ExplainedExpression, len(w.Plan.Inputs))
	for i, childGroup := range w.Plan.Inputs {
		feasible, childRequired := props.SatisfyRequired(w.Plan.Op, required, i)
		if !feasible {
			cerr.Raise(cerr.ErrNoReadyWinner.New(group, required))
		}
		children[i] = explain(ss, childGroup, childRequired)
	}

	width := 0
	for _, c := range g.Props.Schema {
		width += typeWidth(c.Type)
	}

	return &ExplainedExpression{
		Op:                w.Plan.Op,
		Children:          children,
		Cost:              w.Cost,
		Cardinality:       g.Props.Cardinality,
		UniqueCardinality: g.Props.UniqueCardinality,
		Width:             width,
	}
}

// typeWidth is a fixed-size estimate per column type, used only for the
// explain tree's width diagnostic — the catalog's own per-column
// SizeBytes (used by cost.Fetching) is the authoritative figure for cost
// purposes.
func typeWidth(typ string) int {
	switch typ {
	case "int", "integer", "number":
		return 8
	case "bool", "boolean":
		return 1
	default:
		return 16
	}
}

func countWinners(ss *memo.SearchSpace) int {
	n := 0
	for i := 1; i <= ss.NumGroups(); i++ {
		n += len(ss.Group(memo.GroupID(i)).Winners)
	}
	return n
}

// String renders an ExplainedExpression as an indented EXPLAIN-style
// tree, formatting its diagnostic fields via cast so callers never need a
// type switch over the metadata values.
func (e *ExplainedExpression) String() string {
	return e.render(0)
}

func (e *ExplainedExpression) render(depth int) string {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	line := fmt.Sprintf("%s%s  cost=%s card=%s uc=%s width=%s\n",
		indent, e.Op,
		cast.ToString(e.Cost.Total()),
		cast.ToString(e.Cardinality),
		cast.ToString(e.UniqueCardinality),
		cast.ToString(e.Width),
	)
	for _, c := range e.Children {
		line += c.render(depth + 1)
	}
	return line
}
