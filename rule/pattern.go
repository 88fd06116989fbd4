// Package rule implements the optimizer's rule system (spec.md §4.4):
// patterns over the operator algebra, bindings, and the Rule/Set types the
// task engine drives. Patterns follow the shape TiDB's Cascades planner
// builds them in (reference pack,
// planner/cascades/transformation_rules.go): a root operator type plus a
// list of child patterns, with a reserved wildcard standing in for
// spec.md's Leaf placeholder.
package rule

import (
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
)

// Pattern is a tree of operator-type placeholders (spec.md §4.4: "a tree
// of operator-type placeholders with Leaf at the positions where any
// group is acceptable").
type Pattern struct {
	Op       operator.Type
	Children []Pattern
}

// Any is the Leaf wildcard: matches any group without inspecting its
// members' operator type.
func Any() Pattern { return Pattern{Op: operator.TypeLeaf} }

// Binding maps a matched pattern onto a specific multi-expression tree
// (spec.md §4.4: "A binding maps each leaf position to a specific
// child-group and, for branch positions, an operator-type-matching child
// multi-expression"). At Leaf positions the child *Binding itself is nil —
// only the surrounding multi-expression's group-reference is meaningful
// there.
type Binding struct {
	Expr     *memo.MultiExpression
	Children []*Binding
}

// Bindings enumerates every binding of pat's children against expr (expr
// itself is assumed to already match pat's root operator type — callers
// select candidate expressions via Set.MatchingRules before calling this).
func Bindings(pat Pattern, expr *memo.MultiExpression, ss *memo.SearchSpace) []*Binding {
	combos := bindChildren(pat.Children, expr, ss)
	out := make([]*Binding, len(combos))
	for i, c := range combos {
		out[i] = &Binding{Expr: expr, Children: c}
	}
	return out
}

func bindChildren(childPats []Pattern, expr *memo.MultiExpression, ss *memo.SearchSpace) [][]*Binding {
	results := [][]*Binding{{}}
	for i, cp := range childPats {
		if i >= len(expr.Inputs) {
			return nil
		}
		choices := enumerate(cp, expr.Inputs[i], ss)
		if len(choices) == 0 {
			return nil
		}
		var next [][]*Binding
		for _, partial := range results {
			for _, choice := range choices {
				combo := make([]*Binding, len(partial)+1)
				copy(combo, partial)
				combo[len(partial)] = choice
				next = append(next, combo)
			}
		}
		results = next
	}
	return results
}

// enumerate returns, for pattern pat matched against group, one *Binding
// per matching logical multi-expression in that group (or a single nil
// "whole group" binding when pat is the Leaf wildcard).
func enumerate(pat Pattern, group memo.GroupID, ss *memo.SearchSpace) []*Binding {
	if pat.Op == operator.TypeLeaf {
		return []*Binding{nil}
	}
	g := ss.Group(group)
	var out []*Binding
	for me := g.Logical(); me != nil; me = me.Next() {
		if me.Op.Type() != pat.Op {
			continue
		}
		for _, combo := range bindChildren(pat.Children, me, ss) {
			out = append(out, &Binding{Expr: me, Children: combo})
		}
	}
	return out
}
