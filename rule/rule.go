package rule

import (
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
)

// Kind distinguishes transformation rules (logical substitutes, may
// create new groups) from implementation rules (physical substitutes, in
// the same group) — spec.md §4.4.
type Kind uint8

const (
	KindTransformation Kind = iota
	KindImplementation
)

func (k Kind) String() string {
	if k == KindImplementation {
		return "implementation"
	}
	return "transformation"
}

// PromiseFunc returns a rule's expected utility for a given binding;
// non-positive means skip (spec.md glossary "Promise").
type PromiseFunc func(b *Binding, ss *memo.SearchSpace) float64

// SubstituteFunc builds the replacement expression tree for a binding.
// ok is false when the binding turns out, on closer inspection, not to
// be applicable (e.g. no index satisfies an IdxFilter rule) — a softer
// variant of a non-positive promise, checked right before insertion.
type SubstituteFunc func(b *Binding, ss *memo.SearchSpace) (tree memo.Tree, ok bool)

// Rule is {pattern, substitute, promise, kind, stable index} (spec.md
// §4.4). Index is assigned by Set and feeds the per-multi-expression fire
// bit-mask (memo.MultiExpression.CanFire/MarkFired).
type Rule struct {
	Name       string
	Kind       Kind
	Trigger    operator.Type
	Pattern    Pattern
	Promise    PromiseFunc
	Substitute SubstituteFunc

	Index int
}

// Set is the rule manager: a numbered collection of rules indexed by the
// operator type they trigger on (spec.md §4.4: "owns a numbered set of
// rules; indices feed the per-multi-expression fire bit-mask").
type Set struct {
	rules   []*Rule
	byOp    map[operator.Type][]*Rule
}

// NewSet builds a Set from rules in the given order, assigning each a
// stable Index equal to its position.
func NewSet(rules ...*Rule) *Set {
	s := &Set{byOp: make(map[operator.Type][]*Rule)}
	for i, r := range rules {
		r.Index = i
		s.rules = append(s.rules, r)
		s.byOp[r.Trigger] = append(s.byOp[r.Trigger], r)
	}
	return s
}

// Len returns the number of registered rules. NewSet does not cap it; the
// MultiExpression fire bit-mask tracks only rules with Index below 64.
func (s *Set) Len() int { return len(s.rules) }

// MatchingRules returns the rules that trigger on opType, in stable
// registration order, respecting explore_only (implementation rules are
// skipped during exploration — spec.md §4.5 ExploreGroup).
func (s *Set) MatchingRules(opType operator.Type, exploreOnly bool) []*Rule {
	var out []*Rule
	for _, r := range s.byOp[opType] {
		if exploreOnly && r.Kind == KindImplementation {
			continue
		}
		out = append(out, r)
	}
	return out
}
