package memo

import (
	"math"

	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/props"
)

// Winner is the best plan found so far for a (group, required physical
// properties) search context (spec.md glossary "Winner"). A ready winner
// with Plan == nil is a negative cache entry: the group cannot satisfy
// Required within the cost bound it was searched under (spec.md §3:
// "A ready winner with plan=null is a negative cache entry").
type Winner struct {
	Plan     *MultiExpression
	Required props.Physical
	Cost     cost.Cost
	Ready    bool

	// Produced is what Plan actually produces, computed by
	// props.DerivePhysical from its children's own Produced values when
	// Plan was costed. It is what a parent plan reads back when this
	// group becomes one of its children, so a required physical property
	// can be checked against what was actually built rather than assumed.
	Produced props.Physical
}

// Group is an equivalence class of logically equivalent multi-expressions
// (spec.md §3 "Group").
type Group struct {
	ID GroupID

	logicalHead  *MultiExpression
	logicalTail  *MultiExpression
	physicalHead *MultiExpression
	physicalTail *MultiExpression

	Props props.Logical

	// EstimatedSize is 2^(#base tables) * 2.5 for join groups, else 0
	// (spec.md §3), used by the task engine to reorder join enumeration.
	EstimatedSize float64

	// LowerBound is the group's lower cost bound: touch-copy cost of Props,
	// plus fetching cost when column-unique-cardinality pruning is on
	// (spec.md §4.2); zero for the GetTable seed.
	LowerBound cost.Cost

	Winners []Winner

	Optimized bool
	Explored  bool
	Exploring bool
	Changed   bool
}

// Logical iterates the group's logical (including element/constant)
// multi-expressions in insertion order.
func (g *Group) Logical() *MultiExpression { return g.logicalHead }

// Physical iterates the group's physical multi-expressions in insertion
// order.
func (g *Group) Physical() *MultiExpression { return g.physicalHead }

func (g *Group) appendLogical(me *MultiExpression) {
	me.Group = g.ID
	if g.logicalHead == nil {
		g.logicalHead = me
		g.logicalTail = me
		return
	}
	g.logicalTail.next = me
	g.logicalTail = me
}

func (g *Group) appendPhysical(me *MultiExpression) {
	me.Group = g.ID
	if g.physicalHead == nil {
		g.physicalHead = me
		g.physicalTail = me
		return
	}
	g.physicalTail.next = me
	g.physicalTail = me
}

// initProps initializes the group's shared LogicalProperties,
// EstimatedSize and LowerBound from its seed multi-expression — the first
// logical multi-expression ever inserted (spec.md §3: "the first logical
// multi-expression is the seed used for property initialization").
func (g *Group) initProps(l props.Logical, columnUCPruning bool, fetch func(props.Logical) cost.Cost) {
	g.Props = l

	if l.IsBaseTable {
		g.LowerBound = cost.Zero
	} else {
		g.LowerBound = cost.TouchCopy(l)
		if columnUCPruning && fetch != nil {
			g.LowerBound = g.LowerBound.Add(fetch(l))
		}
	}

	if n := len(l.BaseTableMaxUC); n >= 2 {
		g.EstimatedSize = math.Pow(2, float64(n)) * 2.5
	}
}

// FindWinner returns the winner recorded for required, if any, by strict
// (non-wildcard) equality on the required properties — invariant 4's
// cache key.
func (g *Group) FindWinner(required props.Physical) (*Winner, bool) {
	for i := range g.Winners {
		if g.Winners[i].Required.StrictEquals(required) {
			return &g.Winners[i], true
		}
	}
	return nil, false
}

// SetWinner installs w as the winner for w.Required, replacing any
// existing entry only if w is strictly cheaper (spec.md §3 invariant 5;
// §8 "winner monotonicity": "replacing a winner ... strictly decreases
// cost"). It returns false (and leaves the cache untouched) when an
// existing, cheaper-or-equal entry for the same key already exists.
func (g *Group) SetWinner(w Winner) bool {
	for i := range g.Winners {
		if g.Winners[i].Required.StrictEquals(w.Required) {
			if !w.Cost.Less(g.Winners[i].Cost) {
				return false
			}
			g.Winners[i] = w
			g.Changed = true
			return true
		}
	}
	g.Winners = append(g.Winners, w)
	g.Changed = true
	return true
}
