package memo

import (
	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/cerr"
	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/props"
)

// Config is the subset of optimizer.Settings the search space itself
// needs at group-initialization time (spec.md §4.2's "fetching cost ...
// added to the lower bound when column-unique-cardinality pruning is
// enabled"). The optimizer package's larger Settings struct is built on
// top of this one rather than the reverse, so memo never imports
// optimizer.
type Config struct {
	ColumnUCPruning bool
}

// SearchSpace is the collection of groups plus the structural hash index
// used for duplicate/equivalent multi-expression lookup and group merging
// (spec.md §4.3 "Search space").
type SearchSpace struct {
	Catalog catalog.Catalog
	Cost    cost.Model
	Config  Config

	groups []*Group // 1-based; groups[0] is always nil
	alias  map[GroupID]GroupID
	index  map[uint64][]*MultiExpression
}

// New builds an empty search space over the given catalog and cost model.
func New(cat catalog.Catalog, model cost.Model, cfg Config) *SearchSpace {
	return &SearchSpace{
		Catalog: cat,
		Cost:    model,
		Config:  cfg,
		groups:  []*Group{nil},
		alias:   make(map[GroupID]GroupID),
		index:   make(map[uint64][]*MultiExpression),
	}
}

// NumGroups reports how many groups have ever been created (merged-away
// groups still count, per spec.md §3's "merging ... does not re-point
// references yet" — the group slot itself is never deallocated).
func (ss *SearchSpace) NumGroups() int { return len(ss.groups) - 1 }

// Group resolves id through any merges and returns the surviving group.
func (ss *SearchSpace) Group(id GroupID) *Group {
	return ss.groups[ss.resolve(id)]
}

func (ss *SearchSpace) resolve(id GroupID) GroupID {
	for {
		s, ok := ss.alias[id]
		if !ok {
			return id
		}
		id = s
	}
}

func (ss *SearchSpace) newGroup() *Group {
	id := GroupID(len(ss.groups))
	g := &Group{ID: id}
	ss.groups = append(ss.groups, g)
	return g
}

// Input is one child of a Tree being inserted: either a pre-bound group
// reference (the spec.md §4.3 step-1 "leaf placeholder" case — used by
// rule substitutes whose child is an existing group) or a sub-expression
// still to be memoized.
type Input struct {
	Group GroupID
	Expr  *Tree
}

// FromGroup wraps an already-memoized group as an Insert child.
func FromGroup(g GroupID) Input { return Input{Group: g} }

// FromExpr wraps a sub-expression as an Insert child, to be recursively
// memoized.
func FromExpr(t Tree) Input { return Input{Expr: &t} }

// Tree is the expression shape Insert consumes: an operator plus ordered
// Inputs (spec.md §4.3 "Insert(expression, optional target-group)").
type Tree struct {
	Op     operator.Operator
	Inputs []Input
}

// Insert memoizes t, returning the new multi-expression (nil if t was a
// duplicate of one already present) and the group it now belongs to
// (spec.md §4.3). target, if not InvalidGroupID, pins the result to a
// specific group (used when a rule's substitute must land back in its
// source group).
//
// Duplicate and equivalent detection are unified into a single
// canonicalized-hash lookup: for a non-commuting operator the two
// coincide (order always matters, so "equivalent" finds nothing beyond
// "duplicate"); for a commuting operator the hash index already stores
// the order-canonicalized key, so a single lookup serves both roles. This
// is a deliberate simplification of spec.md §4.3's two-step description,
// recorded in DESIGN.md.
func (ss *SearchSpace) Insert(t Tree, target GroupID) (*MultiExpression, GroupID, error) {
	if target != InvalidGroupID {
		target = ss.resolve(target)
	}

	childGroups := make([]GroupID, len(t.Inputs))
	for i, in := range t.Inputs {
		if in.Expr == nil {
			childGroups[i] = ss.resolve(in.Group)
			continue
		}
		_, g, err := ss.Insert(*in.Expr, InvalidGroupID)
		if err != nil {
			return nil, InvalidGroupID, err
		}
		childGroups[i] = g
	}

	if t.Op.Arity() >= 0 && t.Op.Arity() != len(childGroups) {
		return nil, InvalidGroupID, cerr.ErrArityMismatch.New(t.Op, t.Op.Arity(), len(childGroups))
	}

	cand := &MultiExpression{Op: t.Op, Inputs: childGroups}

	if !operator.IsLogical(t.Op) {
		if target == InvalidGroupID {
			target = ss.newGroup().ID
		}
		if containsGroup(childGroups, target) {
			return nil, InvalidGroupID, cerr.ErrRecursiveGroup.New(target)
		}
		g := ss.groups[target]
		g.appendPhysical(cand)
		g.Changed = true
		return cand, target, nil
	}

	ignoreOrder := t.Op.IsCommuting()
	key := hashOf(cand, ignoreOrder)
	if match := ss.lookup(key, cand, ignoreOrder); match != nil {
		if target != InvalidGroupID && target != match.Group {
			merged := ss.merge(target, match.Group)
			return nil, merged, nil
		}
		return nil, match.Group, nil
	}

	if target == InvalidGroupID {
		target = ss.newGroup().ID
	}
	if containsGroup(childGroups, target) {
		return nil, InvalidGroupID, cerr.ErrRecursiveGroup.New(target)
	}
	g := ss.groups[target]
	firstInGroup := g.logicalHead == nil && g.physicalHead == nil
	g.appendLogical(cand)
	ss.index[key] = append(ss.index[key], cand)

	if firstInGroup {
		childProps := make([]props.Logical, len(childGroups))
		childSchemas := make([]operator.Schema, len(childGroups))
		for i, cg := range childGroups {
			cgp := ss.groups[ss.resolve(cg)].Props
			childProps[i] = cgp
			childSchemas[i] = cgp.Schema
		}
		var baseSchema operator.Schema
		if gt, ok := t.Op.(operator.GetTable); ok {
			if td, err := ss.Catalog.LookupTable(gt.Name); err == nil {
				baseSchema = schemaFrom(td)
			}
		}
		schema := props.DeriveSchema(t.Op, childSchemas, baseSchema)
		l := props.DeriveLogical(ss.Catalog, t.Op, schema, childProps)
		g.initProps(l, ss.Config.ColumnUCPruning, func(lp props.Logical) cost.Cost {
			return cost.Fetching(ss.Catalog, lp)
		})
	}

	return cand, target, nil
}

func containsGroup(ids []GroupID, target GroupID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

func schemaFrom(td catalog.TableDescriptor) operator.Schema {
	out := make(operator.Schema, len(td.Schema))
	for i, c := range td.Schema {
		out[i] = operator.Column{ID: operator.ColumnID(c.ID), Name: c.Name, Type: c.Type}
	}
	return out
}

func (ss *SearchSpace) lookup(key uint64, cand *MultiExpression, ignoreOrder bool) *MultiExpression {
	for _, me := range ss.index[key] {
		if equalsCore(me, cand, ignoreOrder) {
			return me
		}
	}
	return nil
}

// merge combines groups a and b, keeping the lower-numbered group as
// survivor (spec.md §3: "Merging two groups picks the lower-ID group as
// survivor"). Per the open question in spec.md §9 (see DESIGN.md decision
// 1), existing multi-expressions elsewhere in the search space that
// reference the merged-away group by id are *not* rewritten; instead the
// merged-away id is aliased to the survivor so every future Group/resolve
// lookup still reaches the combined content.
//
// TODO: a future pass could replace this alias-table approach with proper
// union-find plus a rewrite of existing Inputs slices, eliminating the
// indirection on every Group() call.
func (ss *SearchSpace) merge(a, b GroupID) GroupID {
	a, b = ss.resolve(a), ss.resolve(b)
	if a == b {
		return a
	}
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	survivor, dying := ss.groups[lo], ss.groups[hi]

	traceLog.WithFields(logrusFields(lo, hi)).Debug("merging groups")

	for me := dying.logicalHead; me != nil; {
		next := me.next
		me.next = nil
		survivor.appendLogical(me)
		me = next
	}
	for me := dying.physicalHead; me != nil; {
		next := me.next
		me.next = nil
		survivor.appendPhysical(me)
		me = next
	}
	for _, w := range dying.Winners {
		survivor.SetWinner(w)
	}
	survivor.Changed = true

	ss.alias[hi] = lo
	return lo
}

func logrusFields(lo, hi GroupID) map[string]interface{} {
	return map[string]interface{}{"survivor": lo, "merged": hi}
}
