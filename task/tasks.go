package task

import (
	"sort"

	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/operator"
	"github.com/tnusser/cascadeopt/props"
	"github.com/tnusser/cascadeopt/rule"
)

// optimizeGroupTask is spec.md §4.5's OptimizeGroup: the entry point for
// goal (group, required, upperBound). It consults the winners cache
// first (already-resolved goals are a no-op), applies group pruning, and
// otherwise schedules exploration followed by implementation.
type optimizeGroupTask struct {
	group      memo.GroupID
	required   props.Physical
	upperBound cost.Cost
}

func (t *optimizeGroupTask) Perform(e *Engine) error {
	g := e.SS.Group(t.group)

	if _, ok := g.FindWinner(t.required); ok {
		return nil
	}

	if e.Settings.GroupPruning && g.LowerBound.Total() > t.upperBound.Total() {
		log.WithField("group", t.group).Trace("group pruned: lower bound exceeds upper bound")
		g.SetWinner(memo.Winner{Required: t.required, Cost: t.upperBound, Ready: true})
		return nil
	}

	// A group asked for Sorted order gets a last-resort enforcer
	// alternative in addition to its natural ones (spec.md §4 scenario 4;
	// glossary "Enforcer"): pushed first/bottommost so explore and
	// implement run first; its Sort plan replaces a natural winner for
	// required only when strictly cheaper (see enforceSortTask).
	if t.required.Order == props.OrderSorted {
		e.Push(&enforceSortTask{group: t.group, required: t.required, upperBound: t.upperBound})
	}
	e.Push(&implementGroupTask{group: t.group, required: t.required, upperBound: t.upperBound})
	e.Push(&exploreGroupTask{group: t.group})
	return nil
}

// enforceSortTask is the generic required-properties Sort enforcer: it
// re-optimizes its own group under Any(), then finishEnforceSortTask
// costs wrapping that result in a Sort and lets the winners cache's
// strictly-cheaper replacement rule (memo.Group.SetWinner) decide whether
// the enforcer or an already-sorted natural alternative (e.g. an
// IdxFilter whose index matches the required sort key) wins — realizing
// spec.md §4 scenario 4's "either an IdxFilter is chosen, or a Sort
// enforcer is inserted" without hardcoding the choice to any one operator.
type enforceSortTask struct {
	group      memo.GroupID
	required   props.Physical
	upperBound cost.Cost
}

func (t *enforceSortTask) Perform(e *Engine) error {
	e.Push(&finishEnforceSortTask{group: t.group, required: t.required, upperBound: t.upperBound})
	e.Push(&optimizeGroupTask{group: t.group, required: props.Any(), upperBound: t.upperBound})
	return nil
}

// finishEnforceSortTask installs a synthetic Sort over the group's own
// Any()-winner as a candidate winner for t.required. The synthetic
// multi-expression references its own group as the Sort's sole input —
// never routed through SearchSpace.Insert, which rejects a
// self-referencing group (cerr.ErrRecursiveGroup), and never linked into
// the group's physical list, only ever reachable through the Winner it
// becomes.
type finishEnforceSortTask struct {
	group      memo.GroupID
	required   props.Physical
	upperBound cost.Cost
}

func (t *finishEnforceSortTask) Perform(e *Engine) error {
	g := e.SS.Group(t.group)
	base, ok := g.FindWinner(props.Any())
	if !ok || !base.Ready || base.Plan == nil {
		return nil
	}

	sortOp := operator.Sort{Key: t.required.OrderKey}
	local := e.SS.Cost.LocalCost(sortOp, g.Props, []props.Logical{g.Props})
	total := local.Add(base.Cost)
	if total.Total() > t.upperBound.Total() {
		return nil
	}

	plan := &memo.MultiExpression{Op: sortOp, Inputs: []memo.GroupID{t.group}, Group: t.group}
	g.SetWinner(memo.Winner{
		Plan:     plan,
		Required: t.required,
		Cost:     total,
		Ready:    true,
		Produced: props.Physical{Order: props.OrderSorted, OrderKey: t.required.OrderKey},
	})
	return nil
}

// exploreGroupTask is spec.md §4.5's ExploreGroup: ensures every
// transformation rule has fired on every logical multi-expression of the
// group, including ones transformation rules themselves produce, before
// the implementation phase begins.
type exploreGroupTask struct {
	group memo.GroupID
}

func (t *exploreGroupTask) Perform(e *Engine) error {
	g := e.SS.Group(t.group)
	if g.Explored || g.Exploring {
		return nil
	}
	g.Exploring = true

	e.Push(&finishExploreTask{group: t.group})
	for me := g.Logical(); me != nil; me = me.Next() {
		e.Push(&optimizeExpressionTask{expr: me, exploreOnly: true})
	}
	return nil
}

type finishExploreTask struct {
	group memo.GroupID
}

func (t *finishExploreTask) Perform(e *Engine) error {
	g := e.SS.Group(t.group)
	g.Exploring = false
	g.Explored = true
	return nil
}

// implementGroupTask runs after exploration settles: it pushes the
// implementation-rule phase (OptimizeExpression with explore_only=false)
// for every logical multi-expression now present in the group, and
// pushes OptimizeInputs under t.required for every physical
// multi-expression already in the group (implemented during an earlier
// search of the group under another requirement, whose rules do not fire
// again). Global epsilon pruning (spec.md §4.5) stops early once a winner within
// GlobalEpsilonBound of the group's lower bound has already been found.
type implementGroupTask struct {
	group      memo.GroupID
	required   props.Physical
	upperBound cost.Cost
}

func (t *implementGroupTask) Perform(e *Engine) error {
	g := e.SS.Group(t.group)

	for me := g.Physical(); me != nil; me = me.Next() {
		e.Push(&optimizeInputsTask{plan: me, group: t.group, required: t.required, upperBound: t.upperBound})
	}

	members := make([]*memo.MultiExpression, 0)
	for me := g.Logical(); me != nil; me = me.Next() {
		members = append(members, me)
	}

	for _, me := range members {
		if e.Settings.GlobalEpsilonPruning {
			if w, ok := g.FindWinner(t.required); ok && w.Ready && w.Plan != nil {
				if w.Cost.Total() <= g.LowerBound.Total()+e.Settings.GlobalEpsilonBound {
					log.WithField("group", t.group).Debug("epsilon pruning: accepting current winner, skipping remaining alternatives")
					break
				}
			}
		}
		e.Push(&optimizeExpressionTask{expr: me, required: t.required, upperBound: t.upperBound, exploreOnly: false})
	}
	return nil
}

// optimizeExpressionTask is spec.md §4.5's OptimizeExpression: for the
// expression's operator, fetch matching rules (respecting
// MultiExpression.CanFire and explore_only), then push one ApplyRule task
// per binding, highest promise last so it executes first on the LIFO
// stack.
type optimizeExpressionTask struct {
	expr        *memo.MultiExpression
	required    props.Physical
	upperBound  cost.Cost
	exploreOnly bool
}

type pendingApply struct {
	rule    *rule.Rule
	binding *rule.Binding
	promise float64
}

func (t *optimizeExpressionTask) Perform(e *Engine) error {
	rules := e.Rules.MatchingRules(t.expr.Op.Type(), t.exploreOnly)

	var pending []pendingApply
	for _, r := range rules {
		if !t.expr.CanFire(r.Index) {
			continue
		}
		for _, b := range rule.Bindings(r.Pattern, t.expr, e.SS) {
			p := r.Promise(b, e.SS)
			if p <= 0 {
				continue
			}
			pending = append(pending, pendingApply{rule: r, binding: b, promise: p})
		}
	}

	sort.SliceStable(pending, func(i, j int) bool { return pending[i].promise < pending[j].promise })

	for _, p := range pending {
		e.Push(&applyRuleTask{
			rule:        p.rule,
			expr:        t.expr,
			binding:     p.binding,
			required:    t.required,
			upperBound:  t.upperBound,
			exploreOnly: t.exploreOnly,
		})
	}
	return nil
}

// applyRuleTask is spec.md §4.5's ApplyRule: build the substitute, insert
// it, mark the rule fired, and push a follow-up task on any newly
// produced multi-expression (OptimizeExpression for a transformation
// rule's logical substitute, OptimizeInputs for an implementation rule's
// physical substitute).
type applyRuleTask struct {
	rule        *rule.Rule
	expr        *memo.MultiExpression
	binding     *rule.Binding
	required    props.Physical
	upperBound  cost.Cost
	exploreOnly bool
}

func (t *applyRuleTask) Perform(e *Engine) error {
	if !t.expr.CanFire(t.rule.Index) {
		return nil
	}

	tree, ok := t.rule.Substitute(t.binding, e.SS)
	if !ok {
		return nil
	}

	me, _, err := e.SS.Insert(tree, t.expr.Group)
	if err != nil {
		return err
	}
	t.expr.MarkFired(t.rule.Index)
	e.RulesFired++
	log.WithFields(map[string]interface{}{"rule": t.rule.Name, "group": t.expr.Group}).Debug("rule fired")

	if me == nil {
		return nil
	}

	if t.rule.Kind == rule.KindTransformation {
		e.Push(&optimizeExpressionTask{expr: me, required: t.required, upperBound: t.upperBound, exploreOnly: t.exploreOnly})
		return nil
	}
	e.Push(&optimizeInputsTask{plan: me, group: t.expr.Group, required: t.required, upperBound: t.upperBound})
	return nil
}

// optimizeInputsTask is spec.md §4.5's OptimizeInputs: costs a physical
// plan bottom-up, requiring each child's physical properties in turn via
// satisfy_required_properties and pushing OptimizeGroup for it, until all
// inputs are satisfied, at which point it publishes a winner if the total
// cost beats the group's current best for required.
type optimizeInputsTask struct {
	plan       *memo.MultiExpression
	group      memo.GroupID
	required   props.Physical
	upperBound cost.Cost

	inputIndex  int
	accumulated cost.Cost

	// producedProps accumulates what each already-resolved child actually
	// produces (memo.Winner.Produced), one entry per child in input order,
	// so the terminal branch can check the plan's real derived properties
	// against t.required instead of assuming every child that was asked
	// for something produces it.
	producedProps []props.Physical
}

func (t *optimizeInputsTask) Perform(e *Engine) error {
	if t.inputIndex >= len(t.plan.Inputs) {
		produced := props.DerivePhysical(t.plan.Op, t.producedProps)
		if !t.required.Equals(produced) {
			// This plan's children resolved, but what it actually
			// produces doesn't satisfy what was required of it (spec.md
			// §4.1 satisfy_required_properties/derive_physical_properties:
			// arity-0 operators like FileScan skip the per-child loop
			// entirely and must still be checked here). Not an error —
			// this alternative is simply infeasible for this goal.
			return nil
		}

		children := make([]props.Logical, len(t.plan.Inputs))
		for i, cg := range t.plan.Inputs {
			children[i] = e.SS.Group(cg).Props
		}
		local := e.SS.Cost.LocalCost(t.plan.Op, e.SS.Group(t.group).Props, children)
		total := local.Add(t.accumulated)

		if total.Total() <= t.upperBound.Total() {
			e.SS.Group(t.group).SetWinner(memo.Winner{Plan: t.plan, Required: t.required, Cost: total, Ready: true, Produced: produced})
		}
		return nil
	}

	feasible, childRequired := props.SatisfyRequired(t.plan.Op, t.required, t.inputIndex)
	if !feasible {
		return nil
	}

	remaining := t.upperBound.Sub(t.accumulated)

	if e.Settings.GroupPruning {
		childGroup := e.SS.Group(t.plan.Inputs[t.inputIndex])
		bound := childGroup.LowerBound
		if e.Settings.ColumnUCPruning {
			bound = bound.Add(cost.Fetching(e.SS.Catalog, childGroup.Props))
		}
		if bound.Total() > remaining.Total() {
			return nil
		}
	}

	cont := &optimizeInputsTask{
		plan: t.plan, group: t.group, required: t.required, upperBound: t.upperBound,
		inputIndex: t.inputIndex + 1, accumulated: t.accumulated, producedProps: t.producedProps,
	}
	e.Push(&afterChildTask{cont: cont, childGroup: t.plan.Inputs[t.inputIndex], childRequired: childRequired})
	e.Push(&optimizeGroupTask{group: t.plan.Inputs[t.inputIndex], required: childRequired, upperBound: remaining})
	return nil
}

// afterChildTask resumes an optimizeInputsTask once the child group
// pushed just before it has resolved, folding the child's winning cost
// into the accumulator. If the child turned out unsatisfiable, this plan
// alternative is silently abandoned (spec.md §7 kind 3: "not an error").
type afterChildTask struct {
	cont          *optimizeInputsTask
	childGroup    memo.GroupID
	childRequired props.Physical
}

func (t *afterChildTask) Perform(e *Engine) error {
	g := e.SS.Group(t.childGroup)
	w, ok := g.FindWinner(t.childRequired)
	if !ok || w.Plan == nil {
		return nil
	}
	t.cont.accumulated = t.cont.accumulated.Add(w.Cost)
	t.cont.producedProps = append(t.cont.producedProps, w.Produced)
	e.Push(t.cont)
	return nil
}
