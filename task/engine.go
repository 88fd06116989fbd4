// Package task implements the optimizer's task-driven search loop
// (spec.md §4.5): an explicit LIFO stack of task variants dispatching
// OptimizeGroup/ExploreGroup/OptimizeExpression/ApplyRule/OptimizeInputs,
// with group, column-unique-cardinality and global-epsilon pruning.
//
// The stack is explicit rather than native Go call recursion, per spec.md
// §9's design note ("real queries can reach thousands of tasks deep") and
// CockroachDB's opt/xform lineage in the reference pack, which drives its
// search the same way.
package task

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/props"
	"github.com/tnusser/cascadeopt/rule"
)

// Settings controls the three pruning strategies spec.md §4.5 names.
// GlobalEpsilonBound is an absolute cost-unit slack (not a fraction): a
// plan within that many cost units of a group's lower bound is accepted
// without exploring further alternatives in that group (spec.md §4
// scenario 5: "global_epsilon_bound = current_best * 0.9" — callers
// compute the absolute bound from whatever fraction they like before
// constructing Settings).
type Settings struct {
	GroupPruning         bool
	ColumnUCPruning      bool
	GlobalEpsilonPruning bool
	GlobalEpsilonBound   float64
}

// Task is one unit of work on the search-space stack (spec.md §4.5: "A
// task exposes perform(search-space)").
type Task interface {
	Perform(e *Engine) error
}

// Engine drives the stack and accumulates the diagnostic counters spec.md
// §6 calls out (rules fired; group/winner counts are read directly off
// the search space by the caller).
type Engine struct {
	SS       *memo.SearchSpace
	Rules    *rule.Set
	Settings Settings

	stack      []Task
	RulesFired int
}

// New builds an Engine over an already-populated search space.
func New(ss *memo.SearchSpace, rules *rule.Set, settings Settings) *Engine {
	return &Engine{SS: ss, Rules: rules, Settings: settings}
}

// Push adds a task to the top of the stack (it will be the next one
// popped).
func (e *Engine) Push(t Task) { e.stack = append(e.stack, t) }

// Run drains the stack, popping and performing tasks until empty (spec.md
// §2: "Termination occurs when the stack empties").
func (e *Engine) Run() error {
	for len(e.stack) > 0 {
		t := e.stack[len(e.stack)-1]
		e.stack = e.stack[:len(e.stack)-1]
		if err := t.Perform(e); err != nil {
			return errors.Wrapf(err, "task: %T failed", t)
		}
	}
	return nil
}

// OptimizeGroup seeds the search for the goal (group, required, within
// upperBound) — the entry point spec.md §4.5 names. Callers (the
// optimizer package) push exactly one of these for the root group before
// calling Run.
func (e *Engine) OptimizeGroup(group memo.GroupID, required props.Physical, upperBound cost.Cost) {
	e.Push(&optimizeGroupTask{group: group, required: required, upperBound: upperBound})
}

var log = logrus.WithField("component", "task")
