// Package optimizer wires the pieces together: catalog + rule set + cost
// model feed a memo.SearchSpace, a task.Engine searches it to a winner,
// and xplan extracts the result. This is the entry point spec.md §2
// describes as Optimize(expr) / Explain(expr).
package optimizer

import (
	"context"

	"github.com/opentracing/opentracing-go"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/cerr"
	"github.com/tnusser/cascadeopt/cost"
	"github.com/tnusser/cascadeopt/memo"
	"github.com/tnusser/cascadeopt/props"
	"github.com/tnusser/cascadeopt/rule"
	"github.com/tnusser/cascadeopt/task"
	"github.com/tnusser/cascadeopt/xplan"
)

// Settings is the optimizer's flat configuration struct, following the
// teacher's engine.go Config convention: one struct, plain fields, no
// builder. It combines memo's group-initialization config with the task
// engine's pruning settings, since a caller thinks of both as one knob set.
type Settings struct {
	GroupPruning         bool
	ColumnUCPruning      bool
	GlobalEpsilonPruning bool
	GlobalEpsilonBound   float64

	// Rules overrides the default builtin rule set, for tests that want a
	// reduced rule set to pin a specific plan shape. Nil means rule.Builtin().
	Rules *rule.Set
}

func (s Settings) memoConfig() memo.Config {
	return memo.Config{ColumnUCPruning: s.ColumnUCPruning}
}

func (s Settings) taskSettings() task.Settings {
	return task.Settings{
		GroupPruning:         s.GroupPruning,
		ColumnUCPruning:      s.ColumnUCPruning,
		GlobalEpsilonPruning: s.GlobalEpsilonPruning,
		GlobalEpsilonBound:   s.GlobalEpsilonBound,
	}
}

// Optimizer binds a catalog and cost model to repeated Optimize/Explain
// calls, so a caller running many queries against the same schema pays
// the catalog/model wiring cost once.
type Optimizer struct {
	Catalog  catalog.Catalog
	Cost     cost.Model
	Settings Settings
}

// New builds an Optimizer. If settings.Rules is nil, rule.Builtin() is
// used.
func New(cat catalog.Catalog, model cost.Model, settings Settings) *Optimizer {
	if settings.Rules == nil {
		settings.Rules = rule.Builtin()
	}
	return &Optimizer{Catalog: cat, Cost: model, Settings: settings}
}

// Result carries the outcome of a single run: its search space (for
// callers that want to extract more than once under different required
// properties) and the diagnostic counters spec.md §6 names.
type Result struct {
	SearchSpace *memo.SearchSpace
	Root        memo.GroupID
	RulesFired  int
}

// Optimize runs a full search over tree from its root and returns the
// best physical plan for props.Any() (spec.md §2: "optimize(expr) →
// Expression").
func (o *Optimizer) Optimize(ctx context.Context, tree memo.Tree) (*xplan.Expression, error) {
	res, err := o.run(ctx, tree, "Optimize")
	if err != nil {
		return nil, err
	}
	var expr *xplan.Expression
	func() {
		defer cerr.Recover(&err)
		expr = xplan.Extract(res.SearchSpace, res.Root, props.Any())
	}()
	return expr, err
}

// Explain runs the same search as Optimize but returns the annotated plan
// (spec.md §2: "explain(expr) → ExplainedExpression").
func (o *Optimizer) Explain(ctx context.Context, tree memo.Tree) (*xplan.ExplainedExpression, error) {
	res, err := o.run(ctx, tree, "Explain")
	if err != nil {
		return nil, err
	}
	var expr *xplan.ExplainedExpression
	func() {
		defer cerr.Recover(&err)
		expr = xplan.Explain(res.SearchSpace, res.Root, props.Any())
	}()
	return expr, err
}

func (o *Optimizer) run(ctx context.Context, tree memo.Tree, opName string) (res Result, err error) {
	runID := uuid.NewV4().String() // satori/go.uuid v1.2.0: NewV4 has no error return

	span, _ := opentracing.StartSpanFromContext(ctx, "cascadeopt."+opName)
	span.SetTag("run_id", runID)
	defer span.Finish()

	log := logrus.WithFields(logrus.Fields{"component": "optimizer", "op": opName, "run_id": runID})

	defer cerr.Recover(&err)

	ss := memo.New(o.Catalog, o.Cost, o.Settings.memoConfig())

	_, root, insertErr := ss.Insert(tree, memo.InvalidGroupID)
	if insertErr != nil {
		return Result{}, insertErr
	}

	eng := task.New(ss, o.Settings.Rules, o.Settings.taskSettings())
	eng.OptimizeGroup(root, props.Any(), cost.Infinite)
	if runErr := eng.Run(); runErr != nil {
		return Result{}, runErr
	}

	log.WithFields(logrus.Fields{
		"groups":      ss.NumGroups(),
		"rules_fired": eng.RulesFired,
	}).Info("optimization run complete")
	span.SetTag("groups", ss.NumGroups())
	span.SetTag("rules_fired", eng.RulesFired)

	return Result{SearchSpace: ss, Root: root, RulesFired: eng.RulesFired}, nil
}
