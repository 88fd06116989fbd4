package props

import (
	"github.com/tnusser/cascadeopt/catalog"
	"github.com/tnusser/cascadeopt/operator"
)

// LogicalKind tags which of the four LogicalProperties variants spec.md
// §4.7 names a given value holds. Rather than nominal inheritance (the
// original's shared LogicalProperties base class with nullable
// subclass-only fields), this module follows spec.md §9's design note
// and uses a tagged variant: every field below applies only for its
// matching Kind.
type LogicalKind uint8

const (
	LogicalCollection LogicalKind = iota
	LogicalElement
	LogicalColumn
	LogicalConstant
)

// ColumnStats is the subset of catalog.ColumnStatistics the optimizer's
// property inference actually reads, copied onto the owning group so
// rules never need a catalog round trip once a group exists.
type ColumnStats struct {
	UniqueCardinality float64
	NullFraction      float64
}

// Logical holds the properties shared by every multi-expression in a
// group (spec.md §3 invariant 2: one LogicalProperties instance per
// group, shared by all its members).
type Logical struct {
	Kind LogicalKind

	// Generic statistics, present for every kind.
	Cardinality       float64
	UniqueCardinality float64

	// LogicalCollectionProperties fields.
	Schema              operator.Schema
	TableStatistics     catalog.TableStatistics
	PerColumnStatistics map[operator.ColumnID]ColumnStats
	IsBaseTable         bool

	// BaseTableMaxUC tracks, per underlying base table id, the maximum
	// per-column unique cardinality seen for that table. It is carried
	// and unioned through composition (Select/Project keep it, EqJoin
	// unions both sides) so a join group's touch-copy lower bound
	// (package cost) can sum "max column UC" per base table without
	// re-deriving which base tables feed a group from scratch.
	BaseTableMaxUC map[catalog.TableID]float64

	// LogicalElementProperties fields (shared by Column/Constant
	// refinements below).
	ColumnStatistics ColumnStats
	Type             string
	SizeBytes        int
	Selectivity      float64
	IsConstant       bool
	InputColumns     ColSet
}

// invariant: for a Collection, every distinct schema column id has exactly
// one PerColumnStatistics entry. PerColumnStatistics is keyed by column
// id, so schema columns that share an id (a join of two tables whose
// columns are numbered alike) share one entry. Checked by DeriveLogical
// below rather than left as an unenforced comment.
func checkCollectionInvariant(l Logical) {
	if l.Kind != LogicalCollection {
		return
	}
	ids := make(map[operator.ColumnID]struct{}, len(l.Schema))
	for _, c := range l.Schema {
		ids[c.ID] = struct{}{}
	}
	if len(ids) != len(l.PerColumnStatistics) {
		panic("props: |schema.columns| != |per_column_statistics|")
	}
}

// DeriveSchema computes an operator's output schema from its children's
// schemas (spec.md §4.1: every logical operator implements
// derive_schema). This is pure and catalog-independent; base-table
// schemas are supplied by the caller (memo's search-space ingestion,
// which already has the catalog descriptor in hand).
func DeriveSchema(op operator.Operator, childSchemas []operator.Schema, baseSchema operator.Schema) operator.Schema {
	switch o := op.(type) {
	case operator.GetTable:
		return baseSchema
	case operator.Select:
		return childSchemas[0]
	case operator.Project:
		child := childSchemas[0]
		byID := make(map[operator.ColumnID]operator.Column, len(child))
		for _, c := range child {
			byID[c.ID] = c
		}
		out := make(operator.Schema, 0, len(o.Columns))
		for _, id := range o.Columns {
			if c, ok := byID[id]; ok {
				out = append(out, c)
			}
		}
		return out
	case operator.EqJoin:
		return append(append(operator.Schema{}, childSchemas[0]...), childSchemas[1]...)
	case operator.Distinct:
		return childSchemas[0]
	case operator.Aggregate:
		child := childSchemas[0]
		byID := make(map[operator.ColumnID]operator.Column, len(child))
		for _, c := range child {
			byID[c.ID] = c
		}
		out := make(operator.Schema, 0, len(o.GroupBy)+len(o.Functions))
		for _, id := range o.GroupBy {
			if c, ok := byID[id]; ok {
				out = append(out, c)
			}
		}
		for _, fn := range o.Functions {
			out = append(out, operator.Column{ID: fn.Output, Name: fn.Func.String(), Type: "number"})
		}
		return out
	case operator.OrderBy:
		return childSchemas[0]
	default:
		if len(childSchemas) > 0 {
			return childSchemas[0]
		}
		return nil
	}
}

// DeriveLogical computes a group's shared LogicalProperties from its
// seed multi-expression's operator and its children's LogicalProperties
// (spec.md §4.1: derive_logical_properties; spec.md §3: "initialized
// from the seed"). cat is consulted only for the GetTable base case.
func DeriveLogical(cat catalog.Catalog, op operator.Operator, schema operator.Schema, children []Logical) Logical {
	switch o := op.(type) {
	case operator.GetTable:
		td, err := cat.LookupTable(o.Name)
		if err != nil {
			td = catalog.TableDescriptor{ID: o.Table, Name: o.Name}
		}
		perCol := make(map[operator.ColumnID]ColumnStats, len(schema))
		for _, c := range schema {
			perCol[c.ID] = ColumnStats{UniqueCardinality: td.Statistics.Cardinality}
		}
		for _, cd := range td.Schema {
			if stat, ok := perCol[operator.ColumnID(cd.ID)]; ok {
				stat.UniqueCardinality = cd.Statistics.UniqueCardinality
				stat.NullFraction = cd.Statistics.NullFraction
				perCol[operator.ColumnID(cd.ID)] = stat
			}
		}
		l := Logical{
			Kind:                LogicalCollection,
			Cardinality:         td.Statistics.Cardinality,
			UniqueCardinality:   maxUniqueCardinality(perCol),
			Schema:              schema,
			TableStatistics:     td.Statistics,
			PerColumnStatistics: perCol,
			IsBaseTable:         true,
			BaseTableMaxUC:      map[catalog.TableID]float64{o.Table: maxUniqueCardinality(perCol)},
		}
		checkCollectionInvariant(l)
		return l

	case operator.Select:
		in := children[0]
		const defaultSelectivity = 1.0 / 3
		out := in
		out.Schema = schema
		out.IsBaseTable = false
		out.Cardinality = in.Cardinality * defaultSelectivity
		out.UniqueCardinality = minF(in.UniqueCardinality, out.Cardinality)
		return out

	case operator.Project:
		in := children[0]
		perCol := make(map[operator.ColumnID]ColumnStats, len(schema))
		for _, c := range schema {
			if stat, ok := in.PerColumnStatistics[c.ID]; ok {
				perCol[c.ID] = stat
			} else {
				perCol[c.ID] = ColumnStats{UniqueCardinality: in.Cardinality}
			}
		}
		l := Logical{
			Kind:                LogicalCollection,
			Cardinality:         in.Cardinality,
			UniqueCardinality:   in.UniqueCardinality,
			Schema:              schema,
			TableStatistics:     in.TableStatistics,
			PerColumnStatistics: perCol,
			IsBaseTable:         false,
			BaseTableMaxUC:      in.BaseTableMaxUC,
		}
		checkCollectionInvariant(l)
		return l

	case operator.EqJoin:
		left, right := children[0], children[1]
		card := left.Cardinality * right.Cardinality
		if left.UniqueCardinality > 0 {
			card = (left.Cardinality * right.Cardinality) / maxF(left.UniqueCardinality, right.UniqueCardinality)
		}
		perCol := mergeColumnStats(left.PerColumnStatistics, right.PerColumnStatistics)
		for _, c := range schema {
			if _, ok := perCol[c.ID]; !ok {
				perCol[c.ID] = ColumnStats{UniqueCardinality: card}
			}
		}
		l := Logical{
			Kind:                LogicalCollection,
			Cardinality:         card,
			UniqueCardinality:   minF(left.UniqueCardinality, right.UniqueCardinality),
			Schema:              schema,
			PerColumnStatistics: perCol,
			BaseTableMaxUC:      mergeBaseTableMaxUC(left.BaseTableMaxUC, right.BaseTableMaxUC),
		}
		checkCollectionInvariant(l)
		return l

	case operator.Distinct:
		in := children[0]
		out := in
		out.Schema = schema
		out.IsBaseTable = false
		out.Cardinality = out.UniqueCardinality
		if out.Cardinality == 0 {
			out.Cardinality = in.Cardinality
		}
		return out

	case operator.Aggregate:
		in := children[0]
		card := 1.0
		for range o.GroupBy {
			card = in.Cardinality
			break
		}
		perCol := make(map[operator.ColumnID]ColumnStats, len(schema))
		for _, c := range schema {
			perCol[c.ID] = ColumnStats{UniqueCardinality: card}
		}
		l := Logical{
			Kind:                LogicalCollection,
			Cardinality:         card,
			UniqueCardinality:   card,
			Schema:              schema,
			PerColumnStatistics: perCol,
			BaseTableMaxUC:      in.BaseTableMaxUC,
		}
		checkCollectionInvariant(l)
		return l

	case operator.OrderBy:
		in := children[0]
		out := in
		out.Schema = schema
		out.IsBaseTable = false
		return out

	default:
		if len(children) > 0 {
			return children[0]
		}
		return Logical{Kind: LogicalCollection, Schema: schema, PerColumnStatistics: map[operator.ColumnID]ColumnStats{}}
	}
}

func maxUniqueCardinality(perCol map[operator.ColumnID]ColumnStats) float64 {
	var max float64
	for _, s := range perCol {
		if s.UniqueCardinality > max {
			max = s.UniqueCardinality
		}
	}
	return max
}

func mergeBaseTableMaxUC(a, b map[catalog.TableID]float64) map[catalog.TableID]float64 {
	out := make(map[catalog.TableID]float64, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}

func mergeColumnStats(a, b map[operator.ColumnID]ColumnStats) map[operator.ColumnID]ColumnStats {
	out := make(map[operator.ColumnID]ColumnStats, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func minF(a, b float64) float64 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
