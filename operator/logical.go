package operator

import (
	"fmt"

	"github.com/tnusser/cascadeopt/catalog"
)

// GetTable is the logical source operator: scan a base table by catalog
// id. It has no relational children — it is a leaf of the logical tree,
// though not a pattern Leaf (see TypeLeaf).
type GetTable struct {
	Table catalog.TableID
	Name  string
}

func (GetTable) Kind() Kind       { return KindLogical }
func (GetTable) Type() Type       { return TypeGetTable }
func (GetTable) Arity() int       { return 0 }
func (GetTable) IsCommuting() bool { return false }
func (g GetTable) String() string { return fmt.Sprintf("GetTable(%s)", g.Name) }
func (g GetTable) Equals(other Operator) bool {
	o, ok := other.(GetTable)
	return ok && o.Table == g.Table
}

// Select is the logical selection (filter) operator: one relational
// child, a scalar predicate carried as private data.
type Select struct {
	Predicate Expr
}

func (Select) Kind() Kind       { return KindLogical }
func (Select) Type() Type       { return TypeSelect }
func (Select) Arity() int       { return 1 }
func (Select) IsCommuting() bool { return false }
func (s Select) String() string { return fmt.Sprintf("Select(%s)", s.Predicate) }
func (s Select) Equals(other Operator) bool {
	o, ok := other.(Select)
	return ok && o.Predicate.String() == s.Predicate.String()
}

// Project is the logical projection operator: one relational child, an
// ordered output column list.
type Project struct {
	Columns []ColumnID
}

func (Project) Kind() Kind       { return KindLogical }
func (Project) Type() Type       { return TypeProject }
func (Project) Arity() int       { return 1 }
func (Project) IsCommuting() bool { return false }
func (p Project) String() string { return fmt.Sprintf("Project(%v)", p.Columns) }
func (p Project) Equals(other Operator) bool {
	o, ok := other.(Project)
	if !ok || len(o.Columns) != len(p.Columns) {
		return false
	}
	for i := range p.Columns {
		if p.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

// KeyPair is one equi-join condition, left.col = right.col.
type KeyPair struct {
	Left  ColumnID
	Right ColumnID
}

// EqJoin is the logical equi-join operator. It is commuting: swapping its
// two relational children (and the key pair sides) denotes the same
// result set, which is the canonical example spec.md §4.1 calls out for
// the ignore-input-order equality/hash variant.
type EqJoin struct {
	Keys []KeyPair
}

func (EqJoin) Kind() Kind       { return KindLogical }
func (EqJoin) Type() Type       { return TypeEqJoin }
func (EqJoin) Arity() int       { return 2 }
func (EqJoin) IsCommuting() bool { return true }
func (j EqJoin) String() string { return fmt.Sprintf("EqJoin(%v)", j.Keys) }
func (j EqJoin) Equals(other Operator) bool {
	o, ok := other.(EqJoin)
	if !ok || len(o.Keys) != len(j.Keys) {
		return false
	}
	for i := range j.Keys {
		if j.Keys[i] != o.Keys[i] {
			return false
		}
	}
	return true
}

// Swapped returns the key pairs with sides reversed, used when
// canonicalizing a commuting EqJoin's hash/equality under swapped
// children.
func (j EqJoin) Swapped() EqJoin {
	swapped := make([]KeyPair, len(j.Keys))
	for i, k := range j.Keys {
		swapped[i] = KeyPair{Left: k.Right, Right: k.Left}
	}
	return EqJoin{Keys: swapped}
}

// Distinct is the logical duplicate-elimination operator over its single
// relational child's entire projected row.
type Distinct struct{}

func (Distinct) Kind() Kind       { return KindLogical }
func (Distinct) Type() Type       { return TypeDistinct }
func (Distinct) Arity() int       { return 1 }
func (Distinct) IsCommuting() bool { return false }
func (Distinct) String() string  { return "Distinct" }
func (Distinct) Equals(other Operator) bool {
	_, ok := other.(Distinct)
	return ok
}

// AggregateFunc is one aggregation function computed by an Aggregate
// operator, producing an output column.
type AggregateFunc struct {
	Func   AggFuncKind
	Input  ColumnID
	Output ColumnID
}

// Aggregate is the logical group-by/aggregation operator: one relational
// child, grouping columns, and a list of aggregation functions.
type Aggregate struct {
	GroupBy    []ColumnID
	Functions  []AggregateFunc
}

func (Aggregate) Kind() Kind       { return KindLogical }
func (Aggregate) Type() Type       { return TypeAggregate }
func (Aggregate) Arity() int       { return 1 }
func (Aggregate) IsCommuting() bool { return false }
func (a Aggregate) String() string {
	return fmt.Sprintf("Aggregate(groupBy=%v, fns=%d)", a.GroupBy, len(a.Functions))
}
func (a Aggregate) Equals(other Operator) bool {
	o, ok := other.(Aggregate)
	if !ok || len(o.GroupBy) != len(a.GroupBy) || len(o.Functions) != len(a.Functions) {
		return false
	}
	for i := range a.GroupBy {
		if a.GroupBy[i] != o.GroupBy[i] {
			return false
		}
	}
	for i := range a.Functions {
		if a.Functions[i] != o.Functions[i] {
			return false
		}
	}
	return true
}

// SortKeyEntry is one column of a sort key, with ascending/descending
// direction.
type SortKeyEntry struct {
	Column ColumnID
	Desc   bool
}

// OrderBy is the logical ordering operator: one relational child, a sort
// key.
type OrderBy struct {
	Key []SortKeyEntry
}

func (OrderBy) Kind() Kind       { return KindLogical }
func (OrderBy) Type() Type       { return TypeOrderBy }
func (OrderBy) Arity() int       { return 1 }
func (OrderBy) IsCommuting() bool { return false }
func (o OrderBy) String() string { return fmt.Sprintf("OrderBy(%v)", o.Key) }
func (o OrderBy) Equals(other Operator) bool {
	oo, ok := other.(OrderBy)
	if !ok || len(oo.Key) != len(o.Key) {
		return false
	}
	for i := range o.Key {
		if o.Key[i] != oo.Key[i] {
			return false
		}
	}
	return true
}
