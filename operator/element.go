package operator

import "fmt"

// Expr is a scalar expression tree built from element operators
// (Compare, AggFunc, GetColumn, Constant). It is private data carried by
// logical/physical operators (a Select's predicate, a Project's column
// list entries, an OrderBy's sort key) — it never appears as a group
// child in the memo, unlike relational operator trees.
type Expr struct {
	Op       Operator
	Children []Expr
}

func (e Expr) String() string {
	if len(e.Children) == 0 {
		return e.Op.String()
	}
	s := e.Op.String() + "("
	for i, c := range e.Children {
		if i > 0 {
			s += ", "
		}
		s += c.String()
	}
	return s + ")"
}

// CompareOp is the comparison operator carried by a Compare element node.
type CompareOp uint8

const (
	CompareEq CompareOp = iota
	CompareNe
	CompareLt
	CompareLe
	CompareGt
	CompareGe
	CompareAnd
	CompareOr
)

var compareOpNames = [...]string{"=", "<>", "<", "<=", ">", ">=", "AND", "OR"}

func (c CompareOp) String() string {
	if int(c) < len(compareOpNames) {
		return compareOpNames[c]
	}
	return "?"
}

// Compare is the variadic element operator: binary comparisons take two
// children, AND/OR may take more. This is the only operator in the
// algebra with unbounded arity (spec.md §4.1).
type Compare struct {
	CmpOp CompareOp
}

func (Compare) Kind() Kind       { return KindElement }
func (Compare) Type() Type       { return TypeCompare }
func (Compare) Arity() int       { return -1 }
func (Compare) IsCommuting() bool {
	return false
}
func (c Compare) String() string { return c.CmpOp.String() }
func (c Compare) Equals(other Operator) bool {
	o, ok := other.(Compare)
	return ok && o.CmpOp == c.CmpOp
}

// NewCompare builds a Compare expression over the given operand
// subexpressions.
func NewCompare(op CompareOp, operands ...Expr) Expr {
	return Expr{Op: Compare{CmpOp: op}, Children: operands}
}

// AggFuncKind names a supported aggregation function.
type AggFuncKind uint8

const (
	AggCount AggFuncKind = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

var aggFuncNames = [...]string{"COUNT", "SUM", "MIN", "MAX", "AVG"}

func (a AggFuncKind) String() string {
	if int(a) < len(aggFuncNames) {
		return aggFuncNames[a]
	}
	return "?"
}

// AggFunc is an aggregation-function element operator, e.g. SUM(x).
type AggFunc struct {
	Func AggFuncKind
}

func (AggFunc) Kind() Kind { return KindElement }
func (AggFunc) Type() Type { return TypeAggFunc }
func (AggFunc) Arity() int { return 1 }
func (AggFunc) IsCommuting() bool {
	return false
}
func (a AggFunc) String() string { return a.Func.String() }
func (a AggFunc) Equals(other Operator) bool {
	o, ok := other.(AggFunc)
	return ok && o.Func == a.Func
}

// NewAggFunc builds an AggFunc expression over a single operand.
func NewAggFunc(fn AggFuncKind, operand Expr) Expr {
	return Expr{Op: AggFunc{Func: fn}, Children: []Expr{operand}}
}

// GetColumn is a leaf element operator referencing a schema column by id.
type GetColumn struct {
	Column ColumnID
}

func (GetColumn) Kind() Kind { return KindElement }
func (GetColumn) Type() Type { return TypeGetColumn }
func (GetColumn) Arity() int { return 0 }
func (GetColumn) IsCommuting() bool {
	return false
}
func (g GetColumn) String() string { return fmt.Sprintf("col(%d)", g.Column) }
func (g GetColumn) Equals(other Operator) bool {
	o, ok := other.(GetColumn)
	return ok && o.Column == g.Column
}

// NewGetColumn builds a GetColumn leaf expression.
func NewGetColumn(col ColumnID) Expr {
	return Expr{Op: GetColumn{Column: col}}
}

// Constant is a leaf element operator holding a literal value.
type Constant struct {
	Value interface{}
}

func (Constant) Kind() Kind { return KindElement }
func (Constant) Type() Type { return TypeConstant }
func (Constant) Arity() int { return 0 }
func (Constant) IsCommuting() bool {
	return false
}
func (c Constant) String() string { return fmt.Sprintf("%v", c.Value) }
func (c Constant) Equals(other Operator) bool {
	o, ok := other.(Constant)
	return ok && o.Value == c.Value
}

// NewConstant builds a Constant leaf expression.
func NewConstant(v interface{}) Expr {
	return Expr{Op: Constant{Value: v}}
}
