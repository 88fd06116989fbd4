// Package operator defines the optimizer's closed operator algebra: the
// logical, physical, element and leaf operators a query plan is built
// from (spec.md §4.1). Operators are immutable value types; the tree
// shape that connects them lives one layer up, in package memo, so this
// package has no notion of "children" beyond a fixed arity count.
package operator

import (
	"fmt"

	"github.com/tnusser/cascadeopt/catalog"
)

// Kind partitions the operator algebra into the four closed sub-kinds
// spec.md §4.1 names.
type Kind uint8

const (
	KindLogical Kind = iota
	KindPhysical
	KindElement
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindLogical:
		return "logical"
	case KindPhysical:
		return "physical"
	case KindElement:
		return "element"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Type enumerates every concrete operator name in the algebra. It is the
// stable tag used by rule patterns (package rule) to match on operator
// shape without a type assertion per candidate.
type Type uint16

const (
	TypeInvalid Type = iota

	// Logical
	TypeGetTable
	TypeSelect
	TypeProject
	TypeEqJoin
	TypeDistinct
	TypeAggregate
	TypeOrderBy

	// Physical
	TypeFileScan
	TypeFilter
	TypeIdxFilter
	TypeTruncate
	TypeNLJoin
	TypeBlockNLJoin
	TypeIdxNLJoin
	TypeMergeJoin
	TypeHashJoin
	TypeHybridHashJoin
	TypeBitmapIdxJoin
	TypeGJoin
	TypeHashDuplicates
	TypeHashAggregate
	TypeSortAggregate
	TypeSort

	// Element
	TypeCompare
	TypeAggFunc
	TypeGetColumn
	TypeConstant

	// Leaf (pattern placeholder)
	TypeLeaf
)

var typeNames = map[Type]string{
	TypeGetTable:       "GetTable",
	TypeSelect:         "Select",
	TypeProject:        "Project",
	TypeEqJoin:         "EqJoin",
	TypeDistinct:       "Distinct",
	TypeAggregate:      "Aggregate",
	TypeOrderBy:        "OrderBy",
	TypeFileScan:       "FileScan",
	TypeFilter:         "Filter",
	TypeIdxFilter:      "IdxFilter",
	TypeTruncate:       "Truncate",
	TypeNLJoin:         "NLJoin",
	TypeBlockNLJoin:    "BlockNLJoin",
	TypeIdxNLJoin:      "IdxNLJoin",
	TypeMergeJoin:      "MergeJoin",
	TypeHashJoin:       "HashJoin",
	TypeHybridHashJoin: "HybridHashJoin",
	TypeBitmapIdxJoin:  "BitmapIdxJoin",
	TypeGJoin:          "GJoin",
	TypeHashDuplicates: "HashDuplicates",
	TypeHashAggregate:  "HashAggregate",
	TypeSortAggregate:  "SortAggregate",
	TypeSort:           "Sort",
	TypeCompare:        "Compare",
	TypeAggFunc:        "AggFunc",
	TypeGetColumn:      "GetColumn",
	TypeConstant:       "Constant",
	TypeLeaf:           "Leaf",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", t)
}

// ColumnID is a schema-local column identifier. It is narrower than
// catalog.ColumnID: a plan's schema mixes base-table columns with
// synthesized ones (e.g. the output of an Aggregate), so this module
// keeps its own numbering rather than reusing catalog identifiers
// directly. A catalog.ColumnID can always be looked up for a base-table
// ColumnID through the owning TableScan/GetTable operator.
type ColumnID uint32

// Column describes one column of a derived schema.
type Column struct {
	ID       ColumnID
	Name     string
	Type     string
	Nullable bool
}

// Schema is the ordered output column list of a logical (sub)expression.
type Schema []Column

// Operator is implemented by every concrete operator value in the
// algebra. Implementations are small immutable structs; Equals compares
// only the operator's own private data (e.g. GetTable's table id, or
// Select's predicate), never its children — child (group) equality is
// memo's job, including the commuting-aware canonicalization that
// IsCommuting signals is needed.
type Operator interface {
	fmt.Stringer
	Type() Type
	Kind() Kind
	// Arity returns the number of relational children, or -1 if the
	// operator is variadic (only Compare is, among element operators;
	// Compare's children are themselves elements, not relations).
	Arity() int
	// IsCommuting reports whether this operator's children may be
	// reordered without changing its meaning (e.g. EqJoin).
	IsCommuting() bool
	// Equals reports structural equality of this operator's own private
	// data against another operator of a possibly-different Go type.
	Equals(other Operator) bool
}

func (Kind) isKind() {}

// IsLogical, IsPhysical, IsElement and IsLeaf are convenience predicates
// used throughout the rule system and task engine.
func IsLogical(op Operator) bool  { return op.Kind() == KindLogical }
func IsPhysical(op Operator) bool { return op.Kind() == KindPhysical }
func IsElement(op Operator) bool  { return op.Kind() == KindElement }
func IsLeaf(op Operator) bool     { return op.Kind() == KindLeaf }

// ErrUnsupportedBitmapIndexDDL is the sentinel ValidateIndexDescriptor
// returns for bitmap index creation: spec.md §7 kind 4 documents this
// rejection as intentional, not a bug to fix.
var ErrUnsupportedBitmapIndexDDL = fmt.Errorf("operator: bitmap index DDL is not supported")

// ValidateIndexDescriptor is the DDL-time gate a catalog implementation
// calls before accepting a new index definition. It rejects bitmap
// indexes outright: this module has no CREATE INDEX surface of its own,
// but any caller building one on top of it runs new index descriptors
// through here first. An index already present in a catalog with
// Type == "bitmap" (e.g. carried over by a migration, or seeded directly
// in a test) is unaffected — rule.Builtin's BitmapIdxJoin rule still
// costs a join through it; this only blocks creating new ones.
func ValidateIndexDescriptor(idx catalog.IndexDescriptor) error {
	if idx.Type == "bitmap" {
		return ErrUnsupportedBitmapIndexDDL
	}
	return nil
}
