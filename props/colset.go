// Package props implements the optimizer's logical and physical
// properties (spec.md §4.7): the per-group statistics/schema the rule
// system and cost model read, and the physical-property requirements the
// task engine threads down through OptimizeGroup/OptimizeInputs.
package props

import (
	"fmt"
	"sort"

	"github.com/tnusser/cascadeopt/operator"
)

// ColSet is an unordered set of schema column ids, used wherever spec.md
// names an unordered column set (a key, a set of not-null columns, the
// input columns of an element property).
type ColSet struct {
	m map[operator.ColumnID]struct{}
}

// NewColSet builds a ColSet from the given columns.
func NewColSet(cols ...operator.ColumnID) ColSet {
	s := ColSet{m: make(map[operator.ColumnID]struct{}, len(cols))}
	for _, c := range cols {
		s.m[c] = struct{}{}
	}
	return s
}

func (s ColSet) Add(col operator.ColumnID) ColSet {
	if s.m == nil {
		s.m = make(map[operator.ColumnID]struct{})
	}
	s.m[col] = struct{}{}
	return s
}

func (s ColSet) Contains(col operator.ColumnID) bool {
	_, ok := s.m[col]
	return ok
}

func (s ColSet) Len() int { return len(s.m) }

func (s ColSet) Empty() bool { return len(s.m) == 0 }

// Union returns the union of s and other, leaving both unmodified.
func (s ColSet) Union(other ColSet) ColSet {
	out := NewColSet()
	for c := range s.m {
		out.m[c] = struct{}{}
	}
	for c := range other.m {
		out.m[c] = struct{}{}
	}
	return out
}

// SubsetOf reports whether every column in s is also in other.
func (s ColSet) SubsetOf(other ColSet) bool {
	for c := range s.m {
		if !other.Contains(c) {
			return false
		}
	}
	return true
}

// Equals reports whether s and other contain exactly the same columns.
func (s ColSet) Equals(other ColSet) bool {
	if len(s.m) != len(other.m) {
		return false
	}
	for c := range s.m {
		if !other.Contains(c) {
			return false
		}
	}
	return true
}

// Columns returns the set's members in ascending order, for deterministic
// iteration (logging, hashing, tests).
func (s ColSet) Columns() []operator.ColumnID {
	out := make([]operator.ColumnID, 0, len(s.m))
	for c := range s.m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s ColSet) String() string {
	return fmt.Sprintf("%v", s.Columns())
}
