// Package memo implements the optimizer's memoized search space (spec.md
// §3, §4.3): groups of logically equivalent multi-expressions, the
// structural hash index used for duplicate/equivalent detection and group
// merging, and the winners cache.
package memo

import (
	"fmt"

	"github.com/mitchellh/hashstructure"
	"github.com/sirupsen/logrus"

	"github.com/tnusser/cascadeopt/cerr"
	"github.com/tnusser/cascadeopt/operator"
)

// GroupID identifies a group. Zero is reserved and never assigned (spec.md
// §3 invariant 6: INVALID_ID reserved); group numbering starts at 1,
// matching the teacher fork's counter-from-zero-then-pre-increment style
// in sql/memo/memo.go (see DESIGN.md open-question decision 4).
type GroupID uint32

// InvalidGroupID is never assigned to a real group.
const InvalidGroupID GroupID = 0

func (id GroupID) String() string { return fmt.Sprintf("g%d", uint32(id)) }

// MultiExpression is an operator application whose inputs are group
// references rather than sub-expressions (spec.md §3: "Inputs are groups
// because the optimizer memoizes equivalence classes"). fired is the
// rule-firing bit-mask (spec.md §4.4): bit i set means rule i has already
// fired on this multi-expression.
type MultiExpression struct {
	Op     operator.Operator
	Inputs []GroupID
	Group  GroupID

	fired uint64
	next  *MultiExpression
}

// Next returns the following multi-expression in the owning group's
// singly-linked list (logical or physical, whichever this one belongs
// to), or nil at the end.
func (me *MultiExpression) Next() *MultiExpression { return me.next }

// CanFire reports whether rule index idx has not yet fired on me. Index
// is the rule's stable position in a rule.Set; this package only stores
// and tests the bit, it does not interpret rule identity.
func (me *MultiExpression) CanFire(idx int) bool {
	if idx < 0 || idx >= 64 {
		return true
	}
	return me.fired&(1<<uint(idx)) == 0
}

// MarkFired records that rule idx has fired on me (spec.md §4.4: "a given
// rule fires at most once per multi-expression"; spec.md §8 testable
// property "rule fire-once").
func (me *MultiExpression) MarkFired(idx int) {
	if idx < 0 || idx >= 64 {
		return
	}
	me.fired |= 1 << uint(idx)
}

func (me *MultiExpression) String() string {
	return fmt.Sprintf("%s%v", me.Op, me.Inputs)
}

// equalsCore compares only the two multi-expressions' operator kind and
// private operator data and, unless ignoreOrder is requested for a
// commuting operator, their input order (spec.md §4.1: equals vs
// equals_ignore_input_order).
func equalsCore(a, b *MultiExpression, ignoreOrder bool) bool {
	if a.Op.Type() != b.Op.Type() {
		return false
	}
	if !a.Op.Equals(b.Op) {
		return false
	}
	if len(a.Inputs) != len(b.Inputs) {
		return false
	}
	if ignoreOrder && a.Op.IsCommuting() {
		return sameMultiset(a.Inputs, b.Inputs)
	}
	for i := range a.Inputs {
		if a.Inputs[i] != b.Inputs[i] {
			return false
		}
	}
	return true
}

func sameMultiset(a, b []GroupID) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[GroupID]int, len(a))
	for _, g := range a {
		counts[g]++
	}
	for _, g := range b {
		counts[g]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

// hashable is the value hashstructure.Hash actually digests: the
// operator's type tag, its concrete private data (via reflection — only
// logical multi-expressions are hashed, and every logical operator struct
// in package operator has exported fields only),
// and the (possibly order-canonicalized) input group ids.
type hashable struct {
	Type   operator.Type
	Op     operator.Operator
	Inputs []GroupID
}

// hashOf computes the structural hash index key for me. ignoreOrder
// canonicalizes a commuting operator's inputs into ascending order before
// hashing, so EqJoin(g1, g2) and EqJoin(g2, g1) land in the same bucket
// (spec.md §4.1, §8 "commutative canonicalization").
func hashOf(me *MultiExpression, ignoreOrder bool) uint64 {
	inputs := append([]GroupID(nil), me.Inputs...)
	if ignoreOrder && me.Op.IsCommuting() {
		sortGroupIDs(inputs)
	}
	h, err := hashstructure.Hash(hashable{Type: me.Op.Type(), Op: me.Op, Inputs: inputs}, hashstructure.FormatV2, nil)
	if err != nil {
		cerr.Raise(cerr.ErrHashingFailed.New(err))
	}
	return h
}

func sortGroupIDs(ids []GroupID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

var traceLog = logrus.WithField("component", "memo")
