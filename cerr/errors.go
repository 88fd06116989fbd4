// Package cerr collects the optimizer's error kinds. It follows the
// teacher's gopkg.in/src-d/go-errors.v1 convention of a package-level set
// of NewKind sentinels that individual call sites specialize with New(),
// rather than ad hoc fmt.Errorf strings scattered across the codebase.
package cerr

import (
	goerrors "gopkg.in/src-d/go-errors.v1"
)

// Input errors are reported at entry, before the search loop ever starts
// (spec.md §7, kind 2).
var (
	ErrArityMismatch    = goerrors.NewKind("operator %s expects %d children, got %d")
	ErrUnknownColumnRef = goerrors.NewKind("unknown column reference %q")
)

// NewInputError builds a reusable input-error kind with the given format.
func NewInputError(format string) *goerrors.Kind {
	return goerrors.NewKind(format)
}

// Invariant violations are programmer errors (spec.md §7, kind 1): they
// are fatal and abort optimization. They are raised with Raise (a panic
// carrying an Invariant) deep inside the task engine / search space and recovered into a regular
// error at the Optimize/Explain boundary, mirroring the teacher fork's
// MemoErr/HandleErr pattern (sql/memo/memo.go).
var (
	ErrInfinityCompared   = goerrors.NewKind("cost: two infinite costs compared")
	ErrDuplicateWinnerKey = goerrors.NewKind("memo: duplicate winner for group %d with required properties %v")
	ErrRecursiveGroup     = goerrors.NewKind("memo: multi-expression's children include its own group %d")
	ErrNoReadyWinner      = goerrors.NewKind("xplan: no ready winner for group %d with required properties %v")

	// ErrHashingFailed wraps a hashstructure.Hash failure encountered while
	// computing a multi-expression's duplicate-detection hash. This is a
	// reflection-encoding failure on the stored operator value, unrelated
	// to operator support; the bitmap-index DDL rejection (spec.md §7 kind
	// 4) is operator.ErrUnsupportedBitmapIndexDDL, returned from
	// operator.ValidateIndexDescriptor, not raised here.
	ErrHashingFailed = goerrors.NewKind("memo: failed to hash multi-expression: %s")
)

// Invariant wraps a violated invariant so the top-level Optimize/Explain
// call can recover it and return it as a normal error, while every
// intermediate frame can simply panic without threading an error return
// through the entire task stack.
type Invariant struct {
	Err error
}

func (i Invariant) Error() string { return i.Err.Error() }

// Raise panics with an Invariant wrapping err. Callers deep in the task
// engine use this instead of propagating an error return, matching the
// teacher fork's Memo.HandleErr.
func Raise(err error) {
	panic(Invariant{Err: err})
}

// Recover turns a panicking Invariant into an error assigned to *errp. It
// is meant to be deferred at the top of Optimize/Explain:
//
//	defer cerr.Recover(&err)
//
// Non-Invariant panics are re-raised unchanged: this package only tames
// the invariant-violation control flow, not arbitrary programmer bugs.
func Recover(errp *error) {
	if r := recover(); r != nil {
		if inv, ok := r.(Invariant); ok {
			*errp = inv.Err
			return
		}
		panic(r)
	}
}
