package cerr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tnusser/cascadeopt/cerr"
)

func TestRecoverTurnsRaiseIntoError(t *testing.T) {
	err := runAndRecover(func() {
		cerr.Raise(cerr.ErrRecursiveGroup.New(3))
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "its own group 3")
}

func TestRecoverLetsNonInvariantPanicsThrough(t *testing.T) {
	require.Panics(t, func() {
		runAndRecover(func() { panic("not an invariant") })
	})
}

func TestRecoverIsNoOpWithoutPanic(t *testing.T) {
	err := runAndRecover(func() {})
	require.NoError(t, err)
}

func runAndRecover(f func()) (err error) {
	defer cerr.Recover(&err)
	f()
	return nil
}
