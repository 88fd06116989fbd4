// Package cost implements the optimizer's cost model (spec.md §4.2): the
// Cost value type, its arithmetic, the fixed cost-constant table, and the
// touch-copy/fetching cost bounds package memo uses for group lower
// bounds.
package cost

import (
	"fmt"
	"math"

	"github.com/tnusser/cascadeopt/cerr"
)

// Cost is either infinite or a pair (IO, CPU); Total is their sum
// (spec.md §4.2). Infinity is a sentinel, not +Inf stored in the floats,
// so arithmetic on a finite Cost can never accidentally become infinite
// through float overflow.
type Cost struct {
	IO       float64
	CPU      float64
	infinite bool
}

// Infinite is the cost sentinel used for a group/plan that cannot be
// realized (spec.md §3: "Lower cost bound ... zero for the GetTable
// seed", and the negative-winner-cache entries of §4.5).
var Infinite = Cost{infinite: true}

// Zero is the additive identity.
var Zero = Cost{}

// IsInfinite reports whether c is the infinity sentinel.
func (c Cost) IsInfinite() bool { return c.infinite }

// Total returns IO+CPU, or +Inf if c is the infinity sentinel.
func (c Cost) Total() float64 {
	if c.infinite {
		return math.Inf(1)
	}
	return c.IO + c.CPU
}

func (c Cost) String() string {
	if c.infinite {
		return "inf"
	}
	return fmt.Sprintf("{io:%.6f cpu:%.6f total:%.6f}", c.IO, c.CPU, c.Total())
}

// Add returns c+other. Infinity propagates (spec.md §4.2).
func (c Cost) Add(other Cost) Cost {
	if c.infinite || other.infinite {
		return Infinite
	}
	return Cost{IO: c.IO + other.IO, CPU: c.CPU + other.CPU}
}

// Sub returns c-other, clamped at zero per component (spec.md §4.2:
// "clamped at zero"). Infinity minus anything finite is still infinite;
// infinity minus infinity is a programmer error (spec.md §3 invariant 7),
// raised the same way a direct comparison of two infinities is.
func (c Cost) Sub(other Cost) Cost {
	if c.infinite && other.infinite {
		cerr.Raise(cerr.ErrInfinityCompared.New())
	}
	if c.infinite {
		return Infinite
	}
	if other.infinite {
		return Zero
	}
	return Cost{IO: clampZero(c.IO - other.IO), CPU: clampZero(c.CPU - other.CPU)}
}

func clampZero(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

// MulScalar returns c scaled by s.
func (c Cost) MulScalar(s float64) Cost {
	if c.infinite {
		return Infinite
	}
	return Cost{IO: c.IO * s, CPU: c.CPU * s}
}

// DivScalar returns c divided by s.
func (c Cost) DivScalar(s float64) Cost {
	if c.infinite {
		return Infinite
	}
	return Cost{IO: c.IO / s, CPU: c.CPU / s}
}

// Less reports whether c is strictly cheaper than other, by Total.
// Comparing two infinities is a programming error (spec.md §3 invariant
// 7) and panics with an Invariant the top-level Optimize/Explain call
// recovers.
func (c Cost) Less(other Cost) bool {
	if c.infinite && other.infinite {
		cerr.Raise(cerr.ErrInfinityCompared.New())
	}
	return c.Total() < other.Total()
}

// Equals is exact equality on Total (spec.md §4.2).
func (c Cost) Equals(other Cost) bool {
	if c.infinite || other.infinite {
		return c.infinite && other.infinite
	}
	return c.Total() == other.Total()
}

// Fixed cost-model constants (spec.md §4.2, "per the reference cost
// table, decimal values").
const (
	CPUReadCost       = 3e-5
	TouchCopyCost     = 1e-5
	PredicateCost     = 1e-5
	ApplyCost         = 2e-5
	CompareMoveCost   = 3e-5
	HashCost          = 2e-5
	HashProbeCost     = 1e-5
	IndexProbeCost    = 1e-5
	BlockFactorTable  = 100.0
	BlockFactorIndex  = 1000.0
	BlockFactorBitmap = 10000.0
	RandomIOCost      = 0.03
	SequentialIOCost  = 0.0075
)
