package workers

import (
	"math"
	"runtime"
)

// SizeFor derives the executor count from an available-parallelism hint:
// 70% of it, rounded, clamped to [MinPoolSize, MaxPoolSize].
func SizeFor(parallelism int) int {
	n := int(math.Round(float64(parallelism) * sizeFraction))
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}

// DefaultSize is SizeFor applied to the CPUs usable by this process.
func DefaultSize() int {
	return SizeFor(runtime.NumCPU())
}
