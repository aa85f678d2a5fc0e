package mathutils

import (
	"math"
	"sort"

	"golang.org/x/exp/constraints"
)

// FloatEquals reports whether a and b differ by less than epsilon (0.001 if omitted).
func FloatEquals(a, b float64, epsilon ...float64) bool {
	e := 0.001
	if len(epsilon) > 0 {
		e = epsilon[0]
	}
	return math.Abs(a-b) < e
}

func Max[T constraints.Ordered](x, y T) T {
	if x < y {
		return y
	}
	return x
}

func Min[T constraints.Ordered](x, y T) T {
	if y < x {
		return y
	}
	return x
}

func Median(n []int) int {
	sort.Ints(n) // sort numbers
	idx := len(n) / 2
	if len(n)%2 == 0 { // even
		return (n[idx-1] + n[idx]) / 2
	}
	return n[idx]
}

// BatchParallelFor splits [0,n) into up to threads contiguous chunks and runs fn(idx, tidx)
// for every index, across that many goroutines, waiting for all of them to finish.
func BatchParallelFor(n int, threads int, fn func(idx int, tidx int)) {
	if threads <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			fn(i, 0)
		}
		return
	}

	chunk := (n + threads - 1) / threads
	done := make(chan struct{}, threads)
	for t := 0; t < threads; t++ {
		go func(tidx int) {
			start := tidx * chunk
			end := Min(start+chunk, n)
			for i := start; i < end; i++ {
				fn(i, tidx)
			}
			done <- struct{}{}
		}(t)
	}
	for t := 0; t < threads; t++ {
		<-done
	}
}
