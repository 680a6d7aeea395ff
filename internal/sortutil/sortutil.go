// Package sortutil is a direct Go rendition of utilities.c's sort(): an
// in-place heap sort over a 1-indexed int slice. spec.md calls this out
// by name as a general-purpose utility outside the reduction core;
// internal/harness.Run uses it to order regression mismatch reports by
// offending line number.
package sortutil

// HeapSort sorts ra in place, ascending, using the same sift-down heap
// sort as the original's sort(n, ra). The original operated on a
// 1-indexed buffer (ra[1..n]); Go slices are 0-indexed, so this wrapper
// copies into a 1-indexed scratch buffer, sorts it with the original's
// exact loop structure, and copies the result back. That keeps the
// algorithm's indexing identical to the source it's grounded on instead
// of silently renumbering it and risking an off-by-one.
func HeapSort(values []int) {
	n := len(values)
	if n < 2 {
		return
	}
	ra := make([]int, n+1)
	copy(ra[1:], values)

	l := (n >> 1) + 1
	ir := n
	for {
		var rra int
		if l > 1 {
			l--
			rra = ra[l]
		} else {
			rra = ra[ir]
			ra[ir] = ra[1]
			ir--
			if ir == 1 {
				ra[1] = rra
				break
			}
		}
		i := l
		j := l << 1
		for j <= ir {
			if j < ir && ra[j] < ra[j+1] {
				j++
			}
			if rra < ra[j] {
				ra[i] = ra[j]
				i = j
				j += i
			} else {
				j = ir + 1
			}
		}
		ra[i] = rra
	}

	copy(values, ra[1:])
}
