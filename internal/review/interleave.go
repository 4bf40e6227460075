package review

import "math/rand/v2"

// RandomInterleaveTwo merges a and b keeping the relative order within each.
// The next element comes from a with probability proportional to how many of
// a's elements are left.
func RandomInterleaveTwo[T any](rng *rand.Rand, a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		remA, remB := len(a)-i, len(b)-j
		if rng.IntN(remA+remB) < remA {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)

	return out
}

// RandomInterleave folds RandomInterleaveTwo over the sequences left to right.
func RandomInterleave[T any](rng *rand.Rand, seqs ...[]T) []T {
	out := []T{}
	for _, seq := range seqs {
		out = RandomInterleaveTwo(rng, out, seq)
	}
	return out
}
