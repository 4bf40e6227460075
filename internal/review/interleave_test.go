package review

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Pulls the elements of sub out of merged, in the order they appear.
func subsequence(merged, sub []int) []int {
	out := []int{}
	for _, v := range merged {
		if slices.Contains(sub, v) {
			out = append(out, v)
		}
	}
	return out
}

func TestRandomInterleaveTwo_PreservesOrder(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	b := []int{10, 11, 12}

	for seed := range uint64(200) {
		got := RandomInterleaveTwo(seeded(seed), a, b)

		require.Len(t, got, len(a)+len(b))
		assert.ElementsMatch(t, append(slices.Clone(a), b...), got)
		assert.Equal(t, a, subsequence(got, a))
		assert.Equal(t, b, subsequence(got, b))
	}
}

func TestRandomInterleaveTwo_Empty(t *testing.T) {
	rng := seeded(1)

	got := RandomInterleaveTwo[int](rng, nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Equal(t, []int{1, 2}, RandomInterleaveTwo(rng, []int{1, 2}, nil))
	assert.Equal(t, []int{1, 2}, RandomInterleaveTwo(rng, nil, []int{1, 2}))
}

func TestRandomInterleaveTwo_Proportional(t *testing.T) {
	// With three elements left in a and one in b, b goes first a quarter of the time
	var (
		rng      = seeded(42)
		runs     = 4000
		bFirst   = 0
		a        = []string{"a1", "a2", "a3"}
		b        = []string{"b1"}
		position = make([]int, 4)
	)
	for range runs {
		got := RandomInterleaveTwo(rng, a, b)
		idx := slices.Index(got, "b1")
		position[idx]++
		if idx == 0 {
			bFirst++
		}
	}

	assert.InDelta(t, 0.25, float64(bFirst)/float64(runs), 0.07)
	// and is never stranded at one end
	for i, n := range position {
		assert.InDelta(t, 0.25, float64(n)/float64(runs), 0.07, "position %d", i)
	}
}

func TestRandomInterleave_Many(t *testing.T) {
	seqs := [][]int{{1, 2, 3}, {10, 11}, {20}, {}, {30, 31, 32, 33}}

	for seed := range uint64(100) {
		got := RandomInterleave(seeded(seed), seqs...)

		require.Len(t, got, 10)
		for _, seq := range seqs {
			assert.Equal(t, append([]int{}, seq...), subsequence(got, seq))
		}
	}

	assert.Empty(t, RandomInterleave[int](seeded(1)))
}
