package debruijn

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cyclicWords counts each length-n window of seq, wrapping at the end
func cyclicWords(seq string, n int) map[string]int {
	counts := map[string]int{}
	wrapped := seq + seq[:n-1]
	for i := 0; i < len(seq); i++ {
		counts[wrapped[i:i+n]]++
	}
	return counts
}

func TestBinaryOrderThree(t *testing.T) {
	seq, err := Bits(3)
	require.NoError(t, err)
	assert.Equal(t, "00010111", seq)
	require.Len(t, seq, 8)

	counts := cyclicWords(seq, 3)
	assert.Len(t, counts, 8)
	for word, c := range counts {
		assert.Equal(t, 1, c, word)
	}
}

func TestEveryWordOnce(t *testing.T) {
	for _, tc := range []struct{ k, n int }{{2, 1}, {2, 4}, {2, 8}, {3, 3}, {4, 2}, {10, 3}} {
		seq, err := SequenceK(tc.k, tc.n)
		require.NoError(t, err)

		want := 1
		for i := 0; i < tc.n; i++ {
			want *= tc.k
		}
		require.Len(t, seq, want, "k=%d n=%d", tc.k, tc.n)
		if tc.n == 1 {
			continue
		}
		counts := cyclicWords(seq, tc.n)
		assert.Len(t, counts, want, "k=%d n=%d", tc.k, tc.n)
	}
}

func TestExplicitAlphabet(t *testing.T) {
	seq, err := Sequence([]string{"a", "b"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "aabb", seq)

	seq, err = Sequence([]string{"L", "H", "F"}, 2)
	require.NoError(t, err)
	assert.Len(t, seq, 9)
	assert.True(t, strings.HasPrefix(seq, "LL"))
}

func TestInvalidArgs(t *testing.T) {
	_, err := Generate(1, 3)
	assert.True(t, errors.Is(err, ErrInvalidArgs))
	_, err = Generate(2, 0)
	assert.True(t, errors.Is(err, ErrInvalidArgs))
	_, err = Generate(2, 64)
	assert.Error(t, err)
}
