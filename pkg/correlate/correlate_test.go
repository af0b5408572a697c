package correlate

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBitsStripsLeadingZeros(t *testing.T) {
	tests := []struct {
		in   string
		want BitSequence
	}{
		{"f", "1111"},
		{"000f", "1111"},
		{"0x0a", "1010"},
		{"00", "0"},
		{"8000", "1000000000000000"},
	}
	for _, tt := range tests {
		got, err := ToBits(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestToBitsFixedWidthKeepsLength(t *testing.T) {
	got, err := ToBitsFixedWidth("000f")
	require.NoError(t, err)
	assert.Equal(t, BitSequence("0000000000001111"), got)
}

func TestToBitsRejectsNonHex(t *testing.T) {
	_, err := ToBits("zz")
	assert.True(t, errors.Is(err, ErrInvalidPayload))
	_, err = ToBitsFixedWidth("12g4")
	assert.True(t, errors.Is(err, ErrInvalidPayload))
	_, err = ToBits("  ")
	assert.True(t, errors.Is(err, ErrInvalidPayload))

	for _, signed := range []string{"-f", "+f", "0x-f"} {
		got, err := ToBits(signed)
		assert.True(t, errors.Is(err, ErrInvalidPayload), signed)
		assert.Empty(t, got, signed)
	}
}

func TestSimilarityIdentity(t *testing.T) {
	payloads := []string{
		"f",
		"aaaa8888e8e88e",
		strings.Repeat("8e88", 120), // long enough that autojunk would matter
		"00000001",
	}
	for _, p := range payloads {
		score, err := Similarity(p, p)
		require.NoError(t, err)
		assert.Equal(t, 1.0, score, p)

		score, err = Options{FixedWidth: true}.Similarity(p, p)
		require.NoError(t, err)
		assert.Equal(t, 1.0, score, p)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"f0", "ff"},
		{"a5a5", "5a"},
		{"8e888e8eee", "8e8e8e88"},
		{"1", "ffffffff"},
		{"0123456789abcdef", "fedcba9876543210"},
	}
	for _, p := range pairs {
		ab, err := Similarity(p[0], p[1])
		require.NoError(t, err)
		ba, err := Similarity(p[1], p[0])
		require.NoError(t, err)
		assert.Equal(t, ab, ba, "%s vs %s", p[0], p[1])
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestSimilarityKnownRatio(t *testing.T) {
	// 11110000 vs 11111111: one 4-bit matching block over 16 bits
	score, err := Similarity("f0", "ff")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-9)
}

// Leading zeros are stripped before comparison, so payloads that differ
// only in leading zero digits score as identical. The fixed-width option
// keeps them apart.
func TestSimilarityLeadingZeroBehaviour(t *testing.T) {
	stripped, err := Similarity("0f", "000f")
	require.NoError(t, err)
	assert.Equal(t, 1.0, stripped)

	fixed, err := Options{FixedWidth: true}.Similarity("0f", "000f")
	require.NoError(t, err)
	assert.InDelta(t, 2.0*8/24, fixed, 1e-9)
}

func TestRankOrdersByScore(t *testing.T) {
	ranked, err := Options{}.Rank("ff00", []string{"00ff", "ff00", "fe00", "not-hex"})
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "ff00", ranked[0].Payload)
	assert.Equal(t, 1.0, ranked[0].Score)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

// Callers must not depend on which tied candidate wins. Rank happens to
// sort stably today, but only the score is part of the contract.
func TestBestTieIsAnyTopCandidate(t *testing.T) {
	best, ok, err := Options{}.Best("ff", []string{"0ff", "00ff", "0f"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, best.Score)
	assert.Contains(t, []string{"0ff", "00ff"}, best.Payload)
}

func TestBestEmpty(t *testing.T) {
	_, ok, err := Options{}.Best("ff", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = Options{}.Best("xyz", []string{"ff"})
	assert.Error(t, err)
}

func TestSplitByZeros(t *testing.T) {
	got := SplitByZeros("8e8e8e000000008e8e88e00e8e8e8e8e0008e")
	assert.Equal(t, []string{"8e8e8e", "8e8e88e00e8e8e8e8e"}, got)

	assert.Empty(t, SplitByZeros("0000000000"))
}

func TestParseLogSkipsAnnotations(t *testing.T) {
	log := "A signal was found on: 315000000\n" +
		"aaaaaa0000bbbbbbb\n" +
		"\n" +
		"A signal was found on: 433000000\n" +
		"123456789\n"

	presses, err := ParseLog(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"aaaaaa", "bbbbbbb"}, {"123456789"}}, presses)
	assert.Equal(t, []string{"aaaaaa", "bbbbbbb", "123456789"}, Flatten(presses))
}

func TestPackBits(t *testing.T) {
	got, err := PackBits("101")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA0}, got)

	got, err = PackBits("1111000011")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0xC0}, got)

	_, err = PackBits("10x")
	assert.Error(t, err)
}

func TestPWM(t *testing.T) {
	got, err := PWM("", "10")
	require.NoError(t, err)
	assert.Equal(t, "10001110", got)

	got, err = PWM("11", "1")
	require.NoError(t, err)
	assert.Equal(t, "111000", got)

	_, err = PWM("", "12")
	assert.Error(t, err)
}
