// Package debruijn generates de Bruijn sequences: the shortest cyclic
// sequence over k symbols that contains every length-n word exactly once.
// Transmitting one covers a whole static code space in k^n symbols.
package debruijn

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidArgs is returned for an alphabet smaller than two or n < 1
var ErrInvalidArgs = errors.New("de Bruijn needs k >= 2 and n >= 1")

// MaxSymbols caps k^n so a typo cannot exhaust memory
const MaxSymbols = 1 << 24

// Generate returns B(k, n) as symbol indexes in [0, k). It is built by
// concatenating, in lexicographic order, the Lyndon words whose length
// divides n.
func Generate(k, n int) ([]int, error) {
	if k < 2 || n < 1 {
		return nil, errors.Wrapf(ErrInvalidArgs, "k=%d n=%d", k, n)
	}
	total := 1
	for i := 0; i < n; i++ {
		total *= k
		if total > MaxSymbols {
			return nil, errors.Errorf("de Bruijn B(%d,%d) exceeds %d symbols", k, n, MaxSymbols)
		}
	}

	a := make([]int, k*n+1)
	seq := make([]int, 0, total)

	var db func(t, p int)
	db = func(t, p int) {
		if t > n {
			if n%p == 0 {
				seq = append(seq, a[1:p+1]...)
			}
			return
		}
		a[t] = a[t-p]
		db(t+1, p)
		for j := a[t-p] + 1; j < k; j++ {
			a[t] = j
			db(t+1, t)
		}
	}
	db(1, 1)

	return seq, nil
}

// Symbols returns the default alphabet "0".."k-1"
func Symbols(k int) []string {
	out := make([]string, k)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

// Sequence renders B(len(alphabet), n) over an explicit alphabet
func Sequence(alphabet []string, n int) (string, error) {
	seq, err := Generate(len(alphabet), n)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, i := range seq {
		sb.WriteString(alphabet[i])
	}
	return sb.String(), nil
}

// SequenceK renders B(k, n) over the default alphabet
func SequenceK(k, n int) (string, error) {
	return Sequence(Symbols(k), n)
}

// Bits returns the binary de Bruijn sequence of order n as '0'/'1' text
func Bits(n int) (string, error) {
	return SequenceK(2, n)
}
