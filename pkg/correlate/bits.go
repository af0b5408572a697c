// Package correlate turns captured payloads into bit sequences and scores
// how alike two of them are, for matching a live capture against known
// remotes.
package correlate

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidPayload is returned for text that is not hex
var ErrInvalidPayload = errors.New("invalid hex payload")

// BitSequence is a string of '0' and '1' characters
type BitSequence string

// Len returns the number of bits
func (b BitSequence) Len() int { return len(b) }

func cleanHex(payload string) string {
	p := strings.TrimSpace(payload)
	p = strings.TrimPrefix(strings.TrimPrefix(p, "0x"), "0X")
	return p
}

// ToBits parses payload as a hex integer and returns its minimal binary
// form. Leading zero bits are dropped, so "000f" and "f" both give "1111"
// and an all-zero payload gives "0". Payloads of different true length can
// therefore compare as more alike than they are; see ToBitsFixedWidth.
func ToBits(payload string) (BitSequence, error) {
	p := cleanHex(payload)
	if p == "" {
		return "", errors.Wrapf(ErrInvalidPayload, "empty payload")
	}
	// SetString would accept a sign
	for _, r := range p {
		if _, ok := hexDigit(r); !ok {
			return "", errors.Wrapf(ErrInvalidPayload, "%q", payload)
		}
	}
	n, ok := new(big.Int).SetString(p, 16)
	if !ok {
		return "", errors.Wrapf(ErrInvalidPayload, "%q", payload)
	}
	return BitSequence(n.Text(2)), nil
}

// ToBitsFixedWidth expands every hex digit to four bits, preserving the
// payload's true bit length.
func ToBitsFixedWidth(payload string) (BitSequence, error) {
	p := cleanHex(payload)
	if p == "" {
		return "", errors.Wrapf(ErrInvalidPayload, "empty payload")
	}
	var sb strings.Builder
	sb.Grow(len(p) * 4)
	for _, r := range p {
		v, ok := hexDigit(r)
		if !ok {
			return "", errors.Wrapf(ErrInvalidPayload, "%q", payload)
		}
		for bit := 3; bit >= 0; bit-- {
			if v&(1<<uint(bit)) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return BitSequence(sb.String()), nil
}

func hexDigit(r rune) (byte, bool) {
	switch {
	case r >= '0' && r <= '9':
		return byte(r - '0'), true
	case r >= 'a' && r <= 'f':
		return byte(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return byte(r-'A') + 10, true
	}
	return 0, false
}

// PackBits packs a bit string into bytes, most significant bit first. A
// trailing partial byte is padded with zero bits on the right.
func PackBits(bits string) ([]byte, error) {
	out := make([]byte, (len(bits)+7)/8)
	for i, r := range bits {
		switch r {
		case '1':
			out[i/8] |= 0x80 >> uint(i%8)
		case '0':
		default:
			return nil, errors.Errorf("invalid bit %q at offset %d", r, i)
		}
	}
	return out, nil
}

// PWM encodes a static key for pulse-width remotes: each '1' becomes
// "1000" and each '0' becomes "1110". prefix is prepended unchanged.
func PWM(prefix, key string) (string, error) {
	var sb strings.Builder
	sb.WriteString(prefix)
	for i, r := range key {
		switch r {
		case '1':
			sb.WriteString("1000")
		case '0':
			sb.WriteString("1110")
		default:
			return "", errors.Errorf("invalid key bit %q at offset %d", r, i)
		}
	}
	return sb.String(), nil
}
