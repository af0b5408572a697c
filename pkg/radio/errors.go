package radio

import "github.com/pkg/errors"

var (
	// ErrTimeout means a receive window closed with no packet. It is an
	// expected result, not a failure.
	ErrTimeout = errors.New("radio receive timeout")

	// ErrInvalidSettings marks a configuration problem found before any radio I/O
	ErrInvalidSettings = errors.New("invalid radio settings")
)

// IsTimeout reports whether err is (or wraps) ErrTimeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
