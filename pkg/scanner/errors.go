package scanner

import "github.com/pkg/errors"

// Scanner errors
var (
	// ErrNoFrequencies indicates no frequencies were specified for scanning
	ErrNoFrequencies = errors.New("no frequencies specified for scanning")

	// ErrFrequencyOutOfRange indicates a sweep ran past the top of the
	// representable range
	ErrFrequencyOutOfRange = errors.New("frequency out of valid range")

	// ErrInvalidInterval indicates a sweep interval of zero
	ErrInvalidInterval = errors.New("sweep interval must be positive")
)
