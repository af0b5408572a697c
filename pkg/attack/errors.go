package attack

import (
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrCaptureNotFound is returned when a capture file does not exist.
	// It matches os.ErrNotExist.
	ErrCaptureNotFound = errors.WithMessage(os.ErrNotExist, "capture file not found")

	// ErrInvalidPayload is returned for capture lines that are not hex
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidLength is returned for a bad de Bruijn order
	ErrInvalidLength = errors.New("invalid de Bruijn length")

	// ErrNoPrompter is returned when an operation needs operator input
	// and none was configured
	ErrNoPrompter = errors.New("operation requires a prompter")
)
