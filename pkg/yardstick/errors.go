package yardstick

import "github.com/pkg/errors"

var (
	// ErrNoDevice is returned when no YardStick One matches a selector
	ErrNoDevice = errors.New("no YardStick One devices found")

	// ErrRecvTimeout is returned when no matching response arrives in time
	ErrRecvTimeout = errors.New("timeout waiting for response")

	// ErrBadSelector is returned for an unparsable device selector
	ErrBadSelector = errors.New("invalid device selector")
)
