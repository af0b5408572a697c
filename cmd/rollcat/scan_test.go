package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/herlein/rollcat/pkg/scanner"
)

func TestSweepStartsAtRadioFrequency(t *testing.T) {
	assert.Equal(t, uint32(433920000), sweepStartFrequency(433920000))
	assert.Equal(t, scanner.DefaultStart, sweepStartFrequency(0))
}
