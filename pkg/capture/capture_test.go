package capture

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/rollcat/pkg/radio"
	"github.com/herlein/rollcat/pkg/radio/radiotest"
	"github.com/herlein/rollcat/pkg/telemetry"
)

func window(lower, upper int) radio.Settings {
	s := radio.DefaultSettings()
	s.RSSILower, s.RSSIUpper = lower, upper
	return s
}

func TestIsGenuine(t *testing.T) {
	s := window(-100, -20)

	tests := []struct {
		rssi int
		want bool
	}{
		{-150, false},
		{-100, false}, // lower bound is exclusive
		{-99, true},
		{-50, true},
		{-21, true},
		{-20, false}, // upper bound is exclusive
		{0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsGenuine(tt.rssi, s), "rssi %d", tt.rssi)
	}
}

type events struct {
	got []telemetry.Event
}

func (e *events) Emit(ev telemetry.Event) { e.got = append(e.got, ev) }

func (e *events) kinds(k telemetry.Kind) []telemetry.Event {
	var out []telemetry.Event
	for _, ev := range e.got {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

func TestRollingPairKeepsGenuineInOrder(t *testing.T) {
	fake := radiotest.New("capture",
		radiotest.Timeout(),
		radiotest.Packet([]byte{0x01}, -50),
		radiotest.Packet([]byte{0x02}, -150),
		radiotest.Packet([]byte{0x03}, -40),
	)
	sink := &events{}
	session := NewSession(fake, window(-100, -20), sink)

	pair, err := session.RollingPair(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []byte{0x01}, pair[0].Payload)
	assert.Equal(t, -50, pair[0].RSSI)
	assert.Equal(t, []byte{0x03}, pair[1].Payload)
	assert.Equal(t, -40, pair[1].RSSI)
	assert.Equal(t, uint32(315000000), pair[1].Frequency)
	assert.Equal(t, 4, fake.Received())

	assert.Len(t, sink.kinds(telemetry.KindCapture), 2)
	assert.Len(t, sink.kinds(telemetry.KindRejected), 1)
	assert.Len(t, sink.kinds(telemetry.KindTimeout), 1)
}

func TestRollingPairDiscardsPartialOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := radiotest.New("capture", radiotest.Packet([]byte{0xAA}, -60))
	fake.AfterReceive = func(n int) {
		if n == 3 {
			cancel()
		}
	}
	session := NewSession(fake, window(-100, -20), nil)

	pair, err := session.RollingPair(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, [2]radio.Capture{}, pair)
}

func TestRollingPairAbortsOnHardwareError(t *testing.T) {
	usbErr := errors.New("libusb: no device")
	fake := radiotest.New("capture",
		radiotest.Packet([]byte{0x01}, -50),
		radiotest.Step{Err: usbErr},
		radiotest.Packet([]byte{0x02}, -50),
	)
	session := NewSession(fake, window(-100, -20), nil)

	_, err := session.RollingPair(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, usbErr))
	assert.Equal(t, 2, fake.Received())
}

func TestSingleAsksDecider(t *testing.T) {
	fake := radiotest.New("capture",
		radiotest.Packet([]byte{0x10}, -60),
		radiotest.Packet([]byte{0x20}, -10), // saturated, never offered
		radiotest.Packet([]byte{0x30}, -70),
	)
	session := NewSession(fake, window(-100, -20), nil)

	var offered [][]byte
	session.Decide = func(c radio.Capture) (bool, error) {
		offered = append(offered, c.Payload)
		return len(offered) == 2, nil
	}

	c, err := session.Single(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x30}, c.Payload)
	assert.Equal(t, [][]byte{{0x10}, {0x30}}, offered)
}

func TestSingleWithoutDeciderTakesFirst(t *testing.T) {
	fake := radiotest.New("capture", radiotest.Timeout(), radiotest.Packet([]byte{0x42}, -30))
	session := NewSession(fake, window(-100, -20), nil)

	c, err := session.Single(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", c.Hex())
}

func TestStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := radiotest.New("capture",
		radiotest.Packet([]byte{0x01}, -50),
		radiotest.Packet([]byte{0x02}, -55),
	)
	fake.AfterReceive = func(n int) {
		if n == 5 {
			cancel()
		}
	}
	session := NewSession(fake, window(-100, -20), nil)
	session.Timeout = time.Millisecond

	out := make(chan radio.Capture, 10)
	err := session.Stream(ctx, out)
	assert.True(t, errors.Is(err, context.Canceled))

	var got []byte
	for c := range out {
		got = append(got, c.Payload...)
	}
	assert.Equal(t, []byte{0x01, 0x02}, got)
}

func TestPollTimeoutIsNotAnError(t *testing.T) {
	fake := radiotest.New("capture")
	session := NewSession(fake, window(-100, -20), nil)
	session.Frequency = 433920000

	_, ok, err := session.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
