package attack

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herlein/rollcat/pkg/jam"
	"github.com/herlein/rollcat/pkg/radio"
	"github.com/herlein/rollcat/pkg/radio/radiotest"
)

// scriptedPrompter answers questions from fixed queues
type scriptedPrompter struct {
	confirms []bool
	answers  []string
	asked    []string
}

func (p *scriptedPrompter) Confirm(q string) (bool, error) {
	p.asked = append(p.asked, q)
	if len(p.confirms) == 0 {
		return false, errors.New("unexpected confirm: " + q)
	}
	v := p.confirms[0]
	p.confirms = p.confirms[1:]
	return v, nil
}

func (p *scriptedPrompter) Ask(q string) (string, error) {
	p.asked = append(p.asked, q)
	if len(p.answers) == 0 {
		return "", errors.New("unexpected question: " + q)
	}
	v := p.answers[0]
	p.answers = p.answers[1:]
	return v, nil
}

type rig struct {
	journal *radiotest.Journal
	capture *radiotest.Fake
	jamPort *radiotest.Fake
	jammer  *jam.Coordinator
	orch    *Orchestrator
	prompt  *scriptedPrompter
}

func newRig(t *testing.T, script ...radiotest.Step) *rig {
	t.Helper()
	journal := &radiotest.Journal{}
	capturePort := &radiotest.Fake{Name: "capture", Journal: journal, Script: script}
	jamPort := &radiotest.Fake{Name: "jam", Journal: journal, TransmitDelay: time.Millisecond}

	settings := radio.DefaultSettings()
	prompt := &scriptedPrompter{}
	orch := New(capturePort, settings, NewStore(t.TempDir()), prompt, nil)
	orch.Gap, orch.Settle, orch.Timeout = 0, 0, time.Millisecond

	return &rig{
		journal: journal,
		capture: capturePort,
		jamPort: jamPort,
		jammer:  jam.New(jamPort, settings, 0),
		orch:    orch,
		prompt:  prompt,
	}
}

func indexOf(calls []radiotest.Call, radioName, op string) int {
	for i, c := range calls {
		if c.Radio == radioName && c.Op == op {
			return i
		}
	}
	return -1
}

func captureTransmits(j *radiotest.Journal) [][]byte {
	var out [][]byte
	for _, c := range j.Ops(radiotest.OpTransmit) {
		if c.Radio == "capture" {
			out = append(out, c.Data)
		}
	}
	return out
}

func TestRollingCodeSendsBothInOrder(t *testing.T) {
	r := newRig(t,
		radiotest.Timeout(),
		radiotest.Packet([]byte{0xA1, 0x01}, -50),
		radiotest.Packet([]byte{0xEE}, -5), // jammer leakage, too strong
		radiotest.Packet([]byte{0xA2, 0x02}, -45),
	)
	r.prompt.confirms = []bool{true}

	res, err := r.orch.RollingCode(context.Background(), r.jammer)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Empty(t, res.SavedPath)
	assert.Equal(t, jam.Idle, r.jammer.State())

	assert.Equal(t, [][]byte{{0xA1, 0x01}, {0xA2, 0x02}}, captureTransmits(r.journal))

	calls := r.journal.Calls()
	jamIdle := indexOf(calls, "jam", radiotest.OpIdle)
	firstTx := indexOf(calls, "capture", radiotest.OpTransmit)
	require.NotEqual(t, -1, jamIdle)
	assert.Less(t, jamIdle, firstTx, "jammer must be idle before the first replay")

	for _, tx := range r.journal.Ops(radiotest.OpTransmit) {
		if tx.Radio == "capture" {
			assert.Equal(t, DefaultRepeat, tx.Repeat)
		}
	}
}

func TestRollingCodeSavesSecondWhenDeclined(t *testing.T) {
	r := newRig(t,
		radiotest.Packet([]byte{0x11}, -60),
		radiotest.Packet([]byte{0x00, 0x22}, -60),
	)
	r.prompt.confirms = []bool{false}
	r.prompt.answers = []string{"garage"}

	res, err := r.orch.RollingCode(context.Background(), r.jammer)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, [][]byte{{0x11}}, captureTransmits(r.journal))
	assert.Equal(t, filepath.Join(r.orch.Store.Dir, "garage.cap"), res.SavedPath)

	lines, err := Load(res.SavedPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"0022"}, lines)
}

func TestRollingCodeBlankNameFallsBackToTimestamp(t *testing.T) {
	r := newRig(t,
		radiotest.Packet([]byte{0x11}, -60),
		radiotest.Packet([]byte{0x00, 0x22}, -60),
	)
	r.orch.Store.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	r.prompt.confirms = []bool{false}
	r.prompt.answers = []string{"   "}

	res, err := r.orch.RollingCode(context.Background(), r.jammer)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, filepath.Join(r.orch.Store.Dir, "2024_03_09_140507_payload.cap"), res.SavedPath)

	lines, err := Load(res.SavedPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"0022"}, lines)
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("garage"))
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.False(t, ValidName(bad), bad)
	}
}

func TestRollingCodeStopsJammerOnCancel(t *testing.T) {
	r := newRig(t, radiotest.Packet([]byte{0x11}, -60))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.capture.AfterReceive = func(n int) {
		if n == 4 {
			cancel()
		}
	}

	res, err := r.orch.RollingCode(ctx, r.jammer)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, res.Captures, "partial pair is discarded")
	assert.Equal(t, jam.Idle, r.jammer.State())
	assert.Empty(t, captureTransmits(r.journal))
}

func TestRollingCodeAbortsWhenJammerFails(t *testing.T) {
	r := newRig(t) // the capture radio never hears anything
	r.jamPort.TransmitErr = errors.New("usb: no device")

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := r.orch.RollingCode(context.Background(), r.jammer)
		done <- outcome{res, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("capture kept running after the jammer failed")
	}
	require.Error(t, out.err)
	assert.True(t, errors.Is(out.err, r.jamPort.TransmitErr))
	assert.Contains(t, out.err.Error(), "jammer failed during capture")
	assert.Zero(t, out.res.Sent)
	assert.Empty(t, captureTransmits(r.journal))
	assert.Equal(t, jam.Idle, r.jammer.State())
}

func TestLiveReplay(t *testing.T) {
	r := newRig(t,
		radiotest.Packet([]byte{0x01}, -60),
		radiotest.Packet([]byte{0x0B, 0xCD}, -61),
	)
	r.orch.Store.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	// reject first capture, keep second, replay it, save it
	r.prompt.confirms = []bool{false, true, true, true}

	res, err := r.orch.LiveReplay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, [][]byte{{0x0B, 0xCD}}, captureTransmits(r.journal))
	assert.Equal(t, filepath.Join(r.orch.Store.Dir, "2024_03_09_140507_payload.cap"), res.SavedPath)

	lines, err := Load(res.SavedPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"0bcd"}, lines)
}

func TestLiveReplaySaveWithoutReplay(t *testing.T) {
	r := newRig(t, radiotest.Packet([]byte{0x42}, -60))
	r.prompt.confirms = []bool{true, false, true}

	res, err := r.orch.LiveReplay(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.NotEmpty(t, res.SavedPath)
	assert.Empty(t, captureTransmits(r.journal))
}

func TestCaptureFileRoundTrip(t *testing.T) {
	sent := [][]byte{
		{0x00, 0x0F, 0xA5},
		{0x8E, 0x88, 0x8E, 0x00},
		{0x01},
	}
	var hexes []string
	for _, p := range sent {
		hexes = append(hexes, radio.Capture{Payload: p}.Hex())
	}

	store := NewStore(t.TempDir())
	path, err := store.Save("roundtrip", hexes...)
	require.NoError(t, err)

	lines, err := Load(path)
	require.NoError(t, err)
	require.Len(t, lines, len(sent))
	for i, line := range lines {
		got, err := PayloadBytes(line)
		require.NoError(t, err)
		assert.Equal(t, sent[i], got)
	}
}

func TestPayloadBytes(t *testing.T) {
	got, err := PayloadBytes(" abc\n")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0A, 0xBC}, got)

	_, err = PayloadBytes("xyz")
	assert.True(t, errors.Is(err, ErrInvalidPayload))
	_, err = PayloadBytes("")
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestReplaySavedOnceInFileOrder(t *testing.T) {
	r := newRig(t)
	path, err := r.orch.Store.Save("codes", "aa01", "", "bb02")
	require.NoError(t, err)

	res, err := r.orch.ReplaySaved(context.Background(), path, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, [][]byte{{0xAA, 0x01}, {0xBB, 0x02}}, captureTransmits(r.journal))
}

func TestReplaySavedForeverUntilCancel(t *testing.T) {
	r := newRig(t)
	path, err := r.orch.Store.Save("codes", "01", "02")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.orch.Port = &cancelAfterTransmits{Fake: r.capture, n: 5, cancel: cancel}

	res, err := r.orch.ReplaySaved(ctx, path, true)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 5, res.Sent)

	sent := captureTransmits(r.journal)
	assert.Equal(t, [][]byte{{0x01}, {0x02}, {0x01}, {0x02}, {0x01}}, sent)
}

type cancelAfterTransmits struct {
	*radiotest.Fake
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfterTransmits) Transmit(data []byte, repeat int) error {
	err := c.Fake.Transmit(data, repeat)
	c.n--
	if c.n == 0 {
		c.cancel()
	}
	return err
}

func TestReplaySavedMissingFile(t *testing.T) {
	r := newRig(t)
	_, err := r.orch.ReplaySaved(context.Background(), filepath.Join(t.TempDir(), "gone.cap"), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCaptureNotFound))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, r.journal.Calls(), "no radio I/O on resource errors")
}

func TestReplaySavedBadLineSendsNothing(t *testing.T) {
	r := newRig(t)
	path := filepath.Join(t.TempDir(), "bad.cap")
	require.NoError(t, os.WriteFile(path, []byte("aa\nnothex\n"), 0644))

	_, err := r.orch.ReplaySaved(context.Background(), path, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPayload))
	assert.Contains(t, err.Error(), "line 2")
	assert.Empty(t, captureTransmits(r.journal))
}

func TestDeBruijnAttack(t *testing.T) {
	r := newRig(t)
	r.prompt.answers = []string{"3"}

	res, err := r.orch.DeBruijn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	// 00010111
	assert.Equal(t, [][]byte{{0x17}}, captureTransmits(r.journal))
}

func TestDeBruijnRejectsBadLength(t *testing.T) {
	for _, answer := range []string{"three", "0", "-2"} {
		r := newRig(t)
		r.prompt.answers = []string{answer}

		_, err := r.orch.DeBruijn(context.Background())
		assert.True(t, errors.Is(err, ErrInvalidLength), answer)
		assert.Empty(t, r.journal.Calls())
	}
}
