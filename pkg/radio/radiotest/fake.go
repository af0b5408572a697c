// Package radiotest provides a scripted radio.Port for tests.
package radiotest

import (
	"sync"
	"time"

	"github.com/herlein/rollcat/pkg/radio"
)

// Operation names recorded in a Journal
const (
	OpConfigure    = "configure"
	OpSetFrequency = "set_frequency"
	OpTransmit     = "transmit"
	OpReceive      = "receive"
	OpIdle         = "idle"
)

// Call is one recorded Port invocation
type Call struct {
	Radio  string
	Op     string
	Hz     uint32
	Data   []byte
	Repeat int
}

// Journal records calls from one or more fakes in global order, so tests
// can assert ordering across radios.
type Journal struct {
	mu    sync.Mutex
	calls []Call
}

func (j *Journal) add(c Call) {
	j.mu.Lock()
	j.calls = append(j.calls, c)
	j.mu.Unlock()
}

// Calls returns a copy of everything recorded so far
func (j *Journal) Calls() []Call {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Call, len(j.calls))
	copy(out, j.calls)
	return out
}

// Ops returns the calls matching op, in order
func (j *Journal) Ops(op string) []Call {
	var out []Call
	for _, c := range j.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Step is one scripted Receive outcome
type Step struct {
	Payload []byte
	RSSI    int
	Err     error
}

// Timeout is a Step that reports an empty receive window
func Timeout() Step {
	return Step{Err: radio.ErrTimeout}
}

// Packet is a Step that delivers payload at rssi dBm
func Packet(payload []byte, rssi int) Step {
	return Step{Payload: payload, RSSI: rssi}
}

// Fake is a radio.Port driven by a Script. Once the script runs out every
// Receive times out.
type Fake struct {
	Name    string
	Journal *Journal
	Script  []Step

	// AfterReceive runs after every Receive with the 1-based receive count
	AfterReceive func(n int)

	ConfigureErr  error
	TransmitErr   error
	TransmitDelay time.Duration

	mu       sync.Mutex
	received int
}

// New returns a Fake recording into a fresh journal
func New(name string, script ...Step) *Fake {
	return &Fake{Name: name, Journal: &Journal{}, Script: script}
}

func (f *Fake) record(c Call) {
	c.Radio = f.Name
	if f.Journal != nil {
		f.Journal.add(c)
	}
}

// Configure implements radio.Port
func (f *Fake) Configure(settings radio.Settings) error {
	f.record(Call{Op: OpConfigure, Hz: settings.Frequency})
	return f.ConfigureErr
}

// SetFrequency implements radio.Port
func (f *Fake) SetFrequency(hz uint32) error {
	f.record(Call{Op: OpSetFrequency, Hz: hz})
	return nil
}

// Transmit implements radio.Port
func (f *Fake) Transmit(data []byte, repeat int) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	f.record(Call{Op: OpTransmit, Data: buf, Repeat: repeat})
	if f.TransmitDelay > 0 {
		time.Sleep(f.TransmitDelay)
	}
	return f.TransmitErr
}

// Receive implements radio.Port
func (f *Fake) Receive(timeout time.Duration) (radio.Reading, error) {
	f.record(Call{Op: OpReceive})

	f.mu.Lock()
	f.received++
	n := f.received
	var step Step
	if n <= len(f.Script) {
		step = f.Script[n-1]
	} else {
		step = Timeout()
	}
	f.mu.Unlock()

	if f.AfterReceive != nil {
		f.AfterReceive(n)
	}
	if step.Err != nil {
		return radio.Reading{}, step.Err
	}
	return radio.Reading{Payload: step.Payload, RSSI: step.RSSI}, nil
}

// Idle implements radio.Port
func (f *Fake) Idle() error {
	f.record(Call{Op: OpIdle})
	return nil
}

// Received returns how many times Receive was called
func (f *Fake) Received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}
