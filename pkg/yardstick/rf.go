package yardstick

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// SetModeRX puts the radio into receive mode and verifies MARCSTATE
func (d *Device) SetModeRX() error {
	if err := d.SetModeIDLE(); err != nil {
		return errors.Wrap(err, "failed to set IDLE before RX")
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := d.Send(AppSystem, SysCmdRFMode, []byte{RFSTSrx}, USBDefaultTimeout); err != nil {
		return errors.Wrap(err, "failed to set RX mode")
	}
	return d.WaitForState(MarcStateRX, 100*time.Millisecond)
}

// SetModeIDLE puts the radio into idle mode
func (d *Device) SetModeIDLE() error {
	if _, err := d.Send(AppSystem, SysCmdRFMode, []byte{RFSTSidle}, USBDefaultTimeout); err != nil {
		return errors.Wrap(err, "failed to set IDLE mode")
	}
	return nil
}

// Strobe writes a command strobe to RFST without changing MCSM1
func (d *Device) Strobe(cmd uint8) error {
	return d.PokeByte(RegRFST, cmd)
}

// GetMARCSTATE returns the current radio state machine state
func (d *Device) GetMARCSTATE() (uint8, error) {
	state, err := d.PeekByte(RegMARCSTATE)
	return state & 0x1F, err
}

// WaitForState polls MARCSTATE until state is reached or timeout
func (d *Device) WaitForState(state uint8, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var current uint8
	for {
		var err error
		current, err = d.GetMARCSTATE()
		if err != nil {
			return errors.Wrap(err, "failed to read MARCSTATE")
		}
		if current == state {
			return nil
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	return errors.Errorf("radio in state 0x%02X, wanted 0x%02X", current, state)
}

// SetFrequency writes FREQ2..FREQ0 and FSCAL2 for freqHz. The radio
// recalibrates on its next IDLE to RX/TX transition.
func (d *Device) SetFrequency(freqHz uint32) error {
	freq2, freq1, freq0 := CalcFreqRegs(freqHz)
	if err := d.Poke(RegFREQ2, []byte{freq2, freq1, freq0}); err != nil {
		return errors.Wrapf(err, "failed to set frequency %d", freqHz)
	}
	if err := d.PokeByte(RegFSCAL2, VCOSelection(freqHz)); err != nil {
		return errors.Wrap(err, "failed to select VCO")
	}
	return nil
}

// GetFrequency returns the current carrier frequency in Hz
func (d *Device) GetFrequency() (uint32, error) {
	regs, err := d.Peek(RegFREQ2, 3)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read FREQ registers")
	}
	return FreqFromRegs(regs[0], regs[1], regs[2]), nil
}

// xmitPayload builds a NIC_XMIT payload: len(2 LE) + repeat(2 LE) +
// offset(2 LE) + data
func xmitPayload(data []byte, repeat, offset uint16) []byte {
	payload := make([]byte, 6+len(data))
	binary.LittleEndian.PutUint16(payload[0:2], uint16(len(data)))
	binary.LittleEndian.PutUint16(payload[2:4], repeat)
	binary.LittleEndian.PutUint16(payload[4:6], offset)
	copy(payload[6:], data)
	return payload
}

// RFXmit transmits data. repeat is the number of extra repetitions
// (65535 = forever); offset is where repetitions restart within data.
// Payloads longer than RFMaxTXBlock go through RFXmitLong.
func (d *Device) RFXmit(data []byte, repeat uint16, offset uint16) error {
	if len(data) > RFMaxTXBlock {
		if repeat > 0 || offset > 0 {
			return errors.New("repeat/offset not supported for long transmit")
		}
		return d.RFXmitLong(data)
	}

	waitLen := len(data)
	if repeat > 0 {
		waitLen += int(repeat) * (len(data) - int(offset))
	}
	waitTime := USBTXWaitTimeout * time.Duration(waitLen/RFMaxTXBlock+1)

	response, err := d.Send(AppNIC, NICXmit, xmitPayload(data, repeat, offset), waitTime)
	if err != nil {
		return errors.Wrap(err, "transmit failed")
	}

	// firmware revisions answer 1, '0' or 0 on success
	if len(response) > 0 {
		if code := response[0]; code != 1 && code != '0' && code != 0 {
			return errors.Errorf("transmit error: device returned 0x%02X", code)
		}
	}
	return nil
}

// chunk splits data into RFMaxTXChunk pieces
func chunk(data []byte) [][]byte {
	var chunks [][]byte
	for i := 0; i < len(data); i += RFMaxTXChunk {
		end := i + RFMaxTXChunk
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	return chunks
}

// RFXmitLong transmits data larger than one block in chunks
func (d *Device) RFXmitLong(data []byte) error {
	if len(data) > RFMaxTXLong {
		return errors.Errorf("data too large: %d bytes exceeds maximum %d", len(data), RFMaxTXLong)
	}

	chunks := chunk(data)
	preload := RFMaxTXBlock / RFMaxTXChunk
	if preload > len(chunks) {
		preload = len(chunks)
	}

	initial := make([]byte, 3, 3+preload*RFMaxTXChunk)
	binary.LittleEndian.PutUint16(initial[0:2], uint16(len(data)))
	initial[2] = byte(preload)
	for _, c := range chunks[:preload] {
		initial = append(initial, c...)
	}

	response, err := d.Send(AppNIC, NICLongXmit, initial, USBTXWaitTimeout*time.Duration(preload))
	if err != nil {
		return errors.Wrap(err, "long transmit init failed")
	}
	if len(response) > 0 && response[0] != RCNoError {
		return errors.Errorf("long transmit init error: 0x%02X", response[0])
	}

	for i := preload; i < len(chunks); i++ {
		payload := append([]byte{byte(len(chunks[i]))}, chunks[i]...)
		for retries := 0; ; retries++ {
			response, err = d.Send(AppNIC, NICLongXmitMore, payload, USBTXWaitTimeout)
			if err != nil {
				return errors.Wrapf(err, "long transmit chunk %d failed", i)
			}
			if len(response) > 0 && response[0] == RCTempErrBufferNotAvailable && retries < 100 {
				time.Sleep(time.Millisecond)
				continue
			}
			if len(response) > 0 && response[0] != RCNoError {
				return errors.Errorf("long transmit chunk %d error: 0x%02X", i, response[0])
			}
			break
		}
	}

	response, err = d.Send(AppNIC, NICLongXmitMore, []byte{0}, USBTXWaitTimeout)
	if err != nil {
		return errors.Wrap(err, "long transmit completion failed")
	}
	if len(response) > 0 && response[0] != RCNoError {
		return errors.Errorf("long transmit completion error: 0x%02X", response[0])
	}
	return nil
}

// RFRecv waits up to timeout for one received packet. It returns
// ErrRecvTimeout when nothing arrives.
func (d *Device) RFRecv(timeout time.Duration) ([]byte, error) {
	return d.Recv(AppNIC, NICRecv, timeout)
}

// SetAmpMode enables (AmpModeOn) or bypasses (AmpModeOff) the YardStick
// One front-end amplifiers
func (d *Device) SetAmpMode(mode uint8) error {
	if _, err := d.Send(AppNIC, NICSetAmpMode, []byte{mode}, USBDefaultTimeout); err != nil {
		return errors.Wrap(err, "failed to set amplifier mode")
	}
	return nil
}

// GetAmpMode returns the current amplifier mode
func (d *Device) GetAmpMode() (uint8, error) {
	response, err := d.Send(AppNIC, NICGetAmpMode, nil, USBDefaultTimeout)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get amplifier mode")
	}
	if len(response) < 1 {
		return 0, errors.New("empty amplifier mode response")
	}
	return response[0], nil
}

// GetRSSI returns the raw RSSI register
func (d *Device) GetRSSI() (uint8, error) {
	return d.PeekByte(RegRSSI)
}
