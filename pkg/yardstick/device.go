package yardstick

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// maxPending bounds how many unclaimed response frames a Device keeps
const maxPending = 64

// Device represents a YardStick One USB device
type Device struct {
	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface
	epIn         *gousb.InEndpoint
	epOut        *gousb.OutEndpoint
	Serial       string
	Manufacturer string
	Product      string
	Bus          int
	Address      int

	recvMu  sync.Mutex
	recvBuf []byte
	pending []frame
}

// frame is one response read from EP5
type frame struct {
	app, cmd uint8
	payload  []byte
}

// FindAllDevices opens every connected YardStick One
func FindAllDevices(ctx *gousb.Context) ([]*Device, error) {
	usbDevices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(VendorID) && desc.Product == gousb.ID(ProductID)
	})
	if err != nil && len(usbDevices) == 0 {
		return nil, errors.Wrap(err, "failed to enumerate devices")
	}

	devices := []*Device{}
	for _, usbDev := range usbDevices {
		device, err := wrapDevice(usbDev)
		if err != nil {
			log.Warn().Err(err).Int("bus", usbDev.Desc.Bus).Int("addr", usbDev.Desc.Address).Msg("skipping device")
			usbDev.Close()
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func wrapDevice(usbDev *gousb.Device) (*Device, error) {
	manufacturer, _ := usbDev.Manufacturer()
	product, _ := usbDev.Product()
	serial, _ := usbDev.SerialNumber()

	usbDev.SetAutoDetach(true)

	config, err := usbDev.Config(1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get configuration")
	}

	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return nil, errors.Wrap(err, "failed to claim interface")
	}

	epIn, err := iface.InEndpoint(EP5Number)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, errors.Wrap(err, "failed to get IN endpoint")
	}

	epOut, err := iface.OutEndpoint(EP5Number)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, errors.Wrap(err, "failed to get OUT endpoint")
	}

	device := &Device{
		usbDevice:    usbDev,
		usbConfig:    config,
		usbInterface: iface,
		epIn:         epIn,
		epOut:        epOut,
		Serial:       serial,
		Manufacturer: manufacturer,
		Product:      product,
		Bus:          usbDev.Desc.Bus,
		Address:      usbDev.Desc.Address,
		recvBuf:      make([]byte, 0, EP5OutBufferSize),
	}

	device.drainReceiveBuffer()
	return device, nil
}

// Close idles the radio and releases the USB handles
func (d *Device) Close() error {
	if d.epOut != nil {
		d.forceIdle()
	}
	if d.usbInterface != nil {
		d.usbInterface.Close()
	}
	if d.usbConfig != nil {
		d.usbConfig.Close()
	}
	if d.usbDevice != nil {
		return d.usbDevice.Close()
	}
	return nil
}

// drainReceiveBuffer discards data left over from a previous session
func (d *Device) drainReceiveBuffer() {
	buf := make([]byte, RFMaxRXBlock)
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		n, err := d.epIn.ReadContext(ctx, buf)
		cancel()
		if err != nil || n == 0 {
			break
		}
	}
	d.recvBuf = d.recvBuf[:0]
	d.pending = nil
}

// forceIdle pokes SIDLE into RFST without waiting for the reply
func (d *Device) forceIdle() {
	payload := make([]byte, 3)
	binary.LittleEndian.PutUint16(payload[0:2], RegRFST)
	payload[2] = RFSTSidle

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.epOut.WriteContext(ctx, encodeCommand(AppSystem, SysCmdPoke, payload))
}

// String returns a human-readable description of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s %s (Serial: %s, Bus %d, Addr %d)", d.Manufacturer, d.Product, d.Serial, d.Bus, d.Address)
}

// encodeCommand builds an EP5 command: app(1) + cmd(1) + length(2 LE) + payload
func encodeCommand(app, cmd uint8, payload []byte) []byte {
	packet := make([]byte, 4+len(payload))
	packet[0] = app
	packet[1] = cmd
	binary.LittleEndian.PutUint16(packet[2:4], uint16(len(payload)))
	copy(packet[4:], payload)
	return packet
}

// splitFrames extracts every complete response frame from buf. Bytes before
// a marker are noise and dropped; an incomplete trailing frame is returned
// as rest.
func splitFrames(buf []byte) (frames []frame, rest []byte) {
	for {
		i := bytes.IndexByte(buf, ResponseMarker)
		if i < 0 {
			return frames, nil
		}
		data := buf[i:]
		if len(data) < 5 {
			return frames, data
		}
		length := int(binary.LittleEndian.Uint16(data[3:5]))
		if len(data) < 5+length {
			return frames, data
		}
		payload := make([]byte, length)
		copy(payload, data[5:5+length])
		frames = append(frames, frame{app: data[1], cmd: data[2], payload: payload})
		buf = data[5+length:]
	}
}

// isTransientReadError reports whether a failed EP5 read just means no
// data arrived within the read slice. Anything else, such as a detached
// device, is a real failure.
func isTransientReadError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var status gousb.TransferStatus
	if errors.As(err, &status) {
		return status == gousb.TransferTimedOut || status == gousb.TransferCancelled
	}
	var usbErr gousb.Error
	if errors.As(err, &usbErr) {
		return usbErr == gousb.ErrorTimeout
	}
	return false
}

// Send writes a command to EP5 and waits for the matching response
func (d *Device) Send(app, cmd uint8, payload []byte, timeout time.Duration) ([]byte, error) {
	if timeout == 0 {
		timeout = USBDefaultTimeout
	}

	packet := encodeCommand(app, cmd, payload)
	writeCtx, writeCancel := context.WithTimeout(context.Background(), timeout)
	n, err := d.epOut.WriteContext(writeCtx, packet)
	writeCancel()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to write app=0x%02X cmd=0x%02X to EP5", app, cmd)
	}
	if n != len(packet) {
		return nil, errors.Errorf("short write: wrote %d of %d bytes", n, len(packet))
	}

	return d.Recv(app, cmd, timeout)
}

// takePending removes and returns the first pending frame for app/cmd
func (d *Device) takePending(app, cmd uint8) ([]byte, bool) {
	for i, f := range d.pending {
		if f.app == app && f.cmd == cmd {
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			return f.payload, true
		}
	}
	return nil, false
}

// Recv waits for a response frame from app/cmd. Frames for other
// app/cmd pairs are kept for later callers.
func (d *Device) Recv(app, cmd uint8, timeout time.Duration) ([]byte, error) {
	d.recvMu.Lock()
	defer d.recvMu.Unlock()

	if timeout == 0 {
		timeout = USBDefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	buf := make([]byte, RFMaxRXBlock)

	for {
		frames, rest := splitFrames(d.recvBuf)
		d.recvBuf = append(d.recvBuf[:0], rest...)
		d.pending = append(d.pending, frames...)
		if len(d.pending) > maxPending {
			log.Debug().Int("dropped", len(d.pending)-maxPending).Msg("dropping unclaimed responses")
			d.pending = d.pending[len(d.pending)-maxPending:]
		}
		if payload, ok := d.takePending(app, cmd); ok {
			return payload, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, errors.Wrapf(ErrRecvTimeout, "app=0x%02X cmd=0x%02X", app, cmd)
		}
		readTimeout := usbReadSlice
		if remaining < readTimeout {
			readTimeout = remaining
		}

		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		n, err := d.epIn.ReadContext(ctx, buf)
		cancel()
		if err != nil {
			if isTransientReadError(err) {
				continue
			}
			return nil, errors.Wrap(err, "failed to read from EP5")
		}
		d.recvBuf = append(d.recvBuf, buf[:n]...)
	}
}

// Ping sends a ping command and verifies the echo
func (d *Device) Ping(data []byte) error {
	response, err := d.Send(AppSystem, SysCmdPing, data, USBDefaultTimeout)
	if err != nil {
		return errors.Wrap(err, "ping failed")
	}
	if !bytes.Equal(response, data) {
		return errors.Errorf("ping echo mismatch: sent %x, got %x", data, response)
	}
	return nil
}

// Peek reads bytes from device memory
func (d *Device) Peek(address uint16, length uint16) ([]byte, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], length)
	binary.LittleEndian.PutUint16(payload[2:4], address)

	response, err := d.Send(AppSystem, SysCmdPeek, payload, USBDefaultTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "peek failed at 0x%04X", address)
	}
	if len(response) < int(length) {
		return nil, errors.Errorf("peek at 0x%04X returned %d of %d bytes", address, len(response), length)
	}
	return response, nil
}

// PeekByte reads a single byte from device memory
func (d *Device) PeekByte(address uint16) (uint8, error) {
	data, err := d.Peek(address, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// Poke writes bytes to device memory
func (d *Device) Poke(address uint16, data []byte) error {
	payload := make([]byte, 2+len(data))
	binary.LittleEndian.PutUint16(payload[0:2], address)
	copy(payload[2:], data)

	response, err := d.Send(AppSystem, SysCmdPoke, payload, USBDefaultTimeout)
	if err != nil {
		return errors.Wrapf(err, "poke failed at 0x%04X", address)
	}
	if len(response) >= 2 {
		if left := binary.LittleEndian.Uint16(response[0:2]); left != 0 {
			return errors.Errorf("poke incomplete at 0x%04X: %d bytes left", address, left)
		}
	}
	return nil
}

// PokeByte writes a single byte to device memory
func (d *Device) PokeByte(address uint16, value uint8) error {
	return d.Poke(address, []byte{value})
}

// GetBuildType returns the firmware build type string
func (d *Device) GetBuildType() (string, error) {
	response, err := d.Send(AppSystem, SysCmdBuildType, nil, USBDefaultTimeout)
	if err != nil {
		return "", errors.Wrap(err, "failed to get build type")
	}
	if i := bytes.IndexByte(response, 0); i >= 0 {
		response = response[:i]
	}
	return string(response), nil
}

// GetPartNum returns the chip part number
func (d *Device) GetPartNum() (uint8, error) {
	response, err := d.Send(AppSystem, SysCmdPartNum, nil, USBDefaultTimeout)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get part number")
	}
	if len(response) < 1 {
		return 0, errors.New("empty part number response")
	}
	return response[0], nil
}
