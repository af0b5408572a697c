package yardstick

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/gousb"
	"github.com/pkg/errors"
)

// SelectorUsage describes the selector formats for command-line help
const SelectorUsage = `device selector: "" first device, "009a" serial, "1:10" bus:addr, "#1" index`

// Selector identifies a YardStick One. Exactly one of the match fields is
// set, or none for "first device".
type Selector struct {
	Serial  string
	Bus     int
	Address int
	Index   int
	kind    selectorKind
}

type selectorKind int

const (
	selectFirst selectorKind = iota
	selectSerial
	selectBusAddr
	selectIndex
)

// ParseSelector parses:
//   - ""         first available device
//   - "serial"   serial number (e.g. "009a")
//   - "bus:addr" USB bus and address (e.g. "1:10")
//   - "#N"       Nth device in bus:address order, 0-indexed
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Selector{kind: selectFirst}, nil

	case strings.HasPrefix(s, "#"):
		index, err := strconv.Atoi(s[1:])
		if err != nil || index < 0 {
			return Selector{}, errors.Wrapf(ErrBadSelector, "index %q", s)
		}
		return Selector{Index: index, kind: selectIndex}, nil

	case strings.Contains(s, ":"):
		busStr, addrStr, _ := strings.Cut(s, ":")
		bus, err := strconv.Atoi(busStr)
		if err != nil {
			return Selector{}, errors.Wrapf(ErrBadSelector, "bus %q", busStr)
		}
		addr, err := strconv.Atoi(addrStr)
		if err != nil {
			return Selector{}, errors.Wrapf(ErrBadSelector, "address %q", addrStr)
		}
		return Selector{Bus: bus, Address: addr, kind: selectBusAddr}, nil
	}
	return Selector{Serial: s, kind: selectSerial}, nil
}

// String renders the selector in the form ParseSelector accepts
func (s Selector) String() string {
	switch s.kind {
	case selectSerial:
		return s.Serial
	case selectBusAddr:
		return strconv.Itoa(s.Bus) + ":" + strconv.Itoa(s.Address)
	case selectIndex:
		return "#" + strconv.Itoa(s.Index)
	}
	return ""
}

// Info describes a device without holding it open
type Info struct {
	Serial       string
	Manufacturer string
	Product      string
	Bus          int
	Address      int
}

func (d *Device) info() Info {
	return Info{Serial: d.Serial, Manufacturer: d.Manufacturer, Product: d.Product, Bus: d.Bus, Address: d.Address}
}

// locate sorts devices by bus then address, so indexes are stable across
// runs, and returns their descriptions in that order
func locate(devices []*Device) []Info {
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Bus != devices[j].Bus {
			return devices[i].Bus < devices[j].Bus
		}
		return devices[i].Address < devices[j].Address
	})
	infos := make([]Info, len(devices))
	for i, d := range devices {
		infos[i] = d.info()
	}
	return infos
}

// pick returns the index into devices the selector matches
func (s Selector) pick(devices []Info) (int, error) {
	if len(devices) == 0 {
		return -1, ErrNoDevice
	}
	switch s.kind {
	case selectIndex:
		if s.Index >= len(devices) {
			return -1, errors.Errorf("device index %d out of range (found %d devices)", s.Index, len(devices))
		}
		return s.Index, nil

	case selectBusAddr:
		for i, d := range devices {
			if d.Bus == s.Bus && d.Address == s.Address {
				return i, nil
			}
		}
		return -1, errors.Wrapf(ErrNoDevice, "bus %d address %d", s.Bus, s.Address)

	case selectSerial:
		match := -1
		for i, d := range devices {
			if d.Serial != s.Serial {
				continue
			}
			if match >= 0 {
				return -1, errors.Errorf("multiple devices found with serial %s; use bus:addr (e.g. 1:10) or index (e.g. #0)", s.Serial)
			}
			match = i
		}
		if match < 0 {
			return -1, errors.Wrapf(ErrNoDevice, "serial %s", s.Serial)
		}
		return match, nil
	}
	return 0, nil
}

// Open opens the device sel matches and closes the others
func Open(ctx *gousb.Context, sel Selector) (*Device, error) {
	devices, err := FindAllDevices(ctx)
	if err != nil {
		return nil, err
	}
	infos := locate(devices)
	idx, err := sel.pick(infos)
	for i, d := range devices {
		if i != idx {
			d.Close()
		}
	}
	if err != nil {
		return nil, err
	}
	return devices[idx], nil
}

// OpenPair opens two distinct devices, one for capture and one for
// jamming. With both selectors empty the first two devices in bus:address
// order are used.
func OpenPair(ctx *gousb.Context, capture, jam Selector) (*Device, *Device, error) {
	if capture.kind == selectFirst && jam.kind == selectFirst {
		capture, jam = Selector{Index: 0, kind: selectIndex}, Selector{Index: 1, kind: selectIndex}
	}
	if capture.kind != selectFirst && capture == jam {
		return nil, nil, errors.Wrapf(ErrBadSelector, "capture and jam select the same device %s", capture)
	}

	devices, err := FindAllDevices(ctx)
	if err != nil {
		return nil, nil, err
	}
	infos := locate(devices)

	closeAll := func() {
		for _, d := range devices {
			d.Close()
		}
	}
	if len(devices) < 2 {
		closeAll()
		return nil, nil, errors.Wrapf(ErrNoDevice, "need 2 YardStick One devices, found %d", len(devices))
	}

	ci, err := capture.pick(infos)
	if err != nil {
		closeAll()
		return nil, nil, errors.Wrap(err, "capture device")
	}
	ji, err := jam.pick(infos)
	if err == nil && ji == ci {
		err = errors.New("same device as capture")
	}
	if err != nil {
		closeAll()
		return nil, nil, errors.Wrap(err, "jam device")
	}

	for i, d := range devices {
		if i != ci && i != ji {
			d.Close()
		}
	}
	return devices[ci], devices[ji], nil
}

// List returns every connected YardStick One in bus:address order
func List(ctx *gousb.Context) ([]Info, error) {
	devices, err := FindAllDevices(ctx)
	if err != nil {
		return nil, err
	}
	infos := locate(devices)
	for _, d := range devices {
		d.Close()
	}
	return infos, nil
}

// ResetAll issues a USB reset to every YardStick One and returns how many
// were reset
func ResetAll(ctx *gousb.Context) (int, error) {
	usbDevices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(VendorID) && desc.Product == gousb.ID(ProductID)
	})
	if err != nil && len(usbDevices) == 0 {
		return 0, errors.Wrap(err, "failed to enumerate devices")
	}
	if len(usbDevices) == 0 {
		return 0, ErrNoDevice
	}

	var reset int
	var firstErr error
	for _, dev := range usbDevices {
		if err := dev.Reset(); err != nil && firstErr == nil {
			serial, _ := dev.SerialNumber()
			firstErr = errors.Wrapf(err, "reset %s failed", serial)
		} else if err == nil {
			reset++
		}
		dev.Close()
	}
	return reset, firstErr
}
