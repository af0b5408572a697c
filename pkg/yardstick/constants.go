// Package yardstick drives a YardStick One (CC1111) over USB and adapts it
// to radio.Port.
package yardstick

import "time"

// USB Device Identifiers
const (
	VendorID  = 0x1D50
	ProductID = 0x605B // YardStick One
)

// USB Endpoint Configuration
const (
	EP5Number        = 5
	EP5OutBufferSize = 516
	ResponseMarker   = 0x40 // '@' character marks start of response
)

// USB Timeouts
const (
	USBDefaultTimeout = 1000 * time.Millisecond
	USBTXWaitTimeout  = 10000 * time.Millisecond
	usbReadSlice      = 100 * time.Millisecond
)

// Application IDs for EP5 protocol
const (
	AppNIC    = 0x42 // Radio NIC operations
	AppSystem = 0xFF // System/administrative commands
)

// System Commands (APP_SYSTEM = 0xFF)
const (
	SysCmdPeek      = 0x80 // Read memory
	SysCmdPoke      = 0x81 // Write memory
	SysCmdPing      = 0x82 // Echo test
	SysCmdBuildType = 0x86 // Get firmware build info
	SysCmdRFMode    = 0x88 // Set radio mode
	SysCmdPartNum   = 0x8E // Get chip part number
)

// NIC Commands (APP_NIC = 0x42)
const (
	NICRecv         = 0x01 // Receive RF data
	NICXmit         = 0x02 // Transmit RF data
	NICSetAmpMode   = 0x0A // Set amplifier mode
	NICGetAmpMode   = 0x0B // Get amplifier mode
	NICLongXmit     = 0x0C // Start long transmission
	NICLongXmitMore = 0x0D // Continue long transmission
)

// Radio Strobe Commands (RFST register values)
const (
	RFSTSrx   = 0x02 // Enable RX
	RFSTSidle = 0x04 // Idle mode
)

// MarcStateRX is the MARCSTATE value while receiving
const MarcStateRX = 0x0D

// Chip Part Numbers
const (
	PartNumCC1110 = 0x01
	PartNumCC1111 = 0x11
)

// ChipName names a part number reported by GetPartNum
func ChipName(part uint8) string {
	switch part {
	case PartNumCC1110:
		return "CC1110"
	case PartNumCC1111:
		return "CC1111"
	}
	return "unknown"
}

// RF Constants
const (
	RFMaxTXBlock = 255   // Maximum standard TX block size
	RFMaxTXLong  = 65535 // Maximum long TX size
	RFMaxTXChunk = 240   // Chunk size for long transmit
	RFMaxRXBlock = 512   // Maximum RX block size, one EP5 read
)

// Return codes
const (
	RCNoError                   = 0x00
	RCTempErrBufferNotAvailable = 0xFE
)

// Amplifier Mode values
const (
	AmpModeOff = 0x00 // Amplifier disabled
	AmpModeOn  = 0x01 // Amplifier enabled
)
