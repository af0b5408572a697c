package yardstick

import (
	"math"

	"github.com/herlein/rollcat/pkg/radio"
)

// CrystalHz is the CC1111 crystal frequency (YardStick One)
const CrystalHz = 24000000

// MDMCFG2 fields
const (
	mdmModMask   = 0x70
	mdmSyncMask  = 0x07
	mod2FSK      = 0x00
	modASKOOK    = 0x30
	syncCarrier  = 0x04 // carrier-sense above threshold, no sync word
	pqtMask      = 0xE0 // PKTCTRL1[7:5]
	pktLenMask   = 0x03 // PKTCTRL0[1:0]
	pktLenFixed  = 0x00
	crcEnable    = 0x04 // PKTCTRL0[2]
	whitening    = 0x40 // PKTCTRL0[6]
	fecEnable    = 0x80 // MDMCFG1[7]
	chanspcEMask = 0x03 // MDMCFG1[1:0]
)

// Receive framing used for raw capture: fixed-length packets, no sync word,
// no CRC, carrier sense only, so anything on air is delivered.
const (
	LowballPacketLen = 250
	LowballSyncWord  = 0xAAAA
)

// CalcFreqRegs returns FREQ2/1/0 for freqHz: FREQ = f * 2^16 / Fxtal
func CalcFreqRegs(freqHz uint32) (freq2, freq1, freq0 uint8) {
	num := uint32((uint64(freqHz) << 16) / CrystalHz)
	return uint8(num >> 16), uint8(num >> 8), uint8(num)
}

// FreqFromRegs inverts CalcFreqRegs
func FreqFromRegs(freq2, freq1, freq0 uint8) uint32 {
	num := uint64(freq2)<<16 | uint64(freq1)<<8 | uint64(freq0)
	return uint32((num * CrystalHz) >> 16)
}

// CalcDataRateRegs returns DRATE_E (MDMCFG4[3:0]) and DRATE_M (MDMCFG3)
func CalcDataRateRegs(baud uint32) (drateE, drateM uint8) {
	for e := uint8(0); e < 16; e++ {
		m := int(float64(baud)*math.Pow(2, 28)/(math.Pow(2, float64(e))*CrystalHz) - 256 + 0.5)
		if m >= 0 && m < 256 {
			return e, uint8(m)
		}
	}
	return 15, 255
}

// CalcChannelBWRegs returns CHANBW_E and CHANBW_M (MDMCFG4[7:4])
func CalcChannelBWRegs(bwHz uint32) (chanbwE, chanbwM uint8) {
	for e := uint8(0); e < 4; e++ {
		m := int(CrystalHz/(float64(bwHz)*math.Pow(2, float64(e))*8.0) - 4 + 0.5)
		if m >= 0 && m < 4 {
			return e, uint8(m)
		}
	}
	// narrowest bandwidth
	return 3, 3
}

// CalcChannelSpacingRegs returns CHANSPC_E and CHANSPC_M closest to
// spacingHz: spacing = Fxtal / 2^18 * (256 + M) * 2^E
func CalcChannelSpacingRegs(spacingHz uint32) (chanspcE, chanspcM uint8) {
	target := float64(spacingHz)
	bestErr := math.Inf(1)
	for e := uint8(0); e < 4; e++ {
		m := math.Round(target*math.Pow(2, 18)/(CrystalHz*math.Pow(2, float64(e))) - 256)
		if m < 0 || m > 255 {
			continue
		}
		actual := CrystalHz / math.Pow(2, 18) * (256 + m) * math.Pow(2, float64(e))
		if diff := math.Abs(actual - target); diff < bestErr {
			bestErr = diff
			chanspcE, chanspcM = e, uint8(m)
		}
	}
	if math.IsInf(bestErr, 1) {
		if target < CrystalHz/math.Pow(2, 18)*256 {
			return 0, 0
		}
		return 3, 255
	}
	return chanspcE, chanspcM
}

// CalcDeviationRegs returns the DEVIATN register for an FSK deviation
func CalcDeviationRegs(devHz uint32) uint8 {
	for e := uint8(0); e < 8; e++ {
		m := int(float64(devHz)*math.Pow(2, 17)/(math.Pow(2, float64(e))*CrystalHz) - 8 + 0.5)
		if m >= 0 && m < 8 {
			return (e << 4) | uint8(m)
		}
	}
	return 0x47 // ~25 kHz
}

// MaxPower returns the highest PA_TABLE setting for a frequency
func MaxPower(freqHz uint32) uint8 {
	switch {
	case freqHz <= 400000000:
		return 0xC2
	case freqHz <= 464000000:
		return 0xC0
	case freqHz <= 849000000:
		return 0xC2
	}
	return 0xC0
}

// VCOSelection returns the FSCAL2 value for a frequency
func VCOSelection(freqHz uint32) uint8 {
	if freqHz < 318000000 ||
		(freqHz >= 391000000 && freqHz < 424000000) ||
		(freqHz >= 782000000 && freqHz < 848000000) {
		return 0x0A
	}
	return 0x2A
}

// Tune rewrites reg for s. Registers Tune does not own (AGC, calibration,
// state machine, GPIO) keep their current values.
func Tune(reg *RegisterMap, s radio.Settings) {
	reg.FREQ2, reg.FREQ1, reg.FREQ0 = CalcFreqRegs(s.Frequency)
	reg.FSCAL2 = VCOSelection(s.Frequency)

	drateE, drateM := CalcDataRateRegs(s.BaudRate)
	chanbwE, chanbwM := CalcChannelBWRegs(s.ChannelBandwidth)
	reg.MDMCFG4 = chanbwE<<6 | chanbwM<<4 | drateE
	reg.MDMCFG3 = drateM

	chanspcE, chanspcM := CalcChannelSpacingRegs(s.ChannelSpacing)
	reg.MDMCFG1 = reg.MDMCFG1&^(chanspcEMask|fecEnable) | chanspcE
	reg.MDMCFG0 = chanspcM

	if s.ChannelBandwidth > 102000 {
		reg.FREND1 = 0xB6
	} else {
		reg.FREND1 = 0x56
	}
	if s.ChannelBandwidth > 325000 {
		reg.TEST2, reg.TEST1 = 0x88, 0x31
	} else {
		reg.TEST2, reg.TEST1 = 0x81, 0x35
	}
	reg.TEST0 = 0x09

	reg.CHANNR = 0

	// lowball
	reg.SYNC1, reg.SYNC0 = uint8(LowballSyncWord>>8), uint8(LowballSyncWord&0xFF)
	reg.PKTLEN = LowballPacketLen
	reg.PKTCTRL1 &^= pqtMask
	reg.PKTCTRL0 = reg.PKTCTRL0&^(pktLenMask|crcEnable|whitening) | pktLenFixed

	if s.Deviation > 0 {
		reg.DEVIATN = CalcDeviationRegs(s.Deviation)
	}
	modulation := uint8(modASKOOK)
	if s.Modulation == radio.ModFSK2 {
		modulation = mod2FSK
	}
	reg.MDMCFG2 = reg.MDMCFG2&^(mdmModMask|mdmSyncMask) | modulation | syncCarrier

	power := MaxPower(s.Frequency)
	if modulation == modASKOOK {
		// OOK keys between PA_TABLE0 (off) and PA_TABLE1
		reg.PA_TABLE[0], reg.PA_TABLE[1] = 0x00, power
		reg.FREND0 = 0x11
	} else {
		reg.PA_TABLE[0], reg.PA_TABLE[1] = power, 0x00
		reg.FREND0 = 0x10
	}
}

// RSSIToDBm converts the raw RSSI register, a signed value in 0.5 dB steps,
// to dBm using the CC1111 -74 dB offset
func RSSIToDBm(raw uint8) int {
	return int(int8(raw))/2 - 74
}
