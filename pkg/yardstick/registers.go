package yardstick

import (
	"fmt"

	"github.com/pkg/errors"
)

// Register addresses (memory-mapped at 0xDF00)
const (
	RegSYNC1     = 0xDF00
	RegSYNC0     = 0xDF01
	RegPKTLEN    = 0xDF02
	RegPKTCTRL1  = 0xDF03
	RegPKTCTRL0  = 0xDF04
	RegADDR      = 0xDF05
	RegCHANNR    = 0xDF06
	RegFSCTRL1   = 0xDF07
	RegFSCTRL0   = 0xDF08
	RegFREQ2     = 0xDF09
	RegFREQ1     = 0xDF0A
	RegFREQ0     = 0xDF0B
	RegMDMCFG4   = 0xDF0C
	RegMDMCFG3   = 0xDF0D
	RegMDMCFG2   = 0xDF0E
	RegMDMCFG1   = 0xDF0F
	RegMDMCFG0   = 0xDF10
	RegDEVIATN   = 0xDF11
	RegMCSM1     = 0xDF13
	RegFREND1    = 0xDF1A
	RegFREND0    = 0xDF1B
	RegFSCAL2    = 0xDF1D
	RegTEST2     = 0xDF23
	RegPA_TABLE7 = 0xDF27
	RegLQI       = 0xDF39
	RegRSSI      = 0xDF3A
	RegMARCSTATE = 0xDF3B
	RegRFST      = 0xDFE1
)

// Register block sizes; the gaps between blocks are reserved
const (
	configBlockLen = 32 // 0xDF00-0xDF1F
	testBlockLen   = 3  // 0xDF23-0xDF25
	paBlockLen     = 11 // 0xDF27-0xDF31
)

// RegisterMap holds the writable CC1111 radio configuration registers
type RegisterMap struct {
	SYNC1, SYNC0                   uint8
	PKTLEN, PKTCTRL1, PKTCTRL0     uint8
	ADDR, CHANNR                   uint8
	FSCTRL1, FSCTRL0               uint8
	FREQ2, FREQ1, FREQ0            uint8
	MDMCFG4, MDMCFG3, MDMCFG2      uint8
	MDMCFG1, MDMCFG0               uint8
	DEVIATN                        uint8
	MCSM2, MCSM1, MCSM0            uint8
	FOCCFG, BSCFG                  uint8
	AGCCTRL2, AGCCTRL1, AGCCTRL0   uint8
	FREND1, FREND0                 uint8
	FSCAL3, FSCAL2, FSCAL1, FSCAL0 uint8
	TEST2, TEST1, TEST0            uint8
	PA_TABLE                       [8]uint8 // stored PA_TABLE7 first in memory
	IOCFG2, IOCFG1, IOCFG0         uint8
}

func (r *RegisterMap) configBlock() []byte {
	return []byte{
		r.SYNC1, r.SYNC0,
		r.PKTLEN, r.PKTCTRL1, r.PKTCTRL0, r.ADDR, r.CHANNR,
		r.FSCTRL1, r.FSCTRL0,
		r.FREQ2, r.FREQ1, r.FREQ0,
		r.MDMCFG4, r.MDMCFG3, r.MDMCFG2, r.MDMCFG1, r.MDMCFG0,
		r.DEVIATN,
		r.MCSM2, r.MCSM1, r.MCSM0,
		r.FOCCFG, r.BSCFG,
		r.AGCCTRL2, r.AGCCTRL1, r.AGCCTRL0,
		r.FREND1, r.FREND0,
		r.FSCAL3, r.FSCAL2, r.FSCAL1, r.FSCAL0,
	}
}

func (r *RegisterMap) paBlock() []byte {
	return []byte{
		r.PA_TABLE[7], r.PA_TABLE[6], r.PA_TABLE[5], r.PA_TABLE[4],
		r.PA_TABLE[3], r.PA_TABLE[2], r.PA_TABLE[1], r.PA_TABLE[0],
		r.IOCFG2, r.IOCFG1, r.IOCFG0,
	}
}

func (r *RegisterMap) decode(config, test, pa []byte) {
	fields := []*uint8{
		&r.SYNC1, &r.SYNC0,
		&r.PKTLEN, &r.PKTCTRL1, &r.PKTCTRL0, &r.ADDR, &r.CHANNR,
		&r.FSCTRL1, &r.FSCTRL0,
		&r.FREQ2, &r.FREQ1, &r.FREQ0,
		&r.MDMCFG4, &r.MDMCFG3, &r.MDMCFG2, &r.MDMCFG1, &r.MDMCFG0,
		&r.DEVIATN,
		&r.MCSM2, &r.MCSM1, &r.MCSM0,
		&r.FOCCFG, &r.BSCFG,
		&r.AGCCTRL2, &r.AGCCTRL1, &r.AGCCTRL0,
		&r.FREND1, &r.FREND0,
		&r.FSCAL3, &r.FSCAL2, &r.FSCAL1, &r.FSCAL0,
	}
	for i, f := range fields {
		*f = config[i]
	}
	r.TEST2, r.TEST1, r.TEST0 = test[0], test[1], test[2]
	for i := 0; i < 8; i++ {
		r.PA_TABLE[7-i] = pa[i]
	}
	r.IOCFG2, r.IOCFG1, r.IOCFG0 = pa[8], pa[9], pa[10]
}

var configNames = []string{
	"SYNC1", "SYNC0",
	"PKTLEN", "PKTCTRL1", "PKTCTRL0", "ADDR", "CHANNR",
	"FSCTRL1", "FSCTRL0",
	"FREQ2", "FREQ1", "FREQ0",
	"MDMCFG4", "MDMCFG3", "MDMCFG2", "MDMCFG1", "MDMCFG0",
	"DEVIATN",
	"MCSM2", "MCSM1", "MCSM0",
	"FOCCFG", "BSCFG",
	"AGCCTRL2", "AGCCTRL1", "AGCCTRL0",
	"FREND1", "FREND0",
	"FSCAL3", "FSCAL2", "FSCAL1", "FSCAL0",
}

// Field is one named register value
type Field struct {
	Name  string
	Value uint8
}

// Fields lists every register in address order, PA_TABLE as PA_TABLE0..7
func (r *RegisterMap) Fields() []Field {
	fields := make([]Field, 0, configBlockLen+testBlockLen+paBlockLen)
	for i, v := range r.configBlock() {
		fields = append(fields, Field{configNames[i], v})
	}
	fields = append(fields,
		Field{"TEST2", r.TEST2}, Field{"TEST1", r.TEST1}, Field{"TEST0", r.TEST0})
	for i, v := range r.PA_TABLE {
		fields = append(fields, Field{fmt.Sprintf("PA_TABLE%d", i), v})
	}
	return append(fields,
		Field{"IOCFG2", r.IOCFG2}, Field{"IOCFG1", r.IOCFG1}, Field{"IOCFG0", r.IOCFG0})
}

// ReadRegisters reads the radio configuration in three block peeks
func (d *Device) ReadRegisters() (*RegisterMap, error) {
	config, err := d.Peek(RegSYNC1, configBlockLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config registers")
	}
	test, err := d.Peek(RegTEST2, testBlockLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read TEST registers")
	}
	pa, err := d.Peek(RegPA_TABLE7, paBlockLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read PA_TABLE/IOCFG")
	}

	reg := &RegisterMap{}
	reg.decode(config, test, pa)
	return reg, nil
}

// WriteRegisters writes every writable configuration register. The radio
// should be idle.
func (d *Device) WriteRegisters(reg *RegisterMap) error {
	if err := d.Poke(RegSYNC1, reg.configBlock()); err != nil {
		return errors.Wrap(err, "failed to write config registers")
	}
	if err := d.Poke(RegTEST2, []byte{reg.TEST2, reg.TEST1, reg.TEST0}); err != nil {
		return errors.Wrap(err, "failed to write TEST registers")
	}
	if err := d.Poke(RegPA_TABLE7, reg.paBlock()); err != nil {
		return errors.Wrap(err, "failed to write PA_TABLE/IOCFG")
	}
	return nil
}
