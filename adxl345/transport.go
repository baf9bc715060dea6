// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package adxl345

import (
	"encoding/binary"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/mmr"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// DebugF the debug function type.
type DebugF func(string, ...interface{})

// SPI connection parameters.
var (
	SpiFrequency = physic.KiloHertz * 50
	SpiMode      = spi.Mode3 // Defines the base clock signal, along with the polarity and phase of the data signal.
	SpiBits      = 8
)

const (
	spiRead      byte = 0x80
	spiMultiByte byte = 0x40
)

// transport moves register contents between the driver and the device.
type transport interface {
	readRegs(reg byte, b []byte) error
	writeReg(reg, value byte) error
	setDebug(f DebugF)
	mode() string
	String() string
}

// i2cTransport talks to the device as an 8-bit register map on an I²C bus.
type i2cTransport struct {
	m     mmr.Dev8
	debug DebugF
}

func newI2CTransport(b i2c.Bus, addr uint16) *i2cTransport {
	return &i2cTransport{
		m: mmr.Dev8{
			Conn:  &i2c.Dev{Bus: b, Addr: addr},
			Order: binary.LittleEndian,
		},
		debug: noop,
	}
}

func (t *i2cTransport) readRegs(reg byte, b []byte) error {
	t.debug("read register %#02x len %d", reg, len(b))
	if len(b) == 1 {
		v, err := t.m.ReadUint8(reg)
		b[0] = v
		return err
	}
	// The register pointer auto-increments, so a burst read returns
	// consecutive registers in one transaction.
	if err := t.m.Conn.Tx([]byte{reg}, b); err != nil {
		return err
	}
	t.debug("register content % x", b)
	return nil
}

func (t *i2cTransport) writeReg(reg, value byte) error {
	t.debug("write register %#02x value %#02x", reg, value)
	return t.m.WriteUint8(reg, value)
}

func (t *i2cTransport) setDebug(f DebugF) {
	t.debug = f
}

func (t *i2cTransport) mode() string {
	return "I2C"
}

func (t *i2cTransport) String() string {
	return t.m.Conn.String()
}

// spiTransport talks to the device over a 4-wire SPI connection.
type spiTransport struct {
	c     spi.Conn
	debug DebugF
}

func newSpiTransport(p spi.Port) (*spiTransport, error) {
	c, err := p.Connect(SpiFrequency, SpiMode, SpiBits)
	if err != nil {
		return nil, err
	}
	return &spiTransport{c: c, debug: noop}, nil
}

func (t *spiTransport) readRegs(reg byte, b []byte) error {
	t.debug("read register %#02x len %d", reg, len(b))
	// The first byte carries the address with the read bit set, and the
	// multi-byte bit for bursts. The device answers during the following
	// clock cycles.
	tx := make([]byte, len(b)+1)
	tx[0] = reg | spiRead
	if len(b) > 1 {
		tx[0] |= spiMultiByte
	}
	rx := make([]byte, len(tx))
	if err := t.c.Tx(tx, rx); err != nil {
		return err
	}
	copy(b, rx[1:])
	t.debug("register content % x", b)
	return nil
}

func (t *spiTransport) writeReg(reg, value byte) error {
	t.debug("write register %#02x value %#02x", reg, value)
	return t.c.Tx([]byte{reg, value}, nil)
}

func (t *spiTransport) setDebug(f DebugF) {
	t.debug = f
}

func (t *spiTransport) mode() string {
	return "SPI"
}

func (t *spiTransport) String() string {
	return t.c.String()
}

func noop(string, ...interface{}) {}
