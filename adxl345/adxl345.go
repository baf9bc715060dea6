// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package adxl345

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	// DefaultAddress is the I²C address with the SDO/ALT ADDRESS pin low.
	DefaultAddress uint16 = 0x53
	// AltAddress is the I²C address with the SDO/ALT ADDRESS pin high.
	AltAddress uint16 = 0x1D
)

var (
	// ErrNotInitialized is returned when the device was never successfully
	// started, or was given a zero address.
	ErrNotInitialized = errors.New("adxl345: not initialized")
	// ErrWrongDevice is returned when the DEVID register does not hold the
	// expected value.
	ErrWrongDevice = errors.New("adxl345: wrong device id")
	// ErrRead is returned when a register read fails on the bus.
	ErrRead = errors.New("adxl345: register read failed")
	// ErrWrite is returned when a register write fails on the bus.
	ErrWrite = errors.New("adxl345: register write failed")
	// ErrSensitivityOutOfRange is returned for a Sensitivity other than
	// S2G, S4G, S8G or S16G.
	ErrSensitivityOutOfRange = errors.New("adxl345: sensitivity out of range")
)

// Sensitivity is the measurement range, as written in the low bits of the
// DATA_FORMAT register.
type Sensitivity byte

const (
	S2G  Sensitivity = 0x00 // Sensitivity at 2g
	S4G  Sensitivity = 0x01 // Sensitivity at 4g
	S8G  Sensitivity = 0x02 // Sensitivity at 8g
	S16G Sensitivity = 0x03 // Sensitivity at 16g
)

// Divisor returns the number of LSB per g for the range.
//
// Unknown values are treated as S4G.
func (s Sensitivity) Divisor() float64 {
	switch s {
	case S2G:
		return 256
	case S4G:
		return 128
	case S8G:
		return 64
	case S16G:
		return 32
	default:
		return 128
	}
}

func (s Sensitivity) String() string {
	switch s {
	case S2G, S4G, S8G, S16G:
		return fmt.Sprintf("±%dg", 2<<s)
	default:
		return fmt.Sprintf("Sensitivity(%d)", byte(s))
	}
}

// Rate is the output data rate code of the BW_RATE register. The bandwidth
// is half the output data rate.
type Rate byte

const (
	Rate0_10Hz Rate = iota
	Rate0_20Hz
	Rate0_39Hz
	Rate0_78Hz
	Rate1_56Hz
	Rate3_13Hz
	Rate6_25Hz
	Rate12_5Hz
	Rate25Hz
	Rate50Hz
	Rate100Hz
	Rate200Hz
	Rate400Hz
	Rate800Hz
	Rate1600Hz
	Rate3200Hz
)

// Frequency returns the output data rate. Each code doubles the previous
// one, up to 3200Hz.
func (r Rate) Frequency() physic.Frequency {
	if r > Rate3200Hz {
		r = Rate3200Hz
	}
	return (3200 * physic.Hertz) >> (Rate3200Hz - r)
}

func (r Rate) String() string {
	return r.Frequency().String()
}

// Opts holds the configuration written to the device on start.
//
// A zero ExpectedDeviceID is treated as DeviceIDValue.
type Opts struct {
	ExpectedDeviceID byte        // Expected device ID used to verify that the device is an ADXL345.
	Sensitivity      Sensitivity // Sensitivity of the device (2G, 4G, 8G, 16G)
	Rate             Rate        // Output data rate.
	LowPower         bool        // Reduced power operation at the cost of noise.
}

// DefaultOpts is the configuration used when nil is passed to NewI2C or
// NewSpi.
//
// The device is started at 25Hz with low power mode off.
var DefaultOpts = Opts{
	ExpectedDeviceID: DeviceIDValue,
	Sensitivity:      S2G,
	Rate:             Rate25Hz,
}

// RawAcceleration holds the raw two's complement samples of the three axes.
type RawAcceleration struct {
	X int16
	Y int16
	Z int16
}

// String returns a string representation of the RawAcceleration
func (a RawAcceleration) String() string {
	return fmt.Sprintf("X:%d Y:%d Z:%d", a.X, a.Y, a.Z)
}

// Acceleration represents the acceleration on the three axes, in g.
type Acceleration struct {
	X float64
	Y float64
	Z float64
}

// String returns a string representation of the Acceleration
func (a Acceleration) String() string {
	return fmt.Sprintf("X:%.4fg Y:%.4fg Z:%.4fg", a.X, a.Y, a.Z)
}

// Dev is a driver for the ADXL345 accelerometer.
//
// The zero value is not usable: every method returns ErrNotInitialized.
type Dev struct {
	mu          sync.Mutex
	t           transport
	sensitivity Sensitivity
	rate        Rate
	measuring   bool
	shutdown    chan struct{}
	done        chan struct{}
	debug       DebugF
}

// NewI2C returns a started ADXL345 Dev on the I²C bus at the given address.
//
// A zero address is rejected with ErrNotInitialized. If o is nil,
// DefaultOpts is used.
func NewI2C(b i2c.Bus, addr uint16, o *Opts) (*Dev, error) {
	if addr == 0 {
		return nil, ErrNotInitialized
	}
	return newDev(newI2CTransport(b, addr), o)
}

// NewSpi returns a started ADXL345 Dev on the SPI port.
//
// The port is connected in mode 3. If o is nil, DefaultOpts is used.
func NewSpi(p spi.Port, o *Opts) (*Dev, error) {
	t, err := newSpiTransport(p)
	if err != nil {
		return nil, err
	}
	return newDev(t, o)
}

func newDev(t transport, o *Opts) (*Dev, error) {
	if o == nil {
		o = &DefaultOpts
	}
	d := &Dev{t: t, rate: o.Rate, debug: noop}
	if err := d.start(o); err != nil {
		return nil, err
	}
	return d, nil
}

// start verifies the device identity and writes the configuration
// registers. Nothing is written when the identity check fails.
func (d *Dev) start(o *Opts) error {
	id := make([]byte, 1)
	if err := d.t.readRegs(DeviceID, id); err != nil {
		return fmt.Errorf("%w: devid: %w", ErrRead, err)
	}
	want := o.ExpectedDeviceID
	if want == 0 {
		want = DeviceIDValue
	}
	if id[0] != want {
		return fmt.Errorf("%w: got %#02x, expected %#02x", ErrWrongDevice, id[0], want)
	}
	bw := byte(o.Rate) & 0x0F
	if o.LowPower {
		bw |= bwRateLowPower
	}
	if err := d.writeReg(BwRate, bw); err != nil {
		return err
	}
	// Measurement mode, auto sleep disabled.
	if err := d.turnOn(); err != nil {
		return err
	}
	// Interrupts stay off; the driver polls.
	if err := d.writeReg(IntEnable, intEnableNone); err != nil {
		return err
	}
	return d.setSensitivity(o.Sensitivity)
}

func (d *Dev) writeReg(reg, value byte) error {
	if err := d.t.writeReg(reg, value); err != nil {
		return fmt.Errorf("%w: %#02x: %w", ErrWrite, reg, err)
	}
	return nil
}

func (d *Dev) readRegs(reg byte, b []byte) error {
	if err := d.t.readRegs(reg, b); err != nil {
		return fmt.Errorf("%w: %#02x: %w", ErrRead, reg, err)
	}
	return nil
}

// TurnOn puts the device in measurement mode. Sense, SenseRaw and
// SenseContinuous do it implicitly when the device is in standby.
func (d *Dev) TurnOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t == nil {
		return ErrNotInitialized
	}
	return d.turnOn()
}

// TurnOff puts the device in standby. The data registers keep the last
// conversion until measurement is turned back on.
func (d *Dev) TurnOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t == nil {
		return ErrNotInitialized
	}
	return d.turnOff()
}

func (d *Dev) turnOn() error {
	if err := d.writeReg(PowerCtl, powerCtlMeasure); err != nil {
		return err
	}
	d.measuring = true
	return nil
}

func (d *Dev) turnOff() error {
	if err := d.writeReg(PowerCtl, powerCtlStandby); err != nil {
		return err
	}
	d.measuring = false
	return nil
}

// SetSensitivity sets the measurement range of the device.
//
// Values other than S2G, S4G, S8G and S16G return ErrSensitivityOutOfRange
// without touching the device.
func (d *Dev) SetSensitivity(s Sensitivity) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t == nil {
		return ErrNotInitialized
	}
	return d.setSensitivity(s)
}

func (d *Dev) setSensitivity(s Sensitivity) error {
	if s > S16G {
		return fmt.Errorf("%w: %d", ErrSensitivityOutOfRange, s)
	}
	if err := d.writeReg(DataFormat, byte(s)&dataFormatRange); err != nil {
		return err
	}
	d.sensitivity = s
	return nil
}

// Sensitivity returns the last successfully written measurement range.
func (d *Dev) Sensitivity() Sensitivity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sensitivity
}

// SenseRaw reads the three axes in a single burst so the samples belong to
// the same conversion.
func (d *Dev) SenseRaw() (RawAcceleration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.senseRaw()
}

func (d *Dev) senseRaw() (RawAcceleration, error) {
	if d.t == nil {
		return RawAcceleration{}, ErrNotInitialized
	}
	if !d.measuring {
		if err := d.turnOn(); err != nil {
			return RawAcceleration{}, err
		}
	}
	var data [dataRegisters]byte
	if err := d.readRegs(DataX0, data[:]); err != nil {
		return RawAcceleration{}, err
	}
	return RawAcceleration{
		X: int16(binary.LittleEndian.Uint16(data[0:2])),
		Y: int16(binary.LittleEndian.Uint16(data[2:4])),
		Z: int16(binary.LittleEndian.Uint16(data[4:6])),
	}, nil
}

// Sense reads the three axes and converts them to g using the current
// sensitivity.
func (d *Dev) Sense() (Acceleration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sense()
}

func (d *Dev) sense() (Acceleration, error) {
	r, err := d.senseRaw()
	if err != nil {
		return Acceleration{}, err
	}
	div := d.sensitivity.Divisor()
	return Acceleration{
		X: float64(r.X) / div,
		Y: float64(r.Y) / div,
		Z: float64(r.Z) / div,
	}, nil
}

// SetOffsets writes the offset registers. The device adds them to the
// measured values at 15.6mg/LSB, regardless of the range.
func (d *Dev) SetOffsets(x, y, z int8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t == nil {
		return ErrNotInitialized
	}
	if err := d.writeReg(OfsX, byte(x)); err != nil {
		return err
	}
	if err := d.writeReg(OfsY, byte(y)); err != nil {
		return err
	}
	return d.writeReg(OfsZ, byte(z))
}

// Offsets reads back the offset registers.
func (d *Dev) Offsets() (x, y, z int8, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t == nil {
		return 0, 0, 0, ErrNotInitialized
	}
	var ofs [offsetRegisters]byte
	if err = d.readRegs(OfsX, ofs[:]); err != nil {
		return 0, 0, 0, err
	}
	return int8(ofs[0]), int8(ofs[1]), int8(ofs[2]), nil
}

// SenseContinuous reads the device every interval and sends the result on
// the returned channel. Samples are dropped if the channel is full. Call Halt
// to stop; the channel is then closed.
//
// The interval cannot be shorter than one output data period.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan Acceleration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t == nil {
		return nil, ErrNotInitialized
	}
	if d.shutdown != nil {
		return nil, errors.New("adxl345: already sensing continuously")
	}
	if period := d.rate.Frequency().Period(); interval < period {
		return nil, fmt.Errorf("adxl345: invalid duration %s, minimum %s at %s", interval, period, d.rate)
	}
	if !d.measuring {
		if err := d.turnOn(); err != nil {
			return nil, err
		}
	}
	d.shutdown = make(chan struct{})
	d.done = make(chan struct{})
	ch := make(chan Acceleration, 16)
	go d.senseLoop(interval, ch, d.shutdown, d.done)
	return ch, nil
}

func (d *Dev) senseLoop(interval time.Duration, ch chan<- Acceleration, shutdown, done chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(done)
	defer close(ch)
	for {
		select {
		case <-shutdown:
			return
		case <-ticker.C:
			a, ok, err := d.senseUnlessStopped(shutdown)
			if !ok {
				return
			}
			if err != nil {
				d.debugf("continuous read: %v", err)
				continue
			}
			select {
			case ch <- a:
			default:
			}
		}
	}
}

// senseUnlessStopped reads a sample unless Halt was called since the tick.
// ok is false once shutdown is closed; no bus access happens then.
func (d *Dev) senseUnlessStopped(shutdown <-chan struct{}) (a Acceleration, ok bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	select {
	case <-shutdown:
		return Acceleration{}, false, nil
	default:
	}
	a, err = d.sense()
	return a, true, err
}

// Halt stops a SenseContinuous loop and puts the device in standby. It
// returns once the loop exited, so the bus can be closed right after.
// Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	if d.t == nil {
		d.mu.Unlock()
		return ErrNotInitialized
	}
	done := d.done
	if d.shutdown != nil {
		close(d.shutdown)
		d.shutdown = nil
		d.done = nil
	}
	err := d.turnOff()
	d.mu.Unlock()
	if done != nil {
		<-done
	}
	return err
}

// EnableDebug traces the register traffic through f.
func (d *Dev) EnableDebug(f DebugF) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t != nil {
		d.debug = f
		d.t.setDebug(f)
	}
}

func (d *Dev) debugf(format string, args ...interface{}) {
	d.mu.Lock()
	f := d.debug
	d.mu.Unlock()
	f(format, args...)
}

// Mode returns the bus the device is connected through, "I2C" or "SPI".
func (d *Dev) Mode() string {
	if d.t == nil {
		return ""
	}
	return d.t.mode()
}

func (d *Dev) String() string {
	if d.t == nil {
		return "ADXL345{}"
	}
	return fmt.Sprintf("ADXL345{%s, %s, %s}", d.t, d.Sensitivity(), d.rate)
}

var _ conn.Resource = &Dev{}
