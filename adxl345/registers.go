// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package adxl345

// Register map.
const (
	DeviceID = 0x00 // Device ID, expected to be 0xE5 when using ADXL345

	ThreshTap    = 0x1D // Tap threshold
	OfsX         = 0x1E // X-axis offset
	OfsY         = 0x1F // Y-axis offset
	OfsZ         = 0x20 // Z-axis offset
	Dur          = 0x21 // Tap duration
	Latent       = 0x22 // Tap latency
	Window       = 0x23 // Tap window
	ThreshAct    = 0x24 // Activity threshold
	ThreshInact  = 0x25 // Inactivity threshold
	TimeInact    = 0x26 // Inactivity time
	ActInactCtl  = 0x27 // Axis control for activity/inactivity detection
	ThreshFf     = 0x28 // Free-fall threshold
	TimeFf       = 0x29 // Free-fall time
	TapAxes      = 0x2A // Axis control for single tap/double tap
	ActTapStatus = 0x2B // Source of single tap/double tap

	// Control registers

	BwRate     = 0x2C // Data rate and power mode control
	PowerCtl   = 0x2D // Power saving features control
	IntEnable  = 0x2E // Interrupt enable control
	IntMap     = 0x2F // Interrupt mapping control
	IntSource  = 0x30 // Source of interrupts
	DataFormat = 0x31 // Data format control

	// Data registers
	DataX0 = 0x32 // X-Axis Data 0
	DataX1 = 0x33 // X-Axis Data 1
	DataY0 = 0x34 // Y-Axis Data 0
	DataY1 = 0x35 // Y-Axis Data 1
	DataZ0 = 0x36 // Z-Axis Data 0
	DataZ1 = 0x37 // Z-Axis Data 1

	// FIFO control
	FifoCtl    = 0x38 // FIFO control
	FifoStatus = 0x39 // FIFO status
)

// Register bits.
const (
	// DeviceIDValue is the fixed content of the DEVID register.
	DeviceIDValue byte = 0xE5

	bwRateLowPower  byte = 0x10
	powerCtlMeasure byte = 0x08
	powerCtlStandby byte = 0x00
	intEnableNone   byte = 0x00
	dataFormatRange byte = 0x03
	offsetRegisters      = 3
	dataRegisters        = 6
)
