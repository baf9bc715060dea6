// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package adxl345 controls an ADXL345 3-axis accelerometer over I²C or SPI.
//
// The device is identified by its DEVID register, configured for continuous
// measurement with interrupts disabled, and read as three signed 16-bit
// samples which are converted to g using the selected range.
//
// # Address
//
// The I²C address is selected with the SDO/ALT ADDRESS pin: DefaultAddress
// (0x53) when the pin is low, AltAddress (0x1D) when it is high. On the OSEPP
// breakout these are the ON and OFF positions of the address switch.
//
// # Datasheet
//
// http://www.analog.com/media/en/technical-documentation/data-sheets/ADXL345.pdf
package adxl345
