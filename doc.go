// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package accel is a container for the ADXL345 accelerometer driver and its
// command line tool.
//
// The driver lives in package adxl345 and is built on periph.io
// connections; cmd/adxl345 reads a device from the command line.
package accel
