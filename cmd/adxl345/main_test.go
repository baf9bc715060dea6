// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/accel/adxl345"
	"github.com/google/go-cmp/cmp"
	"github.com/maruel/ansi256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

const testAddr = adxl345.DefaultAddress

var pbStart = []i2ctest.IO{
	{Addr: testAddr, W: []byte{adxl345.DeviceID}, R: []byte{adxl345.DeviceIDValue}},
	{Addr: testAddr, W: []byte{adxl345.BwRate, 0x08}},
	{Addr: testAddr, W: []byte{adxl345.PowerCtl, 0x08}},
	{Addr: testAddr, W: []byte{adxl345.IntEnable, 0x00}},
	{Addr: testAddr, W: []byte{adxl345.DataFormat, 0x00}},
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestDev(t *testing.T, reads ...[]byte) (*adxl345.Dev, *i2ctest.Playback) {
	t.Helper()
	ops := append([]i2ctest.IO{}, pbStart...)
	for _, r := range reads {
		ops = append(ops, i2ctest.IO{Addr: testAddr, W: []byte{adxl345.DataX0}, R: r})
	}
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := adxl345.NewI2C(pb, testAddr, nil)
	if err != nil {
		t.Fatal(err)
	}
	return dev, pb
}

func TestParseSensitivity(t *testing.T) {
	tests := []struct {
		g    int
		want adxl345.Sensitivity
	}{
		{2, adxl345.S2G},
		{4, adxl345.S4G},
		{8, adxl345.S8G},
		{16, adxl345.S16G},
	}
	for _, tc := range tests {
		got, err := parseSensitivity(tc.g)
		if err != nil {
			t.Errorf("parseSensitivity(%d) = %v", tc.g, err)
		}
		if got != tc.want {
			t.Errorf("parseSensitivity(%d) = %s, want %s", tc.g, got, tc.want)
		}
	}
	if _, err := parseSensitivity(3); !errors.Is(err, adxl345.ErrSensitivityOutOfRange) {
		t.Errorf("parseSensitivity(3) = %v, want %v", err, adxl345.ErrSensitivityOutOfRange)
	}
}

func TestNearestRate(t *testing.T) {
	tests := []struct {
		f    physic.Frequency
		want adxl345.Rate
	}{
		{25 * physic.Hertz, adxl345.Rate25Hz},
		{100 * physic.Hertz, adxl345.Rate100Hz},
		{120 * physic.Hertz, adxl345.Rate100Hz},
		{390 * physic.MilliHertz, adxl345.Rate0_39Hz},
		{10 * physic.KiloHertz, adxl345.Rate3200Hz},
		{physic.MilliHertz, adxl345.Rate0_10Hz},
	}
	for _, tc := range tests {
		got, err := nearestRate(tc.f)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("nearestRate(%s) = %s, want %s", tc.f, got, tc.want)
		}
	}
	if _, err := nearestRate(0); err == nil {
		t.Error("expected error for 0Hz")
	}
}

func TestParseOffsets(t *testing.T) {
	x, y, z, err := parseOffsets("0, -2,0x7f")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int8{x, y, z}, []int8{0, -2, 127}); diff != "" {
		t.Errorf("parseOffsets() difference (-got +want):\n%s", diff)
	}
	for _, s := range []string{"", "1,2", "1,2,3,4", "1,2,200", "a,b,c"} {
		if _, _, _, err := parseOffsets(s); err == nil {
			t.Errorf("parseOffsets(%q) expected error", s)
		}
	}
}

func TestBars(t *testing.T) {
	var buf bytes.Buffer
	b := newBars(&buf, ansi256.Default, 10, 2)
	if err := b.write(adxl345.Acceleration{X: 1, Y: -2, Z: 4}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	p := ansi256.Default
	got := []int{
		strings.Count(out, p.Block(axisColors[0])),
		strings.Count(out, p.Block(axisColors[1])),
		strings.Count(out, p.Block(axisColors[2])),
		strings.Count(out, p.Block(centerColor)),
	}
	// X fills half of one side, Y all of the negative side, Z is clipped.
	want := []int{5, 10, 10, 3}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("bars difference (-got +want):\n%s", diff)
	}
	if !strings.HasPrefix(out, "\r") {
		t.Errorf("bars must redraw the current line, got %q", out)
	}
	if err := b.Halt(); err != nil {
		t.Fatal(err)
	}
}

func TestSamplerText(t *testing.T) {
	dev, pb := newTestDev(t,
		[]byte{0x00, 0x01, 0x00, 0x00, 0x80, 0x00},
		[]byte{0x00, 0xFF, 0x00, 0x00, 0x00, 0x00},
	)
	reg := prometheus.NewRegistry()
	var out bytes.Buffer
	s := &sampler{dev: dev, out: &out, m: newMetrics(reg), log: testLogger()}
	if err := s.run(context.Background(), 2, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	want := "X:1.0000g Y:0.0000g Z:0.5000g\nX:-1.0000g Y:0.0000g Z:0.0000g\n"
	if diff := cmp.Diff(out.String(), want); diff != "" {
		t.Errorf("output difference (-got +want):\n%s", diff)
	}
	if got := testutil.ToFloat64(s.m.samples); got != 2 {
		t.Errorf("samples = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.m.accel.WithLabelValues("x")); got != -1 {
		t.Errorf("x gauge = %v, want -1", got)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestSamplerRawAndErrors(t *testing.T) {
	// One sample is available, the second read fails on the bus.
	dev, pb := newTestDev(t, []byte{0x10, 0x00, 0xF0, 0xFF, 0x00, 0x01})
	reg := prometheus.NewRegistry()
	var out bytes.Buffer
	s := &sampler{dev: dev, raw: true, out: &out, m: newMetrics(reg), log: testLogger()}
	if err := s.run(context.Background(), 2, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(out.String(), "X:16 Y:-16 Z:256\n"); diff != "" {
		t.Errorf("output difference (-got +want):\n%s", diff)
	}
	if got := testutil.ToFloat64(s.m.readErrors); got != 1 {
		t.Errorf("read errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.m.raw.WithLabelValues("z")); got != 256 {
		t.Errorf("z gauge = %v, want 256", got)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestSamplerOutputFailure(t *testing.T) {
	dev, pb := newTestDev(t, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00})
	s := &sampler{dev: dev, out: failingWriter{}, m: newMetrics(prometheus.NewRegistry()), log: testLogger()}
	if err := s.run(context.Background(), 2, time.Millisecond); err == nil {
		t.Fatal("expected the output error to stop the run")
	}
	if got := testutil.ToFloat64(s.m.readErrors); got != 0 {
		t.Errorf("read errors = %v, want 0", got)
	}
	if got := testutil.ToFloat64(s.m.samples); got != 1 {
		t.Errorf("samples = %v, want 1", got)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestNewLogger(t *testing.T) {
	log := newLogger(logrus.DebugLevel)
	var buf bytes.Buffer
	log.Logger.SetOutput(&buf)
	log.Debug("ready")
	out := buf.String()
	if !strings.Contains(out, "prefix=adxl345") || !strings.Contains(out, "msg=ready") {
		t.Errorf("unexpected log line %q", out)
	}
}

func TestSamplerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &sampler{dev: &adxl345.Dev{}, out: io.Discard, m: newMetrics(prometheus.NewRegistry()), log: testLogger()}
	if err := s.run(ctx, 0, time.Hour); err != nil {
		t.Errorf("run() = %v", err)
	}
}

func TestSamplerUninitialized(t *testing.T) {
	s := &sampler{dev: &adxl345.Dev{}, out: io.Discard, m: newMetrics(prometheus.NewRegistry()), log: testLogger()}
	if err := s.run(context.Background(), 0, time.Millisecond); !errors.Is(err, adxl345.ErrNotInitialized) {
		t.Errorf("run() = %v, want %v", err, adxl345.ErrNotInitialized)
	}
}
