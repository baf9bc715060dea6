// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// adxl345 reads an ADXL345 accelerometer and prints the acceleration.
//
// By default it opens the first I²C bus and the device at 0x53, and prints a
// sample in g every 100ms until interrupted.
//
//	adxl345 -range 4 -rate 100Hz -interval 20ms -n 50
//	adxl345 -spi -bars
//	adxl345 -addr 0x1d -http :9345
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/accel/adxl345"
	"github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var (
	busName  = flag.String("bus", "", "I²C bus to use")
	useSpi   = flag.Bool("spi", false, "use SPI instead of I²C")
	spiPort  = flag.String("spiport", "", "SPI port to use with -spi")
	addr     = flag.Uint("addr", uint(adxl345.DefaultAddress), "I²C address of the device, 0x53 or 0x1d")
	rangeG   = flag.Int("range", 2, "measurement range in g: 2, 4, 8 or 16")
	rate     = 25 * physic.Hertz
	lowPower = flag.Bool("lowpower", false, "enable low power mode")
	offsets  = flag.String("ofs", "", "offset registers to write as x,y,z in 15.6mg steps, e.g. 0,-2,5")
	count    = flag.Int("n", 0, "number of samples to read, 0 to read until interrupted")
	interval = flag.Duration("interval", 100*time.Millisecond, "time between samples")
	raw      = flag.Bool("raw", false, "print raw counts instead of g")
	showBars = flag.Bool("bars", false, "draw the axes as colored bars")
	httpAddr = flag.String("http", "", "serve prometheus metrics on this address")
)

// barsWidth is the number of cells on each side of the center of a bar.
const barsWidth = 20

func init() {
	flag.Var(&rate, "rate", "output data rate; the nearest supported rate between 0.1Hz and 3.2kHz is used")
}

// sensor is the subset of *adxl345.Dev used by the sampling loop.
type sensor interface {
	Sense() (adxl345.Acceleration, error)
	SenseRaw() (adxl345.RawAcceleration, error)
}

// sampler reads the sensor periodically and reports each sample.
type sampler struct {
	dev  sensor
	raw  bool
	out  io.Writer
	bars *bars
	m    *metrics
	log  *logrus.Entry
}

// errOutput marks a failure to print a sample, as opposed to reading it.
var errOutput = errors.New("output failed")

// run reads n samples, or until ctx is done when n is 0. Failed reads are
// logged and counted as samples; a failure to print stops the run.
func (s *sampler) run(ctx context.Context, n int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; n == 0 || i < n; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := s.once(); err != nil {
			if errors.Is(err, adxl345.ErrNotInitialized) || errors.Is(err, errOutput) {
				return err
			}
			s.m.failed()
			s.log.WithError(err).Warn("read failed")
		}
	}
	return nil
}

func (s *sampler) once() error {
	var err error
	if s.raw {
		var r adxl345.RawAcceleration
		if r, err = s.dev.SenseRaw(); err != nil {
			return err
		}
		s.m.observeRaw(r)
		_, err = fmt.Fprintln(s.out, r)
	} else {
		var a adxl345.Acceleration
		if a, err = s.dev.Sense(); err != nil {
			return err
		}
		s.m.observe(a)
		if s.bars != nil {
			err = s.bars.write(a)
		} else {
			_, err = fmt.Fprintln(s.out, a)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", errOutput, err)
	}
	return nil
}

// parseSensitivity converts a range in g to its register value.
func parseSensitivity(g int) (adxl345.Sensitivity, error) {
	switch g {
	case 2:
		return adxl345.S2G, nil
	case 4:
		return adxl345.S4G, nil
	case 8:
		return adxl345.S8G, nil
	case 16:
		return adxl345.S16G, nil
	}
	return 0, fmt.Errorf("%w: %dg, valid values are 2, 4, 8, 16", adxl345.ErrSensitivityOutOfRange, g)
}

// nearestRate returns the output data rate closest to f.
func nearestRate(f physic.Frequency) (adxl345.Rate, error) {
	if f <= 0 {
		return 0, fmt.Errorf("invalid rate %s", f)
	}
	best := adxl345.Rate0_10Hz
	for r := adxl345.Rate0_10Hz; r <= adxl345.Rate3200Hz; r++ {
		if math.Abs(float64(r.Frequency()-f)) < math.Abs(float64(best.Frequency()-f)) {
			best = r
		}
	}
	return best, nil
}

// parseOffsets parses "x,y,z" into the three offset register values.
func parseOffsets(s string) (x, y, z int8, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid offsets %q, expected x,y,z", s)
	}
	var v [3]int8
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 0, 8)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid offset %q: %w", p, err)
		}
		v[i] = int8(n)
	}
	return v[0], v[1], v[2], nil
}

// open connects to the device on the selected bus. The returned closer
// releases the bus.
func open(o *adxl345.Opts) (*adxl345.Dev, io.Closer, error) {
	if *useSpi {
		p, err := spireg.Open(*spiPort)
		if err != nil {
			return nil, nil, err
		}
		d, err := adxl345.NewSpi(p, o)
		if err != nil {
			p.Close()
			return nil, nil, err
		}
		return d, p, nil
	}
	if *addr > 0x7F {
		return nil, nil, fmt.Errorf("invalid I²C address %#x", *addr)
	}
	b, err := i2creg.Open(*busName)
	if err != nil {
		return nil, nil, err
	}
	d, err := adxl345.NewI2C(b, uint16(*addr), o)
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	return d, b, nil
}

func mainImpl(ctx context.Context, log *logrus.Entry) error {
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *interval <= 0 {
		return fmt.Errorf("invalid interval %s", *interval)
	}
	s, err := parseSensitivity(*rangeG)
	if err != nil {
		return err
	}
	r, err := nearestRate(rate)
	if err != nil {
		return err
	}
	opts := adxl345.Opts{
		ExpectedDeviceID: adxl345.DeviceIDValue,
		Sensitivity:      s,
		Rate:             r,
		LowPower:         *lowPower,
	}

	if _, err = host.Init(); err != nil {
		return err
	}
	dev, closer, err := open(&opts)
	if err != nil {
		return err
	}
	defer closer.Close()
	dev.EnableDebug(log.Debugf)
	log.Infof("using %s over %s", dev, dev.Mode())
	defer func() {
		if err := dev.Halt(); err != nil {
			log.WithError(err).Warn("halt failed")
		}
	}()

	if *offsets != "" {
		x, y, z, err := parseOffsets(*offsets)
		if err != nil {
			return err
		}
		if err = dev.SetOffsets(x, y, z); err != nil {
			return err
		}
		log.Debugf("offsets set to %d,%d,%d", x, y, z)
	}

	reg := prometheus.NewRegistry()
	m := newMetrics(reg)
	if *httpAddr != "" {
		srv := serveMetrics(*httpAddr, reg, log)
		defer srv.Close()
	}

	out := colorable.NewColorableStdout()
	smp := &sampler{dev: dev, raw: *raw, out: out, m: m, log: log}
	if *showBars {
		if *raw {
			log.Warn("-bars is ignored with -raw")
		} else {
			smp.bars = newBars(out, nil, barsWidth, float64(int(2)<<s))
			defer smp.bars.Halt()
		}
	}
	return smp.run(ctx, *count, *interval)
}

func main() {
	flag.Parse()
	log := newLogger(logrus.Level(*logLevel))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := mainImpl(ctx, log)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}
