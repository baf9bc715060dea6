// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package adxl345_test

import (
	"fmt"
	"log"
	"time"

	"github.com/GermanBionicSystems/accel/adxl345"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// ExampleNewI2C uses an adxl345 device connected by I²C at the default
// address (0x53, SDO/ALT ADDRESS pin low).
// It reads the acceleration values every 40ms for 3 seconds.
// You can use `i2cdetect` to find the I²C bus number
// e.g : sudo apt-get install i2c-tools
//
//	sudo i2cdetect -y 1
func ExampleNewI2C() {
	mustInitHost()

	// Use i2creg to find the first available I²C bus.
	// Generally I2C1 on raspberry pi.
	p, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	d, err := adxl345.NewI2C(p, adxl345.DefaultAddress, &adxl345.DefaultOpts)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Halt()

	measure(d, 3*time.Second)
}

// ExampleNewSpi uses an adxl345 device connected by SPI.
// It reads the acceleration values every 40ms for 3 seconds.
func ExampleNewSpi() {
	mustInitHost()

	// Use spireg SPI port registry to find the first available SPI bus.
	p, err := spireg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	d, err := adxl345.NewSpi(p, &adxl345.DefaultOpts)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Halt()

	measure(d, 3*time.Second)
}

// ExampleDev_SenseContinuous streams samples at ±8g until Halt is called.
func ExampleDev_SenseContinuous() {
	mustInitHost()

	p, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	opts := adxl345.DefaultOpts
	opts.Sensitivity = adxl345.S8G
	opts.Rate = adxl345.Rate100Hz
	d, err := adxl345.NewI2C(p, adxl345.AltAddress, &opts)
	if err != nil {
		log.Fatal(err)
	}

	ch, err := d.SenseContinuous(10 * time.Millisecond)
	if err != nil {
		log.Fatal(err)
	}
	time.AfterFunc(time.Second, func() {
		if err := d.Halt(); err != nil {
			log.Println(err)
		}
	})
	for a := range ch {
		fmt.Println(a)
	}
}

// mustInitHost Make sure host is initialized.
func mustInitHost() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
}

// measure reads the acceleration values every 40ms for <duration>.
func measure(d *adxl345.Dev, duration time.Duration) {
	fmt.Println(d.String(), d.Mode())

	// The default data rate is 25Hz.
	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()

	stop := time.After(duration)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a, err := d.Sense()
			if err != nil {
				log.Println(err)
				continue
			}
			fmt.Println(a)
		}
	}
}
