// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"net/http"

	"github.com/GermanBionicSystems/accel/adxl345"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// metrics exports the last sample of each axis.
type metrics struct {
	accel      *prometheus.GaugeVec
	raw        *prometheus.GaugeVec
	samples    prometheus.Counter
	readErrors prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		accel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adxl345_acceleration_g",
			Help: "Last acceleration sample, in g.",
		}, []string{"axis"}),
		raw: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "adxl345_raw_counts",
			Help: "Last raw sample, in LSB.",
		}, []string{"axis"}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adxl345_samples_total",
			Help: "Samples read from the device.",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adxl345_read_errors_total",
			Help: "Failed sample reads.",
		}),
	}
	reg.MustRegister(m.accel, m.raw, m.samples, m.readErrors)
	return m
}

func (m *metrics) observe(a adxl345.Acceleration) {
	m.accel.WithLabelValues("x").Set(a.X)
	m.accel.WithLabelValues("y").Set(a.Y)
	m.accel.WithLabelValues("z").Set(a.Z)
	m.samples.Inc()
}

func (m *metrics) observeRaw(r adxl345.RawAcceleration) {
	m.raw.WithLabelValues("x").Set(float64(r.X))
	m.raw.WithLabelValues("y").Set(float64(r.Y))
	m.raw.WithLabelValues("z").Set(float64(r.Z))
	m.samples.Inc()
}

func (m *metrics) failed() {
	m.readErrors.Inc()
}

// serveMetrics exposes reg at /metrics on addr until the server is closed.
func serveMetrics(addr string, reg prometheus.Gatherer, log *logrus.Entry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Infof("serving metrics on http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	return srv
}
