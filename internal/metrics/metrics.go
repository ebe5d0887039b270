// Copyright 2025 The dirkv Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the server's prometheus instrumentation.
package metrics

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dirkv/dirkv/internal/logger"
)

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dirkv",
			Name:      "commands_total",
			Help:      "Commands processed, by command name and outcome.",
		},
		[]string{"command", "status"},
	)

	keysLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dirkv",
			Name:      "keys_live",
			Help:      "Number of live keys in the keyspace.",
		},
	)

	connectionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dirkv",
			Name:      "connections_open",
			Help:      "Currently open client connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal, keysLive, connectionsOpen)
}

// RecordCommand counts one processed command.
func RecordCommand(name string, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	commandsTotal.WithLabelValues(strings.ToLower(name), status).Inc()
}

// SetKeyCount publishes the current keyspace size.
func SetKeyCount(n int) {
	keysLive.Set(float64(n))
}

// ConnOpened and ConnClosed track the connection gauge.
func ConnOpened() { connectionsOpen.Inc() }
func ConnClosed() { connectionsOpen.Dec() }

// Serve exposes /metrics on the given port in a background goroutine.
// port 0 disables the listener.
func Serve(port int) {
	if port == 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("metrics listener failed: %v", err)
		}
	}()
}
