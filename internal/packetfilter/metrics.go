/* Copyright 2024 CLOUD&HEAT Technologies GmbH
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package packetfilter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cloudandheat/udp-redirector/internal/model"
)

// Metrics collects the outcome of one installation run, to be written to a
// node-exporter textfile afterwards. All methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	rulesMetric       *prometheus.GaugeVec
	failuresMetric    *prometheus.CounterVec
	lastSuccessMetric prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rulesMetric: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "udpru_redirect_rules",
				Help: "Number of redirect rules by interface and state",
			},
			[]string{"interface", "state"},
		),
		failuresMetric: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "udpru_redirect_rule_failures_total",
				Help: "Number of failed redirect rule insertions by interface",
			},
			[]string{"interface"},
		),
		lastSuccessMetric: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "udpru_redirect_last_success_timestamp_seconds",
				Help: "Unix time of the last fully applied redirect plan",
			},
		),
	}
	m.registry.MustRegister(m)
	return m
}

func (m *Metrics) Describe(out chan<- *prometheus.Desc) {
	m.rulesMetric.Describe(out)
	m.failuresMetric.Describe(out)
	m.lastSuccessMetric.Describe(out)
}

func (m *Metrics) Collect(out chan<- prometheus.Metric) {
	m.rulesMetric.Collect(out)
	m.failuresMetric.Collect(out)
	m.lastSuccessMetric.Collect(out)
}

func (m *Metrics) ObservePlan(plan model.RulePlan) {
	if m == nil {
		return
	}
	for _, rule := range plan {
		m.rulesMetric.With(prometheus.Labels{"interface": rule.Interface, "state": "planned"}).Inc()
		// make the applied series visible even if nothing gets applied
		m.rulesMetric.With(prometheus.Labels{"interface": rule.Interface, "state": "applied"}).Add(0)
	}
}

func (m *Metrics) ObserveApplied(iface string) {
	if m == nil {
		return
	}
	m.rulesMetric.With(prometheus.Labels{"interface": iface, "state": "applied"}).Inc()
}

func (m *Metrics) ObserveFailure(iface string) {
	if m == nil {
		return
	}
	m.failuresMetric.With(prometheus.Labels{"interface": iface}).Inc()
}

func (m *Metrics) ObserveSuccess() {
	if m == nil {
		return
	}
	m.lastSuccessMetric.Set(float64(time.Now().Unix()))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
