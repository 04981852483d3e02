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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsNilIsNoop(t *testing.T) {
	var m *Metrics

	m.ObservePlan(threeRulePlan())
	m.ObserveApplied("eth0")
	m.ObserveFailure("eth0")
	m.ObserveSuccess()
}

func TestMetricsWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObservePlan(threeRulePlan())
	m.ObserveApplied("eth0")
	m.ObserveApplied("eth0")
	m.ObserveFailure("eth0")

	path := filepath.Join(t.TempDir(), "udpru.prom")
	err := m.WriteTextfile(path)
	assert.Nil(t, err)

	content, err := os.ReadFile(path)
	assert.Nil(t, err)
	text := string(content)
	assert.Contains(t, text, `udpru_redirect_rules{interface="eth0",state="planned"} 3`)
	assert.Contains(t, text, `udpru_redirect_rules{interface="eth0",state="applied"} 2`)
	assert.Contains(t, text, `udpru_redirect_rule_failures_total{interface="eth0"} 1`)
	assert.Contains(t, text, "udpru_redirect_last_success_timestamp_seconds 0")
}

func TestMetricsRegistryGathers(t *testing.T) {
	m := NewMetrics()
	m.ObserveSuccess()

	families, err := m.Registry().Gather()
	assert.Nil(t, err)
	names := []string{}
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "udpru_redirect_last_success_timestamp_seconds")
}
