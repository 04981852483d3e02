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
package planner

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/klog"

	"github.com/cloudandheat/udp-redirector/internal/model"
)

// Planner turns a set of excluded ports into the minimal list of contiguous
// redirect ranges covering every other port.
type Planner struct {
	TargetPort int32
}

// Plan returns rules in ascending port order. The ranges of the returned
// plan and the excluded ports together partition [1, 65535] exactly.
func (p *Planner) Plan(iface string, excluded []int32) (model.RulePlan, error) {
	if len(excluded) == 0 {
		return nil, fmt.Errorf("%w: at least one excluded port is required", model.ErrInvalidConfiguration)
	}

	ports := sets.List(sets.New[int32](excluded...))
	if ports[0] < model.MinPort || ports[len(ports)-1] > model.MaxPort {
		return nil, fmt.Errorf("%w: excluded ports must be within [%d, %d]", model.ErrInvalidConfiguration, model.MinPort, model.MaxPort)
	}

	plan := model.RulePlan{}
	start := model.MinPort
	for _, n := range ports {
		if n != start {
			plan = append(plan, p.newRule(iface, start, n-1))
		}
		start = n + 1
	}
	if ports[len(ports)-1] != model.MaxPort {
		plan = append(plan, p.newRule(iface, start, model.MaxPort))
	}

	klog.V(1).Infof("planned %d redirect rules on %s for %d excluded ports", len(plan), iface, len(ports))
	return plan, nil
}

func (p *Planner) newRule(iface string, start, end int32) model.RedirectRule {
	return model.RedirectRule{
		Interface:  iface,
		Protocol:   corev1.ProtocolUDP,
		StartPort:  start,
		EndPort:    end,
		TargetPort: p.TargetPort,
	}
}
