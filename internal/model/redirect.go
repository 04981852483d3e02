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
package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	corev1 "k8s.io/api/core/v1"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const (
	MinPort int32 = 1
	MaxPort int32 = 65535
)

var validate = validator.New()

// RedirectRule redirects UDP traffic arriving on Interface with a
// destination port in [StartPort, EndPort] to the local TargetPort.
type RedirectRule struct {
	// Linux limits interface names to IFNAMSIZ-1 bytes.
	Interface  string          `json:"interface" validate:"required,max=15"`
	Protocol   corev1.Protocol `json:"protocol" validate:"required,oneof=UDP"`
	StartPort  int32           `json:"start-port" validate:"gte=1,lte=65535"`
	EndPort    int32           `json:"end-port" validate:"gte=1,lte=65535,gtefield=StartPort"`
	TargetPort int32           `json:"target-port" validate:"gte=1,lte=65535"`
}

// PortRange formats the destination range with the given separator,
// eg. ":" for iptables ("1:52") and "-" for nftables ("1-52").
func (r *RedirectRule) PortRange(sep string) string {
	return strconv.Itoa(int(r.StartPort)) + sep + strconv.Itoa(int(r.EndPort))
}

func (r RedirectRule) String() string {
	return fmt.Sprintf("%s %s [%s] -> %d", r.Interface, r.Protocol, r.PortRange(":"), r.TargetPort)
}

func (r *RedirectRule) Validate() error {
	return validate.Struct(r)
}

// RulePlan is ordered by ascending StartPort.
type RulePlan []RedirectRule

// Validate checks every rule and that the ranges are ascending and do not
// overlap.
func (p RulePlan) Validate() error {
	for i := range p {
		if err := p[i].Validate(); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i+1, p[i], err)
		}
		if i > 0 && p[i].StartPort <= p[i-1].EndPort {
			return fmt.Errorf("rule %d (%s) overlaps or precedes rule %d (%s)", i+1, p[i], i, p[i-1])
		}
	}
	return nil
}

// Covers reports whether any rule of the plan contains port.
func (p RulePlan) Covers(port int32) bool {
	for _, rule := range p {
		if port >= rule.StartPort && port <= rule.EndPort {
			return true
		}
	}
	return false
}

// ParsePortList parses a comma separated list of ports like "53,989".
// All malformed entries are reported at once.
func ParsePortList(in string) ([]int32, error) {
	items := strings.Split(in, ",")
	ports := make([]int32, 0, len(items))
	errs := []error{}
	for _, item := range items {
		item = strings.TrimSpace(item)
		port, err := strconv.ParseInt(item, 10, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("%q is not an integer", item))
			continue
		}
		if int32(port) < MinPort || int32(port) > MaxPort {
			errs = append(errs, fmt.Errorf("port %d is out of range [%d, %d]", port, MinPort, MaxPort))
			continue
		}
		ports = append(ports, int32(port))
	}
	if agg := utilerrors.NewAggregate(errs); agg != nil {
		return nil, fmt.Errorf("%w: ports must be integers separated by commas: %s", ErrInvalidArguments, agg.Error())
	}
	return ports, nil
}
