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
	"context"
	"fmt"
	"strings"

	"k8s.io/klog"

	"github.com/cloudandheat/udp-redirector/internal/command"
	"github.com/cloudandheat/udp-redirector/internal/model"
)

// RuleFailedError reports the rule whose insertion command failed. Rules
// before it stay applied.
type RuleFailedError struct {
	// zero-based position of the rule in the plan
	Index  int
	Total  int
	Rule   model.RedirectRule
	Args   []string
	Output string
	Err    error
}

func (e *RuleFailedError) Error() string {
	return fmt.Sprintf("%s for rule %d/%d (%s): %s",
		model.ErrPacketFilterCommandFailed, e.Index+1, e.Total, e.Rule, command.Describe(e.Output, e.Err))
}

func (e *RuleFailedError) Unwrap() error {
	return e.Err
}

func (e *RuleFailedError) Is(target error) bool {
	return target == model.ErrPacketFilterCommandFailed
}

// Installer applies a plan rule by rule, in plan order, and stops at the
// first failing command. There is no rollback.
type Installer struct {
	Runner  command.Runner
	Builder RuleBuilder
	// may be nil
	Metrics *Metrics
}

func (i *Installer) Apply(ctx context.Context, plan model.RulePlan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("%w: %s", model.ErrInvalidConfiguration, err.Error())
	}

	// all commands are built before the first one runs
	commands, err := i.Commands(plan)
	if err != nil {
		return fmt.Errorf("%w: %s", model.ErrInvalidConfiguration, err.Error())
	}

	i.Metrics.ObservePlan(plan)
	for idx, argv := range commands {
		klog.V(2).Infof("applying %s rule %d/%d: %s", i.Builder.Name(), idx+1, len(plan), strings.Join(argv, " "))
		output, err := i.Runner.Run(ctx, argv)
		if err != nil {
			i.Metrics.ObserveFailure(plan[idx].Interface)
			return &RuleFailedError{
				Index:  idx,
				Total:  len(plan),
				Rule:   plan[idx],
				Args:   argv,
				Output: output,
				Err:    err,
			}
		}
		i.Metrics.ObserveApplied(plan[idx].Interface)
	}

	i.Metrics.ObserveSuccess()
	klog.V(1).Infof("applied %d %s redirect rules", len(plan), i.Builder.Name())
	return nil
}

// Commands returns the argv the installer would run for plan, without
// running anything.
func (i *Installer) Commands(plan model.RulePlan) ([][]string, error) {
	commands := make([][]string, 0, len(plan))
	for idx := range plan {
		argv, err := i.Builder.Build(&plan[idx])
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", idx+1, plan[idx], err)
		}
		commands = append(commands, argv)
	}
	return commands, nil
}
