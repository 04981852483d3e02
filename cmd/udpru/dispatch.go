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
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"k8s.io/klog"

	"github.com/cloudandheat/udp-redirector/internal/command"
	"github.com/cloudandheat/udp-redirector/internal/config"
	"github.com/cloudandheat/udp-redirector/internal/model"
	"github.com/cloudandheat/udp-redirector/internal/packetfilter"
	"github.com/cloudandheat/udp-redirector/internal/planner"
	"github.com/cloudandheat/udp-redirector/internal/sandbox"
)

const (
	exitInvalidArguments = 2
	exitFailure          = 1
)

type app struct {
	cfg    config.Config
	runner command.Runner
	out    io.Writer
}

func usageError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", model.ErrInvalidArguments, fmt.Sprintf(format, args...))
}

func exitCode(err error) int {
	if errors.Is(err, model.ErrInvalidArguments) {
		return exitInvalidArguments
	}
	return exitFailure
}

// loadConfig reads the config file if one is given and applies the
// command line overrides before defaults are filled in.
func loadConfig(path string, backend string) (config.Config, error) {
	cfg := config.Config{}
	if path != "" {
		var err error
		cfg, err = config.ReadConfigFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed reading config: %w", err)
		}
	}
	if backend != "" {
		cfg.PacketFilter.Backend = config.BackendType(backend)
	}

	config.FillConfig(&cfg)
	if err := config.ValidateConfig(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *app) ruleBuilder() packetfilter.RuleBuilder {
	pf := &a.cfg.PacketFilter
	appendRules := pf.InsertMode == config.InsertModeAppend
	if pf.Backend == config.BackendNftables {
		return &packetfilter.NftablesRuleBuilder{
			Command: pf.NftCommand,
			Family:  pf.NATTableFamily,
			Table:   pf.NATTableName,
			Chain:   pf.NATPreroutingChainName,
			Append:  appendRules,
		}
	}
	return &packetfilter.IptablesRuleBuilder{
		Command: pf.IptablesCommand,
		Table:   pf.NATTableName,
		Chain:   pf.NATPreroutingChainName,
		Append:  appendRules,
	}
}

func (a *app) accountManager() *sandbox.AccountManager {
	return &sandbox.AccountManager{
		Runner: a.runner,
		Cfg:    a.cfg.Sandbox,
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageError("action is required (e.g., 'route' or 'manage')")
	}

	switch args[0] {
	case "route":
		return a.route(ctx, args[1:])
	case "plan":
		return a.printPlan(args[1:])
	case "render":
		return a.render(args[1:])
	case "manage":
		return a.manage(ctx, args[1:])
	default:
		return usageError("invalid action %q, use 'route', 'plan', 'render' or 'manage'", args[0])
	}
}

// planFromArgs handles the common "<interface> <ports>" arguments
func (a *app) planFromArgs(args []string) (model.RulePlan, error) {
	if len(args) != 2 {
		return nil, usageError("network interface and excluded ports are required (e.g., 'eth0 53,989')")
	}
	iface := args[0]
	if iface == "" {
		return nil, usageError("network interface must not be empty")
	}

	excluded, err := model.ParsePortList(args[1])
	if err != nil {
		return nil, err
	}

	p := &planner.Planner{TargetPort: a.cfg.PacketFilter.TargetPort}
	return p.Plan(iface, excluded)
}

func (a *app) route(ctx context.Context, args []string) error {
	plan, err := a.planFromArgs(args)
	if err != nil {
		return err
	}

	var metrics *packetfilter.Metrics
	if a.cfg.PacketFilter.MetricsTextfile != "" {
		metrics = packetfilter.NewMetrics()
	}

	builder := a.ruleBuilder()
	installer := &packetfilter.Installer{
		Runner:  a.runner,
		Builder: builder,
		Metrics: metrics,
	}
	err = installer.Apply(ctx, plan)

	if metrics != nil {
		if writeErr := metrics.WriteTextfile(a.cfg.PacketFilter.MetricsTextfile); writeErr != nil {
			klog.Warningf("failed to write metrics to %s: %s", a.cfg.PacketFilter.MetricsTextfile, writeErr.Error())
		}
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s SUCCESS\n", strings.ToUpper(builder.Name()))
	return nil
}

func (a *app) printPlan(args []string) error {
	plan, err := a.planFromArgs(args)
	if err != nil {
		return err
	}

	installer := &packetfilter.Installer{Builder: a.ruleBuilder()}
	commands, err := installer.Commands(plan)
	if err != nil {
		return err
	}
	for _, argv := range commands {
		fmt.Fprintln(a.out, strings.Join(argv, " "))
	}
	return nil
}

func (a *app) render(args []string) error {
	plan, err := a.planFromArgs(args)
	if err != nil {
		return err
	}

	pf := &a.cfg.PacketFilter
	renderer := &packetfilter.NftablesRenderer{
		Family: pf.NATTableFamily,
		Table:  pf.NATTableName,
		Chain:  pf.NATPreroutingChainName,
	}
	return renderer.Render(plan, a.out)
}

func (a *app) manage(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageError("sub-action ('add' or 'del') is required")
	}

	switch args[0] {
	case "add":
		if len(args) != 4 {
			return usageError("username, password, and expiry date are required (e.g., 'add user pass 2025-05-01')")
		}
		account := sandbox.Account{
			Username:   args[1],
			Password:   args[2],
			ExpiryDate: args[3],
		}
		if err := a.accountManager().CreateAccount(ctx, account); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "User '%s' added successfully.\n", account.Username)
		return nil

	case "del":
		if len(args) != 2 {
			return usageError("username is required to delete")
		}
		username := args[1]
		if err := a.accountManager().DeleteAccount(ctx, username); err != nil {
			return fmt.Errorf("failed to delete user '%s': %w", username, err)
		}
		fmt.Fprintf(a.out, "User '%s' deleted successfully.\n", username)
		return nil

	default:
		return usageError("invalid sub-action %q, use 'add' or 'del'", args[0])
	}
}
