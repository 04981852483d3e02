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
	goflag "flag"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"k8s.io/klog"

	"github.com/cloudandheat/udp-redirector/internal/command"
)

var (
	configPath string
	backend    string
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <action> [arguments]

Actions:
  route <interface> <ports>              redirect all UDP ports except <ports> (eg. 53,989)
  plan <interface> <ports>               print the packet filter commands route would run
  render <interface> <ports>             print an nftables ruleset for the redirect
  manage add <user> <password> <date>    create a sandbox account expiring on <date> (YYYY-MM-DD)
  manage del <user>                      delete a sandbox account

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	flag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	// everything after the action is positional, passwords may start with "-"
	flag.CommandLine.SetInterspersed(false)
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig(configPath, backend)
	if err != nil {
		klog.Errorf("invalid configuration: %s", err.Error())
		klog.Flush()
		os.Exit(exitFailure)
	}

	a := &app{
		cfg:    cfg,
		runner: command.NewExecRunner(),
		out:    os.Stdout,
	}
	if err := a.run(context.Background(), flag.Args()); err != nil {
		klog.Errorf("Error: %s", err.Error())
		klog.Flush()
		os.Exit(exitCode(err))
	}
	klog.Flush()
}

func init() {
	flag.StringVar(&configPath, "config", "", "Path to the config file. Built-in defaults are used if unset.")
	flag.StringVar(&backend, "backend", "", "Packet filter backend, 'iptables' or 'nft'. Overrides packet-filter.backend.")
}
