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
	"fmt"
	"strconv"

	"golang.org/x/exp/slices"
	corev1 "k8s.io/api/core/v1"

	"github.com/cloudandheat/udp-redirector/internal/model"
)

var (
	ErrProtocolNotSupported = fmt.Errorf("Protocol is not supported")
)

// RuleBuilder translates a redirect rule into the argv of the command
// inserting it into the packet filter.
type RuleBuilder interface {
	Name() string
	Build(rule *model.RedirectRule) ([]string, error)
}

// Maps from k8s.io/api/core/v1.Protocol objects to strings understood by
// iptables and nftables
func mapProtocol(k8sproto corev1.Protocol) (string, error) {
	switch k8sproto {
	case corev1.ProtocolTCP:
		return "tcp", nil
	case corev1.ProtocolUDP:
		return "udp", nil
	default:
		return "", ErrProtocolNotSupported
	}
}

type IptablesRuleBuilder struct {
	Command []string
	Table   string
	Chain   string
	// Append with -A instead of inserting at the head of the chain with -I.
	Append bool
}

func (b *IptablesRuleBuilder) Name() string {
	return "iptables"
}

// Build produces eg.
// iptables -t nat -I PREROUTING -i eth0 -p udp --dport 1:52 -j REDIRECT --to-ports 8989
func (b *IptablesRuleBuilder) Build(rule *model.RedirectRule) ([]string, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	proto, err := mapProtocol(rule.Protocol)
	if err != nil {
		return nil, err
	}

	op := "-I"
	if b.Append {
		op = "-A"
	}

	argv := slices.Clone(b.Command)
	return append(argv,
		"-t", b.Table,
		op, b.Chain,
		"-i", rule.Interface,
		"-p", proto,
		"--dport", rule.PortRange(":"),
		"-j", "REDIRECT",
		"--to-ports", strconv.Itoa(int(rule.TargetPort)),
	), nil
}

// NftablesRuleBuilder expects the table and the nat prerouting chain to
// exist already (see NftablesRenderer).
type NftablesRuleBuilder struct {
	Command []string
	Family  string
	Table   string
	Chain   string
	Append  bool
}

func (b *NftablesRuleBuilder) Name() string {
	return "nft"
}

// Build produces eg.
// nft insert rule ip nat prerouting iifname eth0 udp dport 1-52 redirect to :8989
func (b *NftablesRuleBuilder) Build(rule *model.RedirectRule) ([]string, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	proto, err := mapProtocol(rule.Protocol)
	if err != nil {
		return nil, err
	}

	op := "insert"
	if b.Append {
		op = "add"
	}

	argv := slices.Clone(b.Command)
	return append(argv,
		op, "rule", b.Family, b.Table, b.Chain,
		"iifname", rule.Interface,
		proto, "dport", nftPorts(rule),
		"redirect", "to", ":"+strconv.Itoa(int(rule.TargetPort)),
	), nil
}

func nftPorts(rule *model.RedirectRule) string {
	if rule.StartPort == rule.EndPort {
		return strconv.Itoa(int(rule.StartPort))
	}
	return rule.PortRange("-")
}
