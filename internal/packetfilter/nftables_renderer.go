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
	"io"
	"text/template"

	"github.com/cloudandheat/udp-redirector/internal/model"
)

var (
	nftablesTemplate = template.Must(template.New("nftables.conf").Parse(`
table {{ .Family }} {{ .Table }} {
	chain {{ .Chain }} {
		type nat hook prerouting priority dstnat; policy accept;
{{- range $rdr := .Redirects }}
		iifname "{{ $rdr.Interface }}" {{ $rdr.Protocol }} dport {{ $rdr.Ports }} redirect to :{{ $rdr.TargetPort }};
{{- end }}
	}
}
`))
)

type nftablesRedirect struct {
	Interface  string
	Protocol   string
	Ports      string
	TargetPort int32
}

type nftablesConfig struct {
	Family    string
	Table     string
	Chain     string
	Redirects []nftablesRedirect
}

// NftablesRenderer writes a complete nftables ruleset for a plan, suitable
// for `nft -f`.
type NftablesRenderer struct {
	Family string
	Table  string
	Chain  string
}

// Generates a config suitable for nftablesTemplate from a plan, keeping the
// plan order
func (g *NftablesRenderer) GenerateStructuredConfig(plan model.RulePlan) (*nftablesConfig, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	result := &nftablesConfig{
		Family:    g.Family,
		Table:     g.Table,
		Chain:     g.Chain,
		Redirects: make([]nftablesRedirect, 0, len(plan)),
	}

	for idx := range plan {
		rule := &plan[idx]
		proto, err := mapProtocol(rule.Protocol)
		if err != nil {
			return nil, err
		}
		result.Redirects = append(result.Redirects, nftablesRedirect{
			Interface:  rule.Interface,
			Protocol:   proto,
			Ports:      nftPorts(rule),
			TargetPort: rule.TargetPort,
		})
	}

	return result, nil
}

func (g *NftablesRenderer) WriteStructuredConfig(cfg *nftablesConfig, out io.Writer) error {
	return nftablesTemplate.Execute(out, cfg)
}

func (g *NftablesRenderer) Render(plan model.RulePlan, out io.Writer) error {
	scfg, err := g.GenerateStructuredConfig(plan)
	if err != nil {
		return err
	}
	return g.WriteStructuredConfig(scfg, out)
}
