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
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloudandheat/udp-redirector/internal/model"
)

const (
	cfgBlob = `
[packet-filter]
backend = "nft"
nft-command = ["sudo", "nft"]
nat-table-family = "inet"
nat-table-name = "udpru"
nat-prerouting-chain = "pre"
insert-mode = "append"
target-port = 9999
metrics-textfile = "/var/lib/node_exporter/udpru.prom"

[sandbox]
container = "vpn"
exec-command = ["podman", "exec"]
password-command = ["/usr/local/bin/setpw"]
`
)

func TestCanReadConfig(t *testing.T) {
	r := strings.NewReader(cfgBlob)
	cfg, err := ReadConfig(r)
	assert.Nil(t, err)

	pf := &cfg.PacketFilter
	assert.Equal(t, BackendNftables, pf.Backend)
	assert.Equal(t, []string{"sudo", "nft"}, pf.NftCommand)
	assert.Equal(t, "inet", pf.NATTableFamily)
	assert.Equal(t, "udpru", pf.NATTableName)
	assert.Equal(t, "pre", pf.NATPreroutingChainName)
	assert.Equal(t, InsertModeAppend, pf.InsertMode)
	assert.Equal(t, int32(9999), pf.TargetPort)
	assert.Equal(t, "/var/lib/node_exporter/udpru.prom", pf.MetricsTextfile)
	assert.Nil(t, pf.IptablesCommand)

	sb := &cfg.Sandbox
	assert.Equal(t, "vpn", sb.Container)
	assert.Equal(t, []string{"podman", "exec"}, sb.ExecCommand)
	assert.Equal(t, []string{"/usr/local/bin/setpw"}, sb.PasswordCommand)
}

func TestReadConfigRejectsUnknownKeys(t *testing.T) {
	r := strings.NewReader(`
[packet-filter]
target-prot = 1234
`)
	_, err := ReadConfig(r)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "packet-filter.target-prot")
}

func TestReadConfigRejectsBrokenToml(t *testing.T) {
	_, err := ReadConfig(strings.NewReader("[packet-filter"))
	assert.NotNil(t, err)
}

func TestReadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "udpru.toml")
	err := os.WriteFile(path, []byte(cfgBlob), 0o600)
	assert.Nil(t, err)

	cfg, err := ReadConfigFromFile(path)
	assert.Nil(t, err)
	assert.Equal(t, "vpn", cfg.Sandbox.Container)

	_, err = ReadConfigFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFillConfig(t *testing.T) {
	cfg := Config{}
	FillConfig(&cfg)

	pf := &cfg.PacketFilter
	assert.Equal(t, BackendIptables, pf.Backend)
	assert.Equal(t, []string{"iptables"}, pf.IptablesCommand)
	assert.Equal(t, []string{"nft"}, pf.NftCommand)
	assert.Equal(t, "ip", pf.NATTableFamily)
	assert.Equal(t, "nat", pf.NATTableName)
	assert.Equal(t, "PREROUTING", pf.NATPreroutingChainName)
	assert.Equal(t, InsertModeInsert, pf.InsertMode)
	assert.Equal(t, int32(8989), pf.TargetPort)
	assert.Equal(t, "", pf.MetricsTextfile)

	sb := &cfg.Sandbox
	assert.Equal(t, "udpr", sb.Container)
	assert.Equal(t, []string{"docker", "exec", "-i"}, sb.ExecCommand)
	assert.Equal(t, []string{"adduser", "--disabled-password", "--gecos", ""}, sb.AddUserCommand)
	assert.Equal(t, []string{"chage", "-E"}, sb.ExpireCommand)
	assert.Equal(t, []string{"sh", "/root/useradd.sh"}, sb.PasswordCommand)
	assert.Equal(t, []string{"userdel"}, sb.DeleteUserCommand)

	assert.Nil(t, ValidateConfig(&cfg))
}

func TestFillConfigNftablesChain(t *testing.T) {
	cfg := Config{PacketFilter: PacketFilter{Backend: BackendNftables}}
	FillConfig(&cfg)

	assert.Equal(t, "prerouting", cfg.PacketFilter.NATPreroutingChainName)
}

func TestFillConfigKeepsValues(t *testing.T) {
	r := strings.NewReader(cfgBlob)
	cfg, err := ReadConfig(r)
	assert.Nil(t, err)
	FillConfig(&cfg)

	assert.Equal(t, "pre", cfg.PacketFilter.NATPreroutingChainName)
	assert.Equal(t, int32(9999), cfg.PacketFilter.TargetPort)
	assert.Equal(t, []string{"podman", "exec"}, cfg.Sandbox.ExecCommand)
	assert.Equal(t, []string{"userdel"}, cfg.Sandbox.DeleteUserCommand)
	assert.Nil(t, ValidateConfig(&cfg))
}

func TestValidateConfigRejectsInvalidValues(t *testing.T) {
	cfg := Config{}
	FillConfig(&cfg)
	cfg.PacketFilter.TargetPort = 70000
	cfg.PacketFilter.Backend = "pf"

	err := ValidateConfig(&cfg)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "packet-filter.target-port")
	assert.Contains(t, err.Error(), "packet-filter.backend")
}

func TestValidateConfigRejectsEmptyCommandElement(t *testing.T) {
	cfg := Config{}
	FillConfig(&cfg)
	cfg.Sandbox.ExecCommand = []string{""}

	err := ValidateConfig(&cfg)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "sandbox.exec-command")
}

func TestValidateConfigRejectsMissingContainer(t *testing.T) {
	cfg := Config{}
	FillConfig(&cfg)
	cfg.Sandbox.Container = ""

	err := ValidateConfig(&cfg)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "sandbox.container")
}
