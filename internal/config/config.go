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
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/cloudandheat/udp-redirector/internal/model"
)

type BackendType string

const (
	BackendIptables BackendType = "iptables"
	BackendNftables BackendType = "nft"
)

type InsertMode string

const (
	InsertModeInsert InsertMode = "insert"
	InsertModeAppend InsertMode = "append"
)

type PacketFilter struct {
	Backend         BackendType `toml:"backend" validate:"oneof=iptables nft"`
	IptablesCommand []string    `toml:"iptables-command" validate:"required,min=1,dive,required"`
	NftCommand      []string    `toml:"nft-command" validate:"required,min=1,dive,required"`
	// nftables only, iptables always works on the ip family
	NATTableFamily         string     `toml:"nat-table-family" validate:"oneof=ip ip6 inet"`
	NATTableName           string     `toml:"nat-table-name" validate:"required"`
	NATPreroutingChainName string     `toml:"nat-prerouting-chain" validate:"required"`
	InsertMode             InsertMode `toml:"insert-mode" validate:"oneof=insert append"`
	TargetPort             int32      `toml:"target-port" validate:"gte=1,lte=65535"`
	MetricsTextfile        string     `toml:"metrics-textfile"`
}

type Sandbox struct {
	Container         string   `toml:"container" validate:"required"`
	ExecCommand       []string `toml:"exec-command" validate:"required,min=1,dive,required"`
	AddUserCommand    []string `toml:"add-user-command" validate:"required,min=1"`
	ExpireCommand     []string `toml:"expire-command" validate:"required,min=1"`
	PasswordCommand   []string `toml:"password-command" validate:"required,min=1"`
	DeleteUserCommand []string `toml:"delete-user-command" validate:"required,min=1"`
}

type Config struct {
	PacketFilter PacketFilter `toml:"packet-filter"`
	Sandbox      Sandbox      `toml:"sandbox"`
}

func ReadConfig(config io.Reader) (result Config, err error) {
	md, err := toml.NewDecoder(config).Decode(&result)
	if err != nil {
		return result, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return result, fmt.Errorf("unknown configuration keys: %s", strings.Join(keys, ", "))
	}
	return result, nil
}

func ReadConfigFromFile(path string) (Config, error) {
	fin, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer fin.Close()
	return ReadConfig(fin)
}

func defaultString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func defaultStringList(field *[]string, value []string) {
	if field == nil || len(*field) == 0 {
		*field = make([]string, len(value))
		copy(*field, value)
	}
}

func FillPacketFilterConfig(cfg *PacketFilter) {
	if cfg.Backend == "" {
		cfg.Backend = BackendIptables
	}
	if cfg.InsertMode == "" {
		cfg.InsertMode = InsertModeInsert
	}
	if cfg.TargetPort == 0 {
		cfg.TargetPort = 8989
	}

	defaultStringList(&cfg.IptablesCommand, []string{"iptables"})
	defaultStringList(&cfg.NftCommand, []string{"nft"})
	defaultString(&cfg.NATTableFamily, "ip")
	defaultString(&cfg.NATTableName, "nat")
	if cfg.Backend == BackendNftables {
		defaultString(&cfg.NATPreroutingChainName, "prerouting")
	} else {
		defaultString(&cfg.NATPreroutingChainName, "PREROUTING")
	}
}

func FillSandboxConfig(cfg *Sandbox) {
	defaultString(&cfg.Container, "udpr")

	defaultStringList(&cfg.ExecCommand, []string{"docker", "exec", "-i"})
	defaultStringList(&cfg.AddUserCommand, []string{"adduser", "--disabled-password", "--gecos", ""})
	defaultStringList(&cfg.ExpireCommand, []string{"chage", "-E"})
	defaultStringList(&cfg.PasswordCommand, []string{"sh", "/root/useradd.sh"})
	defaultStringList(&cfg.DeleteUserCommand, []string{"userdel"})
}

func FillConfig(cfg *Config) {
	FillPacketFilterConfig(&cfg.PacketFilter)
	FillSandboxConfig(&cfg.Sandbox)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their configuration key
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateConfig(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	validationErrs := validator.ValidationErrors{}
	if !errors.As(err, &validationErrs) {
		return err
	}
	msgs := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		// strip the root struct name, eg. "Config.packet-filter.target-port"
		key := fieldErr.Namespace()
		if idx := strings.Index(key, "."); idx >= 0 {
			key = key[idx+1:]
		}
		msgs = append(msgs, fmt.Sprintf("%s has an invalid value %q (%s)", key, fmt.Sprint(fieldErr.Value()), fieldErr.ActualTag()))
	}
	return fmt.Errorf("%w: %s", model.ErrInvalidConfiguration, strings.Join(msgs, "; "))
}
