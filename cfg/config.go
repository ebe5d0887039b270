// Copyright 2025 The dirkv Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cfg defines the server configuration surface: a YAML config file
// and flags, bound through viper.
package cfg

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Octal is a file mode parsed from an octal string like "0644".
type Octal uint32

func (o Octal) String() string {
	return fmt.Sprintf("0%03o", uint32(o))
}

type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

type ServerConfig struct {
	ListenAddress string `yaml:"listen-address" mapstructure:"listen-address"`
	MetricsPort   int    `yaml:"metrics-port" mapstructure:"metrics-port"`
}

type SnapshotConfig struct {
	Path           string `yaml:"path" mapstructure:"path"`
	SaveOnShutdown bool   `yaml:"save-on-shutdown" mapstructure:"save-on-shutdown"`
	FileMode       Octal  `yaml:"file-mode" mapstructure:"file-mode"`
}

type LoggingConfig struct {
	Severity string `yaml:"severity" mapstructure:"severity"`
	Format   string `yaml:"format" mapstructure:"format"`
	FilePath string `yaml:"file-path" mapstructure:"file-path"`
}

// BindFlags registers every config flag and binds it to its viper key.
func BindFlags(flagSet *pflag.FlagSet) error {
	flags := []struct {
		key      string
		name     string
		defValue string
		usage    string
		kind     string
	}{
		{"server.listen-address", "listen-address", ":6389", "Address the RESP listener binds to.", "string"},
		{"server.metrics-port", "metrics-port", "0", "Port for the prometheus /metrics listener; 0 disables it.", "int"},
		{"snapshot.path", "snapshot-path", "dirkv.snapshot", "Path of the keyspace snapshot file.", "string"},
		{"snapshot.save-on-shutdown", "save-on-shutdown", "true", "Write a snapshot on graceful shutdown.", "bool"},
		{"snapshot.file-mode", "snapshot-file-mode", "0644", "File mode of the snapshot, as an octal string.", "octal"},
		{"logging.severity", "log-severity", "INFO", "One of TRACE, DEBUG, INFO, WARNING, ERROR, OFF.", "string"},
		{"logging.format", "log-format", "text", "Log format: text or json.", "string"},
		{"logging.file-path", "log-file", "", "Log file path; empty logs to stderr.", "string"},
	}

	for _, f := range flags {
		switch f.kind {
		case "string", "octal":
			flagSet.StringP(f.name, "", f.defValue, f.usage)
		case "int":
			n, _ := strconv.Atoi(f.defValue)
			flagSet.IntP(f.name, "", n, f.usage)
		case "bool":
			b, _ := strconv.ParseBool(f.defValue)
			flagSet.BoolP(f.name, "", b, f.usage)
		}
		if err := viper.BindPFlag(f.key, flagSet.Lookup(f.name)); err != nil {
			return err
		}
	}
	return nil
}

// octalDecodeHook parses octal mode strings into Octal values during viper
// unmarshalling.
func octalDecodeHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(Octal(0)) {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		n, err := strconv.ParseUint(s, 8, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing octal value %q: %w", s, err)
		}
		return Octal(n), nil
	}
}

// Unmarshal decodes the bound viper state into a Config.
func Unmarshal() (Config, error) {
	var c Config
	err := viper.Unmarshal(&c, viper.DecodeHook(octalDecodeHook()))
	return c, err
}
