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

package cfg

import "fmt"

var validSeverities = map[string]bool{
	"TRACE":   true,
	"DEBUG":   true,
	"INFO":    true,
	"WARNING": true,
	"ERROR":   true,
	"OFF":     true,
}

// Validate rejects configurations the server cannot run with.
func Validate(c *Config) error {
	if c.Server.ListenAddress == "" {
		return fmt.Errorf("listen-address must not be empty")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("metrics-port %d is out of range", c.Server.MetricsPort)
	}
	if !validSeverities[c.Logging.Severity] {
		return fmt.Errorf("unknown log severity %q", c.Logging.Severity)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	if c.Snapshot.Path == "" {
		return fmt.Errorf("snapshot path must not be empty")
	}
	if c.Snapshot.FileMode > 0o777 {
		return fmt.Errorf("snapshot file-mode %s is out of range", c.Snapshot.FileMode)
	}
	return nil
}
