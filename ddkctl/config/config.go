// Copyright 2026 The gVisor Authors.
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

// Package config provides basic infrastructure to set configuration settings
// for ddkctl. Each setting that can be changed from the command line must be
// added to Config and a corresponding flag must be registered in flags.go.
package config

import (
	"fmt"

	"ddk.dev/ddk/pkg/list"
	"ddk.dev/ddk/pkg/log"
)

// Config holds configuration that is not part of any individual scenario or
// pool file. Fields with a `flag` tag are populated from the flag of that
// name.
type Config struct {
	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// AlsoLogToStderr allows to send log messages to stderr in addition
	// to the log file.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// MaxInstances is the default number of lists in a table, used by
	// scenarios that do not set one.
	MaxInstances uint `flag:"max-instances"`

	// StrictArgs is the default argument checking policy, used by
	// scenarios that do not set one.
	StrictArgs bool `flag:"strict-args"`

	// PoolConfig is the path of the TOML pool configuration used by the
	// pool command.
	PoolConfig string `flag:"pool-config"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", c.LogFormat)
	}
	if c.MaxInstances == 0 {
		return fmt.Errorf("max-instances must be at least 1")
	}
	return nil
}

// ListConfig returns the list table configuration selected by c.
func (c *Config) ListConfig() list.Config {
	return list.Config{
		MaxInstances: c.MaxInstances,
		StrictArgs:   c.StrictArgs,
	}
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	for _, f := range c.ToFlags() {
		log.Infof("\t%s", f)
	}
}
