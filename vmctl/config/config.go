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
// for vmctl. Each setting that can be changed from outside (flags) must have
// a corresponding field in Config, with a "flag" tag naming the flag.
package config

import (
	"flag"
	"fmt"
	"reflect"

	"addrspace.dev/addrspace/pkg/log"
	"addrspace.dev/addrspace/pkg/refs"
)

// Config holds configuration that is not part of a layout file.
type Config struct {
	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format: "text", "json", "json-k8s" or "logrus".
	LogFormat string `flag:"log-format"`

	// DebugLog is the path to log debug information to, if not empty. It
	// may contain %COMMAND% and %TIMESTAMP%, and if it ends in '/' it names
	// a directory.
	DebugLog string `flag:"debug-log"`

	// AlsoLogToStderr allows sending log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// ReferenceLeak sets reference leak check mode.
	ReferenceLeak refs.LeakMode `flag:"ref-leak-mode"`

	// Layout is the path of the layout file used by commands that build an
	// address space.
	Layout string `flag:"layout"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json", "json-k8s", "logrus":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json', 'json-k8s' or 'logrus'", c.LogFormat)
	}
	return nil
}

// Log logs every flag-backed field of the configuration.
func (c *Config) Log() {
	log.Infof("Config:")
	flagSet := flag.NewFlagSet("log", flag.ContinueOnError)
	RegisterFlags(flagSet)
	flagFields(c, flagSet, func(field reflect.Value, fl *flag.Flag) {
		log.Infof("\t%s: %s", fl.Name, flagString(field))
	})
}
