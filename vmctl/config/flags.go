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

package config

import (
	"flag"
	"fmt"
	"reflect"

	"addrspace.dev/addrspace/pkg/refs"
)

// RegisterFlags registers flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet) {
	// Debugging flags.
	flagSet.Bool("debug", false, "enable debug logging.")
	flagSet.String("log", "", "file path where internal debug information is written, default is stderr.")
	flagSet.String("log-format", "text", "log format: text (default), json, json-k8s or logrus.")
	flagSet.String("debug-log", "", "additional location for logs. If it ends with '/', log files are created inside the directory with default names. The following variables are available: %TIMESTAMP%, %COMMAND%.")
	flagSet.Bool("alsologtostderr", false, "send log messages to stderr.")
	flagSet.Var(leakModePtr(refs.NoLeakChecking), "ref-leak-mode", "sets reference leak check mode: disabled (default), log-names, log-traces, panic.")

	// Address space flags.
	flagSet.String("layout", "", "path of a TOML or YAML layout file describing the mappings of the address space.")
}

func leakModePtr(v refs.LeakMode) *refs.LeakMode {
	return &v
}

// flagFields calls fn for every Config field tagged with a flag name, passing
// the field and the flag of that name in flagSet. Every tagged flag must be
// registered.
func flagFields(c *Config, flagSet *flag.FlagSet, fn func(field reflect.Value, fl *flag.Flag)) {
	obj := reflect.ValueOf(c).Elem()
	for i := 0; i < obj.NumField(); i++ {
		name, ok := obj.Type().Field(i).Tag.Lookup("flag")
		if !ok {
			continue
		}
		fl := flagSet.Lookup(name)
		if fl == nil {
			panic(fmt.Sprintf("Flag %q not found", name))
		}
		fn(obj.Field(i), fl)
	}
}

// NewFromFlags creates a new Config with values coming from command line flags.
func NewFromFlags(flagSet *flag.FlagSet) (*Config, error) {
	conf := &Config{}
	flagFields(conf, flagSet, func(field reflect.Value, fl *flag.Flag) {
		field.Set(reflect.ValueOf(fl.Value.(flag.Getter).Get()))
	})
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// ToFlags returns the command line flags that recreate c. Flags set to their
// default value are omitted.
func (c *Config) ToFlags() []string {
	defaults := flag.NewFlagSet("defaults", flag.ContinueOnError)
	RegisterFlags(defaults)

	var rv []string
	flagFields(c, defaults, func(field reflect.Value, fl *flag.Flag) {
		if val := flagString(field); val != fl.DefValue {
			rv = append(rv, fmt.Sprintf("--%s=%s", fl.Name, val))
		}
	})
	return rv
}

// flagString formats field the way its flag.Value would.
func flagString(field reflect.Value) string {
	if s, ok := field.Addr().Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(field.Interface())
}
