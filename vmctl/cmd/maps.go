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

package cmd

import (
	"context"
	"flag"
	"os"

	"addrspace.dev/addrspace/vmctl/cmd/util"
	"addrspace.dev/addrspace/vmctl/config"
	"github.com/google/subcommands"
)

// Maps implements subcommands.Command for the "maps" command.
type Maps struct {
	layout string
	flags  string
}

// Name implements subcommands.Command.
func (*Maps) Name() string {
	return "maps"
}

// Synopsis implements subcommands.Command.
func (*Maps) Synopsis() string {
	return "builds an address space from a layout file and prints its mappings"
}

// Usage implements subcommands.Command.
func (*Maps) Usage() string {
	return `maps [flags] - print the mappings in /proc/[pid]/maps format.
`
}

// SetFlags implements subcommands.Command.
func (m *Maps) SetFlags(f *flag.FlagSet) {
	f.StringVar(&m.layout, "layout", "", "layout file, overrides the global --layout flag.")
	f.StringVar(&m.flags, "flags", "", "if set, use these flags for every mapping instead of the ones in the layout.")
}

// Execute implements subcommands.Command.Execute.
func (m *Maps) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	l, err := loadLayout(conf, m.layout, m.flags)
	if err != nil {
		return util.Errorf("loading layout: %v", err)
	}
	as, err := buildSpace(ctx, l)
	if err != nil {
		return util.Errorf("building address space: %v", err)
	}
	defer as.Release(ctx)

	if err := as.WriteMaps(os.Stdout); err != nil {
		return util.Errorf("writing maps: %v", err)
	}
	return subcommands.ExitSuccess
}
