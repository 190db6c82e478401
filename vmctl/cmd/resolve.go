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
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"addrspace.dev/addrspace/pkg/errors/linuxerr"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/mm"
	"addrspace.dev/addrspace/vmctl/cmd/util"
	"addrspace.dev/addrspace/vmctl/config"
	"github.com/google/subcommands"
)

// Resolve implements subcommands.Command for the "resolve" command.
type Resolve struct {
	layout string
	access string
}

// Name implements subcommands.Command.
func (*Resolve) Name() string {
	return "resolve"
}

// Synopsis implements subcommands.Command.
func (*Resolve) Synopsis() string {
	return "resolves virtual addresses to data source offsets"
}

// Usage implements subcommands.Command.
func (*Resolve) Usage() string {
	return `resolve [flags] <addr>... - print the source and offset each address maps to.
`
}

// SetFlags implements subcommands.Command.
func (r *Resolve) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.layout, "layout", "", "layout file, overrides the global --layout flag.")
	f.StringVar(&r.access, "access", "r", "access type to check: a combination of r, w and x.")
}

// Execute implements subcommands.Command.Execute.
func (r *Resolve) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	at, err := parseAccess(r.access)
	if err != nil {
		return util.Errorf("%v", err)
	}
	l, err := loadLayout(conf, r.layout, "")
	if err != nil {
		return util.Errorf("loading layout: %v", err)
	}
	as, err := buildSpace(ctx, l)
	if err != nil {
		return util.Errorf("building address space: %v", err)
	}
	defer as.Release(ctx)

	if err := resolveAll(os.Stdout, as, at, f.Args()); err != nil {
		return util.Errorf("%v", err)
	}
	return subcommands.ExitSuccess
}

// resolveAll writes one line per address with the result of resolving it.
func resolveAll(w io.Writer, as *mm.AddressSpace, at memmap.Flags, addrs []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range addrs {
		addr, err := parseAddr(s)
		if err != nil {
			return err
		}
		src, off, ok, err := as.GetSourceForAddr(addr, at)
		switch {
		case linuxerr.Equals(linuxerr.EACCES, err):
			fmt.Fprintf(tw, "%v\tpermission denied\t\n", addr)
		case err != nil:
			return err
		case !ok:
			fmt.Fprintf(tw, "%v\tunmapped\t\n", addr)
		default:
			fmt.Fprintf(tw, "%v\t%s\t%#x\n", addr, src.MappedName(), off)
		}
	}
	return tw.Flush()
}
