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
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"

	"addrspace.dev/addrspace/vmctl/cmd/util"
	"addrspace.dev/addrspace/vmctl/config"
	"github.com/google/subcommands"
)

// maxReadLength bounds the buffer allocated by the read command.
const maxReadLength = 1 << 20

// Read implements subcommands.Command for the "read" command.
type Read struct {
	layout string
}

// Name implements subcommands.Command.
func (*Read) Name() string {
	return "read"
}

// Synopsis implements subcommands.Command.
func (*Read) Synopsis() string {
	return "reads memory through an address space and prints a hex dump"
}

// Usage implements subcommands.Command.
func (*Read) Usage() string {
	return `read [flags] <addr> <length> - hex dump <length> bytes starting at <addr>.
`
}

// SetFlags implements subcommands.Command.
func (r *Read) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.layout, "layout", "", "layout file, overrides the global --layout flag.")
}

// Execute implements subcommands.Command.Execute.
func (r *Read) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	addr, err := parseAddr(f.Arg(0))
	if err != nil {
		return util.Errorf("%v", err)
	}
	length, err := strconv.ParseUint(f.Arg(1), 0, 64)
	if err != nil || length > maxReadLength {
		return util.Errorf("invalid length %q, must be at most %d", f.Arg(1), maxReadLength)
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

	buf := make([]byte, length)
	n, err := as.CopyIn(ctx, addr, buf)
	fmt.Fprint(os.Stdout, hex.Dump(buf[:n]))
	if err != nil {
		return util.Errorf("reading %d bytes at %v: %v", length, addr, err)
	}
	return subcommands.ExitSuccess
}
