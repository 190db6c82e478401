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
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/log"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/metric"
	"addrspace.dev/addrspace/pkg/mm"
	"addrspace.dev/addrspace/pkg/source"
	"addrspace.dev/addrspace/vmctl/cmd/util"
	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"
)

// maxStressPages bounds the size of each stress mapping.
const maxStressPages = 1 << 10

// Stress implements subcommands.Command for the "stress" command.
type Stress struct {
	workers    int
	iterations int
	pages      uint64
}

// Name implements subcommands.Command.
func (*Stress) Name() string {
	return "stress"
}

// Synopsis implements subcommands.Command.
func (*Stress) Synopsis() string {
	return "runs a concurrent mapping workload and prints metrics"
}

// Usage implements subcommands.Command.
func (*Stress) Usage() string {
	return `stress [flags] - map, access and unmap sources from concurrent workers,
then print address space metrics in Prometheus text format.
`
}

// SetFlags implements subcommands.Command.
func (s *Stress) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.workers, "workers", 8, "number of concurrent workers.")
	f.IntVar(&s.iterations, "iterations", 1000, "number of iterations per worker.")
	f.Uint64Var(&s.pages, "pages", 4, fmt.Sprintf("number of pages per mapping, at most %d.", maxStressPages))
}

// Execute implements subcommands.Command.Execute.
func (s *Stress) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || s.workers <= 0 || s.iterations < 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := s.validate(); err != nil {
		return util.Errorf("stress: %v", err)
	}
	start := time.Now()
	if err := s.run(ctx); err != nil {
		return util.Errorf("stress: %v", err)
	}
	log.Infof("Stress run of %d workers x %d iterations finished in %v", s.workers, s.iterations, time.Since(start))

	if err := metric.WritePrometheus(os.Stdout); err != nil {
		return util.Errorf("writing metrics: %v", err)
	}
	return subcommands.ExitSuccess
}

// validate checks the mapping size flags.
func (s *Stress) validate() error {
	if s.pages == 0 || s.pages > maxStressPages {
		return fmt.Errorf("-pages must be between 1 and %d, got %d", maxStressPages, s.pages)
	}
	return nil
}

// run starts the workers and waits for them. Every worker owns a private
// address space, and all of them share one more, into which they map a common
// shared memory segment.
func (s *Stress) run(ctx context.Context) error {
	if err := s.validate(); err != nil {
		return err
	}
	length := s.pages * hostarch.PageSize
	shared := mm.NewAddressSpace("shared")
	defer shared.Release(ctx)
	shm := source.NewSharedMemory("stress", length)
	defer shm.DecRef(ctx)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < s.workers; w++ {
		w := w
		g.Go(func() error {
			return s.worker(ctx, w, shared, shm)
		})
	}
	return g.Wait()
}

func (s *Stress) worker(ctx context.Context, id int, shared *mm.AddressSpace, shm *source.SharedMemory) error {
	length := s.pages * hostarch.PageSize
	private := mm.NewAddressSpace(fmt.Sprintf("worker-%d", id))
	defer private.Release(ctx)
	anon := source.NewZero(length)
	defer anon.DecRef(ctx)

	pattern := bytes.Repeat([]byte{byte(id)}, 64)
	got := make([]byte, len(pattern))
	for i := 0; i < s.iterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Private anonymous memory must read back exactly what was written.
		addr, err := anon.AddMap(ctx, memmap.ReadWrite.Union(memmap.Private), private, 0, length)
		if err != nil {
			return err
		}
		off := hostarch.Addr(uint64(i) % (length - uint64(len(pattern))))
		if _, err := private.CopyOut(ctx, addr+off, pattern); err != nil {
			return err
		}
		if _, err := private.CopyIn(ctx, addr+off, got); err != nil {
			return err
		}
		if !bytes.Equal(got, pattern) {
			return fmt.Errorf("%s: read back %x at %v, wrote %x", private.Name(), got, addr+off, pattern)
		}
		if err := anon.DelMap(ctx, private, 0, length); err != nil {
			return err
		}

		// The shared segment is written concurrently by every worker, so
		// only resolution is checked.
		addr, err = shm.AddMap(ctx, memmap.ReadWrite.Union(memmap.Shared), shared, 0, length)
		if err != nil {
			return err
		}
		if _, err := shared.CopyOut(ctx, addr+off, pattern); err != nil {
			return err
		}
		src, srcOff, ok, err := shared.GetSourceForAddr(addr+off, memmap.Read)
		if err != nil || !ok || src != memmap.DataSource(shm) || srcOff != uint64(off) {
			return fmt.Errorf("%s: resolving %v = (%v, %#x, %t, %v)", shared.Name(), addr+off, src, srcOff, ok, err)
		}
		if err := shared.RemoveMapping(ctx, shm, addr); err != nil {
			return err
		}
	}
	return nil
}
