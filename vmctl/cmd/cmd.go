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

// Package cmd holds implementations of the vmctl commands.
package cmd

import (
	"context"
	"fmt"
	"strconv"

	"addrspace.dev/addrspace/pkg/cleanup"
	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/log"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/mm"
	"addrspace.dev/addrspace/pkg/source"
	"addrspace.dev/addrspace/vmctl/config"
)

// loadLayout loads the layout named by path, or by the --layout flag if path
// is empty, and applies the flags override if set.
func loadLayout(conf *config.Config, path, flags string) (*config.Layout, error) {
	if path == "" {
		path = conf.Layout
	}
	if path == "" {
		return nil, fmt.Errorf("no layout file given, use --layout")
	}
	l, err := config.LoadLayout(path)
	if err != nil {
		return nil, err
	}
	if flags != "" {
		return l.WithFlags(flags)
	}
	return l, nil
}

// buildSpace creates an address space containing the mappings of l. Mappings
// of the same file or shared memory segment share one source.
func buildSpace(ctx context.Context, l *config.Layout) (*mm.AddressSpace, error) {
	as := mm.NewAddressSpace(l.Name)
	cu := cleanup.Make(func() { as.Release(ctx) })
	defer cu.Clean()

	// owned holds the creation reference of every source; the mappings hold
	// their own.
	var owned []memmap.DataSource
	defer func() {
		for _, src := range owned {
			src.DecRef(ctx)
		}
	}()
	byPath := make(map[string]memmap.DataSource)

	for i := range l.Mappings {
		m := &l.Mappings[i]
		flags, err := m.ParsedFlags()
		if err != nil {
			return nil, fmt.Errorf("mapping %d: %w", i, err)
		}

		key := m.Source + ":" + m.Path
		src, ok := byPath[key]
		if !ok {
			src, err = newSource(m)
			if err != nil {
				return nil, fmt.Errorf("mapping %d: %w", i, err)
			}
			owned = append(owned, src)
			if m.Path != "" {
				byPath[key] = src
			}
		}

		if m.Addr != 0 {
			err = addFixed(ctx, as, src, m, flags)
		} else {
			_, err = src.AddMap(ctx, flags, as, m.Offset, m.Length)
		}
		if err != nil {
			return nil, fmt.Errorf("mapping %d (%s %s): %w", i, m.Source, m.Path, err)
		}
	}
	cu.Release()
	log.Infof("Built address space %q with %d mappings", as.Name(), as.NumMappings())
	return as, nil
}

// addFixed maps m at its fixed address. Host files map the source chosen by
// File.ForMapping, as File.AddMap does.
func addFixed(ctx context.Context, as *mm.AddressSpace, src memmap.DataSource, m *config.Mapping, flags memmap.Flags) error {
	if f, ok := src.(*source.File); ok {
		mapped, err := f.ForMapping(flags)
		if err != nil {
			return err
		}
		defer mapped.DecRef(ctx)
		src = mapped
	}
	return as.AddMappingAt(ctx, src, m.Offset, m.Length, hostarch.Addr(m.Addr), flags)
}

// newSource creates the data source described by m.
func newSource(m *config.Mapping) (memmap.DataSource, error) {
	switch m.Source {
	case config.SourceFile:
		return source.OpenFile(m.Path, m.Writable)
	case config.SourceZero:
		return source.NewZero(m.SourceSize()), nil
	case config.SourceShm:
		return source.NewSharedMemory(m.Path, m.SourceSize()), nil
	case config.SourceNull:
		return source.NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown source %q", m.Source)
	}
}

// parseAddr parses a virtual address in any base accepted by
// strconv.ParseUint.
func parseAddr(s string) (hostarch.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return hostarch.Addr(v), nil
}

// parseAccess parses an access type such as "r", "rw" or "x".
func parseAccess(s string) (memmap.Flags, error) {
	var at memmap.Flags
	for _, c := range s {
		switch c {
		case 'r':
			at = at.Union(memmap.Read)
		case 'w':
			at = at.Union(memmap.Write)
		case 'x':
			at = at.Union(memmap.Execute)
		default:
			return memmap.NoAccess, fmt.Errorf("invalid access type %q, want a combination of r, w and x", s)
		}
	}
	return at, nil
}
