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

package mm

import (
	"context"
	"fmt"

	"addrspace.dev/addrspace/pkg/errors/linuxerr"
	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/memmap"
)

// ioChunk is a piece of an I/O that falls within a single mapping.
type ioChunk struct {
	src    memmap.DataSource
	offset uint64
	length uint64
}

// nextChunk resolves addr for access at and returns the chunk of at most
// remaining bytes that starts there and stays in one mapping. The returned
// source carries a reference that the caller must drop.
func (as *AddressSpace) nextChunk(addr hostarch.Addr, remaining uint64, at memmap.Flags) (ioChunk, error) {
	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	m, err := as.resolveLocked(addr, at)
	if err != nil {
		return ioChunk{}, err
	}
	if m == nil {
		return ioChunk{}, fmt.Errorf("%s: %v is not mapped: %w", as.name, addr, linuxerr.EFAULT)
	}
	m.src.IncRef()
	return ioChunk{
		src:    m.src,
		offset: m.offset + uint64(addr-m.ar.Start),
		length: min(remaining, uint64(m.ar.End-addr)),
	}, nil
}

// withChunks splits [addr, addr+n) into per-mapping chunks and calls fn on
// each in address order, stopping at the first error. It returns the number
// of bytes for which fn succeeded.
func (as *AddressSpace) withChunks(ctx context.Context, addr hostarch.Addr, n int, at memmap.Flags, fn func(c ioChunk, lo, hi int) error) (int, error) {
	if _, ok := addr.AddLength(uint64(n)); !ok {
		return 0, fmt.Errorf("%s: [%v, +%#x) wraps around: %w", as.name, addr, n, linuxerr.EFAULT)
	}
	done := 0
	for done < n {
		c, err := as.nextChunk(addr+hostarch.Addr(done), uint64(n-done), at)
		if err != nil {
			return done, err
		}
		end := done + int(c.length)
		err = fn(c, done, end)
		c.src.DecRef(ctx)
		if err != nil {
			return done, err
		}
		done = end
	}
	return done, nil
}

// CopyIn copies len(dst) bytes starting at addr into dst, reading through
// the mapped sources. Every byte must be mapped with read access: unmapped
// addresses fail with EFAULT and denied ones with EACCES. Source errors are
// returned unchanged. CopyIn returns the number of bytes copied.
func (as *AddressSpace) CopyIn(ctx context.Context, addr hostarch.Addr, dst []byte) (int, error) {
	return as.withChunks(ctx, addr, len(dst), memmap.Read, func(c ioChunk, lo, hi int) error {
		return c.src.Read(ctx, c.offset, dst[lo:hi])
	})
}

// CopyOut copies src into the address space starting at addr, writing
// through the mapped sources. It is the inverse of CopyIn and requires write
// access.
func (as *AddressSpace) CopyOut(ctx context.Context, addr hostarch.Addr, src []byte) (int, error) {
	return as.withChunks(ctx, addr, len(src), memmap.Write, func(c ioChunk, lo, hi int) error {
		return c.src.Write(ctx, c.offset, src[lo:hi])
	})
}
