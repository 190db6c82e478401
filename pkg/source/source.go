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

// Package source provides the concrete data sources that can be mapped into
// an address space: the null source reserving page 0, anonymous zero-fill
// memory, host files, shared memory segments and copy-on-write overlays.
package source

import (
	"context"
	"fmt"

	"addrspace.dev/addrspace/pkg/errors/linuxerr"
	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/sync"
)

// checkIO returns an error wrapping linuxerr.EIO if [offset, offset+n) is not
// contained in a source of the given size.
func checkIO(name string, offset uint64, n int, size uint64) error {
	end := offset + uint64(n)
	if end < offset || end > size {
		return fmt.Errorf("%s: range [%#x, %#x) exceeds size %#x: %w", name, offset, end, size, linuxerr.EIO)
	}
	return nil
}

// addMap maps [offset, offset+length) of src into ms after checking that the
// range lies within size rounded up to whole pages.
func addMap(ctx context.Context, src memmap.DataSource, size uint64, flags memmap.Flags, ms memmap.MappingSpace, offset, length uint64) (hostarch.Addr, error) {
	end := offset + length
	if end < offset {
		return 0, fmt.Errorf("%s: offset %#x + length %#x overflows: %w", src.MappedName(), offset, length, linuxerr.EINVAL)
	}
	limit, ok := hostarch.PageRoundUp(size)
	if !ok || end > limit {
		return 0, fmt.Errorf("%s: range [%#x, %#x) exceeds size %#x: %w", src.MappedName(), offset, end, size, linuxerr.EINVAL)
	}
	return ms.AddMapping(ctx, src, offset, length, flags)
}

// delMap removes the mapping of src created by addMap with the same offset and
// length.
func delMap(ctx context.Context, src memmap.DataSource, ms memmap.MappingSpace, offset, length uint64) error {
	start, ok := ms.FindMapping(src, offset, length)
	if !ok {
		return fmt.Errorf("%s: no mapping of [%#x, %#x): %w", src.MappedName(), offset, offset+length, linuxerr.ENOENT)
	}
	return ms.RemoveMapping(ctx, src, start)
}

// page is a single page of private data.
type page [hostarch.PageSize]byte

// pageSet is a sparse set of private pages keyed by page-aligned source
// offset.
type pageSet struct {
	mu sync.RWMutex

	// pages is protected by mu.
	pages map[uint64]*page
}

// chunks calls fn for each page-bounded piece of [offset, offset+n), with the
// page-aligned offset of the page, the offset within it, and the
// corresponding [lo, hi) indexes into the caller's buffer.
func chunks(offset uint64, n int, fn func(pageOff, in uint64, lo, hi int) error) error {
	for done := 0; done < n; {
		off := offset + uint64(done)
		pageOff := hostarch.PageRoundDown(off)
		in := off - pageOff
		step := min(n-done, int(hostarch.PageSize-in))
		if err := fn(pageOff, in, done, done+step); err != nil {
			return err
		}
		done += step
	}
	return nil
}

// read copies [offset, offset+len(dst)) into dst. Bytes of pages not in the
// set are produced by miss, or zeroed if miss is nil.
func (s *pageSet) read(offset uint64, dst []byte, miss func(off uint64, dst []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chunks(offset, len(dst), func(pageOff, in uint64, lo, hi int) error {
		if p, ok := s.pages[pageOff]; ok {
			copy(dst[lo:hi], p[in:])
			return nil
		}
		if miss == nil {
			clear(dst[lo:hi])
			return nil
		}
		return miss(pageOff+in, dst[lo:hi])
	})
}

// write copies src to [offset, offset+len(src)), allocating pages as needed.
// A newly allocated page is first initialized by fill, if non-nil.
func (s *pageSet) write(offset uint64, src []byte, fill func(pageOff uint64, p *page) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return chunks(offset, len(src), func(pageOff, in uint64, lo, hi int) error {
		p, ok := s.pages[pageOff]
		if !ok {
			p = new(page)
			if fill != nil {
				if err := fill(pageOff, p); err != nil {
					return err
				}
			}
			if s.pages == nil {
				s.pages = make(map[uint64]*page)
			}
			s.pages[pageOff] = p
		}
		copy(p[in:], src[lo:hi])
		return nil
	})
}

// len returns the number of private pages.
func (s *pageSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}
