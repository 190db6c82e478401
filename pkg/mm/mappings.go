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
	"time"

	"addrspace.dev/addrspace/pkg/errors/linuxerr"
	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/memmap"
)

// denialInterval is the minimum interval between permission denial warnings
// of one AddressSpace.
const denialInterval = time.Second

// checkMapping validates the arguments common to AddMapping and AddMappingAt,
// and returns the span rounded up to whole pages.
func checkMapping(src memmap.DataSource, offset, length uint64, flags memmap.Flags) (uint64, error) {
	if src == nil {
		return 0, fmt.Errorf("nil data source: %w", linuxerr.EINVAL)
	}
	if err := flags.Validate(); err != nil {
		return 0, err
	}
	if length == 0 {
		return 0, fmt.Errorf("zero-length mapping: %w", linuxerr.EINVAL)
	}
	span, ok := hostarch.PageRoundUp(length)
	if !ok || span > uint64(hostarch.VAddrMax) {
		return 0, fmt.Errorf("length %#x exceeds the address space: %w", length, linuxerr.ENOMEM)
	}
	if offset+span < offset {
		return 0, fmt.Errorf("offset %#x + length %#x overflows: %w", offset, span, linuxerr.EINVAL)
	}
	return span, nil
}

// AddMapping maps [offset, offset+length) of src at an address chosen by the
// AddressSpace, and returns that address. length is rounded up to whole
// pages. The lowest gap that leaves a guard page between the new mapping and
// each neighbour is used.
//
// AddMapping takes a new reference on src; the caller keeps its own.
func (as *AddressSpace) AddMapping(ctx context.Context, src memmap.DataSource, offset, length uint64, flags memmap.Flags) (hostarch.Addr, error) {
	span, err := checkMapping(src, offset, length, flags)
	if err != nil {
		return 0, err
	}

	as.mappingMu.Lock()
	defer as.mappingMu.Unlock()
	if as.released {
		return 0, fmt.Errorf("%s: address space released: %w", as.name, linuxerr.EINVAL)
	}
	start, err := as.findAvailableLocked(span)
	if err != nil {
		return 0, err
	}
	as.insertLocked(src, offset, hostarch.AddrRange{Start: start, End: start + hostarch.Addr(span)}, flags)
	mappingsAdded.Increment("any")
	return start, nil
}

// findAvailableLocked returns the lowest address at which a mapping of the
// given length fits with a guard page on both sides, or after the last
// mapping with a guard page before it.
//
// Preconditions:
//   - as.mappingMu must be locked.
//   - length is page-aligned and no larger than hostarch.VAddrMax.
func (as *AddressSpace) findAvailableLocked(length uint64) (hostarch.Addr, error) {
	var (
		prevEnd hostarch.Addr
		start   hostarch.Addr
		found   bool
	)
	as.mappings.Ascend(func(m *mapping) bool {
		// All operands are below 2^39, so this cannot overflow.
		if uint64(prevEnd)+guardLength+length+guardLength <= uint64(m.ar.Start) {
			start = prevEnd + guardLength
			found = true
			return false
		}
		prevEnd = m.ar.End
		return true
	})
	if found {
		return start, nil
	}
	if uint64(prevEnd)+guardLength+length <= uint64(hostarch.VAddrMax) {
		return prevEnd + guardLength, nil
	}
	return 0, fmt.Errorf("%s: no gap of %#x bytes: %w", as.name, length, linuxerr.ENOMEM)
}

// AddMappingAt maps [offset, offset+length) of src at start. start must be
// page-aligned; length is rounded up to whole pages. The new mapping must not
// intersect any existing one and must end at or below hostarch.VAddrMax.
//
// AddMappingAt takes a new reference on src; the caller keeps its own.
func (as *AddressSpace) AddMappingAt(ctx context.Context, src memmap.DataSource, offset, length uint64, start hostarch.Addr, flags memmap.Flags) error {
	if !start.IsPageAligned() {
		return fmt.Errorf("start %v is not page-aligned: %w", start, linuxerr.EINVAL)
	}
	span, err := checkMapping(src, offset, length, flags)
	if err != nil {
		return err
	}
	ar, ok := start.ToRange(span)
	if !ok || ar.End > hostarch.VAddrMax {
		return fmt.Errorf("%s: [%v, %v + %#x) exceeds the address space: %w", as.name, start, start, span, linuxerr.ENOMEM)
	}

	as.mappingMu.Lock()
	defer as.mappingMu.Unlock()
	if as.released {
		return fmt.Errorf("%s: address space released: %w", as.name, linuxerr.EINVAL)
	}
	if m, ok := as.overlapsLocked(ar); ok {
		return fmt.Errorf("%s: %v overlaps existing mapping %v of %s: %w", as.name, ar, m.ar, m.src.MappedName(), linuxerr.EEXIST)
	}
	as.insertLocked(src, offset, ar, flags)
	mappingsAdded.Increment("fixed")
	return nil
}

// insertLocked inserts a new mapping record and takes a reference on src.
//
// Preconditions:
//   - as.mappingMu must be locked for writing.
//   - ar does not overlap any existing mapping.
func (as *AddressSpace) insertLocked(src memmap.DataSource, offset uint64, ar hostarch.AddrRange, flags memmap.Flags) {
	src.IncRef()
	as.mappings.ReplaceOrInsert(&mapping{
		ar:     ar,
		src:    src,
		offset: offset,
		flags:  flags,
	})
	as.logger.Debugf("mapped %s at %v (offset %#x, %v)", src.MappedName(), ar, offset, flags)
}

// RemoveMapping removes the mapping starting at start, which must map src.
// src is compared by identity. The mapping's reference on src is dropped.
// The reserved page 0 cannot be removed.
func (as *AddressSpace) RemoveMapping(ctx context.Context, src memmap.DataSource, start hostarch.Addr) error {
	if start == 0 {
		return fmt.Errorf("page 0 is reserved: %w", linuxerr.EINVAL)
	}

	as.mappingMu.Lock()
	if as.released {
		as.mappingMu.Unlock()
		return fmt.Errorf("%s: address space released: %w", as.name, linuxerr.EINVAL)
	}
	m, ok := as.mappings.Get(key(start))
	if !ok || m.src != src {
		as.mappingMu.Unlock()
		return fmt.Errorf("%s: no mapping at %v of the given source: %w", as.name, start, linuxerr.ENOENT)
	}
	as.mappings.Delete(m)
	as.mappingMu.Unlock()

	as.logger.Debugf("unmapped %s at %v", m.src.MappedName(), m.ar)
	mappingsRemoved.Increment()
	m.src.DecRef(ctx)
	return nil
}

// FindMapping implements memmap.MappingSpace.FindMapping.
func (as *AddressSpace) FindMapping(src memmap.DataSource, offset, length uint64) (hostarch.Addr, bool) {
	span, ok := hostarch.PageRoundUp(length)
	if !ok || span == 0 {
		return 0, false
	}

	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	var (
		start hostarch.Addr
		found bool
	)
	as.mappings.Ascend(func(m *mapping) bool {
		if m.src == src && m.offset == offset && m.ar.Length() == span {
			start = m.ar.Start
			found = true
			return false
		}
		return true
	})
	return start, found
}

// GetSourceForAddr resolves addr for an access of type at. If addr is mapped
// and the mapping permits at, it returns the mapped source and the offset in
// the source that addr maps to, which is the mapping's offset plus the
// distance of addr from the mapping's start.
//
// An unmapped address is not an error: ok is false and err is nil. If the
// mapping does not permit at, err wraps linuxerr.EACCES.
//
// The returned source is only guaranteed to remain valid while the mapping
// exists; callers that outlive it must take their own reference.
func (as *AddressSpace) GetSourceForAddr(addr hostarch.Addr, at memmap.Flags) (src memmap.DataSource, offset uint64, ok bool, err error) {
	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	m, err := as.resolveLocked(addr, at)
	if m == nil {
		return nil, 0, false, err
	}
	return m.src, m.offset + uint64(addr-m.ar.Start), true, nil
}

// resolveLocked returns the mapping containing addr if it permits at. It
// returns (nil, nil) for unmapped addresses.
//
// Preconditions: as.mappingMu must be locked.
func (as *AddressSpace) resolveLocked(addr hostarch.Addr, at memmap.Flags) (*mapping, error) {
	m, ok := as.findLocked(addr)
	if !ok {
		lookups.Increment("unmapped")
		return nil, nil
	}
	if !m.flags.Permits(at) {
		lookups.Increment("denied")
		as.denials.Warningf("%v access to %v denied by mapping %v (%v)", at.Access(), addr, m.ar, m.flags)
		return nil, fmt.Errorf("%s: %v access to %v denied by %v mapping: %w", as.name, at.Access(), addr, m.flags, linuxerr.EACCES)
	}
	lookups.Increment("ok")
	return m, nil
}
