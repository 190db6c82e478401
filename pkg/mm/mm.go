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

// Package mm implements address spaces: ordered sets of non-overlapping
// mappings from page-aligned virtual address ranges to offsets in data
// sources, with the permissions each mapping grants.
//
// Lock order:
//
//	AddressSpace.mappingMu
//		DataSource internal locks
//
// Data sources are only called with mappingMu held through IncRef; all I/O
// and DecRef happen after mappingMu is released.
package mm

import (
	"context"

	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/log"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/source"
	"addrspace.dev/addrspace/pkg/sync"
	"github.com/google/btree"
)

// btreeDegree is the degree of the mapping B-tree.
const btreeDegree = 16

// guardLength is the unmapped gap AddressSpace.AddMapping leaves on each side
// of a mapping it places.
const guardLength = hostarch.PageSize

// mapping is a single mapping record.
type mapping struct {
	// ar is the mapped range. ar is page-aligned and non-empty.
	ar hostarch.AddrRange

	// src is the mapped source. The mapping holds a reference on src.
	src memmap.DataSource

	// offset is the offset in src that ar.Start maps to.
	offset uint64

	// flags are the permissions and attributes of the mapping.
	flags memmap.Flags
}

// info returns the exported form of m.
func (m *mapping) info() MappingInfo {
	return MappingInfo{
		Range:  m.ar,
		Source: m.src,
		Offset: m.offset,
		Flags:  m.flags,
	}
}

func mappingLess(a, b *mapping) bool {
	return a.ar.Start < b.ar.Start
}

// key returns a mapping usable as a B-tree pivot for addr.
func key(addr hostarch.Addr) *mapping {
	return &mapping{ar: hostarch.AddrRange{Start: addr, End: addr}}
}

// MappingInfo describes one mapping of an AddressSpace.
type MappingInfo struct {
	Range  hostarch.AddrRange
	Source memmap.DataSource
	Offset uint64
	Flags  memmap.Flags
}

// AddressSpace is the set of mappings of a single process.
//
// Page 0 is permanently reserved by a source.Null mapping granting no access,
// so address 0 never resolves. All methods are safe for concurrent use.
type AddressSpace struct {
	// name identifies the AddressSpace in logs and maps listings.
	name string

	// logger attributes statements to the AddressSpace. denials is the rate
	// limited logger for permission denials, limited per AddressSpace.
	logger  *log.SpaceLogger
	denials log.Logger

	// mappingMu serializes mutations of mappings, and excludes them from
	// concurrent lookups.
	mappingMu sync.RWMutex

	// mappings holds the mapping records ordered by start address. Records
	// never overlap.
	//
	// mappings is protected by mappingMu.
	mappings *btree.BTreeG[*mapping]

	// released is set by Release. A released AddressSpace has no mappings
	// and refuses new ones.
	//
	// released is protected by mappingMu.
	released bool
}

var _ memmap.MappingSpace = (*AddressSpace)(nil)

// NewAddressSpace returns an AddressSpace with the given name, containing only
// the reserved page 0.
func NewAddressSpace(name string) *AddressSpace {
	as := &AddressSpace{
		name:     name,
		logger:   log.ForSpace(name),
		mappings: btree.NewG[*mapping](btreeDegree, mappingLess),
	}
	as.denials = log.RateLimitedLogger(as.logger, denialInterval)
	as.mappings.ReplaceOrInsert(&mapping{
		ar:    hostarch.AddrRange{Start: 0, End: hostarch.PageSize},
		src:   source.NewNull(),
		flags: memmap.NoAccess,
	})
	return as
}

// Name returns the name of the AddressSpace.
func (as *AddressSpace) Name() string {
	return as.name
}

// NumMappings returns the number of mappings, including the reserved page 0.
func (as *AddressSpace) NumMappings() int {
	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	return as.mappings.Len()
}

// VirtualMemorySize returns the total length of all mappings, excluding the
// reserved page 0.
func (as *AddressSpace) VirtualMemorySize() uint64 {
	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	var size uint64
	as.mappings.AscendGreaterOrEqual(key(hostarch.PageSize), func(m *mapping) bool {
		size += m.ar.Length()
		return true
	})
	return size
}

// Mappings returns a snapshot of all mappings in address order.
func (as *AddressSpace) Mappings() []MappingInfo {
	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	infos := make([]MappingInfo, 0, as.mappings.Len())
	as.mappings.Ascend(func(m *mapping) bool {
		infos = append(infos, m.info())
		return true
	})
	return infos
}

// findLocked returns the mapping containing addr.
//
// Preconditions: as.mappingMu must be locked.
func (as *AddressSpace) findLocked(addr hostarch.Addr) (*mapping, bool) {
	var found *mapping
	as.mappings.DescendLessOrEqual(key(addr), func(m *mapping) bool {
		found = m
		return false
	})
	if found == nil || !found.ar.Contains(addr) {
		return nil, false
	}
	return found, true
}

// overlapsLocked returns the mapping intersecting ar with the highest start
// address, if any.
//
// Preconditions:
//   - as.mappingMu must be locked.
//   - ar.Length() != 0.
func (as *AddressSpace) overlapsLocked(ar hostarch.AddrRange) (*mapping, bool) {
	// Mappings are disjoint and sorted, so only the last mapping starting
	// before ar.End can reach into ar.
	var last *mapping
	as.mappings.DescendLessOrEqual(key(ar.End-1), func(m *mapping) bool {
		last = m
		return false
	})
	if last == nil || !last.ar.Overlaps(ar) {
		return nil, false
	}
	return last, true
}

// Release removes every mapping, including the reserved page 0, and drops
// their source references. A released AddressSpace refuses new mappings with
// EINVAL and resolves every address as unmapped.
func (as *AddressSpace) Release(ctx context.Context) {
	as.mappingMu.Lock()
	if as.released {
		as.mappingMu.Unlock()
		return
	}
	as.released = true
	var dropped []memmap.DataSource
	as.mappings.Ascend(func(m *mapping) bool {
		dropped = append(dropped, m.src)
		return true
	})
	as.mappings.Clear(false)
	as.mappingMu.Unlock()

	for _, src := range dropped {
		src.DecRef(ctx)
	}
	as.logger.Debugf("released %d mappings", len(dropped))
}
