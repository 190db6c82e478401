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

// Package memmap defines the contract between address spaces and the data
// sources mapped into them.
package memmap

import (
	"context"

	"addrspace.dev/addrspace/pkg/hostarch"
)

// DataSource is a byte-range provider that backs one or more mappings.
//
// A DataSource may be mapped into many MappingSpaces, or several times into
// one, and so must be safe for concurrent use. Its lifetime is controlled by
// reference counting: each mapping holds one reference.
type DataSource interface {
	// Read fills dst with the bytes at [offset, offset+len(dst)) in the
	// source. It returns an error wrapping linuxerr.EIO if the range exceeds
	// the source, or the underlying error if the medium fails.
	Read(ctx context.Context, offset uint64, dst []byte) error

	// Write stores src at [offset, offset+len(src)) in the source. Errors are
	// as for Read. Sources with copy-on-write semantics never modify shared
	// backing storage.
	Write(ctx context.Context, offset uint64, src []byte) error

	// Flush forces buffered modifications of [offset, offset+length) to
	// durable storage.
	Flush(ctx context.Context, offset, length uint64) error

	// AddMap maps [offset, offset+length) of the source into the given
	// MappingSpace with the given flags, and returns the chosen address. The
	// source may refuse ranges it cannot serve.
	AddMap(ctx context.Context, flags Flags, into MappingSpace, offset, length uint64) (hostarch.Addr, error)

	// DelMap removes the mapping previously created by AddMap with the same
	// offset and length from the given MappingSpace.
	DelMap(ctx context.Context, from MappingSpace, offset, length uint64) error

	// MappedName returns the name shown for the source in maps listings.
	MappedName() string

	// IncRef increments the source's reference count.
	IncRef()

	// DecRef decrements the source's reference count, releasing its
	// resources when the count reaches zero.
	DecRef(ctx context.Context)
}

// MappingSpace is an address space that a DataSource can place itself into.
//
// Preconditions for all methods: addresses are page-aligned where
// documented, and offset+length does not overflow.
type MappingSpace interface {
	// AddMapping maps [offset, offset+length) of src at an address chosen by
	// the MappingSpace and returns that address. The MappingSpace takes a
	// new reference on src.
	AddMapping(ctx context.Context, src DataSource, offset, length uint64, flags Flags) (hostarch.Addr, error)

	// AddMappingAt is equivalent to AddMapping, but maps at start.
	AddMappingAt(ctx context.Context, src DataSource, offset, length uint64, start hostarch.Addr, flags Flags) error

	// RemoveMapping removes the mapping of src starting at start and drops
	// its reference on src.
	RemoveMapping(ctx context.Context, src DataSource, start hostarch.Addr) error

	// FindMapping returns the start address of the lowest mapping of src
	// covering exactly [offset, offset+length) of the source, rounded up to
	// whole pages.
	FindMapping(src DataSource, offset, length uint64) (hostarch.Addr, bool)
}
