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

package source

import (
	"context"
	"fmt"

	"addrspace.dev/addrspace/pkg/errors/linuxerr"
	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/refs"
)

// Null is an inert data source with no contents. It backs reserved regions
// such as page 0: it may be mapped anywhere, but no byte of it can be read or
// written.
type Null struct {
	refs.Refs
}

var _ memmap.DataSource = (*Null)(nil)

// NewNull returns a Null holding one reference.
func NewNull() *Null {
	n := &Null{}
	n.InitRefs("source.Null")
	return n
}

// Read implements memmap.DataSource.Read.
func (*Null) Read(ctx context.Context, offset uint64, dst []byte) error {
	return fmt.Errorf("null source: read at %#x: %w", offset, linuxerr.EIO)
}

// Write implements memmap.DataSource.Write.
func (*Null) Write(ctx context.Context, offset uint64, src []byte) error {
	return fmt.Errorf("null source: write at %#x: %w", offset, linuxerr.EIO)
}

// Flush implements memmap.DataSource.Flush.
func (*Null) Flush(context.Context, uint64, uint64) error {
	return nil
}

// AddMap implements memmap.DataSource.AddMap.
func (n *Null) AddMap(ctx context.Context, flags memmap.Flags, into memmap.MappingSpace, offset, length uint64) (hostarch.Addr, error) {
	return into.AddMapping(ctx, n, offset, length, flags)
}

// DelMap implements memmap.DataSource.DelMap.
func (n *Null) DelMap(ctx context.Context, from memmap.MappingSpace, offset, length uint64) error {
	return delMap(ctx, n, from, offset, length)
}

// MappedName implements memmap.DataSource.MappedName.
func (*Null) MappedName() string {
	return "[null]"
}

// DecRef implements memmap.DataSource.DecRef.
func (n *Null) DecRef(ctx context.Context) {
	n.Refs.DecRef(nil)
}
