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

	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/refs"
)

// Zero is anonymous memory of a fixed size. Pages read as zero until they
// are first written.
type Zero struct {
	refs.Refs

	size  uint64
	pages pageSet
}

var _ memmap.DataSource = (*Zero)(nil)

// NewZero returns a Zero of the given size holding one reference.
func NewZero(size uint64) *Zero {
	z := &Zero{size: size}
	z.InitRefs("source.Zero")
	return z
}

// Size returns the size of the source in bytes.
func (z *Zero) Size() uint64 {
	return z.size
}

// Read implements memmap.DataSource.Read.
func (z *Zero) Read(ctx context.Context, offset uint64, dst []byte) error {
	if err := checkIO(z.MappedName(), offset, len(dst), z.size); err != nil {
		return err
	}
	return z.pages.read(offset, dst, nil)
}

// Write implements memmap.DataSource.Write.
func (z *Zero) Write(ctx context.Context, offset uint64, src []byte) error {
	if err := checkIO(z.MappedName(), offset, len(src), z.size); err != nil {
		return err
	}
	return z.pages.write(offset, src, nil)
}

// Flush implements memmap.DataSource.Flush.
func (*Zero) Flush(context.Context, uint64, uint64) error {
	return nil
}

// AddMap implements memmap.DataSource.AddMap.
func (z *Zero) AddMap(ctx context.Context, flags memmap.Flags, into memmap.MappingSpace, offset, length uint64) (hostarch.Addr, error) {
	return addMap(ctx, z, z.size, flags, into, offset, length)
}

// DelMap implements memmap.DataSource.DelMap.
func (z *Zero) DelMap(ctx context.Context, from memmap.MappingSpace, offset, length uint64) error {
	return delMap(ctx, z, from, offset, length)
}

// MappedName implements memmap.DataSource.MappedName.
func (*Zero) MappedName() string {
	return "[anon]"
}

// DecRef implements memmap.DataSource.DecRef.
func (z *Zero) DecRef(ctx context.Context) {
	z.Refs.DecRef(func() {
		z.pages.mu.Lock()
		z.pages.pages = nil
		z.pages.mu.Unlock()
	})
}
