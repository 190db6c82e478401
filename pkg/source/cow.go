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

	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/refs"
)

// CopyOnWrite overlays private pages on a base source. Reads of pages that
// have never been written come from the base; the first write to a page
// copies it from the base, and the base is never modified.
type CopyOnWrite struct {
	refs.Refs

	// base is immutable and holds a reference for the lifetime of the
	// CopyOnWrite.
	base memmap.DataSource

	size  uint64
	pages pageSet
}

var _ memmap.DataSource = (*CopyOnWrite)(nil)

// NewCopyOnWrite returns a CopyOnWrite overlay of the first size bytes of
// base. It takes a reference on base, and holds one reference itself.
func NewCopyOnWrite(base memmap.DataSource, size uint64) *CopyOnWrite {
	base.IncRef()
	c := &CopyOnWrite{
		base: base,
		size: size,
	}
	c.InitRefs("source.CopyOnWrite")
	return c
}

// Base returns the underlying source.
func (c *CopyOnWrite) Base() memmap.DataSource {
	return c.base
}

// DeviceID returns the host device number of the base, or 0 if the base is
// not backed by a host file.
func (c *CopyOnWrite) DeviceID() uint64 {
	if f, ok := c.base.(*File); ok {
		return f.DeviceID()
	}
	return 0
}

// InodeID returns the host inode number of the base, or 0 if the base is not
// backed by a host file.
func (c *CopyOnWrite) InodeID() uint64 {
	if f, ok := c.base.(*File); ok {
		return f.InodeID()
	}
	return 0
}

// PrivatePages returns the number of pages that have been copied.
func (c *CopyOnWrite) PrivatePages() int {
	return c.pages.len()
}

// Read implements memmap.DataSource.Read.
func (c *CopyOnWrite) Read(ctx context.Context, offset uint64, dst []byte) error {
	if err := checkIO(c.MappedName(), offset, len(dst), c.size); err != nil {
		return err
	}
	return c.pages.read(offset, dst, func(off uint64, dst []byte) error {
		return c.base.Read(ctx, off, dst)
	})
}

// Write implements memmap.DataSource.Write.
func (c *CopyOnWrite) Write(ctx context.Context, offset uint64, src []byte) error {
	if err := checkIO(c.MappedName(), offset, len(src), c.size); err != nil {
		return err
	}
	return c.pages.write(offset, src, func(pageOff uint64, p *page) error {
		n := min(hostarch.PageSize, c.size-pageOff)
		if err := c.base.Read(ctx, pageOff, p[:n]); err != nil {
			return fmt.Errorf("copying page %#x: %w", pageOff, err)
		}
		return nil
	})
}

// Flush implements memmap.DataSource.Flush. Private pages have no backing
// storage.
func (*CopyOnWrite) Flush(context.Context, uint64, uint64) error {
	return nil
}

// AddMap implements memmap.DataSource.AddMap.
func (c *CopyOnWrite) AddMap(ctx context.Context, flags memmap.Flags, into memmap.MappingSpace, offset, length uint64) (hostarch.Addr, error) {
	return addMap(ctx, c, c.size, flags, into, offset, length)
}

// DelMap implements memmap.DataSource.DelMap.
func (c *CopyOnWrite) DelMap(ctx context.Context, from memmap.MappingSpace, offset, length uint64) error {
	return delMap(ctx, c, from, offset, length)
}

// MappedName implements memmap.DataSource.MappedName.
func (c *CopyOnWrite) MappedName() string {
	return c.base.MappedName()
}

// DecRef implements memmap.DataSource.DecRef.
func (c *CopyOnWrite) DecRef(ctx context.Context) {
	c.Refs.DecRef(func() {
		c.base.DecRef(ctx)
	})
}
