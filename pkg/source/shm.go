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
	"addrspace.dev/addrspace/pkg/sync"
)

// SharedMemory is a named in-memory segment of a fixed size. Every mapping of
// a SharedMemory observes the writes made through any other.
type SharedMemory struct {
	refs.Refs

	name string

	mu sync.RWMutex

	// data is protected by mu.
	data []byte
}

var _ memmap.DataSource = (*SharedMemory)(nil)

// NewSharedMemory returns a zeroed SharedMemory of the given size holding one
// reference.
func NewSharedMemory(name string, size uint64) *SharedMemory {
	s := &SharedMemory{
		name: name,
		data: make([]byte, size),
	}
	s.InitRefs("source.SharedMemory")
	return s
}

// Size returns the size of the segment in bytes.
func (s *SharedMemory) Size() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.data))
}

// Read implements memmap.DataSource.Read.
func (s *SharedMemory) Read(ctx context.Context, offset uint64, dst []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := checkIO(s.name, offset, len(dst), uint64(len(s.data))); err != nil {
		return err
	}
	copy(dst, s.data[offset:])
	return nil
}

// Write implements memmap.DataSource.Write.
func (s *SharedMemory) Write(ctx context.Context, offset uint64, src []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkIO(s.name, offset, len(src), uint64(len(s.data))); err != nil {
		return err
	}
	copy(s.data[offset:], src)
	return nil
}

// Flush implements memmap.DataSource.Flush.
func (*SharedMemory) Flush(context.Context, uint64, uint64) error {
	return nil
}

// AddMap implements memmap.DataSource.AddMap.
func (s *SharedMemory) AddMap(ctx context.Context, flags memmap.Flags, into memmap.MappingSpace, offset, length uint64) (hostarch.Addr, error) {
	return addMap(ctx, s, s.Size(), flags, into, offset, length)
}

// DelMap implements memmap.DataSource.DelMap.
func (s *SharedMemory) DelMap(ctx context.Context, from memmap.MappingSpace, offset, length uint64) error {
	return delMap(ctx, s, from, offset, length)
}

// MappedName implements memmap.DataSource.MappedName.
func (s *SharedMemory) MappedName() string {
	return s.name
}

// DecRef implements memmap.DataSource.DecRef.
func (s *SharedMemory) DecRef(ctx context.Context) {
	s.Refs.DecRef(func() {
		s.mu.Lock()
		s.data = nil
		s.mu.Unlock()
	})
}
