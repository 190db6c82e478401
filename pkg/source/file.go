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
	"os"
	"time"

	"addrspace.dev/addrspace/pkg/errors/linuxerr"
	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/log"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/refs"
	"addrspace.dev/addrspace/pkg/sync"
	"github.com/cenkalti/backoff"
	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// File is a data source backed by a host file.
type File struct {
	refs.Refs

	// file is owned by the File and closed when the last reference is
	// dropped.
	file *os.File

	// writable is true if file was opened for writing.
	writable bool

	// lock serializes Flush against other processes flushing the same path.
	lock *flock.Flock

	// dev and ino identify the file on the host. They are recorded when the
	// File is created so that they remain valid after file is closed.
	dev uint64
	ino uint64

	overlayMu sync.Mutex

	// overlays holds the copy-on-write overlays backing writable private
	// mappings of the file. The overlays are owned by their mappings; an
	// entry whose reference count has dropped to zero is stale. overlays is
	// protected by overlayMu.
	overlays []*CopyOnWrite
}

var _ memmap.DataSource = (*File)(nil)

// NewFile returns a File that takes ownership of f. writable must reflect the
// mode f was opened with.
func NewFile(f *os.File, writable bool) *File {
	s := &File{
		file:     f,
		writable: writable,
		lock:     flock.NewFlock(f.Name()),
	}
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		log.Warningf("fstat %q: %v", f.Name(), err)
	} else {
		s.dev = uint64(st.Dev)
		s.ino = st.Ino
	}
	s.InitRefs("source.File")
	return s
}

// OpenFile opens the file at path and returns a File for it.
func OpenFile(path string, writable bool) (*File, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	return NewFile(f, writable), nil
}

// Writable returns true if the file was opened for writing.
func (f *File) Writable() bool {
	return f.writable
}

// Size returns the current size of the file.
func (f *File) Size() (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.file.Fd()), &st); err != nil {
		return 0, fmt.Errorf("fstat %q: %w", f.file.Name(), err)
	}
	return uint64(st.Size), nil
}

// DeviceID returns the host device number of the file, or 0 if it could not be
// determined when the File was created.
func (f *File) DeviceID() uint64 {
	return f.dev
}

// InodeID returns the host inode number of the file, or 0 if it could not be
// determined when the File was created.
func (f *File) InodeID() uint64 {
	return f.ino
}

// retry calls op until it returns something other than EINTR or EAGAIN, with
// exponential backoff between attempts.
func retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Microsecond
	b.MaxInterval = 10 * time.Millisecond
	b.MaxElapsedTime = time.Second
	return backoff.Retry(func() error {
		err := op()
		switch err {
		case nil:
			return nil
		case unix.EINTR, unix.EAGAIN:
			log.Debugf("Retrying interrupted file I/O: %v", err)
			return err
		default:
			return backoff.Permanent(err)
		}
	}, backoff.WithContext(b, ctx))
}

// Read implements memmap.DataSource.Read.
func (f *File) Read(ctx context.Context, offset uint64, dst []byte) error {
	fd := int(f.file.Fd())
	for done := 0; done < len(dst); {
		var n int
		err := retry(ctx, func() error {
			var err error
			n, err = unix.Pread(fd, dst[done:], int64(offset)+int64(done))
			return err
		})
		if err != nil {
			return fmt.Errorf("pread %q at %#x: %w", f.file.Name(), offset+uint64(done), err)
		}
		if n == 0 {
			return fmt.Errorf("%s: range [%#x, %#x) exceeds end of file: %w", f.file.Name(), offset, offset+uint64(len(dst)), linuxerr.EIO)
		}
		done += n
	}
	return nil
}

// Write implements memmap.DataSource.Write.
func (f *File) Write(ctx context.Context, offset uint64, src []byte) error {
	size, err := f.Size()
	if err != nil {
		return err
	}
	if err := checkIO(f.file.Name(), offset, len(src), size); err != nil {
		return err
	}
	fd := int(f.file.Fd())
	for done := 0; done < len(src); {
		var n int
		err := retry(ctx, func() error {
			var err error
			n, err = unix.Pwrite(fd, src[done:], int64(offset)+int64(done))
			return err
		})
		if err != nil {
			return fmt.Errorf("pwrite %q at %#x: %w", f.file.Name(), offset+uint64(done), err)
		}
		if n == 0 {
			return fmt.Errorf("pwrite %q at %#x: short write: %w", f.file.Name(), offset+uint64(done), linuxerr.EIO)
		}
		done += n
	}
	return nil
}

// Flush implements memmap.DataSource.Flush. The whole file is synced; the
// range only has to be well formed.
func (f *File) Flush(ctx context.Context, offset, length uint64) error {
	if offset+length < offset {
		return fmt.Errorf("flush %q: offset %#x + length %#x overflows: %w", f.file.Name(), offset, length, linuxerr.EINVAL)
	}
	if !f.writable {
		return nil
	}
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("locking %q: %w", f.file.Name(), err)
	}
	defer f.lock.Unlock()
	if err := unix.Fdatasync(int(f.file.Fd())); err != nil {
		return fmt.Errorf("fdatasync %q: %w", f.file.Name(), err)
	}
	return nil
}

// ForMapping returns a reference to the source that a mapping of f with the
// given flags must map. Writable private mappings get a new CopyOnWrite
// overlay of the file, so their writes never reach the file or any other
// mapping of it. All other mappings map f itself. Writable shared mappings of
// a read-only file are refused with EACCES.
func (f *File) ForMapping(flags memmap.Flags) (memmap.DataSource, error) {
	if flags.Shared && flags.Write && !f.writable {
		return nil, fmt.Errorf("%s: writable shared mapping of read-only file: %w", f.file.Name(), linuxerr.EACCES)
	}
	if !flags.Private || !flags.Write {
		f.IncRef()
		return f, nil
	}
	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	overlay := NewCopyOnWrite(f, size)
	f.overlayMu.Lock()
	defer f.overlayMu.Unlock()
	f.pruneOverlaysLocked()
	f.overlays = append(f.overlays, overlay)
	return overlay, nil
}

// AddMap implements memmap.DataSource.AddMap. The mapped source is chosen by
// ForMapping.
func (f *File) AddMap(ctx context.Context, flags memmap.Flags, into memmap.MappingSpace, offset, length uint64) (hostarch.Addr, error) {
	src, err := f.ForMapping(flags)
	if err != nil {
		return 0, err
	}
	defer src.DecRef(ctx)
	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	return addMap(ctx, src, size, flags, into, offset, length)
}

// pruneOverlaysLocked drops overlays that are no longer mapped.
//
// Preconditions: f.overlayMu must be locked.
func (f *File) pruneOverlaysLocked() {
	live := f.overlays[:0]
	for _, o := range f.overlays {
		if o.ReadRefs() > 0 {
			live = append(live, o)
		}
	}
	clear(f.overlays[len(live):])
	f.overlays = live
}

// DelMap implements memmap.DataSource.DelMap. Mappings of the file itself are
// preferred over the overlays of writable private mappings.
func (f *File) DelMap(ctx context.Context, from memmap.MappingSpace, offset, length uint64) error {
	err := delMap(ctx, f, from, offset, length)
	if !linuxerr.Equals(linuxerr.ENOENT, err) {
		return err
	}

	f.overlayMu.Lock()
	f.pruneOverlaysLocked()
	var found *CopyOnWrite
	for _, o := range f.overlays {
		if _, ok := from.FindMapping(o, offset, length); ok {
			found = o
			break
		}
	}
	f.overlayMu.Unlock()
	if found == nil {
		return err
	}
	return delMap(ctx, found, from, offset, length)
}

// MappedName implements memmap.DataSource.MappedName.
func (f *File) MappedName() string {
	return f.file.Name()
}

// DecRef implements memmap.DataSource.DecRef.
func (f *File) DecRef(ctx context.Context) {
	f.Refs.DecRef(func() {
		if err := f.file.Close(); err != nil {
			log.Warningf("Closing %q: %v", f.file.Name(), err)
		}
	})
}
