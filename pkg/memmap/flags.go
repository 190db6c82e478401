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

package memmap

import (
	"fmt"

	"addrspace.dev/addrspace/pkg/errors/linuxerr"
)

// Flags is the set of permissions and sharing attributes attached to a
// mapping. Flags values are immutable; every operation returns a new value.
type Flags struct {
	// Read is read access.
	Read bool

	// Write is write access.
	Write bool

	// Execute is executable access.
	Execute bool

	// CopyOnWrite marks a mapping whose writes must first materialize a
	// private copy of the affected pages. It excludes Write.
	CopyOnWrite bool

	// Private marks a mapping whose modifications are not visible to other
	// mappings of the same source. It excludes Shared.
	Private bool

	// Shared marks a mapping whose modifications are visible to every
	// mapping of the same source.
	Shared bool
}

// Single flag values, and common combinations of access bits.
var (
	// NoAccess grants nothing. It is also the zero value of Flags.
	NoAccess = Flags{}

	// Read is only read access.
	Read = Flags{Read: true}

	// Write is only write access.
	Write = Flags{Write: true}

	// Execute is only executable access.
	Execute = Flags{Execute: true}

	// CopyOnWrite is only the copy-on-write attribute.
	CopyOnWrite = Flags{CopyOnWrite: true}

	// Private is only the private attribute.
	Private = Flags{Private: true}

	// Shared is only the shared attribute.
	Shared = Flags{Shared: true}

	// ReadWrite is read and write access.
	ReadWrite = Flags{Read: true, Write: true}

	// AnyAccess is read, write and execute access.
	AnyAccess = Flags{Read: true, Write: true, Execute: true}
)

// ToggleRead returns f with Read flipped.
func (f Flags) ToggleRead() Flags {
	f.Read = !f.Read
	return f
}

// ToggleWrite returns f with Write flipped.
func (f Flags) ToggleWrite() Flags {
	f.Write = !f.Write
	return f
}

// ToggleExecute returns f with Execute flipped.
func (f Flags) ToggleExecute() Flags {
	f.Execute = !f.Execute
	return f
}

// ToggleCopyOnWrite returns f with CopyOnWrite flipped.
func (f Flags) ToggleCopyOnWrite() Flags {
	f.CopyOnWrite = !f.CopyOnWrite
	return f
}

// TogglePrivate returns f with Private flipped.
func (f Flags) TogglePrivate() Flags {
	f.Private = !f.Private
	return f
}

// ToggleShared returns f with Shared flipped.
func (f Flags) ToggleShared() Flags {
	f.Shared = !f.Shared
	return f
}

// Union returns the flags set in either f or other.
func (f Flags) Union(other Flags) Flags {
	return Flags{
		Read:        f.Read || other.Read,
		Write:       f.Write || other.Write,
		Execute:     f.Execute || other.Execute,
		CopyOnWrite: f.CopyOnWrite || other.CopyOnWrite,
		Private:     f.Private || other.Private,
		Shared:      f.Shared || other.Shared,
	}
}

// Without returns the flags set in f but not in other.
func (f Flags) Without(other Flags) Flags {
	return Flags{
		Read:        f.Read && !other.Read,
		Write:       f.Write && !other.Write,
		Execute:     f.Execute && !other.Execute,
		CopyOnWrite: f.CopyOnWrite && !other.CopyOnWrite,
		Private:     f.Private && !other.Private,
		Shared:      f.Shared && !other.Shared,
	}
}

// SubsetOf returns true if every flag set in f is also set in other.
func (f Flags) SubsetOf(other Flags) bool {
	return f.Without(other) == NoAccess
}

// SupersetOf returns true if every flag set in other is also set in f.
func (f Flags) SupersetOf(other Flags) bool {
	return other.SubsetOf(f)
}

// Valid returns true if f does not combine mutually exclusive flags.
func (f Flags) Valid() bool {
	return !(f.Private && f.Shared) && !(f.CopyOnWrite && f.Write)
}

// Validate returns an error wrapping linuxerr.EINVAL if f is not Valid.
func (f Flags) Validate() error {
	switch {
	case f.Private && f.Shared:
		return fmt.Errorf("flags %v: private and shared are mutually exclusive: %w", f, linuxerr.EINVAL)
	case f.CopyOnWrite && f.Write:
		return fmt.Errorf("flags %v: copy-on-write and write are mutually exclusive: %w", f, linuxerr.EINVAL)
	}
	return nil
}

// Access returns only the read, write and execute bits of f.
func (f Flags) Access() Flags {
	return Flags{Read: f.Read, Write: f.Write, Execute: f.Execute}
}

// Any returns true if f grants any access.
func (f Flags) Any() bool {
	return f.Read || f.Write || f.Execute
}

// Permits returns true if every access bit requested by at is granted by f.
// The attribute bits of at are not checked. A set granting no access permits
// nothing, not even an empty request.
func (f Flags) Permits(at Flags) bool {
	if !f.Any() {
		return false
	}
	return at.Access().SubsetOf(f.Access())
}

// String returns a five character representation of f, in the order read,
// write, execute, copy-on-write, then 'p' for private, 's' for shared or '-'.
func (f Flags) String() string {
	var b [5]byte
	b[0] = flagChar(f.Read, 'r')
	b[1] = flagChar(f.Write, 'w')
	b[2] = flagChar(f.Execute, 'x')
	b[3] = flagChar(f.CopyOnWrite, 'c')
	switch {
	case f.Private && f.Shared:
		b[4] = '?'
	case f.Private:
		b[4] = 'p'
	case f.Shared:
		b[4] = 's'
	default:
		b[4] = '-'
	}
	return string(b[:])
}

// MapsString returns the four character permission column of
// /proc/[pid]/maps: "rwx" followed by 's' for shared mappings and 'p'
// otherwise.
func (f Flags) MapsString() string {
	var b [4]byte
	b[0] = flagChar(f.Read, 'r')
	b[1] = flagChar(f.Write, 'w')
	b[2] = flagChar(f.Execute, 'x')
	if f.Shared {
		b[3] = 's'
	} else {
		b[3] = 'p'
	}
	return string(b[:])
}

func flagChar(set bool, c byte) byte {
	if set {
		return c
	}
	return '-'
}

// ParseFlags parses the output of Flags.String, or the four character
// /proc/[pid]/maps form ("r-xp"), in which case the copy-on-write flag is
// off.
func ParseFlags(s string) (Flags, error) {
	var f Flags
	if len(s) != 4 && len(s) != 5 {
		return f, fmt.Errorf("flags %q: want 4 or 5 characters: %w", s, linuxerr.EINVAL)
	}
	for i, want := range []struct {
		c   byte
		dst *bool
	}{
		{'r', &f.Read},
		{'w', &f.Write},
		{'x', &f.Execute},
	} {
		switch s[i] {
		case want.c:
			*want.dst = true
		case '-':
		default:
			return Flags{}, fmt.Errorf("flags %q: unexpected %q at position %d: %w", s, s[i], i, linuxerr.EINVAL)
		}
	}
	rest := s[3:]
	if len(rest) == 2 {
		switch rest[0] {
		case 'c':
			f.CopyOnWrite = true
		case '-':
		default:
			return Flags{}, fmt.Errorf("flags %q: unexpected %q at position 3: %w", s, rest[0], linuxerr.EINVAL)
		}
		rest = rest[1:]
	}
	switch rest[0] {
	case 'p':
		f.Private = true
	case 's':
		f.Shared = true
	case '-':
		if len(s) == 4 {
			return Flags{}, fmt.Errorf("flags %q: sharing column must be 'p' or 's': %w", s, linuxerr.EINVAL)
		}
	default:
		return Flags{}, fmt.Errorf("flags %q: unexpected %q in sharing column: %w", s, rest[0], linuxerr.EINVAL)
	}
	return f, nil
}
