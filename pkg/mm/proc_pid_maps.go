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
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sys/unix"
)

// fileIdentity is implemented by sources backed by host files.
type fileIdentity interface {
	DeviceID() uint64
	InodeID() uint64
}

// WriteMaps writes one line per mapping to w, in address order, in the
// format of /proc/[pid]/maps.
func (as *AddressSpace) WriteMaps(w io.Writer) error {
	var b bytes.Buffer
	for _, mi := range as.Mappings() {
		mapsEntry(&b, mi)
	}
	_, err := w.Write(b.Bytes())
	return err
}

// mapsEntry appends the /proc/[pid]/maps entry for mi, including the
// trailing newline, to b.
func mapsEntry(b *bytes.Buffer, mi MappingInfo) {
	var dev, ino uint64
	if id, ok := mi.Source.(fileIdentity); ok {
		dev = id.DeviceID()
		ino = id.InodeID()
	}

	lineStart := b.Len()
	fmt.Fprintf(b, "%08x-%08x %s %08x %02x:%02x %d ",
		uint64(mi.Range.Start), uint64(mi.Range.End), mi.Flags.MapsString(), mi.Offset, unix.Major(dev), unix.Minor(dev), ino)

	if s := mi.Source.MappedName(); s != "" {
		// Per linux, we pad until the 74th character.
		if pad := 73 - (b.Len() - lineStart); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(s)
	}
	b.WriteString("\n")
}
