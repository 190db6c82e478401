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
	"context"
	"fmt"
	"strings"
	"testing"

	"addrspace.dev/addrspace/pkg/errors/linuxerr"
	"addrspace.dev/addrspace/pkg/hostarch"
	"addrspace.dev/addrspace/pkg/log"
	"addrspace.dev/addrspace/pkg/memmap"
	"addrspace.dev/addrspace/pkg/source"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

// sameSource compares data sources by identity.
var sameSource = cmp.Comparer(func(a, b memmap.DataSource) bool { return a == b })

// checkInvariants verifies that the mappings of as are sorted, disjoint,
// page-aligned and start with the reserved page 0.
func checkInvariants(t *testing.T, as *AddressSpace) {
	t.Helper()
	ms := as.Mappings()
	if len(ms) == 0 {
		t.Fatalf("address space has no mappings")
	}
	if got, want := ms[0].Range, (hostarch.AddrRange{Start: 0, End: hostarch.PageSize}); got != want || ms[0].Flags.Any() {
		t.Errorf("first mapping = %v %v, want %v with no access", got, ms[0].Flags, want)
	}
	for i, m := range ms {
		if !m.Range.WellFormed() || !m.Range.IsPageAligned() || m.Range.Length() == 0 {
			t.Errorf("mapping %d: %v is not a non-empty page-aligned range", i, m.Range)
		}
		if m.Range.End > hostarch.VAddrMax {
			t.Errorf("mapping %d: %v exceeds VAddrMax", i, m.Range)
		}
		if i > 0 && ms[i-1].Range.End > m.Range.Start {
			t.Errorf("mappings %d %v and %d %v are unsorted or overlap", i-1, ms[i-1].Range, i, m.Range)
		}
	}
}

func TestNewAddressSpace(t *testing.T) {
	as := NewAddressSpace("test")
	if got := as.Name(); got != "test" {
		t.Errorf("Name() = %q, want %q", got, "test")
	}
	if got := as.NumMappings(); got != 1 {
		t.Errorf("NumMappings() = %d, want 1", got)
	}
	if got := as.VirtualMemorySize(); got != 0 {
		t.Errorf("VirtualMemorySize() = %d, want 0", got)
	}
	checkInvariants(t, as)
}

// Address 0 is never accessible.
func TestPageZeroDenied(t *testing.T) {
	as := NewAddressSpace("test")
	for _, at := range []memmap.Flags{memmap.Read, memmap.Write, memmap.Execute, memmap.NoAccess} {
		for _, addr := range []hostarch.Addr{0, 1, hostarch.PageSize - 1} {
			src, _, ok, err := as.GetSourceForAddr(addr, at)
			if ok || src != nil || !linuxerr.Equals(linuxerr.EACCES, err) {
				t.Errorf("GetSourceForAddr(%v, %v) = %v, %t, %v, want EACCES", addr, at, src, ok, err)
			}
		}
	}
	if err := as.RemoveMapping(context.Background(), source.NewNull(), 0); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("RemoveMapping(0) = %v, want EINVAL", err)
	}
}

func TestAddResolveRemove(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	src := source.NewZero(4 * hostarch.PageSize)

	addr, err := as.AddMapping(ctx, src, 0, 1, memmap.Read)
	if err != nil {
		t.Fatalf("AddMapping failed: %v", err)
	}
	if addr == 0 || !addr.IsPageAligned() {
		t.Fatalf("AddMapping returned %v, want a non-zero page-aligned address", addr)
	}

	got, off, ok, err := as.GetSourceForAddr(addr, memmap.Read)
	if err != nil || !ok || got != src || off != 0 {
		t.Fatalf("GetSourceForAddr(%v) = %v, %#x, %t, %v, want the source at offset 0", addr, got, off, ok, err)
	}
	// The one byte span was rounded up to a full page.
	if _, off, ok, err := as.GetSourceForAddr(addr+hostarch.PageSize-1, memmap.Read); err != nil || !ok || off != hostarch.PageSize-1 {
		t.Errorf("GetSourceForAddr(last byte) = %#x, %t, %v, want offset %#x", off, ok, err, hostarch.PageSize-1)
	}
	if _, _, ok, err := as.GetSourceForAddr(addr+hostarch.PageSize, memmap.Read); ok || err != nil {
		t.Errorf("GetSourceForAddr(one past the end) = %t, %v, want unmapped", ok, err)
	}

	if err := as.RemoveMapping(ctx, src, addr); err != nil {
		t.Fatalf("RemoveMapping failed: %v", err)
	}
	for _, a := range []hostarch.Addr{addr, addr + hostarch.PageSize - 1} {
		if got, _, ok, err := as.GetSourceForAddr(a, memmap.Read); ok || got != nil || err != nil {
			t.Errorf("GetSourceForAddr(%v) after removal = %v, %t, %v, want unmapped", a, got, ok, err)
		}
	}
	if err := as.RemoveMapping(ctx, src, addr); !linuxerr.Equals(linuxerr.ENOENT, err) {
		t.Errorf("second RemoveMapping = %v, want ENOENT", err)
	}
	checkInvariants(t, as)
}

func TestResolveOffset(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	src := source.NewZero(16 * hostarch.PageSize)
	const start = 0x10000
	if err := as.AddMappingAt(ctx, src, 3*hostarch.PageSize, 2*hostarch.PageSize, start, memmap.ReadWrite); err != nil {
		t.Fatalf("AddMappingAt failed: %v", err)
	}
	_, off, ok, err := as.GetSourceForAddr(start+0x1234, memmap.Write)
	if err != nil || !ok {
		t.Fatalf("GetSourceForAddr failed: %t, %v", ok, err)
	}
	if want := uint64(3*hostarch.PageSize + 0x1234); off != want {
		t.Errorf("offset = %#x, want %#x", off, want)
	}
}

func TestFixedPlacementConflict(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	src := source.NewZero(hostarch.PageSize)
	other := source.NewZero(4 * hostarch.PageSize)
	const start = 2 * hostarch.PageSize

	if err := as.AddMappingAt(ctx, src, 0, hostarch.PageSize, start, memmap.Read); err != nil {
		t.Fatalf("AddMappingAt failed: %v", err)
	}
	before := as.Mappings()

	for _, tc := range []struct {
		name   string
		start  hostarch.Addr
		length uint64
	}{
		{"same start", start, hostarch.PageSize},
		{"inside", start, 1},
		{"covering from below", hostarch.PageSize, 4 * hostarch.PageSize},
		{"reaching into", start - hostarch.PageSize, 2 * hostarch.PageSize},
		{"page zero", 0, hostarch.PageSize},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := as.AddMappingAt(ctx, other, 0, tc.length, tc.start, memmap.Read)
			if !linuxerr.Equals(linuxerr.EEXIST, err) {
				t.Errorf("AddMappingAt(%v, %#x) = %v, want EEXIST", tc.start, tc.length, err)
			}
		})
	}
	if diff := cmp.Diff(before, as.Mappings(), sameSource); diff != "" {
		t.Errorf("failed placements changed the mappings (-want +got):\n%s", diff)
	}
	if got, _, ok, err := as.GetSourceForAddr(start, memmap.Read); !ok || err != nil || got != src {
		t.Errorf("first mapping no longer resolves: %v, %t, %v", got, ok, err)
	}

	// Adjacent placement without a guard page is allowed.
	if err := as.AddMappingAt(ctx, other, 0, hostarch.PageSize, start+hostarch.PageSize, memmap.Read); err != nil {
		t.Errorf("adjacent AddMappingAt failed: %v", err)
	}
	checkInvariants(t, as)
}

func TestPermissionDenied(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	src := source.NewZero(hostarch.PageSize)
	addr, err := as.AddMapping(ctx, src, 0, hostarch.PageSize, memmap.Read.Union(memmap.Private))
	if err != nil {
		t.Fatalf("AddMapping failed: %v", err)
	}
	for _, tc := range []struct {
		at   memmap.Flags
		want bool
	}{
		{memmap.Read, true},
		{memmap.Read.Union(memmap.Shared), true},
		{memmap.Write, false},
		{memmap.Execute, false},
		{memmap.ReadWrite, false},
	} {
		got, _, ok, err := as.GetSourceForAddr(addr, tc.at)
		if tc.want {
			if !ok || err != nil || got != src {
				t.Errorf("GetSourceForAddr(%v) = %v, %t, %v, want success", tc.at, got, ok, err)
			}
			continue
		}
		if ok || got != nil || !linuxerr.Equals(linuxerr.EACCES, err) {
			t.Errorf("GetSourceForAddr(%v) = %v, %t, %v, want EACCES", tc.at, got, ok, err)
		}
	}
}

func TestInvalidArguments(t *testing.T) {
	ctx := context.Background()
	src := source.NewZero(hostarch.PageSize)
	for _, tc := range []struct {
		name   string
		offset uint64
		length uint64
		flags  memmap.Flags
	}{
		{"private and shared", 0, hostarch.PageSize, memmap.Read.Union(memmap.Private).Union(memmap.Shared)},
		{"cow and write", 0, hostarch.PageSize, memmap.ReadWrite.Union(memmap.CopyOnWrite)},
		{"zero length", 0, 0, memmap.Read},
		{"offset overflow", ^uint64(0) - 1, hostarch.PageSize, memmap.Read},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// Rejection must not depend on the contents of the address space.
			empty := NewAddressSpace("empty")
			busy := NewAddressSpace("busy")
			for i := 0; i < 3; i++ {
				if _, err := busy.AddMapping(ctx, src, 0, hostarch.PageSize, memmap.Read); err != nil {
					t.Fatalf("AddMapping failed: %v", err)
				}
			}
			for _, as := range []*AddressSpace{empty, busy} {
				before := as.Mappings()
				if _, err := as.AddMapping(ctx, src, tc.offset, tc.length, tc.flags); !linuxerr.Equals(linuxerr.EINVAL, err) {
					t.Errorf("%s: AddMapping = %v, want EINVAL", as.Name(), err)
				}
				if err := as.AddMappingAt(ctx, src, tc.offset, tc.length, 0x100000, tc.flags); !linuxerr.Equals(linuxerr.EINVAL, err) {
					t.Errorf("%s: AddMappingAt = %v, want EINVAL", as.Name(), err)
				}
				if diff := cmp.Diff(before, as.Mappings(), sameSource); diff != "" {
					t.Errorf("%s: rejected mapping changed the mappings (-want +got):\n%s", as.Name(), diff)
				}
			}
		})
	}

	as := NewAddressSpace("test")
	if err := as.AddMappingAt(ctx, src, 0, hostarch.PageSize, 0x10001, memmap.Read); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("unaligned AddMappingAt = %v, want EINVAL", err)
	}
	if _, err := as.AddMapping(ctx, nil, 0, hostarch.PageSize, memmap.Read); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("AddMapping(nil) = %v, want EINVAL", err)
	}
}

func TestGuardPages(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	src := source.NewZero(4 * hostarch.PageSize)

	var addrs []hostarch.Addr
	for i := 0; i < 4; i++ {
		addr, err := as.AddMapping(ctx, src, 0, hostarch.PageSize, memmap.Read)
		if err != nil {
			t.Fatalf("AddMapping failed: %v", err)
		}
		addrs = append(addrs, addr)
	}
	want := []hostarch.Addr{0x2000, 0x4000, 0x6000, 0x8000}
	if diff := cmp.Diff(want, addrs); diff != "" {
		t.Errorf("placements (-want +got):\n%s", diff)
	}
	for _, addr := range addrs {
		if _, _, ok, err := as.GetSourceForAddr(addr+hostarch.PageSize, memmap.Read); ok || err != nil {
			t.Errorf("guard page at %v is mapped", addr+hostarch.PageSize)
		}
	}

	// A freed slot is reused only if it keeps guards on both sides.
	if err := as.RemoveMapping(ctx, src, 0x4000); err != nil {
		t.Fatalf("RemoveMapping failed: %v", err)
	}
	addr, err := as.AddMapping(ctx, src, 0, hostarch.PageSize, memmap.Read)
	if err != nil || addr != 0x4000 {
		t.Errorf("AddMapping after removal = %v, %v, want 0x4000", addr, err)
	}
	addr, err = as.AddMapping(ctx, src, 0, 2*hostarch.PageSize, memmap.Read)
	if err != nil || addr != 0xa000 {
		t.Errorf("two page AddMapping = %v, %v, want 0xa000", addr, err)
	}
	checkInvariants(t, as)
}

func TestExhaustion(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	filler := source.NewNull()
	top := hostarch.VAddrMax.RoundDown()

	// One page past the end of the address space does not fit.
	if err := as.AddMappingAt(ctx, filler, 0, hostarch.PageSize, top, memmap.NoAccess); !linuxerr.Equals(linuxerr.ENOMEM, err) {
		t.Errorf("AddMappingAt(top) = %v, want ENOMEM", err)
	}
	if err := as.AddMappingAt(ctx, filler, 0, hostarch.PageSize, top-hostarch.PageSize, memmap.NoAccess); err != nil {
		t.Errorf("AddMappingAt(last page) failed: %v", err)
	}
	if _, err := as.AddMapping(ctx, filler, 0, uint64(hostarch.VAddrMax), memmap.NoAccess); !linuxerr.Equals(linuxerr.ENOMEM, err) {
		t.Errorf("AddMapping(VAddrMax) = %v, want ENOMEM", err)
	}

	// Fill everything between the reserved page and the last page.
	if err := as.AddMappingAt(ctx, filler, 0, uint64(top-3*hostarch.PageSize), 2*hostarch.PageSize, memmap.NoAccess); err != nil {
		t.Fatalf("filling AddMappingAt failed: %v", err)
	}
	before := as.Mappings()
	if _, err := as.AddMapping(ctx, filler, 0, hostarch.PageSize, memmap.Read); !linuxerr.Equals(linuxerr.ENOMEM, err) {
		t.Errorf("AddMapping on a full address space = %v, want ENOMEM", err)
	}
	if diff := cmp.Diff(before, as.Mappings(), sameSource); diff != "" {
		t.Errorf("failed placement changed the mappings (-want +got):\n%s", diff)
	}
	checkInvariants(t, as)
}

func TestRemoveMappingIdentity(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	a := source.NewZero(hostarch.PageSize)
	b := source.NewZero(hostarch.PageSize)

	addrA, err := as.AddMapping(ctx, a, 0, hostarch.PageSize, memmap.Read)
	if err != nil {
		t.Fatalf("AddMapping failed: %v", err)
	}
	addrB, err := as.AddMapping(ctx, b, 0, hostarch.PageSize, memmap.Read)
	if err != nil {
		t.Fatalf("AddMapping failed: %v", err)
	}
	// An identical but distinct source does not match.
	if err := as.RemoveMapping(ctx, b, addrA); !linuxerr.Equals(linuxerr.ENOENT, err) {
		t.Errorf("RemoveMapping with the wrong source = %v, want ENOENT", err)
	}
	if err := as.RemoveMapping(ctx, a, addrA+hostarch.PageSize); !linuxerr.Equals(linuxerr.ENOENT, err) {
		t.Errorf("RemoveMapping at a non-start address = %v, want ENOENT", err)
	}
	if err := as.RemoveMapping(ctx, a, addrA); err != nil {
		t.Fatalf("RemoveMapping failed: %v", err)
	}
	ms := as.Mappings()
	if len(ms) != 2 || ms[1].Range != (hostarch.AddrRange{Start: addrB, End: addrB + hostarch.PageSize}) || ms[1].Source != memmap.DataSource(b) {
		t.Errorf("neighbouring mapping disturbed: %+v", ms)
	}
}

func TestReferenceCounting(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	src := source.NewZero(hostarch.PageSize)

	a1, err := as.AddMapping(ctx, src, 0, hostarch.PageSize, memmap.Read)
	if err != nil {
		t.Fatalf("AddMapping failed: %v", err)
	}
	if err := as.AddMappingAt(ctx, src, 0, hostarch.PageSize, 0x100000, memmap.Read); err != nil {
		t.Fatalf("AddMappingAt failed: %v", err)
	}
	if got := src.ReadRefs(); got != 3 {
		t.Errorf("ReadRefs() with two mappings = %d, want 3", got)
	}
	if err := as.RemoveMapping(ctx, src, a1); err != nil {
		t.Fatalf("RemoveMapping failed: %v", err)
	}
	if got := src.ReadRefs(); got != 2 {
		t.Errorf("ReadRefs() after removal = %d, want 2", got)
	}
	as.Release(ctx)
	if got := src.ReadRefs(); got != 1 {
		t.Errorf("ReadRefs() after Release = %d, want 1", got)
	}
	src.DecRef(ctx)
	if got := src.ReadRefs(); got != 0 {
		t.Errorf("ReadRefs() after final DecRef = %d, want 0", got)
	}
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	src := source.NewZero(hostarch.PageSize)
	addr, err := as.AddMapping(ctx, src, 0, hostarch.PageSize, memmap.Read)
	if err != nil {
		t.Fatalf("AddMapping failed: %v", err)
	}
	as.Release(ctx)
	as.Release(ctx)

	if got := as.NumMappings(); got != 0 {
		t.Errorf("NumMappings() after Release = %d, want 0", got)
	}
	for _, a := range []hostarch.Addr{0, addr} {
		if _, _, ok, err := as.GetSourceForAddr(a, memmap.Read); ok || err != nil {
			t.Errorf("GetSourceForAddr(%v) after Release = %t, %v, want unmapped", a, ok, err)
		}
	}
	if _, err := as.AddMapping(ctx, src, 0, hostarch.PageSize, memmap.Read); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("AddMapping after Release = %v, want EINVAL", err)
	}
	if err := as.AddMappingAt(ctx, src, 0, hostarch.PageSize, 0x10000, memmap.Read); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("AddMappingAt after Release = %v, want EINVAL", err)
	}
	if err := as.RemoveMapping(ctx, src, addr); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("RemoveMapping after Release = %v, want EINVAL", err)
	}
}

func TestVirtualMemorySize(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	src := source.NewZero(8 * hostarch.PageSize)
	if _, err := as.AddMapping(ctx, src, 0, 3*hostarch.PageSize-5, memmap.Read); err != nil {
		t.Fatalf("AddMapping failed: %v", err)
	}
	if err := as.AddMappingAt(ctx, src, 0, 1, 0x40000, memmap.Read); err != nil {
		t.Fatalf("AddMappingAt failed: %v", err)
	}
	if got, want := as.VirtualMemorySize(), uint64(4*hostarch.PageSize); got != want {
		t.Errorf("VirtualMemorySize() = %#x, want %#x", got, want)
	}
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	as := NewAddressSpace("test")
	src := source.NewZero(hostarch.PageSize)

	added, fixed := mappingsAdded.Value("any"), mappingsAdded.Value("fixed")
	removed := mappingsRemoved.Value()
	ok, unmapped, denied := lookups.Value("ok"), lookups.Value("unmapped"), lookups.Value("denied")

	addr, err := as.AddMapping(ctx, src, 0, hostarch.PageSize, memmap.Read)
	if err != nil {
		t.Fatalf("AddMapping failed: %v", err)
	}
	if err := as.AddMappingAt(ctx, src, 0, hostarch.PageSize, 0x20000, memmap.Read); err != nil {
		t.Fatalf("AddMappingAt failed: %v", err)
	}
	as.GetSourceForAddr(addr, memmap.Read)
	as.GetSourceForAddr(addr, memmap.Write)
	as.GetSourceForAddr(0x30000, memmap.Read)
	if err := as.RemoveMapping(ctx, src, addr); err != nil {
		t.Fatalf("RemoveMapping failed: %v", err)
	}

	got := []uint64{
		mappingsAdded.Value("any") - added,
		mappingsAdded.Value("fixed") - fixed,
		mappingsRemoved.Value() - removed,
		lookups.Value("ok") - ok,
		lookups.Value("unmapped") - unmapped,
		lookups.Value("denied") - denied,
	}
	if diff := cmp.Diff([]uint64{1, 1, 1, 1, 1, 1}, got); diff != "" {
		t.Errorf("metric deltas (-want +got):\n%s", diff)
	}
}

func TestConcurrentMappings(t *testing.T) {
	ctx := context.Background()
	shared := NewAddressSpace("shared")
	src := source.NewSharedMemory("segment", 4*hostarch.PageSize)

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		private := NewAddressSpace(fmt.Sprintf("private-%d", w))
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				for _, as := range []*AddressSpace{shared, private} {
					addr, err := as.AddMapping(ctx, src, 0, 2*hostarch.PageSize, memmap.ReadWrite.Union(memmap.Shared))
					if err != nil {
						return err
					}
					got, off, ok, err := as.GetSourceForAddr(addr+hostarch.PageSize+8, memmap.Write)
					if err != nil || !ok || got != memmap.DataSource(src) || off != hostarch.PageSize+8 {
						return fmt.Errorf("%s: resolving %v = %v, %#x, %t, %v", as.Name(), addr, got, off, ok, err)
					}
					if err := as.RemoveMapping(ctx, src, addr); err != nil {
						return err
					}
				}
			}
			if got := private.NumMappings(); got != 1 {
				return fmt.Errorf("%s: %d mappings left, want 1", private.Name(), got)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	checkInvariants(t, shared)
	if got := shared.NumMappings(); got != 1 {
		t.Errorf("shared: %d mappings left, want 1", got)
	}
	if got := src.ReadRefs(); got != 1 {
		t.Errorf("ReadRefs() = %d, want 1", got)
	}
}

func TestDenialWarningsPerSpace(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	old := log.Log().Emitter
	log.SetTarget(&log.Writer{Next: &buf})
	defer log.SetTarget(old)

	a := NewAddressSpace("a")
	defer a.Release(ctx)
	b := NewAddressSpace("b")
	defer b.Release(ctx)
	for i := 0; i < 5; i++ {
		if _, _, _, err := a.GetSourceForAddr(0x10, memmap.Read); !linuxerr.Equals(linuxerr.EACCES, err) {
			t.Fatalf("GetSourceForAddr(0x10) got err %v want EACCES", err)
		}
	}
	if _, _, _, err := b.GetSourceForAddr(0x10, memmap.Read); !linuxerr.Equals(linuxerr.EACCES, err) {
		t.Fatalf("GetSourceForAddr(0x10) got err %v want EACCES", err)
	}

	// Denials in a do not use up the allowance of b.
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "a: ") || !strings.HasPrefix(lines[1], "b: ") {
		t.Errorf("denial warnings = %q, want one from a then one from b", lines)
	}
}
