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
	"testing"

	"addrspace.dev/addrspace/pkg/errors/linuxerr"
	"github.com/google/go-cmp/cmp"
)

func TestSingleFlags(t *testing.T) {
	for _, tc := range []struct {
		f    Flags
		want string
	}{
		{NoAccess, "-----"},
		{Read, "r----"},
		{Write, "-w---"},
		{Execute, "--x--"},
		{CopyOnWrite, "---c-"},
		{Private, "----p"},
		{Shared, "----s"},
		{AnyAccess, "rwx--"},
	} {
		if got := tc.f.String(); got != tc.want {
			t.Errorf("%#v.String() = %q, want %q", tc.f, got, tc.want)
		}
	}
}

func TestToggle(t *testing.T) {
	f := NoAccess.ToggleRead().ToggleWrite().ToggleExecute().ToggleCopyOnWrite().TogglePrivate().ToggleShared()
	want := Flags{Read: true, Write: true, Execute: true, CopyOnWrite: true, Private: true, Shared: true}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("toggling every flag on (-want +got):\n%s", diff)
	}
	f = f.ToggleRead().ToggleWrite().ToggleExecute().ToggleCopyOnWrite().TogglePrivate().ToggleShared()
	if f != NoAccess {
		t.Errorf("toggling every flag twice = %v, want %v", f, NoAccess)
	}
}

func TestUnionWithout(t *testing.T) {
	rwp := Read.Union(Write).Union(Private)
	if want := (Flags{Read: true, Write: true, Private: true}); rwp != want {
		t.Errorf("Union = %v, want %v", rwp, want)
	}
	if got, want := rwp.Without(ReadWrite), Private; got != want {
		t.Errorf("Without = %v, want %v", got, want)
	}
	if got := rwp.Without(Execute); got != rwp {
		t.Errorf("Without of an unset flag = %v, want %v", got, rwp)
	}
}

func TestSubsetOf(t *testing.T) {
	for _, tc := range []struct {
		a, b Flags
		want bool
	}{
		{NoAccess, NoAccess, true},
		{NoAccess, Read, true},
		{Read, ReadWrite, true},
		{ReadWrite, Read, false},
		{Read.Union(Private), Read, false},
		{Execute, AnyAccess, true},
	} {
		if got := tc.a.SubsetOf(tc.b); got != tc.want {
			t.Errorf("%v.SubsetOf(%v) = %t, want %t", tc.a, tc.b, got, tc.want)
		}
		if got := tc.b.SupersetOf(tc.a); got != tc.want {
			t.Errorf("%v.SupersetOf(%v) = %t, want %t", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		f     Flags
		valid bool
	}{
		{NoAccess, true},
		{Read.Union(Private), true},
		{ReadWrite.Union(Shared), true},
		{Read.Union(CopyOnWrite).Union(Private), true},
		{Private.Union(Shared), false},
		{Write.Union(CopyOnWrite), false},
		{AnyAccess.Union(CopyOnWrite).Union(Private).Union(Shared), false},
	} {
		if got := tc.f.Valid(); got != tc.valid {
			t.Errorf("%v.Valid() = %t, want %t", tc.f, got, tc.valid)
		}
		err := tc.f.Validate()
		if tc.valid && err != nil {
			t.Errorf("%v.Validate() = %v, want nil", tc.f, err)
		}
		if !tc.valid && !linuxerr.Equals(linuxerr.EINVAL, err) {
			t.Errorf("%v.Validate() = %v, want EINVAL", tc.f, err)
		}
	}
}

func TestPermits(t *testing.T) {
	for _, tc := range []struct {
		granted, at Flags
		want        bool
	}{
		{Read, Read, true},
		{Read, Write, false},
		{Read, ReadWrite, false},
		{AnyAccess, ReadWrite, true},
		{Read.Union(Private), Read.Union(Shared), true},
		{Read, Read.Union(CopyOnWrite), true},
		{Read, NoAccess, true},
		{NoAccess, NoAccess, false},
		{NoAccess, Read, false},
		{Private, Read, false},
	} {
		if got := tc.granted.Permits(tc.at); got != tc.want {
			t.Errorf("%v.Permits(%v) = %t, want %t", tc.granted, tc.at, got, tc.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Flags
		wantErr bool
	}{
		{in: "-----", want: NoAccess},
		{in: "r-xcp", want: Flags{Read: true, Execute: true, CopyOnWrite: true, Private: true}},
		{in: "rw--s", want: Flags{Read: true, Write: true, Shared: true}},
		{in: "r-xp", want: Flags{Read: true, Execute: true, Private: true}},
		{in: "rw-s", want: Flags{Read: true, Write: true, Shared: true}},
		{in: "---p", want: Private},
		{in: "rwx-", wantErr: true},
		{in: "rwx", wantErr: true},
		{in: "wr--p", wantErr: true},
		{in: "r--zp", wantErr: true},
		{in: "r---q", wantErr: true},
	} {
		got, err := ParseFlags(tc.in)
		if tc.wantErr {
			if !linuxerr.Equals(linuxerr.EINVAL, err) {
				t.Errorf("ParseFlags(%q) = %v, %v, want EINVAL", tc.in, got, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFlags(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseFlags(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, f := range []Flags{
		NoAccess,
		AnyAccess.Union(Shared),
		Read.Union(CopyOnWrite).Union(Private),
		Execute,
	} {
		got, err := ParseFlags(f.String())
		if err != nil {
			t.Fatalf("ParseFlags(%q): %v", f.String(), err)
		}
		if got != f {
			t.Errorf("ParseFlags(%q) = %v, want %v", f.String(), got, f)
		}
	}
}

func TestMapsString(t *testing.T) {
	if got, want := Read.Union(Execute).Union(Private).MapsString(), "r-xp"; got != want {
		t.Errorf("MapsString() = %q, want %q", got, want)
	}
	if got, want := ReadWrite.Union(Shared).MapsString(), "rw-s"; got != want {
		t.Errorf("MapsString() = %q, want %q", got, want)
	}
}
