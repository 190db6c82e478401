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

package refs

import "testing"

func TestDecRefCallsDestructorOnce(t *testing.T) {
	var r Refs
	r.InitRefs("test")
	r.IncRef()
	if got := r.ReadRefs(); got != 2 {
		t.Fatalf("ReadRefs() = %d, want 2", got)
	}
	destroyed := 0
	r.DecRef(func() { destroyed++ })
	if destroyed != 0 {
		t.Fatalf("destructor ran with one reference outstanding")
	}
	r.DecRef(func() { destroyed++ })
	if destroyed != 1 {
		t.Errorf("destructor ran %d times, want 1", destroyed)
	}
	if r.TryIncRef() {
		t.Errorf("TryIncRef succeeded on a destroyed object")
	}
}

func TestDecRefPanicsBelowZero(t *testing.T) {
	var r Refs
	r.InitRefs("test")
	r.DecRef(nil)
	defer func() {
		if recover() == nil {
			t.Errorf("DecRef on a destroyed object did not panic")
		}
	}()
	r.DecRef(nil)
}

func TestLeakCheck(t *testing.T) {
	SetLeakMode(LeaksLogWarning)
	defer SetLeakMode(NoLeakChecking)

	before := LiveObjects()
	var leaked, freed Refs
	leaked.InitRefs("leaked")
	freed.InitRefs("freed")
	if got, want := LiveObjects(), before+2; got != want {
		t.Fatalf("LiveObjects() = %d, want %d", got, want)
	}
	freed.DecRef(nil)
	if got, want := LiveObjects(), before+1; got != want {
		t.Errorf("LiveObjects() after DecRef = %d, want %d", got, want)
	}
	leaked.DecRef(nil)
}

func TestLeakModeFlag(t *testing.T) {
	for _, s := range []string{"disabled", "log-names", "log-traces", "panic"} {
		var m LeakMode
		if err := m.Set(s); err != nil {
			t.Errorf("Set(%q): %v", s, err)
			continue
		}
		if got := m.String(); got != s {
			t.Errorf("Set(%q).String() = %q", s, got)
		}
	}
	var m LeakMode
	if err := m.Set("bogus"); err == nil {
		t.Errorf("Set(bogus) succeeded")
	}
}
