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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const tomlLayout = `
name = "demo"

[[mapping]]
source = "file"
path = "/etc/hosts"
offset = 0
length = 4096
flags = "r--p"

[[mapping]]
source = "zero"
length = 0x2000
addr = 0x10000
flags = "rw-p"
`

const yamlLayout = `
name: demo
mapping:
  - source: file
    path: /etc/hosts
    offset: 0
    length: 4096
    flags: r--p
  - source: zero
    length: 0x2000
    addr: 0x10000
    flags: rw-p
`

func writeLayout(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadLayout(t *testing.T) {
	want := &Layout{
		Name: "demo",
		Mappings: []Mapping{
			{Source: SourceFile, Path: "/etc/hosts", Length: 4096, Flags: "r--p"},
			{Source: SourceZero, Length: 0x2000, Addr: 0x10000, Flags: "rw-p"},
		},
	}
	for _, tc := range []struct {
		name     string
		contents string
	}{
		{"layout.toml", tomlLayout},
		{"layout.yaml", yamlLayout},
		{"layout.yml", yamlLayout},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadLayout(writeLayout(t, tc.name, tc.contents))
			if err != nil {
				t.Fatalf("LoadLayout: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("LoadLayout (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadLayoutErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		contents string
	}{
		{"layout.json", `{}`},
		{"bad.toml", "[[mapping]]\nsource = \"tape\"\nflags = \"r--p\"\n"},
		{"noflags.toml", "[[mapping]]\nsource = \"zero\"\nlength = 1\n"},
		{"invalid.toml", "[[mapping]]\nsource = \"zero\"\nlength = 1\nflags = \"-w-cp\"\n"},
		{"nopath.yaml", "mapping:\n  - source: file\n    flags: r--p\n"},
		{"misspelled.toml", "[[mapping]]\nsource = \"zero\"\nlength = 1\nflgas = \"r--p\"\n"},
		{"unknown.yaml", "name: x\nmappings: []\n"},
		{"type.toml", "[[mapping]]\nsource = \"zero\"\nlength = \"big\"\nflags = \"r--p\"\n"},
		{"zerolength.yaml", "mapping:\n  - source: zero\n    length: 0\n    flags: r--p\n"},
		{"badflags.yaml", "mapping:\n  - source: zero\n    length: 1\n    flags: read\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if l, err := LoadLayout(writeLayout(t, tc.name, tc.contents)); err == nil {
				t.Errorf("LoadLayout succeeded: %+v", l)
			}
		})
	}
}

func TestDefaultName(t *testing.T) {
	l, err := LoadLayout(writeLayout(t, "unnamed.toml", "[[mapping]]\nsource = \"null\"\nlength = 1\nflags = \"---p\"\n"))
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if l.Name != "unnamed.toml" {
		t.Errorf("Name = %q, want %q", l.Name, "unnamed.toml")
	}
	if got, want := l.Mappings[0].SourceSize(), uint64(1); got != want {
		t.Errorf("SourceSize() = %d, want %d", got, want)
	}
}

func TestWithFlags(t *testing.T) {
	orig, err := LoadLayout(writeLayout(t, "layout.toml", tomlLayout))
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	got, err := orig.WithFlags("r-x-s")
	if err != nil {
		t.Fatalf("WithFlags: %v", err)
	}
	for i, m := range got.Mappings {
		if m.Flags != "r-x-s" {
			t.Errorf("mapping %d: Flags = %q, want r-x-s", i, m.Flags)
		}
	}
	if orig.Mappings[0].Flags != "r--p" || orig.Mappings[1].Flags != "rw-p" {
		t.Errorf("WithFlags modified the original layout: %+v", orig.Mappings)
	}
	if _, err := orig.WithFlags("rw-cp"); err == nil {
		t.Errorf("WithFlags accepted copy-on-write with write")
	}
}

func TestCheckLayoutSchema(t *testing.T) {
	err := checkLayoutSchema(map[string]any{
		"mapping": []any{
			map[string]any{"source": "shm", "length": 1, "flags": "rw-s"},
		},
	})
	if err == nil || !strings.Contains(err.Error(), "path") {
		t.Errorf("shm mapping without a path got err %v, want one naming the path", err)
	}
	if err := checkLayoutSchema(map[string]any{"name": "empty"}); err != nil {
		t.Errorf("layout without mappings: %v", err)
	}
}
