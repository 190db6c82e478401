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
	"fmt"
	"os"
	"path/filepath"

	"addrspace.dev/addrspace/pkg/memmap"
	"github.com/BurntSushi/toml"
	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"
)

// Source kinds accepted in a layout file.
const (
	SourceFile = "file"
	SourceZero = "zero"
	SourceShm  = "shm"
	SourceNull = "null"
)

// Layout describes an address space and the mappings to create in it.
type Layout struct {
	// Name is the diagnostic name of the address space.
	Name string `toml:"name" yaml:"name"`

	// Mappings are created in order.
	Mappings []Mapping `toml:"mapping" yaml:"mapping"`
}

// Mapping describes a single mapping of a layout.
type Mapping struct {
	// Source is one of "file", "zero", "shm" or "null".
	Source string `toml:"source" yaml:"source"`

	// Path is the host file to map when Source is "file", and the segment
	// name when Source is "shm". Mappings naming the same path share one
	// source.
	Path string `toml:"path" yaml:"path"`

	// Writable opens a file source for writing.
	Writable bool `toml:"writable" yaml:"writable"`

	// Size is the size of a zero or shm source. It defaults to
	// Offset+Length.
	Size uint64 `toml:"size" yaml:"size"`

	// Offset is the offset in the source of the first mapped byte.
	Offset uint64 `toml:"offset" yaml:"offset"`

	// Length is the number of bytes to map, rounded up to whole pages.
	Length uint64 `toml:"length" yaml:"length"`

	// Addr is the fixed start address of the mapping. Zero lets the address
	// space choose.
	Addr uint64 `toml:"addr" yaml:"addr"`

	// Flags is the permission string, in memmap.Flags.String or
	// /proc/[pid]/maps form.
	Flags string `toml:"flags" yaml:"flags"`
}

// SourceSize returns the size of the zero or shm source backing m.
func (m *Mapping) SourceSize() uint64 {
	if m.Size != 0 {
		return m.Size
	}
	return m.Offset + m.Length
}

// ParsedFlags returns the parsed permission string of m.
func (m *Mapping) ParsedFlags() (memmap.Flags, error) {
	return memmap.ParseFlags(m.Flags)
}

// LoadLayout reads a layout file. Files ending in .toml are decoded as TOML,
// files ending in .yaml or .yml as YAML. The file must match the layout
// schema before it is decoded into a Layout.
func LoadLayout(path string) (*Layout, error) {
	var unmarshal func([]byte, any) error
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		unmarshal = toml.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("layout %q: unknown extension %q, want .toml, .yaml or .yml", path, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout %q: %w", path, err)
	}

	var doc map[string]any
	if err := unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding layout %q: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := checkLayoutSchema(doc); err != nil {
		return nil, fmt.Errorf("layout %q: %w", path, err)
	}
	l := &Layout{}
	if err := unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("decoding layout %q: %w", path, err)
	}
	if l.Name == "" {
		l.Name = filepath.Base(path)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("layout %q: %w", path, err)
	}
	return l, nil
}

// Validate checks that every mapping names a known source and carries valid
// flags. Unlike the schema, it also rejects flag combinations that
// memmap.Flags.Validate refuses.
func (l *Layout) Validate() error {
	for i := range l.Mappings {
		m := &l.Mappings[i]
		switch m.Source {
		case SourceFile, SourceShm:
			if m.Path == "" {
				return fmt.Errorf("mapping %d: %s source requires a path", i, m.Source)
			}
		case SourceZero, SourceNull:
		default:
			return fmt.Errorf("mapping %d: unknown source %q", i, m.Source)
		}
		f, err := m.ParsedFlags()
		if err != nil {
			return fmt.Errorf("mapping %d: %w", i, err)
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("mapping %d: %w", i, err)
		}
	}
	return nil
}

// WithFlags returns a copy of l in which every mapping uses the given flags.
// l is left unchanged.
func (l *Layout) WithFlags(flags string) (*Layout, error) {
	f, err := memmap.ParseFlags(flags)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c := deepcopy.Copy(l).(*Layout)
	for i := range c.Mappings {
		c.Mappings[i].Flags = flags
	}
	return c, nil
}
