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

// Package hostarch contains the address and page geometry shared by every
// address space.
package hostarch

const (
	// PageShift is the binary log of the page size.
	PageShift = 12

	// PageSize is the size of a page in bytes.
	PageSize = 1 << PageShift

	// PageMask is the mask of the page offset bits of an address.
	PageMask = PageSize - 1

	// VAddrMax is the exclusive upper bound of the virtual address range
	// managed by an address space. It is not page-aligned; the highest
	// usable page ends at VAddrMax.RoundDown().
	VAddrMax Addr = 1<<38 - 1
)

// PageRoundUp rounds n up to a whole number of pages. ok is false if the
// rounding overflows.
func PageRoundUp(n uint64) (rounded uint64, ok bool) {
	rounded = (n + PageMask) &^ PageMask
	ok = rounded >= n
	return
}

// PageRoundDown rounds n down to a whole number of pages.
func PageRoundDown(n uint64) uint64 {
	return n &^ PageMask
}
