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

import "addrspace.dev/addrspace/pkg/metric"

var (
	mappingsAdded = metric.MustCreateNewUint64Metric("/mm/mappings_added",
		"Number of mappings added to address spaces, by placement.",
		metric.NewField("placement", "any", "fixed"))
	mappingsRemoved = metric.MustCreateNewUint64Metric("/mm/mappings_removed",
		"Number of mappings removed from address spaces.")
	lookups = metric.MustCreateNewUint64Metric("/mm/lookups",
		"Number of address resolutions, by result.",
		metric.NewField("result", "ok", "unmapped", "denied"))
)
