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
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// layoutSchemaJSON is the JSON Schema of a decoded layout file.
const layoutSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "mapping": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["source", "flags"],
        "properties": {
          "source": {"enum": ["file", "zero", "shm", "null"]},
          "path": {"type": "string"},
          "writable": {"type": "boolean"},
          "size": {"type": "integer", "minimum": 0},
          "offset": {"type": "integer", "minimum": 0},
          "length": {"type": "integer", "minimum": 1},
          "addr": {"type": "integer", "minimum": 0},
          "flags": {"type": "string", "pattern": "^[r-][w-][x-]([c-][ps-]|[ps])$"}
        },
        "if": {"properties": {"source": {"enum": ["file", "shm"]}}},
        "then": {"required": ["path"]}
      }
    }
  }
}`

var layoutSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(layoutSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("layout schema: %v", err))
	}
	return s
}()

// checkLayoutSchema validates a layout decoded into generic maps and slices
// against layoutSchema.
func checkLayoutSchema(doc any) error {
	res, err := layoutSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("checking layout schema: %w", err)
	}
	if res.Valid() {
		return nil
	}
	var msgs []string
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("layout does not match schema: %s", strings.Join(msgs, "; "))
}
