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

package log

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// levelNames are the JSON names of the levels, indexed by Level.
var levelNames = [...]string{
	Warning: "warning",
	Info:    "info",
	Debug:   "debug",
}

// MarshalJSON implements json.Marshaler.MarshalJSON.
func (l Level) MarshalJSON() ([]byte, error) {
	if int(l) >= len(levelNames) {
		return nil, fmt.Errorf("unknown level %v", l)
	}
	return strconv.AppendQuote(nil, levelNames[l]), nil
}

// UnmarshalJSON implements json.Unmarshaler.UnmarshalJSON. It accepts level
// names and their integer values.
func (l *Level) UnmarshalJSON(b []byte) error {
	if n, err := strconv.ParseUint(string(b), 10, 32); err == nil {
		if n >= uint64(len(levelNames)) {
			return fmt.Errorf("unknown level %d", n)
		}
		*l = Level(n)
		return nil
	}
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("level %s: %w", b, err)
	}
	for i, s := range levelNames {
		if s == name {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", name)
}

// jsonFields are the fields shared by both JSON formats.
type jsonFields struct {
	Level  Level     `json:"level"`
	Time   time.Time `json:"time"`
	Caller string    `json:"caller,omitempty"`
	Space  string    `json:"space,omitempty"`
}

// newJSONFields fills in the fields of a statement logged depth frames above
// its caller.
func newJSONFields(depth int, level Level, timestamp time.Time, space string) jsonFields {
	return jsonFields{
		Level:  level,
		Time:   timestamp,
		Caller: caller(depth + 1),
		Space:  space,
	}
}

// writeJSON writes rec to w as a single line.
func writeJSON(w *Writer, rec any) {
	b, err := json.Marshal(rec)
	if err != nil {
		panic(err)
	}
	w.Write(b)
}

type jsonLog struct {
	Msg string `json:"msg"`
	jsonFields
}

// JSONEmitter logs one JSON object per statement, with the message in "msg".
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	e.emit(depth+1, level, timestamp, "", format, v...)
}

// EmitSpace implements SpaceEmitter.EmitSpace.
func (e JSONEmitter) EmitSpace(depth int, level Level, timestamp time.Time, space, format string, v ...any) {
	e.emit(depth+1, level, timestamp, space, format, v...)
}

func (e JSONEmitter) emit(depth int, level Level, timestamp time.Time, space, format string, v ...any) {
	writeJSON(e.Writer, jsonLog{
		Msg:        fmt.Sprintf(format, v...),
		jsonFields: newJSONFields(depth+1, level, timestamp, space),
	})
}

type k8sJSONLog struct {
	Log string `json:"log"`
	jsonFields
}

// K8sJSONEmitter logs JSON in the layout expected by the Kubernetes fluent
// configuration, with the message in "log".
type K8sJSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e K8sJSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	e.emit(depth+1, level, timestamp, "", format, v...)
}

// EmitSpace implements SpaceEmitter.EmitSpace.
func (e K8sJSONEmitter) EmitSpace(depth int, level Level, timestamp time.Time, space, format string, v ...any) {
	e.emit(depth+1, level, timestamp, space, format, v...)
}

func (e K8sJSONEmitter) emit(depth int, level Level, timestamp time.Time, space, format string, v ...any) {
	writeJSON(e.Writer, k8sJSONLog{
		Log:        fmt.Sprintf(format, v...),
		jsonFields: newJSONFields(depth+1, level, timestamp, space),
	})
}
