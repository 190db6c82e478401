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

import "time"

// SpaceEmitter is implemented by emitters that record the address space a
// statement is about as a field of its own.
type SpaceEmitter interface {
	// EmitSpace is Emit for a statement about the address space named space.
	EmitSpace(depth int, level Level, timestamp time.Time, space, format string, v ...any)
}

// emitSpace passes a statement about space to e. Emitters that do not
// implement SpaceEmitter get the name as a message prefix. depth counts the
// frames between the logging call and emitSpace.
func emitSpace(e Emitter, depth int, level Level, timestamp time.Time, space, format string, v ...any) {
	if se, ok := e.(SpaceEmitter); ok {
		se.EmitSpace(depth+1, level, timestamp, space, format, v...)
		return
	}
	e.Emit(depth+1, level, timestamp, "%s: "+format, append([]any{space}, v...)...)
}

// EmitSpace implements SpaceEmitter.EmitSpace.
func (m *MultiEmitter) EmitSpace(depth int, level Level, timestamp time.Time, space, format string, v ...any) {
	for _, e := range *m {
		emitSpace(e, depth+1, level, timestamp, space, format, v...)
	}
}

// SpaceLogger is a Logger for statements about a single address space. It
// logs through the global logger.
type SpaceLogger struct {
	// Space is the address space name.
	Space string
}

var _ Logger = (*SpaceLogger)(nil)

// ForSpace returns a SpaceLogger for the address space named name.
func ForSpace(name string) *SpaceLogger {
	return &SpaceLogger{Space: name}
}

func (l *SpaceLogger) emit(level Level, format string, v ...any) {
	bl := Log()
	if bl.IsLogging(level) {
		emitSpace(bl.Emitter, 2, level, time.Now(), l.Space, format, v...)
	}
}

// Debugf implements Logger.Debugf.
func (l *SpaceLogger) Debugf(format string, v ...any) {
	l.emit(Debug, format, v...)
}

// Infof implements Logger.Infof.
func (l *SpaceLogger) Infof(format string, v ...any) {
	l.emit(Info, format, v...)
}

// Warningf implements Logger.Warningf.
func (l *SpaceLogger) Warningf(format string, v ...any) {
	l.emit(Warning, format, v...)
}

// IsLogging implements Logger.IsLogging.
func (l *SpaceLogger) IsLogging(level Level) bool {
	return Log().IsLogging(level)
}
