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
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// GoogleEmitter emits statements in the glog text format:
//
//	Lmmdd hh:mm:ss.uuuuuu pid file:line] [space] msg
//
// L is the level letter. The bracketed address space name is only present
// for statements made through a SpaceLogger.
type GoogleEmitter struct {
	*Writer
}

// glogTime is the timestamp layout of the glog header.
const glogTime = "0102 15:04:05.000000"

// pid is padded to the width glog uses for thread IDs.
var pid = fmt.Sprintf("%7d", os.Getpid())

// letter returns the glog level letter of l.
func (l Level) letter() byte {
	switch l {
	case Warning:
		return 'W'
	case Info:
		return 'I'
	default:
		return 'D'
	}
}

// caller returns "file:line" for the frame depth frames above the caller of
// caller, without the directory.
func caller(depth int) string {
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// Emit implements Emitter.Emit.
func (g GoogleEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	g.emit(depth+1, level, timestamp, "", format, v...)
}

// EmitSpace implements SpaceEmitter.EmitSpace.
func (g GoogleEmitter) EmitSpace(depth int, level Level, timestamp time.Time, space, format string, v ...any) {
	g.emit(depth+1, level, timestamp, space, format, v...)
}

func (g GoogleEmitter) emit(depth int, level Level, timestamp time.Time, space, format string, v ...any) {
	var b strings.Builder
	b.WriteByte(level.letter())
	b.WriteString(timestamp.Format(glogTime))
	b.WriteByte(' ')
	b.WriteString(pid)
	b.WriteByte(' ')
	b.WriteString(caller(depth + 1))
	b.WriteString("] ")
	if space != "" {
		fmt.Fprintf(&b, "[%s] ", space)
	}
	fmt.Fprintf(&b, format, v...)
	b.WriteByte('\n')
	g.Writer.Write([]byte(b.String()))
}
