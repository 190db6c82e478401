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
	"time"

	"github.com/sirupsen/logrus"
)

// LogrusEmitter forwards log statements to a logrus logger. It is used when
// the address space library is embedded in a host that already configures
// logrus for its own output.
type LogrusEmitter struct {
	Logger *logrus.Logger
}

// NewLogrusEmitter returns an emitter for the given logger, or for the logrus
// standard logger if l is nil.
func NewLogrusEmitter(l *logrus.Logger) LogrusEmitter {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return LogrusEmitter{Logger: l}
}

// Emit implements Emitter.Emit.
func (e LogrusEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	e.emit(e.Logger.WithTime(timestamp), depth+1, level, format, v...)
}

// EmitSpace implements SpaceEmitter.EmitSpace. The address space name is
// logged in the "space" field.
func (e LogrusEmitter) EmitSpace(depth int, level Level, timestamp time.Time, space, format string, v ...any) {
	e.emit(e.Logger.WithTime(timestamp).WithField("space", space), depth+1, level, format, v...)
}

func (e LogrusEmitter) emit(entry *logrus.Entry, depth int, level Level, format string, v ...any) {
	entry = entry.WithField("caller", caller(depth+1))
	switch level {
	case Warning:
		entry.Warnf(format, v...)
	case Info:
		entry.Infof(format, v...)
	default:
		entry.Debugf(format, v...)
	}
}

// logrusLevel maps a Level to the logrus level that lets it through.
func logrusLevel(l Level) logrus.Level {
	switch l {
	case Warning:
		return logrus.WarnLevel
	case Info:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// SyncLevel makes the logrus logger accept every statement the global
// logger lets through at level l.
func (e LogrusEmitter) SyncLevel(l Level) {
	e.Logger.SetLevel(logrusLevel(l))
}
