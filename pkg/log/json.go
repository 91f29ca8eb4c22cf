// Copyright 2018 The gVisor Authors.
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
	"io"
	"runtime"
	"strings"
	"time"
)

// Record is one line of JSON log output. The JSON emitter writes records at
// the log levels; ddkctl writes "error" records for failed commands, with
// the status class of the failure when it carries one.
type Record struct {
	Msg    string    `json:"msg"`
	Level  string    `json:"level"`
	Status string    `json:"status,omitempty"`
	Time   time.Time `json:"time"`
}

// WriteRecord writes r to w as a single newline-terminated JSON object.
func WriteRecord(w io.Writer, r Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// name returns the lower-case name used for l in JSON records.
func (l Level) name() (string, bool) {
	switch l {
	case Warning:
		return "warning", true
	case Info:
		return "info", true
	case Debug:
		return "debug", true
	default:
		return "", false
	}
}

// MarshalJSON implements json.Marshaler.MarashalJSON.
func (l Level) MarshalJSON() ([]byte, error) {
	n, ok := l.name()
	if !ok {
		return nil, fmt.Errorf("unknown level %v", l)
	}
	return []byte(`"` + n + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.UnmarshalJSON.  It can unmarshal
// from both string names and integers.
func (l *Level) UnmarshalJSON(b []byte) error {
	switch s := string(b); s {
	case "0", `"warning"`:
		*l = Warning
	case "1", `"info"`:
		*l = Info
	case "2", `"debug"`:
		*l = Debug
	default:
		return fmt.Errorf("unknown level %q", s)
	}
	return nil
}

// JSONEmitter logs messages in json format.
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	logLine := fmt.Sprintf(format, v...)
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		if slash := strings.LastIndexByte(file, byte('/')); slash >= 0 {
			file = file[slash+1:] // Trim any directory path from the file.
		}
		logLine = fmt.Sprintf("%s:%d] %s", file, line, logLine)
	}
	n, ok := level.name()
	if !ok {
		panic(fmt.Sprintf("unknown level %v", level))
	}
	// Writer counts its own failures; there is nothing to report them to.
	_ = WriteRecord(e.Writer, Record{
		Msg:   logLine,
		Level: n,
		Time:  timestamp,
	})
}
