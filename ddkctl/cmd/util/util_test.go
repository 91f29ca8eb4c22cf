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

package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"ddk.dev/ddk/pkg/dmapool"
	"ddk.dev/ddk/pkg/list"
	"ddk.dev/ddk/pkg/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
)

func TestErrorRecord(t *testing.T) {
	now := time.Unix(10, 0).UTC()
	for _, tc := range []struct {
		name   string
		format string
		args   []any
		want   log.Record
	}{
		{
			name:   "plain",
			format: "rounds must not be negative, got %d",
			args:   []any{-1},
			want:   log.Record{Msg: "rounds must not be negative, got -1", Level: "error", Time: now},
		},
		{
			name:   "pool",
			format: "bank %q round %d: %v",
			args:   []any{"sa", 0, dmapool.ErrExhausted},
			want:   log.Record{Msg: `bank "sa" round 0: dmapool: out of blocks`, Level: "error", Status: "unavailable", Time: now},
		},
		{
			name:   "wrapped",
			format: "%v",
			args:   []any{fmt.Errorf("step 3: %w", list.ErrBadArgument)},
			want:   log.Record{Msg: "step 3: list: bad argument", Level: "error", Status: "bad argument", Time: now},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := errorRecord(now, tc.format, tc.args...)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("errorRecord() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorfWritesRecord(t *testing.T) {
	var buf bytes.Buffer
	ErrorLogger = &buf
	defer func() { ErrorLogger = nil }()

	if got := Errorf("get: %v", dmapool.ErrSealed); got != subcommands.ExitFailure {
		t.Errorf("Errorf() = %v, want: %v", got, subcommands.ExitFailure)
	}
	var r log.Record
	if err := json.Unmarshal(buf.Bytes(), &r); err != nil {
		t.Fatalf("error unmarshaling %q: %v", buf.String(), err)
	}
	if r.Msg != "get: dmapool: bank is sealed" || r.Level != "error" || r.Status != "unavailable" {
		t.Errorf("got record %+v, want sealed bank error with status unavailable", r)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("}\n")) {
		t.Errorf("record %q is not newline-terminated", buf.String())
	}
}
