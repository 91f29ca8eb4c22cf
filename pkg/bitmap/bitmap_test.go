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

package bitmap

import (
	"testing"
)

func TestAddRemove(t *testing.T) {
	b := New(64)
	for _, i := range []uint32{0, 63, 64, 1000} {
		b.Add(i)
		b.Add(i)
		if !b.Contains(i) {
			t.Errorf("Contains(%d) = false after Add", i)
		}
	}
	if got := b.GetNumOnes(); got != 4 {
		t.Errorf("GetNumOnes() = %d, want: 4", got)
	}
	if b.Contains(65) || b.Contains(5000) {
		t.Errorf("Contains reported entries never added")
	}

	b.Remove(63)
	b.Remove(63)
	b.Remove(1 << 20)
	if b.Contains(63) {
		t.Errorf("Contains(63) = true after Remove")
	}
	if got := b.GetNumOnes(); got != 3 {
		t.Errorf("GetNumOnes() = %d, want: 3", got)
	}

	b.Reset()
	if !b.IsEmpty() || b.Contains(0) {
		t.Errorf("bitmap not empty after Reset")
	}
}

func TestZeroValue(t *testing.T) {
	var b Bitmap
	if !b.IsEmpty() {
		t.Errorf("zero Bitmap is not empty")
	}
	b.Add(130)
	if !b.Contains(130) || b.GetNumOnes() != 1 {
		t.Errorf("zero Bitmap did not grow on Add")
	}
}
