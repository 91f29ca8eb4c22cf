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

package dmapool

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unsafe"

	"ddk.dev/ddk/pkg/errors"
	"ddk.dev/ddk/pkg/log"
	"ddk.dev/ddk/pkg/sync"
	"github.com/google/go-cmp/cmp"
)

func testConfig() *Config {
	return &Config{Banks: []BankConfig{
		{Name: "sa", Blocks: 4, BlockSize: 100, Align: 64},
		{Name: "token", Blocks: 2, BlockSize: 16},
	}}
}

func newPool(t *testing.T, cfg *Config, heap bool) *Pool {
	t.Helper()
	p, err := New(cfg, Options{Heap: heap, Logger: &log.BasicLogger{Level: log.Debug, Emitter: &log.TestEmitter{TestLogger: t}}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		if err := p.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return p
}

func mustBank(t *testing.T, p *Pool, name string) *Bank {
	t.Helper()
	b, ok := p.Bank(name)
	if !ok {
		t.Fatalf("bank %q not found", name)
	}
	return b
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.toml")
	data := `
[[bank]]
name = "sa"
blocks = 64
block_size = 256
align = 64

[[bank]]
name = "token"
blocks = 8
block_size = 120
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	want := &Config{Banks: []BankConfig{
		{Name: "sa", Blocks: 64, BlockSize: 256, Align: 64},
		{Name: "token", Blocks: 8, BlockSize: 120, Align: DefaultAlign},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name  string
		banks []BankConfig
	}{
		{name: "empty"},
		{name: "no name", banks: []BankConfig{{Blocks: 1, BlockSize: 1}}},
		{name: "duplicate", banks: []BankConfig{{Name: "a", Blocks: 1, BlockSize: 1}, {Name: "a", Blocks: 1, BlockSize: 1}}},
		{name: "no blocks", banks: []BankConfig{{Name: "a", BlockSize: 1}}},
		{name: "too many blocks", banks: []BankConfig{{Name: "a", Blocks: MaxBlocks + 1, BlockSize: 1}}},
		{name: "huge block", banks: []BankConfig{{Name: "a", Blocks: 1, BlockSize: math.MaxInt}}},
		{name: "huge bank", banks: []BankConfig{{Name: "a", Blocks: MaxBlocks, BlockSize: math.MaxInt / 4}}},
		{name: "no size", banks: []BankConfig{{Name: "a", Blocks: 1}}},
		{name: "bad align", banks: []BankConfig{{Name: "a", Blocks: 1, BlockSize: 1, Align: 24}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := &Config{Banks: tc.banks}
			if err := c.validate(); err == nil {
				t.Errorf("validate(%+v) succeeded, want error", tc.banks)
			}
		})
	}
}

func TestGetPut(t *testing.T) {
	for _, heap := range []bool{false, true} {
		p := newPool(t, testConfig(), heap)
		b := mustBank(t, p, "sa")

		var blocks []Block
		for i := 0; i < 4; i++ {
			blk, err := b.Get()
			if err != nil {
				t.Fatalf("heap=%t: Get %d failed: %v", heap, i, err)
			}
			if len(blk.Data) != 100 || cap(blk.Data) != 100 {
				t.Errorf("heap=%t: block len=%d cap=%d, want: 100", heap, len(blk.Data), cap(blk.Data))
			}
			if addr := uintptr(unsafe.Pointer(&blk.Data[0])); addr%64 != 0 {
				t.Errorf("heap=%t: block %d at 0x%x is not 64-byte aligned", heap, blk.Index(), addr)
			}
			blocks = append(blocks, blk)
		}
		// Blocks are handed out in the order they were added to the pool.
		for i, blk := range blocks {
			if blk.Index() != i {
				t.Errorf("heap=%t: Get %d returned block %d", heap, i, blk.Index())
			}
		}
		if _, err := b.Get(); err != ErrExhausted {
			t.Errorf("heap=%t: Get on empty bank: got %v, want: %v", heap, err, ErrExhausted)
		}
		if got := b.Outstanding(); got != 4 {
			t.Errorf("heap=%t: Outstanding() = %d, want: 4", heap, got)
		}
		if got := b.Free(); got != 0 {
			t.Errorf("heap=%t: Free() = %d, want: 0", heap, got)
		}

		blocks[2].Data[0] = 0xaa
		if err := b.Put(blocks[2]); err != nil {
			t.Fatalf("heap=%t: Put failed: %v", heap, err)
		}
		again, err := b.Get()
		if err != nil {
			t.Fatalf("heap=%t: Get after Put failed: %v", heap, err)
		}
		if again.Index() != 2 || again.Data[0] != 0xaa {
			t.Errorf("heap=%t: Get after Put returned block %d (first byte %#x), want block 2", heap, again.Index(), again.Data[0])
		}
	}
}

func TestPutErrors(t *testing.T) {
	p := newPool(t, testConfig(), true)
	sa, token := mustBank(t, p, "sa"), mustBank(t, p, "token")

	blk, err := token.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := sa.Put(blk); err != ErrForeignBlock {
		t.Errorf("Put of foreign block: got %v, want: %v", err, ErrForeignBlock)
	}
	if err := sa.Put(Block{}); err != ErrForeignBlock {
		t.Errorf("Put of zero block: got %v, want: %v", err, ErrForeignBlock)
	}
	if err := token.Put(blk); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := token.Put(blk); err != ErrNotOutstanding {
		t.Errorf("double Put: got %v, want: %v", err, ErrNotOutstanding)
	}
	if errors.StatusOf(ErrNotOutstanding) != errors.BadArgument {
		t.Errorf("ErrNotOutstanding status = %v, want: %v", errors.StatusOf(ErrNotOutstanding), errors.BadArgument)
	}

	want := Stats{Name: "token", Blocks: 2, BlockSize: 16, Free: 2}
	if diff := cmp.Diff(want, token.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestSeal(t *testing.T) {
	p := newPool(t, testConfig(), true)
	b := mustBank(t, p, "sa")

	blk, err := b.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if b.Seal() {
		t.Errorf("Seal succeeded with a block outstanding")
	}
	if err := b.Put(blk); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !b.Seal() {
		t.Fatalf("Seal failed with no block outstanding")
	}
	if b.Seal() {
		t.Errorf("Seal of a sealed bank succeeded")
	}
	if _, err := b.Get(); err != ErrSealed {
		t.Errorf("Get on sealed bank: got %v, want: %v", err, ErrSealed)
	}
	if !b.Stats().Sealed {
		t.Errorf("Stats().Sealed = false on sealed bank")
	}
	if !b.Unseal() {
		t.Fatalf("Unseal failed")
	}
	if b.Unseal() {
		t.Errorf("Unseal of an unsealed bank succeeded")
	}
	if _, err := b.Get(); err != nil {
		t.Errorf("Get after Unseal failed: %v", err)
	}
}

func TestConcurrentGetPut(t *testing.T) {
	const (
		workers = 8
		rounds  = 200
	)
	p := newPool(t, &Config{Banks: []BankConfig{{Name: "c", Blocks: 4, BlockSize: 32}}}, true)
	b := mustBank(t, p, "c")

	var (
		mu       sync.Mutex
		inUse    = make(map[int]bool)
		failures []string
		done     = make(chan struct{})
	)
	for w := 0; w < workers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < rounds; i++ {
				blk, err := b.Get()
				if err != nil {
					continue
				}
				mu.Lock()
				if inUse[blk.Index()] {
					failures = append(failures, "block handed out twice")
				}
				inUse[blk.Index()] = true
				mu.Unlock()

				mu.Lock()
				delete(inUse, blk.Index())
				mu.Unlock()
				if err := b.Put(blk); err != nil {
					mu.Lock()
					failures = append(failures, err.Error())
					mu.Unlock()
				}
			}
		}()
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	if len(failures) != 0 {
		t.Errorf("concurrent use failed: %v", failures)
	}
	if got := b.Stats(); got.Free != 4 || got.Outstanding != 0 {
		t.Errorf("after concurrent use: %+v, want all blocks free", got)
	}
}

func TestClose(t *testing.T) {
	p, err := New(testConfig(), Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b := mustBank(t, p, "sa")
	if _, err := b.Get(); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := b.Get(); err != ErrExhausted {
		t.Errorf("Get after Close: got %v, want: %v", err, ErrExhausted)
	}
	if got := len(p.Banks()); got != 2 {
		t.Errorf("len(Banks()) = %d, want: 2", got)
	}
}

func TestMappedAlignExceedsPage(t *testing.T) {
	align := 2 * os.Getpagesize()
	cfg := &Config{Banks: []BankConfig{{Name: "huge", Blocks: 1, BlockSize: 8, Align: align}}}
	if _, err := New(cfg, Options{}); err == nil {
		t.Errorf("New with align %d on mapped memory succeeded, want error", align)
	}
	p, err := New(cfg, Options{Heap: true})
	if err != nil {
		t.Fatalf("New with align %d on heap memory failed: %v", align, err)
	}
	defer p.Close()
	blk, err := mustBank(t, p, "huge").Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if addr := uintptr(unsafe.Pointer(&blk.Data[0])); addr%uintptr(align) != 0 {
		t.Errorf("block address 0x%x not aligned to %d", addr, align)
	}
}

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, string(b))
	return len(b), nil
}

func TestGetRestoresBlockOnDanglingFailure(t *testing.T) {
	rec := &lineRecorder{}
	cfg := &Config{Banks: []BankConfig{{Name: "r", Blocks: 2, BlockSize: 8}}}
	p, err := New(cfg, Options{Heap: true, Logger: &log.BasicLogger{Level: log.Debug, Emitter: &log.Writer{Next: rec}}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()
	b := mustBank(t, p, "r")

	// Point the dangling list outside the table so that adding to it fails.
	danglingID := b.danglingID
	b.danglingID = p.table.Len()
	_, err = b.Get()
	b.danglingID = danglingID

	if got := errors.StatusOf(err); got != errors.BadArgument {
		t.Errorf("Get with broken dangling list: status %v (%v), want: %v", got, err, errors.BadArgument)
	}
	if got := b.Free(); got != 2 {
		t.Errorf("Free() = %d after failed Get, want: 2", got)
	}
	if got := b.Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d after failed Get, want: 0", got)
	}
	if len(rec.lines) == 0 || !strings.Contains(rec.lines[0], "failed to add to dangling list") {
		t.Errorf("logged %q, want dangling list failure", rec.lines)
	}
	for _, l := range rec.lines {
		if strings.Contains(l, "lost") {
			t.Errorf("logged %q, want the block returned to the pool list", l)
		}
	}

	// The restored block is handed out normally.
	blk, err := b.Get()
	if err != nil {
		t.Fatalf("Get after recovery failed: %v", err)
	}
	if err := b.Put(blk); err != nil {
		t.Errorf("Put after recovery failed: %v", err)
	}
}
