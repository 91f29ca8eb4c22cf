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

// Package dmapool manages banks of fixed-size memory blocks.
//
// Every bank keeps two lists in a shared list.Table: the pool list holds
// the elements of free blocks and the dangling list holds one element per
// block handed out. Get moves an element from the pool tail to the
// dangling head; Put moves any dangling element back to the pool head,
// carrying the returned block. A bank can be sealed while no block is
// outstanding, after which Get fails until it is unsealed.
package dmapool

import (
	"fmt"
	"os"
	"time"

	"ddk.dev/ddk/pkg/bitmap"
	"ddk.dev/ddk/pkg/errors"
	"ddk.dev/ddk/pkg/list"
	"ddk.dev/ddk/pkg/log"
	"ddk.dev/ddk/pkg/memutil"
	"ddk.dev/ddk/pkg/sync"
)

var (
	// ErrSealed is returned by Get on a sealed bank.
	ErrSealed = errors.New(errors.Unavailable, "dmapool: bank is sealed")

	// ErrExhausted is returned by Get when every block is outstanding.
	ErrExhausted = errors.New(errors.Unavailable, "dmapool: out of blocks")

	// ErrForeignBlock is returned by Put for a block of another bank.
	ErrForeignBlock = errors.New(errors.BadArgument, "dmapool: block does not belong to bank")

	// ErrNotOutstanding is returned by Put for a block that is already free.
	ErrNotOutstanding = errors.New(errors.BadArgument, "dmapool: block is not outstanding")
)

// Options control how a Pool is built.
type Options struct {
	// Heap backs banks with Go heap memory instead of anonymous host
	// mappings.
	Heap bool

	// Logger receives failure reports from Get and Put. If nil, the global
	// logger is used, limited to one report per second.
	Logger log.Logger
}

// Block is a block obtained from a Bank.
type Block struct {
	bank  *Bank
	index int

	// Data is the block memory. Its length and capacity are the bank's
	// block size.
	Data []byte
}

// Index returns the position of the block within its bank.
func (b Block) Index() int {
	return b.index
}

// Stats is a snapshot of a bank's state.
type Stats struct {
	Name        string
	Blocks      int
	BlockSize   int
	Free        uint
	Outstanding uint
	Sealed      bool
}

// Bank is a set of equally sized blocks.
type Bank struct {
	name      string
	blocks    int
	blockSize int
	stride    int
	heap      bool
	logger    log.Logger

	table      *list.Table
	poolID     uint
	danglingID uint

	// elems holds one list element per block. Each element is linked into
	// exactly one of the pool or dangling lists at any time.
	elems []list.Element

	// mu protects the fields below and the bank's two lists.
	mu          sync.Mutex
	mem         []byte
	sealed      bool
	outstanding bitmap.Bitmap
}

// Pool is a set of banks sharing one list table.
type Pool struct {
	table  *list.Table
	banks  []*Bank
	byName map[string]*Bank

	closeOnce sync.Once
	closeErr  error
}

// New builds a pool with one bank per configured entry. Bank i uses list
// ids 2i (pool) and 2i+1 (dangling) in the pool's table.
func New(cfg *Config, opts Options) (*Pool, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	table, err := list.NewTable(list.Config{
		MaxInstances: uint(2 * len(cfg.Banks)),
		StrictArgs:   true,
	})
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.BasicRateLimitedLogger(time.Second)
	}

	p := &Pool{
		table:  table,
		byName: make(map[string]*Bank, len(cfg.Banks)),
	}
	var listID uint
	for _, bc := range cfg.Banks {
		b, err := newBank(bc, table, listID, listID+1, opts.Heap, logger)
		if err != nil {
			p.Close()
			return nil, err
		}
		listID += 2
		p.banks = append(p.banks, b)
		p.byName[b.name] = b
		log.Infof("dmapool: bank %q: %d blocks of %d bytes (stride %d, align %d), heap=%t", b.name, b.blocks, b.blockSize, b.stride, bc.Align, b.heap)
	}
	return p, nil
}

func newBank(bc BankConfig, table *list.Table, poolID, danglingID uint, heap bool, logger log.Logger) (*Bank, error) {
	b := &Bank{
		name:        bc.Name,
		blocks:      bc.Blocks,
		blockSize:   bc.BlockSize,
		stride:      bc.stride(),
		heap:        heap,
		logger:      logger,
		table:       table,
		poolID:      poolID,
		danglingID:  danglingID,
		elems:       make([]list.Element, bc.Blocks),
		outstanding: bitmap.New(uint32(bc.Blocks)),
	}
	size := b.stride * b.blocks
	if heap {
		b.mem = heapAligned(size, bc.Align)
	} else {
		if bc.Align > os.Getpagesize() {
			return nil, fmt.Errorf("bank %q: align %d exceeds the page size of mapped banks", b.name, bc.Align)
		}
		m, err := memutil.MapAnonymous(size)
		if err != nil {
			return nil, fmt.Errorf("bank %q: %w", b.name, err)
		}
		b.mem = m
	}

	if err := table.Init(poolID, nil); err != nil {
		b.release()
		return nil, fmt.Errorf("bank %q: init pool list: %w", b.name, err)
	}
	if err := table.Init(danglingID, nil); err != nil {
		b.release()
		return nil, fmt.Errorf("bank %q: init dangling list: %w", b.name, err)
	}
	for i := range b.elems {
		e := &b.elems[i]
		e.Object = i
		if err := table.AddToHead(poolID, nil, e); err != nil {
			b.release()
			return nil, fmt.Errorf("bank %q: add block %d: %w", b.name, i, err)
		}
	}
	return b, nil
}

// Bank returns the bank with the given name.
func (p *Pool) Bank(name string) (*Bank, bool) {
	b, ok := p.byName[name]
	return b, ok
}

// Banks returns all banks in configuration order.
func (p *Pool) Banks() []*Bank {
	return append([]*Bank(nil), p.banks...)
}

// Close frees every bank. Blocks still outstanding become invalid. Close is
// idempotent and returns the first error encountered.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		for _, b := range p.banks {
			if err := b.free(); err != nil && p.closeErr == nil {
				p.closeErr = err
			}
		}
	})
	return p.closeErr
}

// Name returns the bank name.
func (b *Bank) Name() string {
	return b.name
}

// BlockSize returns the usable size of each block.
func (b *Bank) BlockSize() int {
	return b.blockSize
}

// block returns the memory of block i.
func (b *Bank) block(i int) []byte {
	off := i * b.stride
	return b.mem[off : off+b.blockSize : off+b.blockSize]
}

// Get takes a free block from the bank. After the pool is closed Get
// always fails with ErrExhausted.
func (b *Bank) Get() (Block, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		b.logger.Warningf("dmapool: bank %q: get failed, bank is sealed", b.name)
		return Block{}, ErrSealed
	}

	e, err := b.table.RemoveFromTail(b.poolID, nil)
	if err != nil {
		b.logger.Warningf("dmapool: bank %q: get failed, out of list elements", b.name)
		return Block{}, ErrExhausted
	}
	if err := b.table.AddToHead(b.danglingID, nil, e); err != nil {
		b.logger.Warningf("dmapool: bank %q: get failed to add to dangling list: %v", b.name, err)
		// Keep the element accounted for.
		if rerr := b.table.AddToHead(b.poolID, nil, e); rerr != nil {
			b.logger.Warningf("dmapool: bank %q: block %v lost returning it to the pool list: %v", b.name, e.Object, rerr)
		}
		return Block{}, fmt.Errorf("bank %q: %w", b.name, err)
	}

	i := e.Object.(int)
	b.outstanding.Add(uint32(i))
	return Block{bank: b, index: i, Data: b.block(i)}, nil
}

// Put returns a block obtained from Get to the bank.
func (b *Bank) Put(blk Block) error {
	if blk.bank != b || blk.index < 0 || blk.index >= b.blocks {
		b.logger.Warningf("dmapool: bank %q: put of foreign block %d", b.name, blk.index)
		return ErrForeignBlock
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.outstanding.Contains(uint32(blk.index)) {
		b.logger.Warningf("dmapool: bank %q: put of free block %d", b.name, blk.index)
		return ErrNotOutstanding
	}

	// Any dangling element can carry the returned block back to the pool.
	e, err := b.table.RemoveFromTail(b.danglingID, nil)
	if err != nil {
		b.logger.Warningf("dmapool: bank %q: put failed: %v", b.name, err)
		return fmt.Errorf("bank %q: dangling list empty with block %d outstanding: %w", b.name, blk.index, list.ErrInternal)
	}
	e.Object = blk.index
	if err := b.table.AddToHead(b.poolID, nil, e); err != nil {
		b.logger.Warningf("dmapool: bank %q: put failed: %v", b.name, err)
		return fmt.Errorf("bank %q: %w", b.name, err)
	}
	b.outstanding.Remove(uint32(blk.index))
	return nil
}

// Seal prevents further Gets. It succeeds only if the bank is not already
// sealed and no block is outstanding.
func (b *Bank) Seal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return false
	}
	n, err := b.table.Count(b.danglingID, nil)
	if err != nil {
		b.logger.Warningf("dmapool: bank %q: seal failed for list %d: %v", b.name, b.danglingID, err)
		return false
	}
	if n != 0 {
		return false
	}
	b.sealed = true
	return true
}

// Unseal reverses Seal. It returns false if the bank was not sealed.
func (b *Bank) Unseal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.sealed {
		return false
	}
	b.sealed = false
	return true
}

// Outstanding returns the number of blocks handed out and not yet put back.
func (b *Bank) Outstanding() uint {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, _ := b.table.Count(b.danglingID, nil)
	return n
}

// Free returns the number of blocks available to Get.
func (b *Bank) Free() uint {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, _ := b.table.Count(b.poolID, nil)
	return n
}

// Stats returns a snapshot of the bank.
func (b *Bank) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	free, _ := b.table.Count(b.poolID, nil)
	dangling, _ := b.table.Count(b.danglingID, nil)
	return Stats{
		Name:        b.name,
		Blocks:      b.blocks,
		BlockSize:   b.blockSize,
		Free:        free,
		Outstanding: dangling,
		Sealed:      b.sealed,
	}
}

// free empties both lists and releases the bank memory.
func (b *Bank) free() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n, _ := b.table.Count(b.danglingID, nil); n != 0 {
		log.Warningf("dmapool: bank %q: freeing with %d blocks outstanding", b.name, n)
	}
	b.table.Uninit(b.poolID, nil)
	b.table.Uninit(b.danglingID, nil)
	b.outstanding.Reset()
	return b.release()
}

// release drops the bank memory. Callers hold mu or own b exclusively.
func (b *Bank) release() error {
	m := b.mem
	b.mem = nil
	if m == nil || b.heap {
		return nil
	}
	if err := memutil.Unmap(m); err != nil {
		return fmt.Errorf("bank %q: unmap: %w", b.name, err)
	}
	return nil
}
