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
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultAlign is the block alignment used when a bank does not set one.
	DefaultAlign = 8

	// MaxBlocks is the largest number of blocks in a bank.
	MaxBlocks = 1 << 24
)

// BankConfig describes one bank of equally sized blocks.
type BankConfig struct {
	// Name identifies the bank within its pool.
	Name string `toml:"name"`

	// Blocks is the number of blocks in the bank.
	Blocks int `toml:"blocks"`

	// BlockSize is the usable size of each block in bytes. Blocks are
	// spaced by BlockSize rounded up to Align.
	BlockSize int `toml:"block_size"`

	// Align is the block alignment in bytes. It must be a power of two.
	Align int `toml:"align"`
}

// Config is the configuration of a Pool.
type Config struct {
	Banks []BankConfig `toml:"bank"`
}

// LoadConfig loads a pool configuration from a TOML file:
//
//	[[bank]]
//	name = "sa"
//	blocks = 64
//	block_size = 256
//	align = 64
func LoadConfig(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("decoding pool config %q: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("pool config %q: %w", path, err)
	}
	return &c, nil
}

// validate checks c and fills in default alignments.
func (c *Config) validate() error {
	if len(c.Banks) == 0 {
		return fmt.Errorf("no banks configured")
	}
	seen := make(map[string]bool, len(c.Banks))
	for i := range c.Banks {
		b := &c.Banks[i]
		if b.Name == "" {
			return fmt.Errorf("bank %d has no name", i)
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate bank name %q", b.Name)
		}
		seen[b.Name] = true
		if b.Blocks <= 0 || b.Blocks > MaxBlocks {
			return fmt.Errorf("bank %q: blocks must be in [1, %d], got %d", b.Name, MaxBlocks, b.Blocks)
		}
		if b.BlockSize <= 0 {
			return fmt.Errorf("bank %q: block_size must be positive, got %d", b.Name, b.BlockSize)
		}
		if b.Align == 0 {
			b.Align = DefaultAlign
		}
		if b.Align < 0 || b.Align&(b.Align-1) != 0 {
			return fmt.Errorf("bank %q: align must be a power of two, got %d", b.Name, b.Align)
		}
		// The bank size plus alignment slack must fit in an int.
		if b.BlockSize > math.MaxInt-b.Align {
			return fmt.Errorf("bank %q: block_size %d too large", b.Name, b.BlockSize)
		}
		if b.stride() > (math.MaxInt-b.Align)/b.Blocks {
			return fmt.Errorf("bank %q: %d blocks of %d bytes overflow the bank size", b.Name, b.Blocks, b.stride())
		}
	}
	return nil
}

// stride returns the distance in bytes between consecutive blocks.
func (b *BankConfig) stride() int {
	return (b.BlockSize + b.Align - 1) &^ (b.Align - 1)
}
