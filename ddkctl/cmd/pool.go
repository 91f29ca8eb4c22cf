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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"ddk.dev/ddk/ddkctl/cmd/util"
	"ddk.dev/ddk/ddkctl/config"
	"ddk.dev/ddk/pkg/dmapool"
	"ddk.dev/ddk/pkg/log"
	"github.com/google/subcommands"
)

// Pool implements subcommands.Command for the "pool" command.
type Pool struct {
	rounds int
	heap   bool
	seal   bool
}

// Name implements subcommands.Command.Name.
func (*Pool) Name() string {
	return "pool"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Pool) Synopsis() string {
	return "exercise the DMA block pool described by a configuration file"
}

// Usage implements subcommands.Command.Usage.
func (*Pool) Usage() string {
	return `pool [flags] [pool.toml] - drain and refill every bank, then print bank statistics.

The configuration file defaults to --pool-config.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (p *Pool) SetFlags(f *flag.FlagSet) {
	f.IntVar(&p.rounds, "rounds", 1, "number of drain/refill cycles per bank.")
	f.BoolVar(&p.heap, "heap", false, "back banks with heap memory instead of anonymous mappings.")
	f.BoolVar(&p.seal, "seal", false, "seal every bank after the last cycle.")
}

// Execute implements subcommands.Command.Execute.
func (p *Pool) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	conf := args[0].(*config.Config)
	path := conf.PoolConfig
	switch f.NArg() {
	case 0:
	case 1:
		path = f.Arg(0)
	default:
		f.Usage()
		return subcommands.ExitUsageError
	}
	if path == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if p.rounds < 0 {
		return util.Errorf("rounds must not be negative, got %d", p.rounds)
	}

	cfg, err := dmapool.LoadConfig(path)
	if err != nil {
		return util.Errorf("%v", err)
	}
	pool, err := dmapool.New(cfg, dmapool.Options{Heap: p.heap})
	if err != nil {
		return util.Errorf("creating pool: %v", err)
	}
	defer pool.Close()

	for _, b := range pool.Banks() {
		for i := 0; i < p.rounds; i++ {
			if err := cycle(b); err != nil {
				return util.Errorf("bank %q round %d: %v", b.Name(), i, err)
			}
		}
		if p.seal && !b.Seal() {
			return util.Errorf("bank %q: seal failed", b.Name())
		}
		log.Debugf("bank %q: %d rounds done", b.Name(), p.rounds)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "BANK\tBLOCKS\tBLOCK SIZE\tFREE\tOUTSTANDING\tSEALED\n")
	for _, b := range pool.Banks() {
		s := b.Stats()
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%t\n", s.Name, s.Blocks, s.BlockSize, s.Free, s.Outstanding, s.Sealed)
	}
	if err := w.Flush(); err != nil {
		return util.Errorf("writing stats: %v", err)
	}
	if err := pool.Close(); err != nil {
		return util.Errorf("closing pool: %v", err)
	}
	return subcommands.ExitSuccess
}

// cycle takes every block of b, stamps it, and returns them all.
func cycle(b *dmapool.Bank) error {
	var blocks []dmapool.Block
	for {
		blk, err := b.Get()
		if err == dmapool.ErrExhausted {
			break
		}
		if err != nil {
			return err
		}
		blk.Data[0] = byte(blk.Index())
		blocks = append(blocks, blk)
	}
	for _, blk := range blocks {
		if blk.Data[0] != byte(blk.Index()) {
			return fmt.Errorf("block %d overwritten", blk.Index())
		}
		if err := b.Put(blk); err != nil {
			return err
		}
	}
	return nil
}
