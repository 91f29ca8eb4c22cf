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

// Package cmd holds implementations of the ddkctl commands.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ddk.dev/ddk/ddkctl/cmd/util"
	"ddk.dev/ddk/ddkctl/config"
	"ddk.dev/ddk/pkg/list"
	"github.com/google/subcommands"
)

// Sizeof implements subcommands.Command for the "sizeof" command.
type Sizeof struct {
	table bool
}

// Name implements subcommands.Command.Name.
func (*Sizeof) Name() string {
	return "sizeof"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Sizeof) Synopsis() string {
	return "print the size in bytes of a list administrative record"
}

// Usage implements subcommands.Command.Usage.
func (*Sizeof) Usage() string {
	return `sizeof [flags] - print the size of one list instance, excluding elements.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Sizeof) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&s.table, "table", false, "print the size of a whole table of --max-instances lists instead.")
}

// Execute implements subcommands.Command.Execute.
func (s *Sizeof) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	size := list.InstanceByteCount()
	if s.table {
		size *= uintptr(conf.MaxInstances)
	}
	if _, err := fmt.Fprintf(os.Stdout, "%d\n", size); err != nil {
		return util.Errorf("writing size: %v", err)
	}
	return subcommands.ExitSuccess
}
