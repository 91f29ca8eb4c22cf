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
	"ddk.dev/ddk/pkg/log"
	"ddk.dev/ddk/pkg/scenario"
	"github.com/google/subcommands"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	verbose bool
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run list scenario files"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <scenario.yaml>... - run scenario files concurrently.

Scenarios that do not set "instances" or "strict" use --max-instances and
--strict-args.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.verbose, "v", false, "print the trace of every step.")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	var scenarios []*scenario.Scenario
	for _, path := range f.Args() {
		s, err := scenario.Load(path)
		if err != nil {
			return util.Errorf("loading scenario: %v", err)
		}
		applyDefaults(s, conf)
		scenarios = append(scenarios, s)
	}

	results, err := scenario.RunAll(ctx, scenarios)
	if r.verbose {
		printTraces(results)
	}
	if err != nil {
		return util.Errorf("%v", err)
	}
	for _, res := range results {
		util.Infof("PASS %s (%d steps)", res.Name, len(res.Trace))
	}
	return subcommands.ExitSuccess
}

// applyDefaults fills in the table settings s leaves open from conf.
func applyDefaults(s *scenario.Scenario, conf *config.Config) {
	lc := conf.ListConfig()
	if s.Instances == 0 {
		s.Instances = lc.MaxInstances
	}
	if s.Strict == nil {
		s.Strict = &lc.StrictArgs
	}
	log.Debugf("scenario %q: %d instances, strict=%t, %d steps", s.Name, s.Instances, *s.Strict, len(s.Steps))
}

func printTraces(results []*scenario.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprint(w, "SCENARIO\tSTEP\tOP\tTARGET\tRESULT\n")
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, tr := range res.Trace {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", res.Name, tr.Step, tr.Op, tr.Target, tr.Result)
		}
	}
}
