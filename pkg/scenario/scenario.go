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

// Package scenario runs scripted sequences of list operations.
//
// A scenario is a YAML document naming a table shape and a list of steps:
//
//	name: fifo
//	instances: 2
//	steps:
//	  - {op: add-head, list: 0, element: A}
//	  - {op: add-head, list: 0, element: B}
//	  - {op: count, list: 0, expect: 2}
//	  - {op: remove-tail, list: 0, expect: A}
//	  - {op: remove-tail, list: 1, error: bad argument}
//
// Elements are created on first mention and keep their identity for the
// whole scenario. Steps naming a private instance act on a caller-owned
// list.Instance instead of a table entry.
package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ddk.dev/ddk/pkg/errors"
	"ddk.dev/ddk/pkg/list"
	"ddk.dev/ddk/pkg/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// Operation names.
const (
	OpInit           = "init"
	OpUninit         = "uninit"
	OpAddHead        = "add-head"
	OpRemoveTail     = "remove-tail"
	OpRemoveHead     = "remove-head"
	OpRemoveAnywhere = "remove-anywhere"
	OpCount          = "count"
	OpHead           = "head"
)

// Step is a single list operation.
type Step struct {
	Op      string `yaml:"op"`
	List    uint   `yaml:"list"`
	Private string `yaml:"private,omitempty"`
	Element string `yaml:"element,omitempty"`

	// Expect is the element name or count the step must produce.
	Expect any `yaml:"expect,omitempty"`

	// Empty requires a head step to find an empty list.
	Empty bool `yaml:"empty,omitempty"`

	// Error is the status name the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// Scenario is a parsed scenario document.
type Scenario struct {
	Name      string `yaml:"name"`
	Instances uint   `yaml:"instances"`
	Strict    *bool  `yaml:"strict"`
	Steps     []Step `yaml:"steps"`
}

// Trace records the outcome of one executed step.
type Trace struct {
	Step   int
	Op     string
	Target string
	Result string
}

// Result is the outcome of a successful run.
type Result struct {
	Name  string
	Trace []Trace
}

// StepError reports the step at which a scenario failed.
type StepError struct {
	Scenario string
	Step     int
	Op       string
	Err      error
}

// Error implements error.Error.
func (e *StepError) Error() string {
	return fmt.Sprintf("scenario %q: step %d (%s): %v", e.Scenario, e.Step, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error { return e.Err }

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := validate(doc); err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	return &s, nil
}

// Load reads and parses the scenario file at path. Unnamed scenarios are
// named after the file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// tableConfig returns the list table configuration for s.
func (s *Scenario) tableConfig() list.Config {
	cfg := list.DefaultConfig()
	if s.Instances != 0 {
		cfg.MaxInstances = s.Instances
	}
	if s.Strict != nil {
		cfg.StrictArgs = *s.Strict
	}
	return cfg
}

// runner holds the state of one scenario run.
type runner struct {
	table    *list.Table
	elements map[string]*list.Element
	private  map[string]*list.Instance
}

func (r *runner) element(name string) *list.Element {
	if name == "" {
		return nil
	}
	e, ok := r.elements[name]
	if !ok {
		e = &list.Element{Object: name}
		r.elements[name] = e
	}
	return e
}

func (r *runner) instance(name string) *list.Instance {
	if name == "" {
		return nil
	}
	inst, ok := r.private[name]
	if !ok {
		inst = list.NewInstance()
		r.private[name] = inst
	}
	return inst
}

func elementName(e *list.Element) string {
	if e == nil {
		return "<nil>"
	}
	return e.Object.(string)
}

// exec performs st and returns the produced value. Panics raised by the
// list on invalid input in non-strict mode are returned as errors.
func (r *runner) exec(st *Step) (got string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("list panicked: %v", p)
		}
	}()

	inst := r.instance(st.Private)
	switch st.Op {
	case OpInit:
		return "ok", r.table.Init(st.List, inst)
	case OpUninit:
		return "ok", r.table.Uninit(st.List, inst)
	case OpAddHead:
		return "ok", r.table.AddToHead(st.List, inst, r.element(st.Element))
	case OpRemoveTail:
		e, err := r.table.RemoveFromTail(st.List, inst)
		return elementName(e), err
	case OpRemoveHead:
		e, err := r.table.RemoveFromHead(st.List, inst)
		return elementName(e), err
	case OpRemoveAnywhere:
		return "ok", r.table.RemoveAnywhere(st.List, inst, r.element(st.Element))
	case OpCount:
		n, err := r.table.Count(st.List, inst)
		return strconv.FormatUint(uint64(n), 10), err
	case OpHead:
		e, err := r.table.Head(st.List, inst)
		return elementName(e), err
	default:
		return "", fmt.Errorf("unknown operation %q", st.Op)
	}
}

// check compares the outcome of st with its expectations.
func check(st *Step, got string, err error) error {
	if st.Error != "" {
		if err == nil {
			return fmt.Errorf("succeeded with %s, want error %q", got, st.Error)
		}
		if status := errors.StatusOf(err); status.String() != st.Error {
			return fmt.Errorf("failed with %q (%v), want %q", status, err, st.Error)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if st.Empty && got != elementName(nil) {
		return fmt.Errorf("got %s, want empty list", got)
	}
	if st.Expect != nil {
		if want := fmt.Sprint(st.Expect); got != want {
			return fmt.Errorf("got %s, want %s", got, want)
		}
	}
	return nil
}

func target(st *Step) string {
	if st.Private != "" {
		return "private " + st.Private
	}
	return "list " + strconv.FormatUint(uint64(st.List), 10)
}

// Run executes s against a fresh list table. It stops at the first step
// whose outcome differs from its expectations, or when ctx is done.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	table, err := list.NewTable(s.tableConfig())
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	r := &runner{
		table:    table,
		elements: make(map[string]*list.Element),
		private:  make(map[string]*list.Instance),
	}
	res := &Result{Name: s.Name}
	for i := range s.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		st := &s.Steps[i]
		got, opErr := r.exec(st)
		tr := Trace{Step: i, Op: st.Op, Target: target(st), Result: got}
		if opErr != nil {
			tr.Result = opErr.Error()
		}
		res.Trace = append(res.Trace, tr)
		log.Debugf("scenario %q: step %d: %s %s -> %s", s.Name, i, st.Op, tr.Target, tr.Result)
		if err := check(st, got, opErr); err != nil {
			return res, &StepError{Scenario: s.Name, Step: i, Op: st.Op, Err: err}
		}
	}
	return res, nil
}

// RunAll runs independent scenarios concurrently. Results are returned in
// input order; the first failure cancels the remaining runs.
func RunAll(ctx context.Context, scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range scenarios {
		i, s := i, s
		g.Go(func() error {
			res, err := Run(ctx, s)
			results[i] = res
			return err
		})
	}
	return results, g.Wait()
}
