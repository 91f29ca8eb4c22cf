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

package list

import (
	"fmt"

	"ddk.dev/ddk/pkg/errors"
)

const (
	// DefaultMaxInstances is the default number of lists in a Table.
	DefaultMaxInstances = 2

	// DummyID is the id to pass along with a caller-owned Instance.
	DummyID = 0
)

var (
	// ErrBadArgument is returned when an operation is called with an
	// out-of-range id, a nil element, an empty list, or an element that is
	// not linked into the list.
	ErrBadArgument = errors.New(errors.BadArgument, "list: bad argument")

	// ErrInternal is reserved for inconsistent list state.
	ErrInternal = errors.New(errors.Internal, "list: internal error")
)

// Config selects the shape and checking policy of a Table.
type Config struct {
	// MaxInstances is the number of lists held by the table.
	MaxInstances uint

	// StrictArgs enables argument validation. When disabled no operation
	// checks its arguments, the membership scan of RemoveAnywhere is
	// skipped, and invalid input panics.
	StrictArgs bool
}

// DefaultConfig returns the default table configuration.
func DefaultConfig() Config {
	return Config{
		MaxInstances: DefaultMaxInstances,
		StrictArgs:   true,
	}
}

// Table is a fixed-size set of list instances addressed by id.
//
// Every operation takes an id and an optional caller-owned instance. When
// inst is non-nil the operation acts on inst and the table entry is not
// touched; with strict checking enabled the id must still be in range.
type Table struct {
	strict bool
	lists  []Instance
}

// NewTable creates a table of cfg.MaxInstances empty lists.
func NewTable(cfg Config) (*Table, error) {
	if cfg.MaxInstances == 0 {
		return nil, fmt.Errorf("list table needs at least one instance: %w", ErrBadArgument)
	}
	return &Table{
		strict: cfg.StrictArgs,
		lists:  make([]Instance, cfg.MaxInstances),
	}, nil
}

// Len returns the number of instances in the table.
func (t *Table) Len() uint {
	return uint(len(t.lists))
}

// Strict reports whether argument checking is enabled.
func (t *Table) Strict() bool {
	return t.strict
}

// instance resolves the list targeted by id and inst.
func (t *Table) instance(id uint, inst *Instance) (*Instance, error) {
	if t.strict && id >= uint(len(t.lists)) {
		return nil, ErrBadArgument
	}
	if inst != nil {
		return inst, nil
	}
	return &t.lists[id], nil
}

// Init resets the list to empty.
func (t *Table) Init(id uint, inst *Instance) error {
	l, err := t.instance(id, inst)
	if err != nil {
		return err
	}
	l.reset()
	return nil
}

// Uninit resets the list to empty. It is the counterpart of Init.
func (t *Table) Uninit(id uint, inst *Instance) error {
	l, err := t.instance(id, inst)
	if err != nil {
		return err
	}
	l.reset()
	return nil
}

// AddToHead links e as the new head of the list. The previous links of e
// are overwritten.
func (t *Table) AddToHead(id uint, inst *Instance, e *Element) error {
	l, err := t.instance(id, inst)
	if err != nil {
		return err
	}
	if t.strict && e == nil {
		return ErrBadArgument
	}
	l.pushFront(e)
	return nil
}

// RemoveFromTail unlinks and returns the tail of the list.
func (t *Table) RemoveFromTail(id uint, inst *Instance) (*Element, error) {
	l, err := t.instance(id, inst)
	if err != nil {
		return nil, err
	}
	if t.strict && l.count == 0 {
		return nil, ErrBadArgument
	}
	return l.popBack(), nil
}

// RemoveFromHead unlinks and returns the head of the list.
func (t *Table) RemoveFromHead(id uint, inst *Instance) (*Element, error) {
	l, err := t.instance(id, inst)
	if err != nil {
		return nil, err
	}
	if t.strict && l.count == 0 {
		return nil, ErrBadArgument
	}
	return l.popFront(), nil
}

// RemoveAnywhere unlinks e from the list. With strict checking the list is
// first scanned to verify that e belongs to it, which is O(Len()).
func (t *Table) RemoveAnywhere(id uint, inst *Instance, e *Element) error {
	l, err := t.instance(id, inst)
	if err != nil {
		return err
	}
	if t.strict {
		if e == nil || l.count == 0 || !l.contains(e) {
			return ErrBadArgument
		}
	}
	l.remove(e)
	return nil
}

// Count returns the number of elements in the list.
func (t *Table) Count(id uint, inst *Instance) (uint, error) {
	l, err := t.instance(id, inst)
	if err != nil {
		return 0, err
	}
	return l.count, nil
}

// Head returns the head of the list without unlinking it. An empty list
// yields a nil element and no error.
func (t *Table) Head(id uint, inst *Instance) (*Element, error) {
	l, err := t.instance(id, inst)
	if err != nil {
		return nil, err
	}
	return l.head, nil
}
