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

// Package list provides intrusive doubly-linked lists addressed through a
// fixed-size instance table.
//
// Elements are owned by the caller. The list only rewrites the two link
// fields of an Element, so adding and removing entries never allocates.
// Lists are either taken from a Table by id or supplied by the caller as
// an *Instance, which bypasses the table.
//
// Nothing in this package is synchronized. Callers must serialize access
// to any instance and to the elements linked into it.
package list

// Element is the item linked into a list. Callers typically allocate
// elements in bulk and point Object at the data each element describes.
//
// The zero value is an unlinked element.
type Element struct {
	// Object is the data associated with this element. It is never read or
	// written by the list.
	Object any

	prev *Element
	next *Element
}

// Next returns the element that follows e in its list, or nil if e is the
// tail or unlinked.
func (e *Element) Next() *Element {
	return e.next
}

// Prev returns the element that precedes e in its list, or nil if e is the
// head or unlinked.
func (e *Element) Prev() *Element {
	return e.prev
}

// NextElement returns the element that follows e. It is equivalent to
// e.Next().
func NextElement(e *Element) *Element {
	return e.next
}

// Instance is the administrative record of a single list.
//
// The zero value is an empty list ready to use. An Instance must not be
// copied while elements are linked into it.
type Instance struct {
	head  *Element
	tail  *Element
	count uint
}

// NewInstance allocates an empty caller-owned instance.
func NewInstance() *Instance {
	return &Instance{}
}

// Len returns the number of elements in the list.
func (l *Instance) Len() uint {
	return l.count
}

// Front returns the first element of the list or nil.
func (l *Instance) Front() *Element {
	return l.head
}

// Back returns the last element of the list or nil.
func (l *Instance) Back() *Element {
	return l.tail
}

// reset returns l to the empty state. Linked elements keep their links.
func (l *Instance) reset() {
	l.head = nil
	l.tail = nil
	l.count = 0
}

// pushFront inserts e at the front of l.
func (l *Instance) pushFront(e *Element) {
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	} else {
		l.tail = e
	}
	l.head = e
	l.count++
}

// popBack unlinks and returns the tail of a non-empty l.
func (l *Instance) popBack() *Element {
	e := l.tail
	l.tail = e.prev
	if l.tail != nil {
		l.tail.next = nil
	} else {
		l.head = nil
	}
	e.prev = nil
	e.next = nil
	l.count--
	return e
}

// popFront unlinks and returns the head of a non-empty l.
func (l *Instance) popFront() *Element {
	e := l.head
	l.head = e.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	e.prev = nil
	e.next = nil
	l.count--
	return e
}

// remove unlinks e, which must be linked into l.
func (l *Instance) remove(e *Element) {
	prev := e.prev
	next := e.next

	if prev != nil {
		prev.next = next
	} else {
		l.head = next
	}

	if next != nil {
		next.prev = prev
	} else {
		l.tail = prev
	}

	e.prev = nil
	e.next = nil
	l.count--
}

// contains reports whether e is linked into l. It walks at most Len()
// elements.
func (l *Instance) contains(e *Element) bool {
	p := l.head
	for i := uint(0); i < l.count && p != nil; i++ {
		if p == e {
			return true
		}
		p = p.next
	}
	return false
}
