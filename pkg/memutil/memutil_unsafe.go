// Copyright 2018 The gVisor Authors.
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

// Package memutil provides utilities for working with host memory mappings.
package memutil

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MapAnonymous returns a private, zero-filled, page-aligned mapping of at
// least size bytes. The slice length is size; the mapping is rounded up to
// the page size.
func MapAnonymous(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid mapping size %d", size)
	}
	pageSize := unix.Getpagesize()
	mapped := (size + pageSize - 1) &^ (pageSize - 1)
	m, err := unix.Mmap(-1, 0, mapped, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap %d bytes: %w", mapped, err)
	}
	if addr := uintptr(unsafe.Pointer(unsafe.SliceData(m))); addr%uintptr(pageSize) != 0 {
		unix.Munmap(m)
		return nil, fmt.Errorf("mapping is not page aligned (address 0x%x)", addr)
	}
	return m[:size], nil
}

// Unmap releases a mapping returned by MapAnonymous.
func Unmap(m []byte) error {
	if cap(m) == 0 {
		return nil
	}
	return unix.Munmap(m[:cap(m)])
}
