// Copyright 2021 The gVisor Authors.
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

// Package errors holds the standardized error definition for the ddk kit.
//
// Every library in the kit reports failures as an *Error carrying a Status
// code, so callers that only care about the status class can switch on it
// without matching messages.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Status is the outcome class of a kit operation.
type Status int

const (
	// OK is returned for successful operations.
	OK Status = iota

	// BadArgument is returned when the caller violated an operation's
	// argument contract.
	BadArgument

	// Internal is returned when the implementation reached an unexpected
	// state.
	Internal

	// Unavailable is returned when a resource is exhausted or temporarily
	// withheld. Retrying later may succeed.
	Unavailable
)

// String implements fmt.Stringer.String.
func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case BadArgument:
		return "bad argument"
	case Internal:
		return "internal error"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Error represents a status with a descriptive message.
type Error struct {
	status  Status
	message string
}

// New creates a new *Error.
func New(status Status, message string) *Error {
	return &Error{
		status:  status,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Status returns the underlying Status value.
func (e *Error) Status() Status { return e.status }

// Find returns the *Error wrapped by err, if any.
func Find(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the Status carried by err. A nil error is OK and errors
// that do not wrap an *Error are Internal.
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	if e, ok := Find(err); ok {
		return e.status
	}
	return Internal
}
