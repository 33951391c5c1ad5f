//    Copyright 2024 FieldNet authors
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package schema

import (
	"github.com/pkg/errors"
)

var (
	// ErrSchemaTooLarge is returned when the raw payload exceeds the
	// board's schema byte budget.
	ErrSchemaTooLarge = errors.New("schema too large")
	// ErrInsufficientMemory is returned when free memory is too low to
	// parse the payload safely.
	ErrInsufficientMemory = errors.New("insufficient memory")
	// ErrSchemaParse is returned for malformed payloads.
	ErrSchemaParse = errors.New("schema parse failed")
	// ErrIdentityMismatch is returned when the schema targets a
	// different node.
	ErrIdentityMismatch = errors.New("schema identity mismatch")
	// ErrTooManyComponents is returned when the component count exceeds
	// the board's sensor capacity.
	ErrTooManyComponents = errors.New("too many components")
	// ErrUnknownPin is returned when a component names a pin that does
	// not exist on the board.
	ErrUnknownPin = errors.New("unknown pin")
	// ErrReservedPin is returned when a component names a pin in the
	// reserved set.
	ErrReservedPin = errors.New("reserved pin")

	maskAny = errors.WithStack
)
