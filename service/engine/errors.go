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

package engine

import (
	"github.com/pkg/errors"
)

var (
	// ErrDuplicatePin is returned when a schema lists the same pin twice.
	ErrDuplicatePin = errors.New("duplicate pin in schema")
	// ErrApplyInProgress is returned when a bulk apply is already mid-flight.
	ErrApplyInProgress = errors.New("apply already in progress")
	// ErrRollbackInconsistent is the one condition the engine cannot
	// self-heal: rollback could not restore the previous sensor set.
	// Pin and sensor state can no longer be trusted; the caller should
	// restart the node.
	ErrRollbackInconsistent = errors.New("rollback left inconsistent state")

	maskAny = errors.WithStack
)
