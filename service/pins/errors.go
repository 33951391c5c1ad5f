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

package pins

import (
	"github.com/pkg/errors"
)

var (
	// ErrPinReserved is returned when claiming a pin in the reserved set.
	ErrPinReserved = errors.New("pin is reserved")
	// ErrPinAlreadyClaimed is returned when claiming a pin owned by another slot.
	ErrPinAlreadyClaimed = errors.New("pin is already claimed")

	maskAny = errors.WithStack
)
