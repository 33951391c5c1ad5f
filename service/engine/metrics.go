// Copyright 2024 FieldNet authors
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

package engine

import (
	"github.com/fieldnet/NodeWorker/pkg/metrics"
)

const (
	subSystem = "engine"
)

var (
	// Number of bulk applies per outcome
	appliesTotal = metrics.MustRegisterCounterVec(subSystem,
		"applies_total",
		"Number of bulk applies per outcome",
		"outcome")

	// Number of rollbacks
	rollbacksTotal = metrics.MustRegisterCounter(subSystem,
		"rollbacks_total",
		"Number of rollbacks")

	// Number of rollbacks that could not restore the previous state
	rollbackFailuresTotal = metrics.MustRegisterCounter(subSystem,
		"rollback_failures_total",
		"Number of rollbacks that could not restore the previous state")

	// Number of times a stuck apply flag was forcibly cleared
	busyFlagForcedClearsTotal = metrics.MustRegisterCounter(subSystem,
		"busy_flag_forced_clears_total",
		"Number of times a stuck apply flag was forcibly cleared")
)
