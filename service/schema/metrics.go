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

package schema

import (
	"github.com/fieldnet/NodeWorker/pkg/metrics"
)

const (
	subSystem = "schema"
)

var (
	// Number of schemas that cleared all validation stages
	validationsTotal = metrics.MustRegisterCounter(subSystem,
		"validations_total",
		"Number of schemas that cleared all validation stages")

	// Number of rejected schemas per stage
	validationFailuresTotal = metrics.MustRegisterCounterVec(subSystem,
		"validation_failures_total",
		"Number of rejected schemas per validation stage",
		"stage")
)
