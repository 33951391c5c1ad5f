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

package pins

import (
	"github.com/fieldnet/NodeWorker/pkg/metrics"
)

const (
	subSystem = "pins"
)

var (
	// Number of successful pin claims
	claimsTotal = metrics.MustRegisterCounter(subSystem,
		"claims_total",
		"Number of successful pin claims")

	// Number of denied pin claims
	claimsDeniedTotal = metrics.MustRegisterCounterVec(subSystem,
		"claims_denied_total",
		"Number of denied pin claims",
		"reason")

	// Number of pin releases
	releasesTotal = metrics.MustRegisterCounter(subSystem,
		"releases_total",
		"Number of pin releases")

	// Number of currently claimed pins
	claimedPinsGauge = metrics.MustRegisterGauge(subSystem,
		"claimed_pins",
		"Number of currently claimed pins")

	// Number of recorded claim conflicts
	conflictsTotal = metrics.MustRegisterCounterVec(subSystem,
		"conflicts_total",
		"Number of recorded claim conflicts",
		"reason")
)
