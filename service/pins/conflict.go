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
	"github.com/rs/zerolog"
)

// ConflictReason describes why a pin claim was denied.
type ConflictReason string

const (
	ConflictReasonReserved       ConflictReason = "reserved"
	ConflictReasonAlreadyClaimed ConflictReason = "already-claimed"
)

// Conflict records a single denied pin claim.
type Conflict struct {
	// Pin the claim was made for
	Pin int `json:"pin"`
	// Why the claim was denied
	Reason ConflictReason `json:"reason"`
	// Name of the sensor currently owning the pin (already-claimed only)
	CurrentOwner string `json:"currentOwner,omitempty"`
	// Name of the sensor that requested the pin
	RequestedOwner string `json:"requestedOwner"`
}

// Reporter remembers the most recent denied claim so the response
// building layer can enrich error replies. It is not a log; each new
// conflict overwrites the previous one.
type Reporter struct {
	log  zerolog.Logger
	last *Conflict
}

// NewReporter creates an empty conflict reporter.
func NewReporter(log zerolog.Logger) *Reporter {
	return &Reporter{
		log: log.With().Str("component", "conflict-reporter").Logger(),
	}
}

// Record overwrites the last conflict.
func (r *Reporter) Record(pin int, reason ConflictReason, currentOwner, requestedOwner string) {
	r.last = &Conflict{
		Pin:            pin,
		Reason:         reason,
		CurrentOwner:   currentOwner,
		RequestedOwner: requestedOwner,
	}
	conflictsTotal.WithLabelValues(string(reason)).Inc()
	r.log.Debug().
		Int("pin", pin).
		Str("reason", string(reason)).
		Str("current-owner", currentOwner).
		Str("requested-owner", requestedOwner).
		Msg("claim conflict recorded")
}

// LastConflict returns the most recent conflict.
// Return false if no conflict has been recorded yet.
func (r *Reporter) LastConflict() (Conflict, bool) {
	if r.last == nil {
		return Conflict{}, false
	}
	return *r.last, true
}
