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
	"github.com/rs/zerolog"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/bridge"
)

// Class describes the ownership state of a single pin.
type Class uint8

const (
	// ClassReserved pins are fixed by the platform and never transition.
	ClassReserved Class = iota
	// ClassFree pins are available for claiming and held in safe state.
	ClassFree
	// ClassClaimed pins are owned by exactly one sensor slot.
	ClassClaimed
)

// String returns a human readable representation of the given class.
func (c Class) String() string {
	switch c {
	case ClassReserved:
		return "reserved"
	case ClassFree:
		return "free"
	case ClassClaimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// UnassignedOwner marks a claimed pin whose slot is not yet known.
// The slot table assigns the real owner before its claim returns.
const UnassignedOwner = -1

// Registry tracks the ownership of every GPIO pin of the board.
// Claiming and releasing drive the hardware pin as part of the call;
// a released pin is always back in safe (high-impedance input) state.
type Registry struct {
	log     zerolog.Logger
	bridge  bridge.API
	classes []Class
	owners  []int
	hwReady []bool
}

// NewRegistry builds a registry for the given board profile.
// All non-reserved pins are put in safe state.
func NewRegistry(profile model.BoardProfile, b bridge.API, log zerolog.Logger) *Registry {
	r := &Registry{
		log:     log.With().Str("component", "pin-registry").Logger(),
		bridge:  b,
		classes: make([]Class, profile.MaxPins),
		owners:  make([]int, profile.MaxPins),
		hwReady: make([]bool, profile.MaxPins),
	}
	for pin := 0; pin < profile.MaxPins; pin++ {
		r.owners[pin] = UnassignedOwner
		if profile.IsReserved(pin) {
			r.classes[pin] = ClassReserved
			continue
		}
		r.classes[pin] = ClassFree
		r.safeState(pin)
	}
	return r
}

// PinCount returns the number of pins on the board.
func (r *Registry) PinCount() int {
	return len(r.classes)
}

// Classify returns the class of the given pin.
// Out of range pins classify as reserved, so they can never be claimed.
func (r *Registry) Classify(pin int) Class {
	if pin < 0 || pin >= len(r.classes) {
		return ClassReserved
	}
	return r.classes[pin]
}

// Owner returns the slot index owning the given pin.
// Return false if the pin is not claimed.
func (r *Registry) Owner(pin int) (int, bool) {
	if r.Classify(pin) != ClassClaimed {
		return 0, false
	}
	return r.owners[pin], true
}

// IsFree returns true when the given pin can be claimed.
func (r *Registry) IsFree(pin int) bool {
	return r.Classify(pin) == ClassFree
}

// Claim transitions the given pin to claimed state for the given owner
// slot and configures the hardware pin as an input.
func (r *Registry) Claim(pin, owner int) error {
	switch r.Classify(pin) {
	case ClassReserved:
		claimsDeniedTotal.WithLabelValues("reserved").Inc()
		return errors.Wrapf(ErrPinReserved, "pin %d", pin)
	case ClassClaimed:
		claimsDeniedTotal.WithLabelValues("already-claimed").Inc()
		return errors.Wrapf(ErrPinAlreadyClaimed, "pin %d", pin)
	}
	r.classes[pin] = ClassClaimed
	r.owners[pin] = owner
	r.hwReady[pin] = r.configure(pin)
	claimsTotal.Inc()
	claimedPinsGauge.Inc()
	r.log.Debug().Int("pin", pin).Int("owner", owner).Msg("pin claimed")
	return nil
}

// SetOwner updates the owning slot of an already claimed pin.
func (r *Registry) SetOwner(pin, owner int) {
	if r.Classify(pin) == ClassClaimed {
		r.owners[pin] = owner
	}
}

// HardwareReady returns true when the last claim of the given pin
// succeeded in configuring the physical pin.
func (r *Registry) HardwareReady(pin int) bool {
	if r.Classify(pin) != ClassClaimed {
		return false
	}
	return r.hwReady[pin]
}

// Release returns the given pin to free state and puts the hardware
// pin back in safe state. Releasing a free or reserved pin is a no-op.
func (r *Registry) Release(pin int) {
	if r.Classify(pin) != ClassClaimed {
		r.log.Debug().Int("pin", pin).Str("class", r.Classify(pin).String()).Msg("release is a no-op")
		return
	}
	r.safeState(pin)
	r.classes[pin] = ClassFree
	r.owners[pin] = UnassignedOwner
	r.hwReady[pin] = false
	releasesTotal.Inc()
	claimedPinsGauge.Dec()
	r.log.Debug().Int("pin", pin).Msg("pin released")
}

// FreePins returns the pins that can currently be claimed.
func (r *Registry) FreePins() []int {
	result := make([]int, 0, len(r.classes))
	for pin, c := range r.classes {
		if c == ClassFree {
			result = append(result, pin)
		}
	}
	return result
}

// ReservedPins returns the immutable reserved pin set.
func (r *Registry) ReservedPins() []int {
	result := make([]int, 0, len(r.classes))
	for pin, c := range r.classes {
		if c == ClassReserved {
			result = append(result, pin)
		}
	}
	return result
}

// configure sets the pin direction for a fresh claim.
// Driver failures are logged; the claim itself stands.
func (r *Registry) configure(pin int) bool {
	if err := r.bridge.SetDirection(pin, bridge.PinDirectionInput); err != nil {
		r.log.Error().Err(err).Int("pin", pin).Msg("Failed to configure claimed pin")
		return false
	}
	return true
}

// safeState puts the pin in high-impedance input state.
func (r *Registry) safeState(pin int) {
	if err := r.bridge.SetDirection(pin, bridge.PinDirectionInput); err != nil {
		r.log.Error().Err(err).Int("pin", pin).Msg("Failed to put pin in safe state")
	}
}
