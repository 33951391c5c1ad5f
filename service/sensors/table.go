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

package sensors

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/pins"
)

// Slot is one entry in the fixed-capacity sensor table.
// An inactive slot has all fields at their zero value.
type Slot struct {
	// Active is true when the slot holds a configured sensor
	Active bool `json:"active"`
	// Pin owned by this sensor
	Pin int `json:"pin"`
	// Type of sensor
	Kind model.SensorKind `json:"kind"`
	// Logical sub-zone the sensor belongs to
	Group string `json:"group,omitempty"`
	// Unique name of the sensor
	Name string `json:"name"`
	// RawMode disables unit conversion for published values
	RawMode bool `json:"rawMode"`
	// Last converted reading
	LastValue float64 `json:"lastValue"`
	// Last raw reading
	LastRaw int `json:"lastRaw"`
	// HardwareReady is true when the physical pin was initialized
	HardwareReady bool `json:"hardwareReady"`
}

// Table holds the fixed set of logical sensor slots.
// Each active slot owns exactly one pin, enforced through the
// pin registry.
type Table struct {
	log       zerolog.Logger
	registry  *pins.Registry
	conflicts *pins.Reporter
	slots     []Slot
}

// NewTable creates an empty sensor table with given capacity.
func NewTable(capacity int, registry *pins.Registry, conflicts *pins.Reporter, log zerolog.Logger) *Table {
	return &Table{
		log:       log.With().Str("component", "sensor-table").Logger(),
		registry:  registry,
		conflicts: conflicts,
		slots:     make([]Slot, capacity),
	}
}

// Capacity returns the fixed number of slots.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// ActiveCount returns the number of active slots.
func (t *Table) ActiveCount() int {
	count := 0
	for _, s := range t.slots {
		if s.Active {
			count++
		}
	}
	return count
}

// FindFreeSlot returns the index of the first inactive slot.
// Return false when the table is at capacity.
func (t *Table) FindFreeSlot() (int, bool) {
	for i, s := range t.slots {
		if !s.Active {
			return i, true
		}
	}
	return 0, false
}

// FindByPin returns the index of the active slot owning the given pin.
// Return false if no active slot owns that pin.
func (t *Table) FindByPin(pin int) (int, bool) {
	for i, s := range t.slots {
		if s.Active && s.Pin == pin {
			return i, true
		}
	}
	return 0, false
}

// SlotAt returns a copy of the slot at given index.
func (t *Table) SlotAt(index int) (Slot, bool) {
	if index < 0 || index >= len(t.slots) {
		return Slot{}, false
	}
	return t.slots[index], true
}

// ActiveSlots returns copies of all active slots, in slot order.
func (t *Table) ActiveSlots() []Slot {
	result := make([]Slot, 0, len(t.slots))
	for _, s := range t.slots {
		if s.Active {
			result = append(result, s)
		}
	}
	return result
}

// Claim configures a new sensor on the given pin.
// The claim is all-or-nothing: when no free slot is available the
// just-claimed pin is released again before the error returns.
// Denied pin claims are recorded with the conflict reporter.
func (t *Table) Claim(pin int, kind model.SensorKind, group, name string) (int, error) {
	if err := t.registry.Claim(pin, pins.UnassignedOwner); err != nil {
		t.recordConflict(pin, name, err)
		return 0, maskAny(err)
	}
	index, ok := t.FindFreeSlot()
	if !ok {
		// Roll back the pin claim, a sensor claim never leaves
		// a pin without an owning slot.
		t.registry.Release(pin)
		return 0, errors.Wrapf(ErrNoFreeSlot, "sensor '%s' on pin %d", name, pin)
	}
	t.registry.SetOwner(pin, index)
	t.slots[index] = Slot{
		Active:        true,
		Pin:           pin,
		Kind:          kind,
		Group:         group,
		Name:          name,
		HardwareReady: t.registry.HardwareReady(pin),
	}
	activeSensorsGauge.Inc()
	t.log.Debug().
		Int("pin", pin).
		Int("slot", index).
		Str("kind", string(kind)).
		Str("name", name).
		Msg("sensor claimed")
	return index, nil
}

// Release clears the sensor owning the given pin and frees the pin.
// Return false if no active slot owns that pin.
func (t *Table) Release(pin int) bool {
	index, ok := t.FindByPin(pin)
	if !ok {
		t.log.Debug().Int("pin", pin).Msg("release: no sensor on pin")
		return false
	}
	name := t.slots[index].Name
	t.slots[index] = Slot{}
	t.registry.Release(pin)
	activeSensorsGauge.Dec()
	t.log.Debug().Int("pin", pin).Int("slot", index).Str("name", name).Msg("sensor released")
	return true
}

// SetRawMode toggles unit conversion for the sensor owning the given pin.
// Return false if no active slot owns that pin.
func (t *Table) SetRawMode(pin int, raw bool) bool {
	index, ok := t.FindByPin(pin)
	if !ok {
		return false
	}
	t.slots[index].RawMode = raw
	return true
}

// RecordReading stores the given raw reading in the slot owning the
// given pin, converting it to physical units unless the slot is in
// raw mode. Returns a copy of the updated slot.
func (t *Table) RecordReading(pin int, raw int) (Slot, bool) {
	index, ok := t.FindByPin(pin)
	if !ok {
		return Slot{}, false
	}
	s := &t.slots[index]
	s.LastRaw = raw
	if s.RawMode {
		s.LastValue = float64(raw)
	} else {
		s.LastValue = s.Kind.Convert(raw)
	}
	return *s, true
}

// recordConflict translates a denied pin claim into a conflict record.
func (t *Table) recordConflict(pin int, requestedOwner string, claimErr error) {
	reason := pins.ConflictReasonReserved
	currentOwner := ""
	if errors.Cause(claimErr) == pins.ErrPinAlreadyClaimed {
		reason = pins.ConflictReasonAlreadyClaimed
		if index, ok := t.FindByPin(pin); ok {
			currentOwner = t.slots[index].Name
		}
	}
	t.conflicts.Record(pin, reason, currentOwner, requestedOwner)
}
