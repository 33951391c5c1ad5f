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

package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/engine"
	"github.com/fieldnet/NodeWorker/service/pins"
	"github.com/fieldnet/NodeWorker/service/sensors"
)

// ApplySchema validates and applies a bulk configuration payload.
// The active sensor set is unchanged when an error is returned,
// except for the rollback-inconsistency hard fault.
func (s *service) ApplySchema(ctx context.Context, raw []byte) error {
	parsed, err := s.validator.Validate(raw)
	if err != nil {
		return maskAny(err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Bridge.SetRedLED(true)
	err = s.engine.Apply(parsed)
	if errors.Cause(err) == engine.ErrRollbackInconsistent {
		// Pin and sensor state can no longer be trusted. Latch the
		// red LED; the caller decides whether to restart the node.
		s.inconsistent = true
		s.Logger.Error().Err(err).Msg("rollback inconsistency, node state untrusted")
		return maskAny(err)
	}
	s.Bridge.SetRedLED(false)
	if err != nil {
		return maskAny(err)
	}
	return nil
}

// ClaimSensor configures a single sensor outside of a bulk apply.
func (s *service) ClaimSensor(ctx context.Context, pin int, kind model.SensorKind, group, name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.table.Claim(pin, kind, group, name); err != nil {
		return maskAny(err)
	}
	return nil
}

// ReleaseSensor removes the sensor on the given pin.
// Return false if no active sensor owns that pin.
func (s *service) ReleaseSensor(ctx context.Context, pin int) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.table.Release(pin)
}

// SetRawMode toggles unit conversion for the sensor on the given pin.
func (s *service) SetRawMode(ctx context.Context, pin int, raw bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.table.SetRawMode(pin, raw)
}

// CapabilitiesSnapshot reports free pins, active sensors and reserved
// pins, used to build the capabilities report for the controller.
func (s *service) CapabilitiesSnapshot() model.Capabilities {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	active := s.table.ActiveSlots()
	statuses := make([]model.SensorStatus, 0, len(active))
	for _, slot := range active {
		statuses = append(statuses, slotStatus(slot))
	}
	return model.Capabilities{
		NodeID:         s.nodeID,
		Board:          s.Profile.Name,
		FreePins:       s.registry.FreePins(),
		ReservedPins:   s.registry.ReservedPins(),
		ActiveSensors:  statuses,
		SensorCapacity: s.table.Capacity(),
	}
}

// LastConflict returns the most recent denied claim.
func (s *service) LastConflict() (pins.Conflict, bool) {
	return s.conflicts.LastConflict()
}

// ReadSensors polls every active sensor through the pin driver and
// returns the updated statuses.
func (s *service) ReadSensors(ctx context.Context) []model.SensorStatus {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	active := s.table.ActiveSlots()
	result := make([]model.SensorStatus, 0, len(active))
	for _, slot := range active {
		raw, err := s.readRaw(slot)
		if err != nil {
			s.Logger.Debug().Err(err).Int("pin", slot.Pin).Str("name", slot.Name).Msg("read failed")
			continue
		}
		updated, ok := s.table.RecordReading(slot.Pin, raw)
		if !ok {
			continue
		}
		result = append(result, slotStatus(updated))
	}
	return result
}

// readRaw reads the raw value of the given sensor from the hardware.
func (s *service) readRaw(slot sensors.Slot) (int, error) {
	if slot.Kind.IsAnalog() {
		raw, err := s.Bridge.ReadAnalog(slot.Pin)
		if err != nil {
			return 0, maskAny(err)
		}
		return raw, nil
	}
	level, err := s.Bridge.Read(slot.Pin)
	if err != nil {
		return 0, maskAny(err)
	}
	if level {
		return 1, nil
	}
	return 0, nil
}

// slotStatus converts a slot copy into its reported status.
func slotStatus(slot sensors.Slot) model.SensorStatus {
	return model.SensorStatus{
		Pin:   slot.Pin,
		Kind:  slot.Kind,
		Group: slot.Group,
		Name:  slot.Name,
		Value: slot.LastValue,
		Raw:   slot.LastRaw,
		Ready: slot.HardwareReady,
	}
}
