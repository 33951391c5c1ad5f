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
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/bridge"
	"github.com/fieldnet/NodeWorker/service/pins"
)

func newTestTable(capacity int) (*Table, *pins.Registry, *pins.Reporter) {
	profile := model.BoardProfile{
		Name:           "test",
		MaxPins:        8,
		MaxSensors:     capacity,
		ReservedPins:   []int{0, 1},
		MaxSchemaBytes: 1024,
	}
	registry := pins.NewRegistry(profile, bridge.NewVirtualBridge(8), zerolog.Nop())
	conflicts := pins.NewReporter(zerolog.Nop())
	return NewTable(capacity, registry, conflicts, zerolog.Nop()), registry, conflicts
}

func TestClaim(t *testing.T) {
	table, registry, _ := newTestTable(4)

	index, err := table.Claim(2, model.SensorKindDigital, "hall", "door")
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Equal(t, 1, table.ActiveCount())

	slot, ok := table.SlotAt(index)
	require.True(t, ok)
	assert.True(t, slot.Active)
	assert.Equal(t, 2, slot.Pin)
	assert.Equal(t, model.SensorKindDigital, slot.Kind)
	assert.Equal(t, "door", slot.Name)
	assert.True(t, slot.HardwareReady)

	// The pin registry knows the owning slot.
	owner, ok := registry.Owner(2)
	require.True(t, ok)
	assert.Equal(t, index, owner)
}

func TestClaimReservedRecordsConflict(t *testing.T) {
	table, _, conflicts := newTestTable(4)

	_, err := table.Claim(0, model.SensorKindDigital, "", "door")
	require.Error(t, err)
	assert.Equal(t, pins.ErrPinReserved, errors.Cause(err))
	assert.Equal(t, 0, table.ActiveCount())

	c, found := conflicts.LastConflict()
	require.True(t, found)
	assert.Equal(t, 0, c.Pin)
	assert.Equal(t, pins.ConflictReasonReserved, c.Reason)
	assert.Equal(t, "door", c.RequestedOwner)
}

func TestClaimOccupiedRecordsConflict(t *testing.T) {
	table, _, conflicts := newTestTable(4)

	_, err := table.Claim(2, model.SensorKindDigital, "", "door")
	require.NoError(t, err)

	_, err = table.Claim(2, model.SensorKindDigital, "", "window")
	require.Error(t, err)
	assert.Equal(t, pins.ErrPinAlreadyClaimed, errors.Cause(err))

	c, found := conflicts.LastConflict()
	require.True(t, found)
	assert.Equal(t, 2, c.Pin)
	assert.Equal(t, pins.ConflictReasonAlreadyClaimed, c.Reason)
	assert.Equal(t, "door", c.CurrentOwner)
	assert.Equal(t, "window", c.RequestedOwner)
}

func TestClaimFullTableReleasesPin(t *testing.T) {
	table, registry, conflicts := newTestTable(1)

	_, err := table.Claim(2, model.SensorKindDigital, "", "door")
	require.NoError(t, err)

	// The table is full; the claim must not leave pin 3 dangling.
	_, err = table.Claim(3, model.SensorKindDigital, "", "window")
	require.Error(t, err)
	assert.Equal(t, ErrNoFreeSlot, errors.Cause(err))
	assert.True(t, registry.IsFree(3))
	assert.Equal(t, 1, table.ActiveCount())

	// A full table is not a pin conflict.
	_, found := conflicts.LastConflict()
	assert.False(t, found)
}

func TestRelease(t *testing.T) {
	table, registry, _ := newTestTable(4)

	_, err := table.Claim(2, model.SensorKindDigital, "", "door")
	require.NoError(t, err)

	assert.True(t, table.Release(2))
	assert.Equal(t, 0, table.ActiveCount())
	assert.True(t, registry.IsFree(2))

	// Releasing an unclaimed pin reports false.
	assert.False(t, table.Release(2))
	assert.False(t, table.Release(7))
}

func TestSlotReuse(t *testing.T) {
	table, _, _ := newTestTable(2)

	first, err := table.Claim(2, model.SensorKindDigital, "", "door")
	require.NoError(t, err)
	_, err = table.Claim(3, model.SensorKindDigital, "", "window")
	require.NoError(t, err)

	require.True(t, table.Release(2))
	// The freed slot is the first candidate for the next claim.
	index, err := table.Claim(4, model.SensorKindDigital, "", "gate")
	require.NoError(t, err)
	assert.Equal(t, first, index)
}

func TestRecordReading(t *testing.T) {
	table, _, _ := newTestTable(4)

	_, err := table.Claim(2, model.SensorKindTemperature, "", "boiler")
	require.NoError(t, err)

	slot, ok := table.RecordReading(2, 310)
	require.True(t, ok)
	assert.Equal(t, 310, slot.LastRaw)
	assert.InDelta(t, 50.0, slot.LastValue, 0.1)

	// Raw mode bypasses the unit conversion.
	require.True(t, table.SetRawMode(2, true))
	slot, ok = table.RecordReading(2, 310)
	require.True(t, ok)
	assert.Equal(t, 310.0, slot.LastValue)

	_, ok = table.RecordReading(5, 1)
	assert.False(t, ok)
	assert.False(t, table.SetRawMode(5, true))
}
