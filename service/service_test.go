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
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/bridge"
	"github.com/fieldnet/NodeWorker/service/engine"
	"github.com/fieldnet/NodeWorker/service/schema"
	"github.com/fieldnet/NodeWorker/service/store"
)

func testProfile() model.BoardProfile {
	return model.BoardProfile{
		Name:           "virtual",
		MaxPins:        16,
		MaxSensors:     8,
		ReservedPins:   []int{0, 1},
		MaxSchemaBytes: 4096,
		MemoryFloor:    1,
		ParseOverhead:  1,
	}
}

func newTestService(t *testing.T, dataStore store.API) (Service, bridge.VirtualBridge) {
	b := bridge.NewVirtualBridge(16)
	svc, err := NewService(Config{
		ProgramVersion: "test",
		NodeID:         "node-1",
		Profile:        testProfile(),
	}, Dependencies{
		Logger: zerolog.Nop(),
		Bridge: b,
		Store:  dataStore,
	})
	require.NoError(t, err)
	return svc, b
}

func TestClaimAndReadSensors(t *testing.T) {
	ctx := context.Background()
	svc, b := newTestService(t, store.NewMemoryStore())

	require.NoError(t, svc.ClaimSensor(ctx, 4, model.SensorKindDigital, "hall", "door"))
	require.NoError(t, svc.ClaimSensor(ctx, 5, model.SensorKindTemperature, "cellar", "boiler"))

	b.SetInputLevel(4, true)
	b.SetAnalogValue(5, 310)

	statuses := svc.ReadSensors(ctx)
	require.Len(t, statuses, 2)
	assert.Equal(t, "door", statuses[0].Name)
	assert.Equal(t, 1.0, statuses[0].Value)
	assert.Equal(t, "boiler", statuses[1].Name)
	assert.InDelta(t, 50.0, statuses[1].Value, 0.1)

	// Raw mode reports the unconverted reading.
	require.True(t, svc.SetRawMode(ctx, 5, true))
	statuses = svc.ReadSensors(ctx)
	require.Len(t, statuses, 2)
	assert.Equal(t, 310.0, statuses[1].Value)

	require.True(t, svc.ReleaseSensor(ctx, 4))
	assert.False(t, svc.ReleaseSensor(ctx, 4))
	assert.Len(t, svc.ReadSensors(ctx), 1)
}

func TestCapabilitiesSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, store.NewMemoryStore())
	require.NoError(t, svc.ClaimSensor(ctx, 4, model.SensorKindDigital, "", "door"))

	caps := svc.CapabilitiesSnapshot()
	assert.Equal(t, "node-1", caps.NodeID)
	assert.Equal(t, "virtual", caps.Board)
	assert.Equal(t, 8, caps.SensorCapacity)
	assert.Equal(t, []int{0, 1}, caps.ReservedPins)
	assert.NotContains(t, caps.FreePins, 4)
	require.Len(t, caps.ActiveSensors, 1)
	assert.Equal(t, "door", caps.ActiveSensors[0].Name)
}

func TestApplySchema(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, store.NewMemoryStore())

	payload := []byte(`{"node":"node-1","components":[
		{"pin":4,"kind":"digital","name":"door"},
		{"pin":5,"kind":"temperature","name":"boiler","group":"cellar"}]}`)
	require.NoError(t, svc.ApplySchema(ctx, payload))

	caps := svc.CapabilitiesSnapshot()
	require.Len(t, caps.ActiveSensors, 2)
	assert.False(t, svc.Inconsistent())
	assert.Equal(t, "idle", svc.EngineState())
}

func TestApplySchemaWrongNode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, store.NewMemoryStore())

	payload := []byte(`{"node":"other","components":[]}`)
	err := svc.ApplySchema(ctx, payload)
	require.Error(t, err)
	assert.Equal(t, schema.ErrIdentityMismatch, errors.Cause(err))
	assert.Len(t, svc.CapabilitiesSnapshot().ActiveSensors, 0)
}

type stubApplier struct {
	err error
}

func (a stubApplier) Apply(model.Schema) error {
	return a.err
}

func (a stubApplier) State() engine.State {
	return engine.StateIdle
}

func TestApplySchemaRollbackInconsistency(t *testing.T) {
	ctx := context.Background()
	svc, b := newTestService(t, store.NewMemoryStore())
	svc.(*service).engine = stubApplier{
		err: errors.Wrap(engine.ErrRollbackInconsistent, "restore failed"),
	}

	payload := []byte(`{"node":"node-1","components":[]}`)
	err := svc.ApplySchema(ctx, payload)
	require.Error(t, err)
	assert.Equal(t, engine.ErrRollbackInconsistent, errors.Cause(err))

	// The fault latches until restart; the red LED stays on.
	assert.True(t, svc.Inconsistent())
	assert.True(t, b.RedLED())
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	dataStore := store.NewMemoryStore()

	first, _ := newTestService(t, dataStore)
	payload := []byte(`{"node":"node-1","components":[
		{"pin":4,"kind":"digital","name":"door"},
		{"pin":5,"kind":"humidity","name":"greenhouse"}]}`)
	require.NoError(t, first.ApplySchema(ctx, payload))

	// A fresh service on the same store picks up the committed table.
	second, _ := newTestService(t, dataStore)
	second.(*service).restore(ctx)

	caps := second.CapabilitiesSnapshot()
	require.Len(t, caps.ActiveSensors, 2)
	assert.Equal(t, "door", caps.ActiveSensors[0].Name)
	assert.Equal(t, "greenhouse", caps.ActiveSensors[1].Name)
}
