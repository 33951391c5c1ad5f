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

package schema

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldnet/NodeWorker/model"
)

func testProfile() model.BoardProfile {
	return model.BoardProfile{
		Name:           "test",
		MaxPins:        8,
		MaxSensors:     2,
		ReservedPins:   []int{0, 1},
		MaxSchemaBytes: 256,
		MemoryFloor:    1 << 20,
		ParseOverhead:  4,
	}
}

func newTestValidator(freeMemory uint64) *Validator {
	return NewValidator(Config{
		Profile:    testProfile(),
		NodeID:     "node-1",
		FreeMemory: func() uint64 { return freeMemory },
	}, zerolog.Nop())
}

func encodeSchema(t *testing.T, s model.Schema) []byte {
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	return raw
}

func TestValidateAccepts(t *testing.T) {
	v := newTestValidator(1 << 30)
	raw := encodeSchema(t, model.Schema{
		NodeID: "node-1",
		Components: []model.Component{
			{Pin: 4, Kind: model.SensorKindDigital, Name: "door", Group: "hall"},
			{Pin: 5, Kind: model.SensorKindTemperature, Name: "boiler"},
		},
	})

	s, err := v.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "node-1", s.NodeID)
	require.Len(t, s.Components, 2)
	assert.Equal(t, "door", s.Components[0].Name)
}

func TestValidateSize(t *testing.T) {
	v := newTestValidator(1 << 30)
	raw := bytes.Repeat([]byte("x"), 257)

	_, err := v.Validate(raw)
	require.Error(t, err)
	assert.Equal(t, ErrSchemaTooLarge, errors.Cause(err))
}

func TestValidateMemory(t *testing.T) {
	// The memory stage needs floor + len*overhead free.
	v := newTestValidator(1 << 10)
	raw := []byte("this is not even parsed")

	_, err := v.Validate(raw)
	require.Error(t, err)
	assert.Equal(t, ErrInsufficientMemory, errors.Cause(err))
}

func TestValidateParse(t *testing.T) {
	v := newTestValidator(1 << 30)

	_, err := v.Validate([]byte("{not json"))
	require.Error(t, err)
	assert.Equal(t, ErrSchemaParse, errors.Cause(err))
}

func TestValidateIdentity(t *testing.T) {
	v := newTestValidator(1 << 30)
	raw := encodeSchema(t, model.Schema{NodeID: "other-node"})

	_, err := v.Validate(raw)
	require.Error(t, err)
	assert.Equal(t, ErrIdentityMismatch, errors.Cause(err))
}

func TestValidateCardinality(t *testing.T) {
	v := newTestValidator(1 << 30)
	raw := encodeSchema(t, model.Schema{
		NodeID: "node-1",
		Components: []model.Component{
			{Pin: 4, Kind: model.SensorKindDigital, Name: "a"},
			{Pin: 5, Kind: model.SensorKindDigital, Name: "b"},
			{Pin: 6, Kind: model.SensorKindDigital, Name: "c"},
		},
	})

	_, err := v.Validate(raw)
	require.Error(t, err)
	assert.Equal(t, ErrTooManyComponents, errors.Cause(err))
}

func TestValidateUnknownPin(t *testing.T) {
	v := newTestValidator(1 << 30)
	raw := encodeSchema(t, model.Schema{
		NodeID: "node-1",
		Components: []model.Component{
			{Pin: 8, Kind: model.SensorKindDigital, Name: "door"},
		},
	})

	_, err := v.Validate(raw)
	require.Error(t, err)
	assert.Equal(t, ErrUnknownPin, errors.Cause(err))
}

func TestValidateReservedPin(t *testing.T) {
	v := newTestValidator(1 << 30)
	raw := encodeSchema(t, model.Schema{
		NodeID: "node-1",
		Components: []model.Component{
			{Pin: 1, Kind: model.SensorKindDigital, Name: "door"},
		},
	})

	_, err := v.Validate(raw)
	require.Error(t, err)
	assert.Equal(t, ErrReservedPin, errors.Cause(err))
}

func TestValidateBadComponent(t *testing.T) {
	v := newTestValidator(1 << 30)
	raw := encodeSchema(t, model.Schema{
		NodeID: "node-1",
		Components: []model.Component{
			{Pin: 4, Kind: "pressure", Name: "door"},
		},
	})

	_, err := v.Validate(raw)
	require.Error(t, err)
	assert.Equal(t, model.ValidationError, errors.Cause(err))
}
