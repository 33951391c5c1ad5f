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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSensorKindValidate(t *testing.T) {
	assert.NoError(t, SensorKindDigital.Validate())
	assert.NoError(t, SensorKindAnalog.Validate())
	assert.NoError(t, SensorKindTemperature.Validate())
	assert.NoError(t, SensorKindHumidity.Validate())
	assert.Error(t, SensorKind("pressure").Validate())
	assert.Error(t, SensorKind("").Validate())
}

func TestSensorKindIsAnalog(t *testing.T) {
	assert.False(t, SensorKindDigital.IsAnalog())
	assert.True(t, SensorKindAnalog.IsAnalog())
	assert.True(t, SensorKindTemperature.IsAnalog())
	assert.True(t, SensorKindHumidity.IsAnalog())
}

func TestSensorKindConvert(t *testing.T) {
	assert.Equal(t, 1.0, SensorKindDigital.Convert(1))
	assert.Equal(t, 1.0, SensorKindDigital.Convert(42))
	assert.Equal(t, 0.0, SensorKindDigital.Convert(0))

	assert.Equal(t, 512.0, SensorKindAnalog.Convert(512))

	// 310 raw on a 10-bit/3.3V ADC is 1000mV, a TMP36 reports 50C there.
	assert.InDelta(t, 50.0, SensorKindTemperature.Convert(310), 0.1)
	// 155 raw is 500mV, the probe's 0C point.
	assert.InDelta(t, 0.0, SensorKindTemperature.Convert(155), 0.1)

	assert.InDelta(t, 100.0, SensorKindHumidity.Convert(1023), 0.001)
	assert.InDelta(t, 50.0, SensorKindHumidity.Convert(511), 0.1)
}

func TestComponentValidate(t *testing.T) {
	valid := Component{Pin: 4, Kind: SensorKindDigital, Name: "door"}
	assert.NoError(t, valid.Validate())

	noName := valid
	noName.Name = ""
	assert.Error(t, noName.Validate())

	badKind := valid
	badKind.Kind = "pressure"
	assert.Error(t, badKind.Validate())

	negativePin := valid
	negativePin.Pin = -1
	assert.Error(t, negativePin.Validate())
}

func TestSchemaComponentByName(t *testing.T) {
	s := Schema{
		NodeID: "node-1",
		Components: []Component{
			{Pin: 4, Kind: SensorKindDigital, Name: "door"},
			{Pin: 5, Kind: SensorKindTemperature, Name: "boiler"},
		},
	}
	c, found := s.ComponentByName("boiler")
	assert.True(t, found)
	assert.Equal(t, 5, c.Pin)
	_, found = s.ComponentByName("window")
	assert.False(t, found)
}
