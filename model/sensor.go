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

import "github.com/pkg/errors"

// SensorKind identifies a type of sensor.
type SensorKind string

const (
	// Plain digital input, value 0 or 1
	SensorKindDigital SensorKind = "digital"
	// Raw analog input, value is the ADC reading
	SensorKindAnalog SensorKind = "analog"
	// Analog temperature probe, converted to degrees Celsius
	SensorKindTemperature SensorKind = "temperature"
	// Analog humidity probe, converted to percent RH
	SensorKindHumidity SensorKind = "humidity"
)

// Validate the given kind, returning nil on ok,
// or an error upon validation issues.
func (k SensorKind) Validate() error {
	switch k {
	case SensorKindDigital, SensorKindAnalog, SensorKindTemperature, SensorKindHumidity:
		return nil
	default:
		return errors.Wrapf(ValidationError, "invalid sensor kind '%s'", string(k))
	}
}

// IsAnalog returns true when sensors of this kind are read through
// the analog input of the pin driver.
func (k SensorKind) IsAnalog() bool {
	return k != SensorKindDigital
}

// Convert turns a raw pin reading into physical units.
// The conversion formulas assume a 10-bit ADC with a 3.3V reference.
func (k SensorKind) Convert(raw int) float64 {
	switch k {
	case SensorKindDigital:
		if raw != 0 {
			return 1
		}
		return 0
	case SensorKindAnalog:
		return float64(raw)
	case SensorKindTemperature:
		// TMP36 style probe: 500mV offset, 10mV per degree.
		mv := float64(raw) * 3300.0 / 1023.0
		return (mv - 500.0) / 10.0
	case SensorKindHumidity:
		return float64(raw) * 100.0 / 1023.0
	default:
		// Validate() keeps unknown kinds out of the slot table.
		return float64(raw)
	}
}
