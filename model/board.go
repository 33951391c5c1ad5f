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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BoardProfile describes the fixed hardware limits of one board type.
// The reserved pin set is immutable for the process lifetime.
type BoardProfile struct {
	// Name of the board type (e.g. "rpi")
	Name string `yaml:"name" json:"name"`
	// Number of addressable GPIO pins. Valid pins are [0, MaxPins).
	MaxPins int `yaml:"maxPins" json:"maxPins"`
	// Maximum number of logical sensors (slot table capacity)
	MaxSensors int `yaml:"maxSensors" json:"maxSensors"`
	// Pins that must never be claimed (boot-strap, serial, bus-control lines)
	ReservedPins []int `yaml:"reservedPins" json:"reservedPins"`
	// Maximum accepted size of a raw schema payload in bytes
	MaxSchemaBytes int `yaml:"maxSchemaBytes" json:"maxSchemaBytes"`
	// Minimum free memory (bytes) that must remain available before
	// a schema payload is parsed
	MemoryFloor uint64 `yaml:"memoryFloor" json:"memoryFloor"`
	// Estimated parsing overhead per payload byte
	ParseOverhead uint64 `yaml:"parseOverhead" json:"parseOverhead"`
}

var defaultProfiles = []BoardProfile{
	{
		Name:       "rpi",
		MaxPins:    28,
		MaxSensors: 16,
		// GPIO 0/1 are the HAT ID EEPROM pins, 2/3 the primary I2C bus,
		// 14/15 the serial console.
		ReservedPins:   []int{0, 1, 2, 3, 14, 15},
		MaxSchemaBytes: 4096,
		MemoryFloor:    1 << 20,
		ParseOverhead:  4,
	},
	{
		Name:           "virtual",
		MaxPins:        32,
		MaxSensors:     16,
		ReservedPins:   []int{0, 1},
		MaxSchemaBytes: 4096,
		MemoryFloor:    1 << 20,
		ParseOverhead:  4,
	},
}

// DefaultProfile returns the builtin profile with given name.
// Return false if no such profile exists.
func DefaultProfile(name string) (BoardProfile, bool) {
	for _, p := range defaultProfiles {
		if p.Name == name {
			return p, true
		}
	}
	return BoardProfile{}, false
}

// LoadProfile reads a board profile from a YAML file.
func LoadProfile(path string) (BoardProfile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return BoardProfile{}, maskAny(err)
	}
	var p BoardProfile
	if err := yaml.Unmarshal(content, &p); err != nil {
		return BoardProfile{}, errors.Wrapf(ValidationError, "Cannot parse board profile '%s': %s", path, err.Error())
	}
	if err := p.Validate(); err != nil {
		return BoardProfile{}, maskAny(err)
	}
	return p, nil
}

// IsReserved returns true when the given pin is in the reserved set.
func (p BoardProfile) IsReserved(pin int) bool {
	for _, x := range p.ReservedPins {
		if x == pin {
			return true
		}
	}
	return false
}

// Validate the given profile, returning nil on ok,
// or an error upon validation issues.
func (p BoardProfile) Validate() error {
	if p.Name == "" {
		return errors.Wrap(ValidationError, "Name is empty")
	}
	if p.MaxPins <= 0 {
		return errors.Wrapf(ValidationError, "MaxPins must be positive, got %d", p.MaxPins)
	}
	if p.MaxSensors <= 0 {
		return errors.Wrapf(ValidationError, "MaxSensors must be positive, got %d", p.MaxSensors)
	}
	if p.MaxSchemaBytes <= 0 {
		return errors.Wrapf(ValidationError, "MaxSchemaBytes must be positive, got %d", p.MaxSchemaBytes)
	}
	for _, x := range p.ReservedPins {
		if x < 0 || x >= p.MaxPins {
			return errors.Wrapf(ValidationError, "Reserved pin %d is out of range [0..%d)", x, p.MaxPins)
		}
	}
	return nil
}
