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

// SensorStatus describes one active sensor and its last reading.
type SensorStatus struct {
	Pin   int        `json:"pin"`
	Kind  SensorKind `json:"kind"`
	Group string     `json:"group,omitempty"`
	Name  string     `json:"name"`
	Value float64    `json:"value"`
	Raw   int        `json:"raw"`
	// Ready is true when the physical pin was initialized
	Ready bool `json:"ready"`
}

// Capabilities reports what the node currently offers, used to build
// the capabilities report for the remote controller.
type Capabilities struct {
	// Identifier of this node
	NodeID string `json:"node"`
	// Board type
	Board string `json:"board"`
	// Pins that can currently be claimed
	FreePins []int `json:"freePins"`
	// Pins that can never be claimed
	ReservedPins []int `json:"reservedPins"`
	// Currently active sensors
	ActiveSensors []SensorStatus `json:"activeSensors"`
	// Slot table capacity
	SensorCapacity int `json:"sensorCapacity"`
}
