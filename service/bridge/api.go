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

package bridge

// PinDirection describes the electrical configuration of a pin.
type PinDirection byte

const (
	// High-impedance input, the safe state for unclaimed pins
	PinDirectionInput PinDirection = iota
	PinDirectionOutput
)

// API of the bridge, the hardware layer that connects the node to
// its GPIO pins and status LEDs. All operations are synchronous and
// complete within microseconds.
type API interface {
	// Set the direction of the pin at given index (0...)
	SetDirection(pin int, direction PinDirection) error
	// Set the output pin at given index to the given level
	Write(pin int, level bool) error
	// Read the digital level of the pin at given index
	Read(pin int) (bool, error)
	// Read the analog value of the pin at given index
	ReadAnalog(pin int) (int, error)
	// Turn Green status led on/off
	SetGreenLED(on bool) error
	// Turn Red status led on/off
	SetRedLED(on bool) error
	// Close the bridge, returning all pins to a safe state.
	Close() error
}
