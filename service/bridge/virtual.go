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

import (
	"sync"

	"github.com/pkg/errors"
)

var maskAny = errors.WithStack

// virtualBridge implements the bridge in memory, for development
// and tests on machines without GPIO hardware.
type virtualBridge struct {
	mutex      sync.Mutex
	pinCount   int
	directions []PinDirection
	levels     []bool
	analog     []int
	greenLed   bool
	redLed     bool
}

// VirtualBridge extends the bridge API with test hooks to set
// the value observed on an input pin.
type VirtualBridge interface {
	API
	// SetInputLevel sets the digital level read from the given pin.
	SetInputLevel(pin int, level bool)
	// SetAnalogValue sets the analog value read from the given pin.
	SetAnalogValue(pin int, value int)
	// Direction returns the current direction of the given pin.
	Direction(pin int) PinDirection
	// GreenLED returns the current state of the green status led.
	GreenLED() bool
	// RedLED returns the current state of the red status led.
	RedLED() bool
}

// NewVirtualBridge implements the bridge without any hardware.
func NewVirtualBridge(pinCount int) VirtualBridge {
	return &virtualBridge{
		pinCount:   pinCount,
		directions: make([]PinDirection, pinCount),
		levels:     make([]bool, pinCount),
		analog:     make([]int, pinCount),
	}
}

func (v *virtualBridge) checkPin(pin int) error {
	if pin < 0 || pin >= v.pinCount {
		return errors.Errorf("pin %d is out of range [0..%d)", pin, v.pinCount)
	}
	return nil
}

// Set the direction of the pin at given index.
func (v *virtualBridge) SetDirection(pin int, direction PinDirection) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if err := v.checkPin(pin); err != nil {
		return maskAny(err)
	}
	v.directions[pin] = direction
	if direction == PinDirectionInput {
		v.levels[pin] = false
	}
	return nil
}

// Set the output pin at given index to the given level.
func (v *virtualBridge) Write(pin int, level bool) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if err := v.checkPin(pin); err != nil {
		return maskAny(err)
	}
	if v.directions[pin] != PinDirectionOutput {
		return errors.Errorf("pin %d is not configured as output", pin)
	}
	v.levels[pin] = level
	return nil
}

// Read the digital level of the pin at given index.
func (v *virtualBridge) Read(pin int) (bool, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if err := v.checkPin(pin); err != nil {
		return false, maskAny(err)
	}
	return v.levels[pin], nil
}

// Read the analog value of the pin at given index.
func (v *virtualBridge) ReadAnalog(pin int) (int, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if err := v.checkPin(pin); err != nil {
		return 0, maskAny(err)
	}
	return v.analog[pin], nil
}

// SetInputLevel sets the digital level read from the given pin.
func (v *virtualBridge) SetInputLevel(pin int, level bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if pin >= 0 && pin < v.pinCount {
		v.levels[pin] = level
	}
}

// SetAnalogValue sets the analog value read from the given pin.
func (v *virtualBridge) SetAnalogValue(pin int, value int) {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if pin >= 0 && pin < v.pinCount {
		v.analog[pin] = value
	}
}

// Direction returns the current direction of the given pin.
func (v *virtualBridge) Direction(pin int) PinDirection {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if pin < 0 || pin >= v.pinCount {
		return PinDirectionInput
	}
	return v.directions[pin]
}

// Turn Green status led on/off
func (v *virtualBridge) SetGreenLED(on bool) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.greenLed = on
	return nil
}

// Turn Red status led on/off
func (v *virtualBridge) SetRedLED(on bool) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.redLed = on
	return nil
}

// GreenLED returns the current state of the green status led.
func (v *virtualBridge) GreenLED() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.greenLed
}

// RedLED returns the current state of the red status led.
func (v *virtualBridge) RedLED() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.redLed
}

// Close the bridge, returning all pins to a safe state.
func (v *virtualBridge) Close() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	for pin := range v.directions {
		v.directions[pin] = PinDirectionInput
		v.levels[pin] = false
	}
	v.greenLed = false
	v.redLed = false
	return nil
}
