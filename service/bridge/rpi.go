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
	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

const (
	greenLedPin = 23
	redLedPin   = 24
)

type piBridge struct {
	greenLed gpio.OutputPin
	redLed   gpio.OutputPin
	inputs   map[int]gpio.InputPin
	outputs  map[int]gpio.OutputPin
}

// NewRaspberryPiBridge implements the bridge for Raspberry PI's.
func NewRaspberryPiBridge() (API, error) {
	activeLow := true
	initialValue := false
	greenLed, err := gpio.Output(greenLedPin, activeLow, initialValue)
	if err != nil {
		return nil, maskAny(err)
	}
	redLed, err := gpio.Output(redLedPin, activeLow, initialValue)
	if err != nil {
		return nil, maskAny(err)
	}
	return &piBridge{
		greenLed: greenLed,
		redLed:   redLed,
		inputs:   make(map[int]gpio.InputPin),
		outputs:  make(map[int]gpio.OutputPin),
	}, nil
}

// Set the direction of the pin at given index.
func (p *piBridge) SetDirection(pin int, direction PinDirection) error {
	activeLow := false
	switch direction {
	case PinDirectionInput:
		delete(p.outputs, pin)
		in, err := gpio.Input(pin, activeLow)
		if err != nil {
			return maskAny(err)
		}
		p.inputs[pin] = in
	case PinDirectionOutput:
		delete(p.inputs, pin)
		initialValue := false
		out, err := gpio.Output(pin, activeLow, initialValue)
		if err != nil {
			return maskAny(err)
		}
		p.outputs[pin] = out
	}
	return nil
}

// Set the output pin at given index to the given level.
func (p *piBridge) Write(pin int, level bool) error {
	out, ok := p.outputs[pin]
	if !ok {
		return errors.Errorf("pin %d is not configured as output", pin)
	}
	if err := out.Write(level); err != nil {
		return maskAny(err)
	}
	return nil
}

// Read the digital level of the pin at given index.
func (p *piBridge) Read(pin int) (bool, error) {
	if in, ok := p.inputs[pin]; ok {
		value, err := in.Read()
		if err != nil {
			return false, maskAny(err)
		}
		return value, nil
	}
	if out, ok := p.outputs[pin]; ok {
		value, err := out.(gpio.InputPin).Read()
		if err != nil {
			return false, maskAny(err)
		}
		return value, nil
	}
	return false, errors.Errorf("pin %d is not configured", pin)
}

// Read the analog value of the pin at given index.
// The PI has no onboard ADC; analog sensors need an expansion board.
func (p *piBridge) ReadAnalog(pin int) (int, error) {
	return 0, errors.Errorf("pin %d: analog input is not supported on this board", pin)
}

// Turn Green status led on/off
func (p *piBridge) SetGreenLED(on bool) error {
	if err := p.greenLed.Write(on); err != nil {
		return maskAny(err)
	}
	return nil
}

// Turn Red status led on/off
func (p *piBridge) SetRedLED(on bool) error {
	if err := p.redLed.Write(on); err != nil {
		return maskAny(err)
	}
	return nil
}

// Close the bridge, returning all pins to a safe state.
func (p *piBridge) Close() error {
	for pin := range p.outputs {
		if err := p.SetDirection(pin, PinDirectionInput); err != nil {
			return maskAny(err)
		}
	}
	p.greenLed.Write(false)
	p.redLed.Write(false)
	return nil
}
