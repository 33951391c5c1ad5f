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

// Schema describes the complete desired sensor configuration of a node.
// It is supplied by the remote controller and consumed once per apply.
type Schema struct {
	// Identifier of the node this schema is intended for
	NodeID string `json:"node"`
	// Desired sensor components, in apply order
	Components []Component `json:"components"`
}

// Component describes one desired sensor in a schema.
type Component struct {
	// Pin the sensor is attached to
	Pin int `json:"pin"`
	// Type of sensor
	Kind SensorKind `json:"kind"`
	// Unique name of the sensor
	Name string `json:"name"`
	// Logical sub-zone the sensor belongs to
	Group string `json:"group,omitempty"`
}

// ComponentByName returns the component with given name.
// Return false if not found.
func (s Schema) ComponentByName(name string) (Component, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}

// Validate the given component, returning nil on ok,
// or an error upon validation issues.
func (c Component) Validate() error {
	if c.Name == "" {
		return errors.Wrap(ValidationError, "Name is empty")
	}
	if err := c.Kind.Validate(); err != nil {
		return errors.Wrapf(ValidationError, "Error in Kind of '%s': %s", c.Name, err.Error())
	}
	if c.Pin < 0 {
		return errors.Wrapf(ValidationError, "Pin of '%s' is negative", c.Name)
	}
	return nil
}
