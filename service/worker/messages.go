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

package worker

import (
	"path"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/pins"
)

const (
	topicRoot = "fieldnet"

	topicSchemaApply   = "schema/apply"
	topicSensorClaim   = "sensor/claim"
	topicSensorRelease = "sensor/release"
	topicSensorRawMode = "sensor/rawmode"
	topicCapsRequest   = "capabilities/request"
	topicCapsReport    = "capabilities/report"
	topicResponse      = "response"
	topicValue         = "value"
)

// nodeTopic builds the full topic for this node.
func nodeTopic(nodeID string, suffix ...string) string {
	parts := append([]string{topicRoot, nodeID}, suffix...)
	return path.Join(parts...)
}

// claimRequest configures a single sensor outside of a bulk apply.
type claimRequest struct {
	Pin   int              `json:"pin"`
	Kind  model.SensorKind `json:"kind"`
	Group string           `json:"group,omitempty"`
	Name  string           `json:"name"`
}

// releaseRequest removes the sensor on the given pin.
type releaseRequest struct {
	Pin int `json:"pin"`
}

// rawModeRequest toggles unit conversion for the sensor on the given pin.
type rawModeRequest struct {
	Pin int  `json:"pin"`
	Raw bool `json:"raw"`
}

// capsRequest asks for a capabilities report.
type capsRequest struct {
	RequestID string `json:"requestId,omitempty"`
}

// response reports the outcome of a request back to the controller.
// Denied claims carry the conflict record so the operator can fix the
// request without needing device logs.
type response struct {
	Request  string         `json:"request"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Conflict *pins.Conflict `json:"conflict,omitempty"`
}
