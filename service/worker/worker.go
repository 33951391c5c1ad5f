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
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/engine"
	"github.com/fieldnet/NodeWorker/service/mqtt"
	"github.com/fieldnet/NodeWorker/service/pins"
)

var maskAny = errors.WithStack

const (
	readInterval   = time.Millisecond * 500
	publishTimeout = time.Millisecond * 250
)

// NodeAPI is the part of the node service the worker drives.
type NodeAPI interface {
	// ApplySchema validates and applies a bulk configuration payload.
	ApplySchema(ctx context.Context, raw []byte) error
	// ClaimSensor configures a single sensor.
	ClaimSensor(ctx context.Context, pin int, kind model.SensorKind, group, name string) error
	// ReleaseSensor removes the sensor on the given pin.
	ReleaseSensor(ctx context.Context, pin int) bool
	// SetRawMode toggles unit conversion for the sensor on the given pin.
	SetRawMode(ctx context.Context, pin int, raw bool) bool
	// CapabilitiesSnapshot reports free pins, active sensors and reserved pins.
	CapabilitiesSnapshot() model.Capabilities
	// LastConflict returns the most recent denied claim.
	LastConflict() (pins.Conflict, bool)
	// ReadSensors polls all active sensors and returns their status.
	ReadSensors(ctx context.Context) []model.SensorStatus
}

// Service contains the API exposed by the worker service.
type Service interface {
	// Run the worker service until the given context is cancelled.
	Run(ctx context.Context) error
}

type Dependencies struct {
	Log    zerolog.Logger
	Mqtt   mqtt.Service
	Node   NodeAPI
	Events *Events
}

// NewService instantiates a worker for the given node.
func NewService(nodeID string, deps Dependencies) (Service, error) {
	if deps.Events == nil {
		deps.Events = NewEvents(deps.Log)
	}
	return &service{
		nodeID:       nodeID,
		Dependencies: deps,
		log:          deps.Log.With().Str("component", "worker").Logger(),
	}, nil
}

type service struct {
	Dependencies
	nodeID string
	log    zerolog.Logger
}

// Run all request loops until the given context is cancelled.
func (s *service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runSchemaRequests(ctx) })
	g.Go(func() error { return s.runClaimRequests(ctx) })
	g.Go(func() error { return s.runReleaseRequests(ctx) })
	g.Go(func() error { return s.runRawModeRequests(ctx) })
	g.Go(func() error { return s.runCapabilityRequests(ctx) })
	g.Go(func() error { return s.runReadLoop(ctx) })
	g.Go(func() error { return s.runValuePublisher(ctx) })
	if err := g.Wait(); err != nil {
		return maskAny(err)
	}
	return nil
}

// runSchemaRequests handles bulk configuration messages.
func (s *service) runSchemaRequests(ctx context.Context) error {
	topic := nodeTopic(s.nodeID, topicSchemaApply)
	sub, err := s.Mqtt.Subscribe(ctx, topic, mqtt.QosAsLeastOnce)
	if err != nil {
		return maskAny(err)
	}
	defer sub.Close()
	for {
		// The raw payload is kept verbatim; the validator's size and
		// memory stages need the original byte count.
		var raw json.RawMessage
		if err := sub.NextMsg(ctx, &raw); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Str("topic", topic).Msg("NextMsg failed")
			continue
		}
		applyErr := s.Node.ApplySchema(ctx, raw)
		s.respond(ctx, "schema/apply", applyErr)
	}
}

// runClaimRequests handles single-sensor claim commands.
func (s *service) runClaimRequests(ctx context.Context) error {
	topic := nodeTopic(s.nodeID, topicSensorClaim)
	sub, err := s.Mqtt.Subscribe(ctx, topic, mqtt.QosAsLeastOnce)
	if err != nil {
		return maskAny(err)
	}
	defer sub.Close()
	for {
		var req claimRequest
		if err := sub.NextMsg(ctx, &req); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Str("topic", topic).Msg("NextMsg failed")
			continue
		}
		claimErr := s.Node.ClaimSensor(ctx, req.Pin, req.Kind, req.Group, req.Name)
		s.respond(ctx, "sensor/claim", claimErr)
	}
}

// runReleaseRequests handles single-sensor release commands.
func (s *service) runReleaseRequests(ctx context.Context) error {
	topic := nodeTopic(s.nodeID, topicSensorRelease)
	sub, err := s.Mqtt.Subscribe(ctx, topic, mqtt.QosAsLeastOnce)
	if err != nil {
		return maskAny(err)
	}
	defer sub.Close()
	for {
		var req releaseRequest
		if err := sub.NextMsg(ctx, &req); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Str("topic", topic).Msg("NextMsg failed")
			continue
		}
		var releaseErr error
		if !s.Node.ReleaseSensor(ctx, req.Pin) {
			releaseErr = errors.Errorf("no sensor on pin %d", req.Pin)
		}
		s.respond(ctx, "sensor/release", releaseErr)
	}
}

// runRawModeRequests handles raw-mode toggle commands.
func (s *service) runRawModeRequests(ctx context.Context) error {
	topic := nodeTopic(s.nodeID, topicSensorRawMode)
	sub, err := s.Mqtt.Subscribe(ctx, topic, mqtt.QosAsLeastOnce)
	if err != nil {
		return maskAny(err)
	}
	defer sub.Close()
	for {
		var req rawModeRequest
		if err := sub.NextMsg(ctx, &req); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Str("topic", topic).Msg("NextMsg failed")
			continue
		}
		var rawErr error
		if !s.Node.SetRawMode(ctx, req.Pin, req.Raw) {
			rawErr = errors.Errorf("no sensor on pin %d", req.Pin)
		}
		s.respond(ctx, "sensor/rawmode", rawErr)
	}
}

// runCapabilityRequests publishes a capabilities report on request.
func (s *service) runCapabilityRequests(ctx context.Context) error {
	topic := nodeTopic(s.nodeID, topicCapsRequest)
	sub, err := s.Mqtt.Subscribe(ctx, topic, mqtt.QosAsLeastOnce)
	if err != nil {
		return maskAny(err)
	}
	defer sub.Close()
	for {
		var req capsRequest
		if err := sub.NextMsg(ctx, &req); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Str("topic", topic).Msg("NextMsg failed")
			continue
		}
		caps := s.Node.CapabilitiesSnapshot()
		lctx, cancel := context.WithTimeout(ctx, publishTimeout)
		if err := s.Mqtt.Publish(lctx, caps, nodeTopic(s.nodeID, topicCapsReport), mqtt.QosAsLeastOnce); err != nil {
			s.log.Warn().Err(err).Msg("Publish capabilities failed")
		}
		cancel()
	}
}

// runReadLoop polls the active sensors and emits an event for every
// changed value.
func (s *service) runReadLoop(ctx context.Context) error {
	lastValues := make(map[string]float64)
	for {
		select {
		case <-time.After(readInterval):
			// Continue
		case <-ctx.Done():
			return nil
		}
		for _, status := range s.Node.ReadSensors(ctx) {
			last, seen := lastValues[status.Name]
			if seen && last == status.Value {
				continue
			}
			lastValues[status.Name] = status.Value
			s.Events.PublishValue(status)
		}
	}
}

// runValuePublisher forwards sensor value events to the controller.
func (s *service) runValuePublisher(ctx context.Context) error {
	cancel := s.Events.RegisterValueReceiver(func(status model.SensorStatus) error {
		lctx, lcancel := context.WithTimeout(ctx, publishTimeout)
		defer lcancel()
		topic := nodeTopic(s.nodeID, topicValue, status.Name)
		if err := s.Mqtt.Publish(lctx, status, topic, mqtt.QosAtMostOnce); err != nil {
			return maskAny(err)
		}
		return nil
	})
	defer cancel()
	<-ctx.Done()
	return nil
}

// isConflictError returns true when the error came from a denied pin
// claim, so the conflict record in the reporter belongs to it.
func isConflictError(err error) bool {
	switch errors.Cause(err) {
	case pins.ErrPinReserved, pins.ErrPinAlreadyClaimed, engine.ErrDuplicatePin:
		return true
	default:
		return false
	}
}

// respond publishes the outcome of a request, enriched with the last
// conflict when the request failed.
func (s *service) respond(ctx context.Context, request string, err error) {
	msg := response{
		Request: request,
		Success: err == nil,
	}
	if err != nil {
		msg.Error = err.Error()
		if isConflictError(err) {
			if conflict, found := s.Node.LastConflict(); found {
				msg.Conflict = &conflict
			}
		}
	}
	lctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.Mqtt.Publish(lctx, msg, nodeTopic(s.nodeID, topicResponse), mqtt.QosAsLeastOnce); err != nil {
		s.log.Warn().Err(err).Str("request", request).Msg("Publish response failed")
	}
}
