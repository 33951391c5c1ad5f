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

package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/bridge"
	"github.com/fieldnet/NodeWorker/service/engine"
	"github.com/fieldnet/NodeWorker/service/mqtt"
	"github.com/fieldnet/NodeWorker/service/pins"
	"github.com/fieldnet/NodeWorker/service/schema"
	"github.com/fieldnet/NodeWorker/service/sensors"
	"github.com/fieldnet/NodeWorker/service/store"
	"github.com/fieldnet/NodeWorker/service/worker"
)

var maskAny = errors.WithStack

// workerRestartDelay is the pause before a failed worker is restarted.
const workerRestartDelay = time.Second * 2

// Service contains the API exposed by the node service.
type Service interface {
	worker.NodeAPI
	// Run the node until the given context is cancelled.
	Run(ctx context.Context) error
	// NodeID returns the identifier of this node.
	NodeID() string
	// StartedAt returns the boot time of the service.
	StartedAt() time.Time
	// EngineState returns the current transaction engine state.
	EngineState() string
	// Inconsistent returns true when a failed rollback left the
	// pin/sensor state untrusted.
	Inconsistent() bool
}

type Config struct {
	ProgramVersion string
	// Node identifier. Only used if not empty; derived from the host
	// otherwise.
	NodeID string
	// Board limits
	Profile model.BoardProfile
}

type Dependencies struct {
	Logger zerolog.Logger
	Bridge bridge.API
	Store  store.API
	// MqttBuilder creates the connection to the message broker.
	MqttBuilder func(clientID string) (mqtt.Service, error)
}

// applier is the part of the transaction engine the service drives.
type applier interface {
	Apply(s model.Schema) error
	State() engine.State
}

type service struct {
	Config
	Dependencies

	mutex        sync.Mutex
	nodeID       string
	startedAt    time.Time
	registry     *pins.Registry
	table        *sensors.Table
	conflicts    *pins.Reporter
	validator    *schema.Validator
	engine       applier
	inconsistent bool
}

// NewService creates a Service instance and returns it.
func NewService(conf Config, deps Dependencies) (Service, error) {
	nodeID := conf.NodeID
	if nodeID == "" {
		var err error
		nodeID, err = createHostID()
		if err != nil {
			return nil, errors.Wrap(err, "Failed to create host ID")
		}
	}
	deps.Logger = deps.Logger.With().Str("node-id", nodeID).Logger()

	registry := pins.NewRegistry(conf.Profile, deps.Bridge, deps.Logger)
	conflicts := pins.NewReporter(deps.Logger)
	table := sensors.NewTable(conf.Profile.MaxSensors, registry, conflicts, deps.Logger)
	validator := schema.NewValidator(schema.Config{
		Profile: conf.Profile,
		NodeID:  nodeID,
	}, deps.Logger)
	txnEngine := engine.New(engine.Config{}, engine.Dependencies{
		Log:       deps.Logger,
		Table:     table,
		Conflicts: conflicts,
		Store:     deps.Store,
	})

	return &service{
		Config:       conf,
		Dependencies: deps,
		nodeID:       nodeID,
		startedAt:    time.Now(),
		registry:     registry,
		table:        table,
		conflicts:    conflicts,
		validator:    validator,
		engine:       txnEngine,
	}, nil
}

// NodeID returns the identifier of this node.
func (s *service) NodeID() string {
	return s.nodeID
}

// StartedAt returns the boot time of the service.
func (s *service) StartedAt() time.Time {
	return s.startedAt
}

// EngineState returns the current transaction engine state.
func (s *service) EngineState() string {
	return s.engine.State().String()
}

// Inconsistent returns true when a failed rollback left the
// pin/sensor state untrusted.
func (s *service) Inconsistent() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.inconsistent
}

// Run the node until the given context is cancelled.
func (s *service) Run(ctx context.Context) error {
	log := s.Logger
	defer s.Bridge.Close()

	// Restore the last committed sensor table.
	s.restore(ctx)

	s.Bridge.SetGreenLED(true)
	s.Bridge.SetRedLED(false)

	mqttService, err := s.MqttBuilder(s.nodeID)
	if err != nil {
		return maskAny(err)
	}
	defer mqttService.Close()

	workerService, err := worker.NewService(s.nodeID, worker.Dependencies{
		Log:  log,
		Mqtt: mqttService,
		Node: s,
	})
	if err != nil {
		return maskAny(err)
	}

	log.Info().Str("version", s.ProgramVersion).Str("board", s.Profile.Name).Msg("node running")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runWorker(ctx, workerService) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return maskAny(err)
	}
	s.Bridge.SetGreenLED(false)
	return nil
}

// runWorker keeps exactly one worker alive, restarting it when the
// transport fails underneath it.
func (s *service) runWorker(ctx context.Context, workerService worker.Service) error {
	sem := semaphore.NewWeighted(1)
	for {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil
		}
		err := workerService.Run(ctx)
		sem.Release(1)
		if ctx.Err() != nil {
			return nil
		}
		s.Logger.Error().Err(err).Msg("worker stopped, restarting")
		select {
		case <-time.After(workerRestartDelay):
			// Retry
		case <-ctx.Done():
			return nil
		}
	}
}

// restore re-claims the sensors persisted by the last successful
// commit. Sensors whose pins are no longer claimable (e.g. after a
// board profile change) are skipped with a warning.
func (s *service) restore(ctx context.Context) {
	log := s.Logger.With().Str("component", "restore").Logger()
	content := s.Store.Get(engine.StoreKeySensorTable, nil)
	if content == nil {
		log.Debug().Msg("no persisted sensor table")
		return
	}
	var slots []sensors.Slot
	if err := json.Unmarshal(content, &slots); err != nil {
		log.Error().Err(err).Msg("Cannot parse persisted sensor table")
		return
	}
	restored := 0
	for _, slot := range slots {
		if !slot.Active {
			continue
		}
		if err := s.ClaimSensor(ctx, slot.Pin, slot.Kind, slot.Group, slot.Name); err != nil {
			log.Warn().Err(err).Int("pin", slot.Pin).Str("name", slot.Name).Msg("Cannot restore sensor")
			continue
		}
		if slot.RawMode {
			s.SetRawMode(ctx, slot.Pin, true)
		}
		restored++
	}
	log.Info().Int("restored", restored).Int("persisted", len(slots)).Msg("sensor table restored")
}
