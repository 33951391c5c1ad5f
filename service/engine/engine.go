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

package engine

import (
	"encoding/json"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/pins"
	"github.com/fieldnet/NodeWorker/service/sensors"
	"github.com/fieldnet/NodeWorker/service/store"
)

// State of the transaction engine.
type State uint8

const (
	StateIdle State = iota
	StateBackingUp
	StateStaging
	StateCommitting
	StateRollingBack
)

// String returns a human readable representation of the given state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBackingUp:
		return "backing-up"
	case StateStaging:
		return "staging"
	case StateCommitting:
		return "committing"
	case StateRollingBack:
		return "rolling-back"
	default:
		return "unknown"
	}
}

// StoreKeySensorTable is the store key holding the last committed
// sensor table.
const StoreKeySensorTable = "sensor-table"

// defaultApplyTimeout is the ceiling after which a held apply flag is
// treated as stuck.
const defaultApplyTimeout = time.Second * 30

// Config for the transaction engine.
type Config struct {
	// Ceiling after which a held apply flag is treated as stuck.
	// Defaults to 30s.
	ApplyTimeout time.Duration
}

// Dependencies of the transaction engine.
type Dependencies struct {
	Log       zerolog.Logger
	Table     *sensors.Table
	Conflicts *pins.Reporter
	Store     store.API
}

// Engine orchestrates bulk reconfiguration: backup, stage, commit,
// and rollback on failure. A bulk apply is all-or-nothing even though
// the underlying pin operations are not transactional.
type Engine struct {
	Dependencies

	log          zerolog.Logger
	applyTimeout time.Duration

	mutex  sync.Mutex
	busy   bool
	busyAt time.Time
	state  State
}

// New creates a transaction engine.
func New(conf Config, deps Dependencies) *Engine {
	timeout := conf.ApplyTimeout
	if timeout == 0 {
		timeout = defaultApplyTimeout
	}
	return &Engine{
		Dependencies: deps,
		log:          deps.Log.With().Str("component", "txn-engine").Logger(),
		applyTimeout: timeout,
	}
}

// State returns the current engine state.
func (e *Engine) State() State {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.state
}

// Apply replaces the active sensor set with the components of the
// given (already validated) schema. On any failure the previous
// sensor set is restored exactly; only a successful commit persists
// the new configuration.
func (e *Engine) Apply(s model.Schema) error {
	if err := e.acquire(); err != nil {
		return maskAny(err)
	}
	defer e.release()

	e.setState(StateBackingUp)
	snap := takeSnapshot(e.Table)
	e.log.Debug().Int("sensors", snap.Len()).Int("components", len(s.Components)).Msg("apply started")

	e.setState(StateStaging)
	if err := e.stage(s); err != nil {
		// Nothing has been mutated yet; rollback verifies that the
		// previous set is still in place.
		if rbErr := e.finishRollback(snap); rbErr != nil {
			appliesTotal.WithLabelValues("inconsistent").Inc()
			return maskAny(rbErr)
		}
		appliesTotal.WithLabelValues("rejected").Inc()
		return maskAny(err)
	}

	e.setState(StateCommitting)
	if err := e.commit(s); err != nil {
		if rbErr := e.finishRollback(snap); rbErr != nil {
			appliesTotal.WithLabelValues("inconsistent").Inc()
			return maskAny(rbErr)
		}
		appliesTotal.WithLabelValues("failed").Inc()
		return maskAny(err)
	}

	e.persist()
	e.setState(StateIdle)
	appliesTotal.WithLabelValues("committed").Inc()
	e.log.Info().Int("sensors", e.Table.ActiveCount()).Msg("schema committed")
	return nil
}

// stage validates the schema against a temporary working set without
// touching the sensor table. A duplicate pin within the schema is a
// staging failure.
func (e *Engine) stage(s model.Schema) error {
	working := make(map[int]string, len(s.Components))
	for _, c := range s.Components {
		if firstName, found := working[c.Pin]; found {
			e.Conflicts.Record(c.Pin, pins.ConflictReasonAlreadyClaimed, firstName, c.Name)
			return errors.Wrapf(ErrDuplicatePin, "pin %d claimed by both '%s' and '%s'", c.Pin, firstName, c.Name)
		}
		working[c.Pin] = c.Name
	}
	return nil
}

// commit releases every currently active sensor, then claims each
// staged component in schema order. Any claim failure aborts the
// remaining claims.
func (e *Engine) commit(s model.Schema) error {
	for _, slot := range e.Table.ActiveSlots() {
		e.Table.Release(slot.Pin)
	}
	for _, c := range s.Components {
		if _, err := e.Table.Claim(c.Pin, c.Kind, c.Group, c.Name); err != nil {
			e.log.Warn().Err(err).Int("pin", c.Pin).Str("name", c.Name).Msg("commit-time claim failed, rolling back")
			return maskAny(err)
		}
	}
	return nil
}

// finishRollback runs the rollback and returns to idle state.
func (e *Engine) finishRollback(snap Snapshot) error {
	e.setState(StateRollingBack)
	err := e.rollback(snap)
	e.setState(StateIdle)
	return err
}

// rollback restores the exact sensor set captured in the snapshot.
// Pins newly claimed by the failed apply are released; previously
// active sensors are re-claimed. A restoration that cannot find a
// free slot leaves the system inconsistent, which is surfaced as a
// hard fault rather than silently losing a sensor.
func (e *Engine) rollback(snap Snapshot) error {
	rollbacksTotal.Inc()

	// Release anything the failed apply claimed that was not active
	// before, or that differs from what was there.
	for _, slot := range e.Table.ActiveSlots() {
		entry, inSnap := snap.entryByPin(slot.Pin)
		if !inSnap || !entry.matches(slot) {
			e.Table.Release(slot.Pin)
		}
	}

	// Re-claim the previous sensors. Entries whose slot survived the
	// failed apply untouched are left alone.
	var ae aerr.AggregateError
	for _, entry := range snap.entries {
		if _, ok := e.Table.FindByPin(entry.pin); ok {
			continue
		}
		if _, err := e.Table.Claim(entry.pin, entry.kind, entry.group, entry.name); err != nil {
			e.log.Error().Err(err).Int("pin", entry.pin).Str("name", entry.name).Msg("Cannot restore sensor during rollback")
			ae.Add(maskAny(err))
		}
	}
	if err := ae.AsError(); err != nil {
		rollbackFailuresTotal.Inc()
		return errors.Wrapf(ErrRollbackInconsistent, "restore failed: %s", err.Error())
	}
	return nil
}

// persist writes the committed sensor table to the store.
// The apply has already succeeded; a store failure is logged but does
// not fail the apply.
func (e *Engine) persist() {
	content, err := json.Marshal(e.Table.ActiveSlots())
	if err != nil {
		e.log.Error().Err(err).Msg("Cannot encode sensor table")
		return
	}
	if err := e.Store.Put(StoreKeySensorTable, content); err != nil {
		e.log.Error().Err(err).Msg("Cannot persist sensor table")
	}
}

// acquire takes the logical apply flag. The flag is a mutual
// exclusion guard against a second apply arriving before the first
// returned; a flag held beyond the ceiling is treated as stuck and
// forcibly cleared.
func (e *Engine) acquire() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.busy {
		held := time.Since(e.busyAt)
		if held <= e.applyTimeout {
			return errors.Wrapf(ErrApplyInProgress, "apply started %s ago", held)
		}
		e.log.Warn().Dur("held", held).Msg("apply flag held beyond ceiling, forcibly clearing")
		busyFlagForcedClearsTotal.Inc()
	}
	e.busy = true
	e.busyAt = time.Now()
	return nil
}

// release clears the apply flag.
func (e *Engine) release() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.busy = false
	e.state = StateIdle
}

// setState records a state transition.
func (e *Engine) setState(next State) {
	e.mutex.Lock()
	prev := e.state
	e.state = next
	e.mutex.Unlock()
	e.log.Debug().Str("from", prev.String()).Str("to", next.String()).Msg("state transition")
}
