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

package schema

import (
	"bufio"
	"encoding/json"
	"os"
	"runtime"
	"strconv"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fieldnet/NodeWorker/model"
)

// Config for the schema validator.
type Config struct {
	// Board limits the validator checks against
	Profile model.BoardProfile
	// Identifier of this node
	NodeID string
	// FreeMemory overrides the memory probe. Leave nil for the default.
	FreeMemory func() uint64
}

// Validator checks a raw schema payload before any mutation happens.
// A payload that clears all six stages is safe to hand to the
// transaction engine.
type Validator struct {
	log        zerolog.Logger
	profile    model.BoardProfile
	nodeID     string
	freeMemory func() uint64
}

// NewValidator creates a validator for the given board and node.
func NewValidator(conf Config, log zerolog.Logger) *Validator {
	probe := conf.FreeMemory
	if probe == nil {
		probe = defaultFreeMemory
	}
	return &Validator{
		log:        log.With().Str("component", "schema-validator").Logger(),
		profile:    conf.Profile,
		nodeID:     conf.NodeID,
		freeMemory: probe,
	}
}

// Validate runs the six validation stages in order, short-circuiting
// on the first failure so no work is wasted on a doomed request.
func (v *Validator) Validate(raw []byte) (model.Schema, error) {
	// Stage 1: size
	if len(raw) > v.profile.MaxSchemaBytes {
		validationFailuresTotal.WithLabelValues("size").Inc()
		return model.Schema{}, errors.Wrapf(ErrSchemaTooLarge, "payload is %s, budget is %s",
			humanize.Bytes(uint64(len(raw))), humanize.Bytes(uint64(v.profile.MaxSchemaBytes)))
	}

	// Stage 2: memory, checked before parsing to avoid an
	// out-of-memory crash during parse.
	need := v.profile.MemoryFloor + uint64(len(raw))*v.profile.ParseOverhead
	if free := v.freeMemory(); free < need {
		validationFailuresTotal.WithLabelValues("memory").Inc()
		v.log.Warn().
			Str("free", humanize.Bytes(free)).
			Str("need", humanize.Bytes(need)).
			Msg("rejecting schema, memory too low")
		return model.Schema{}, errors.Wrapf(ErrInsufficientMemory, "free %s, need %s",
			humanize.Bytes(free), humanize.Bytes(need))
	}

	// Stage 3: parse
	var s model.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		validationFailuresTotal.WithLabelValues("parse").Inc()
		return model.Schema{}, errors.Wrap(ErrSchemaParse, err.Error())
	}

	// Stage 4: identity
	if s.NodeID != v.nodeID {
		validationFailuresTotal.WithLabelValues("identity").Inc()
		return model.Schema{}, errors.Wrapf(ErrIdentityMismatch, "schema targets '%s', this node is '%s'",
			s.NodeID, v.nodeID)
	}

	// Stage 5: cardinality
	if len(s.Components) > v.profile.MaxSensors {
		validationFailuresTotal.WithLabelValues("cardinality").Inc()
		return model.Schema{}, errors.Wrapf(ErrTooManyComponents, "%d components, capacity is %d",
			len(s.Components), v.profile.MaxSensors)
	}

	// Stage 6: per-component legality. Any violation rejects the
	// whole schema.
	for _, c := range s.Components {
		if err := c.Validate(); err != nil {
			validationFailuresTotal.WithLabelValues("component").Inc()
			return model.Schema{}, maskAny(err)
		}
		if c.Pin < 0 || c.Pin >= v.profile.MaxPins {
			validationFailuresTotal.WithLabelValues("component").Inc()
			return model.Schema{}, errors.Wrapf(ErrUnknownPin, "component '%s' uses pin %d, range is [0..%d)",
				c.Name, c.Pin, v.profile.MaxPins)
		}
		if v.profile.IsReserved(c.Pin) {
			validationFailuresTotal.WithLabelValues("component").Inc()
			return model.Schema{}, errors.Wrapf(ErrReservedPin, "component '%s' uses pin %d", c.Name, c.Pin)
		}
	}

	validationsTotal.Inc()
	return s, nil
}

// defaultFreeMemory probes the available memory of the host.
// Prefers MemAvailable from /proc/meminfo, falling back to the Go
// runtime's own heap statistics.
func defaultFreeMemory() uint64 {
	if f, err := os.Open("/proc/meminfo"); err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "MemAvailable:") {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				if kb, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
					return kb * 1024
				}
			}
		}
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapSys - ms.HeapInuse
}
