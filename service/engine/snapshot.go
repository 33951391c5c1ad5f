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
	"time"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/sensors"
)

// snapshotEntry records one sensor that was active before the apply.
type snapshotEntry struct {
	pin   int
	kind  model.SensorKind
	group string
	name  string
}

// Snapshot captures the active sensor set right before a bulk apply.
// It lives for the duration of exactly one apply: discarded on commit,
// consumed by rollback on failure.
type Snapshot struct {
	entries []snapshotEntry
	takenAt time.Time
}

// takeSnapshot copies every active slot of the given table.
func takeSnapshot(t *sensors.Table) Snapshot {
	active := t.ActiveSlots()
	snap := Snapshot{
		entries: make([]snapshotEntry, 0, len(active)),
		takenAt: time.Now(),
	}
	for _, s := range active {
		snap.entries = append(snap.entries, snapshotEntry{
			pin:   s.Pin,
			kind:  s.Kind,
			group: s.Group,
			name:  s.Name,
		})
	}
	return snap
}

// Len returns the number of sensors captured in the snapshot.
func (s Snapshot) Len() int {
	return len(s.entries)
}

// entryByPin returns the entry for the given pin.
// Return false if the pin was not active when the snapshot was taken.
func (s Snapshot) entryByPin(pin int) (snapshotEntry, bool) {
	for _, e := range s.entries {
		if e.pin == pin {
			return e, true
		}
	}
	return snapshotEntry{}, false
}

// matches returns true when the given slot holds the same sensor as
// the snapshot entry for its pin.
func (e snapshotEntry) matches(s sensors.Slot) bool {
	return e.name == s.Name && e.kind == s.Kind && e.group == s.Group
}
