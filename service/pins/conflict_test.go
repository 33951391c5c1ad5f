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

package pins

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporterEmpty(t *testing.T) {
	r := NewReporter(zerolog.Nop())
	_, found := r.LastConflict()
	assert.False(t, found)
}

func TestReporterRecordOverwrites(t *testing.T) {
	r := NewReporter(zerolog.Nop())

	r.Record(14, ConflictReasonReserved, "", "door")
	c, found := r.LastConflict()
	require.True(t, found)
	assert.Equal(t, 14, c.Pin)
	assert.Equal(t, ConflictReasonReserved, c.Reason)
	assert.Equal(t, "door", c.RequestedOwner)
	assert.Empty(t, c.CurrentOwner)

	// Each new conflict replaces the previous one.
	r.Record(4, ConflictReasonAlreadyClaimed, "boiler", "window")
	c, found = r.LastConflict()
	require.True(t, found)
	assert.Equal(t, 4, c.Pin)
	assert.Equal(t, ConflictReasonAlreadyClaimed, c.Reason)
	assert.Equal(t, "boiler", c.CurrentOwner)
	assert.Equal(t, "window", c.RequestedOwner)
}
