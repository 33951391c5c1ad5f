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

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	p, found := DefaultProfile("rpi")
	require.True(t, found)
	assert.Equal(t, "rpi", p.Name)
	assert.Equal(t, 28, p.MaxPins)
	assert.NoError(t, p.Validate())

	_, found = DefaultProfile("no-such-board")
	assert.False(t, found)
}

func TestBoardProfileIsReserved(t *testing.T) {
	p, found := DefaultProfile("rpi")
	require.True(t, found)
	// Serial console pins must never be claimable.
	assert.True(t, p.IsReserved(14))
	assert.True(t, p.IsReserved(15))
	assert.False(t, p.IsReserved(17))
}

func TestBoardProfileValidate(t *testing.T) {
	valid := BoardProfile{
		Name:           "test",
		MaxPins:        8,
		MaxSensors:     4,
		ReservedPins:   []int{0},
		MaxSchemaBytes: 1024,
	}
	assert.NoError(t, valid.Validate())

	noName := valid
	noName.Name = ""
	assert.Error(t, noName.Validate())

	noPins := valid
	noPins.MaxPins = 0
	assert.Error(t, noPins.Validate())

	badReserved := valid
	badReserved.ReservedPins = []int{8}
	assert.Error(t, badReserved.Validate())
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	content := `name: custom
maxPins: 16
maxSensors: 8
reservedPins: [0, 1, 2]
maxSchemaBytes: 2048
memoryFloor: 1048576
parseOverhead: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name)
	assert.Equal(t, 16, p.MaxPins)
	assert.Equal(t, []int{0, 1, 2}, p.ReservedPins)
	assert.Equal(t, uint64(1048576), p.MemoryFloor)
}

func TestLoadProfileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: broken\nmaxPins: -3\n"), 0644))

	_, err := LoadProfile(path)
	assert.Error(t, err)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
