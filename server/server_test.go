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

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/service/pins"
)

type stubAPI struct {
	inconsistent bool
	caps         model.Capabilities
	conflict     *pins.Conflict
}

func (s stubAPI) NodeID() string {
	return "node-1"
}

func (s stubAPI) Inconsistent() bool {
	return s.inconsistent
}

func (s stubAPI) CapabilitiesSnapshot() model.Capabilities {
	return s.caps
}

func (s stubAPI) LastConflict() (pins.Conflict, bool) {
	if s.conflict == nil {
		return pins.Conflict{}, false
	}
	return *s.conflict, true
}

func invoke(t *testing.T, api stubAPI, handler func(*Server) func(echo.Context) error, path string) *httptest.ResponseRecorder {
	s := &Server{log: zerolog.Nop(), service: api}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	require.NoError(t, handler(s)(c))
	return rec
}

func TestHandleHealth(t *testing.T) {
	health := func(s *Server) func(echo.Context) error { return s.handleHealth }

	rec := invoke(t, stubAPI{}, health, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A node with untrusted pin state reports unhealthy so a
	// supervisor can restart it.
	rec = invoke(t, stubAPI{inconsistent: true}, health, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "inconsistent", rec.Body.String())
}

func TestHandleCapabilities(t *testing.T) {
	api := stubAPI{caps: model.Capabilities{
		NodeID:         "node-1",
		Board:          "virtual",
		FreePins:       []int{2, 3},
		ReservedPins:   []int{0, 1},
		SensorCapacity: 8,
	}}
	rec := invoke(t, api, func(s *Server) func(echo.Context) error { return s.handleCapabilities }, "/api/capabilities")
	assert.Equal(t, http.StatusOK, rec.Code)

	var caps model.Capabilities
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &caps))
	assert.Equal(t, "virtual", caps.Board)
	assert.Equal(t, []int{2, 3}, caps.FreePins)
}

func TestHandleConflict(t *testing.T) {
	conflictOf := func(s *Server) func(echo.Context) error { return s.handleConflict }

	rec := invoke(t, stubAPI{}, conflictOf, "/api/conflict")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	api := stubAPI{conflict: &pins.Conflict{
		Pin:            14,
		Reason:         pins.ConflictReasonReserved,
		RequestedOwner: "door",
	}}
	rec = invoke(t, api, conflictOf, "/api/conflict")
	assert.Equal(t, http.StatusOK, rec.Code)

	var c pins.Conflict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, 14, c.Pin)
	assert.Equal(t, pins.ConflictReasonReserved, c.Reason)
}
