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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/fieldnet/NodeWorker/service/engine"
	"github.com/fieldnet/NodeWorker/service/pins"
)

func TestNodeTopic(t *testing.T) {
	assert.Equal(t, "fieldnet/abc123/schema/apply", nodeTopic("abc123", topicSchemaApply))
	assert.Equal(t, "fieldnet/abc123/response", nodeTopic("abc123", topicResponse))
	assert.Equal(t, "fieldnet/abc123/value/door", nodeTopic("abc123", topicValue, "door"))
}

func TestIsConflictError(t *testing.T) {
	assert.True(t, isConflictError(pins.ErrPinReserved))
	assert.True(t, isConflictError(errors.Wrap(pins.ErrPinAlreadyClaimed, "pin 4")))
	assert.True(t, isConflictError(engine.ErrDuplicatePin))
	assert.False(t, isConflictError(nil))
	assert.False(t, isConflictError(errors.New("broker down")))
}
