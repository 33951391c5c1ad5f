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

	"github.com/mattn/go-pubsub"
	"github.com/rs/zerolog"

	"github.com/fieldnet/NodeWorker/model"
)

// Events fans out sensor value events to any number of local
// receivers, decoupling the read loop from the transport.
type Events struct {
	log    zerolog.Logger
	values *pubsub.PubSub
}

// NewEvents creates an empty event hub.
func NewEvents(log zerolog.Logger) *Events {
	return &Events{
		log:    log,
		values: pubsub.New(),
	}
}

// PublishValue emits a sensor value event.
func (e *Events) PublishValue(status model.SensorStatus) {
	e.values.Pub(status)
}

// RegisterValueReceiver subscribes to sensor value events.
// The returned function cancels the subscription.
func (e *Events) RegisterValueReceiver(cb func(model.SensorStatus) error) context.CancelFunc {
	wcb := func(x model.SensorStatus) {
		if err := cb(x); err != nil {
			e.log.Warn().Err(err).Msg("Value processing error")
		}
	}
	e.values.Sub(wcb)
	return func() {
		e.values.Leave(wcb)
	}
}
