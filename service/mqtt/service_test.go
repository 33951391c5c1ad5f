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

package mqtt

import (
	"context"
	"testing"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{}

func (doneToken) Wait() bool {
	return true
}

func (doneToken) WaitTimeout(time.Duration) bool {
	return true
}

func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (doneToken) Error() error {
	return nil
}

type testMessage struct {
	payload []byte
}

func (testMessage) Duplicate() bool {
	return false
}

func (testMessage) Qos() byte {
	return QosAtMostOnce
}

func (testMessage) Retained() bool {
	return false
}

func (m testMessage) Topic() string {
	return "test"
}

func (testMessage) MessageID() uint16 {
	return 0
}

func (m testMessage) Payload() []byte {
	return m.payload
}

func (testMessage) Ack() {
}

// unsubscribeClient delivers one last message while the unsubscribe is
// in flight, like a broker that already had it on the wire.
type unsubscribeClient struct {
	mqttapi.Client
	onUnsubscribe func()
}

func (c *unsubscribeClient) Unsubscribe(topics ...string) mqttapi.Token {
	if c.onUnsubscribe != nil {
		c.onUnsubscribe()
	}
	return doneToken{}
}

func TestSubscriptionCloseWithMessageInFlight(t *testing.T) {
	sub := &subscription{
		log:   zerolog.Nop(),
		topic: "test",
		queue: make(chan []byte, subscriptionQueueSize),
	}
	client := &unsubscribeClient{}
	client.onUnsubscribe = func() {
		sub.messageHandler(nil, testMessage{payload: []byte(`"late"`)})
	}
	sub.client = client

	require.NoError(t, sub.Close())

	// The in-flight message made it into the queue before the close.
	var result string
	require.NoError(t, sub.NextMsg(context.Background(), &result))
	assert.Equal(t, "late", result)

	// Once drained, the closed subscription reports closed.
	err := sub.NextMsg(context.Background(), &result)
	require.Error(t, err)
	assert.Equal(t, SubscriptionClosedError, errors.Cause(err))
}

func TestNextMsgContextCancel(t *testing.T) {
	sub := &subscription{
		log:   zerolog.Nop(),
		topic: "test",
		queue: make(chan []byte, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var result string
	err := sub.NextMsg(ctx, &result)
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
}
