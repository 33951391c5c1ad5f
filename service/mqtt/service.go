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
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	mqttapi "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	// QosAtMostOnce represents "QoS 0: At most once delivery".
	QosAtMostOnce = byte(0)
	// QosAsLeastOnce represents "QoS 1: At least once delivery".
	QosAsLeastOnce = byte(1)
	// QosExactlyOnce represents "QoS 2: Exactly once delivery".
	QosExactlyOnce = byte(2)

	subscriptionQueueSize = 32
	connectTimeout        = time.Second * 10
)

type Config struct {
	Host     string
	Port     int
	UserName string
	Password string
	ClientID string
}

// Service contains the API exposed by the MQTT service.
type Service interface {
	// Close the service
	Close() error
	// Publish a JSON encoded message into a topic.
	Publish(ctx context.Context, msg interface{}, topic string, qos byte) error
	// Subscribe to a topic
	Subscribe(ctx context.Context, topic string, qos byte) (Subscription, error)
}

// Subscription for a single topic
type Subscription interface {
	// Unsubscribe.
	Close() error
	// NextMsg blocks until the next message has been received.
	NextMsg(ctx context.Context, result interface{}) error
}

// NewService instantiates a new MQTT service.
func NewService(config Config, logger zerolog.Logger) (Service, error) {
	log := logger.With().Str("component", "mqtt").Logger()
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	opts := mqttapi.NewClientOptions().
		AddBroker("tcp://" + addr).
		SetClientID(config.ClientID)
	if config.UserName != "" {
		opts.SetUsername(config.UserName)
		opts.SetPassword(config.Password)
	}
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(c mqttapi.Client, err error) {
		log.Error().Err(err).Msg("MQTT connection lost")
	})

	return &service{
		Config: config,
		log:    log,
		client: mqttapi.NewClient(opts),
	}, nil
}

type service struct {
	Config
	log       zerolog.Logger
	mutex     sync.Mutex
	client    mqttapi.Client
	connected bool
}

// Close the service
func (s *service) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.connected {
		s.client.Disconnect(250)
		s.connected = false
	}
	return nil
}

// connect opens a connection.
func (s *service) connect() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.connected {
		return nil
	}
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return maskAny(fmt.Errorf("connect to mqtt timed out"))
	}
	if err := token.Error(); err != nil {
		return maskAny(err)
	}
	s.connected = true
	return nil
}

// Publish a JSON encoded message into a topic.
func (s *service) Publish(ctx context.Context, msg interface{}, topic string, qos byte) error {
	if err := s.connect(); err != nil {
		return maskAny(err)
	}
	encodedMsg, err := json.Marshal(msg)
	if err != nil {
		return maskAny(err)
	}
	token := s.client.Publish(topic, qos, false, encodedMsg)
	token.Wait()
	if err := token.Error(); err != nil {
		return maskAny(err)
	}
	messagesPublishedTotal.Inc()
	return nil
}

// Subscribe to a topic
func (s *service) Subscribe(ctx context.Context, topic string, qos byte) (Subscription, error) {
	if err := s.connect(); err != nil {
		return nil, maskAny(err)
	}
	result := &subscription{
		client: s.client,
		log:    s.log,
		topic:  topic,
		queue:  make(chan []byte, subscriptionQueueSize),
	}
	token := s.client.Subscribe(topic, qos, result.messageHandler)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, maskAny(err)
	}
	return result, nil
}

type subscription struct {
	client mqttapi.Client
	log    zerolog.Logger
	topic  string
	queue  chan []byte
}

// Decode message and put in queue
func (s *subscription) messageHandler(client mqttapi.Client, msg mqttapi.Message) {
	messagesReceivedTotal.Inc()
	select {
	case s.queue <- msg.Payload():
		// Queued
	default:
		messagesDroppedTotal.Inc()
		s.log.Warn().Str("topic", s.topic).Msg("subscription queue full, dropping message")
	}
}

// Unsubscribe.
func (s *subscription) Close() error {
	// Unsubscribe before closing the queue; a message still in flight
	// would otherwise panic the message handler.
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	if err := token.Error(); err != nil {
		return maskAny(err)
	}
	close(s.queue)
	return nil
}

// NextMsg blocks until the next message has been received.
func (s *subscription) NextMsg(ctx context.Context, result interface{}) error {
	select {
	case encodedMsg, ok := <-s.queue:
		if !ok {
			return maskAny(SubscriptionClosedError)
		}
		if err := json.Unmarshal(encodedMsg, result); err != nil {
			return maskAny(err)
		}
		return nil
	case <-ctx.Done():
		return maskAny(ctx.Err())
	}
}
