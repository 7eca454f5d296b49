/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package plugins

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"

	"github.com/bittoy/hfsm/maps"
	"github.com/bittoy/hfsm/value"
)

// mqttEndpoint is the binding-specific payload an invoke state's endpoint
// child must supply for the MQTT binding.
type mqttEndpoint struct {
	Broker     string `json:"broker"`
	Topic      string `json:"topic"`
	ReplyTopic string `json:"replyTopic"`
	QoS        byte   `json:"qos"`
	TimeoutMs  int64  `json:"timeoutMs"`
}

// MQTT is the invoke binding that publishes input to endpoint.topic and
// waits on endpoint.replyTopic for a reply, mirroring the request/reply
// pattern a CommunicationPlugin implements against an external broker.
// Replies are not correlated: the first message on replyTopic completes
// the call. Connection handles are cached per broker URL within one
// instance; New returns an instance with an empty cache.
type MQTT struct {
	mu      sync.Mutex
	clients map[string]mqtt.Client

	cancel context.CancelFunc
}

var _ Plugin = (*MQTT)(nil)

func (p *MQTT) Binding() string { return "MQTT" }

func (p *MQTT) New() Plugin { return &MQTT{clients: make(map[string]mqtt.Client)} }

func (p *MQTT) Invoke(ctx context.Context, endpoint, input value.Value, onComplete func(Result)) {
	var cfg mqttEndpoint
	if err := maps.Value2Struct(endpoint, &cfg); err != nil {
		onComplete(Error("MQTT endpoint decode error: " + err.Error()))
		return
	}
	if cfg.Broker == "" || cfg.Topic == "" {
		onComplete(Error("MQTT endpoint requires broker and topic"))
		return
	}

	client, err := p.clientFor(cfg.Broker)
	if err != nil {
		onComplete(Error("MQTT connect error: " + err.Error()))
		return
	}

	reqID, _ := uuid.NewV4()
	invokeCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	if cfg.ReplyTopic != "" {
		token := client.Subscribe(cfg.ReplyTopic, cfg.QoS, func(c mqtt.Client, m mqtt.Message) {
			select {
			case <-invokeCtx.Done():
				return
			default:
			}
			reply, err := value.FromJSON(m.Payload())
			if err != nil {
				onComplete(Error("MQTT reply decode error: " + err.Error()))
				return
			}
			onComplete(Success(reply))
			_ = client.Unsubscribe(cfg.ReplyTopic)
		})
		if token.Wait() && token.Error() != nil {
			onComplete(Error("MQTT subscribe error: " + token.Error().Error()))
			return
		}
	}

	payload, err := input.ToJSON()
	if err != nil {
		onComplete(Error("MQTT input encode error: " + err.Error()))
		return
	}

	publishTopic := cfg.Topic
	token := client.Publish(publishTopic, cfg.QoS, false, payload)
	go func() {
		token.WaitTimeout(timeoutOr(cfg.TimeoutMs))
		if token.Error() != nil {
			onComplete(Error(fmt.Sprintf("MQTT publish error on %s/%s: %v", cfg.Broker, publishTopic, token.Error())))
			return
		}
		if cfg.ReplyTopic == "" {
			// Fire-and-forget: publish acknowledged is the whole contract.
			onComplete(Success(value.NewObject()))
		}
		_ = reqID // correlation id reserved for brokers that echo it back in the payload
	}()
}

func (p *MQTT) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *MQTT) clientFor(broker string) (mqtt.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[broker]; ok && c.IsConnected() {
		return c, nil
	}
	opts := mqtt.NewClientOptions().AddBroker(broker).SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.clients[broker] = client
	return client, nil
}

func timeoutOr(ms int64) time.Duration {
	if ms <= 0 {
		return 5 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}
