package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/solisagility/internal/core/domain"
	"github.com/berfenger/solisagility/internal/core/port"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type broker interface {
	Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration)
}

type resultPayload struct {
	Command string `json:"command"`
	Kind    string `json:"kind"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Time    string `json:"time"`
}

// StatusPublisher exposes scheduling outcomes on the broker and acts as the
// battery collaborator that owns the retained discharge request switch.
type StatusPublisher struct {
	client    broker
	baseTopic string
	timeout   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewStatusPublisher(client *MQTTClient, timeout time.Duration, logger *zap.Logger) *StatusPublisher {
	return newStatusPublisher(client, client.baseTopic(), timeout, logger)
}

func newStatusPublisher(client broker, baseTopic string, timeout time.Duration, logger *zap.Logger) *StatusPublisher {
	return &StatusPublisher{
		client:    client,
		baseTopic: baseTopic,
		timeout:   timeout,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "mqtt")),
	}
}

func (p *StatusPublisher) PublishResult(command string, result domain.ActionResult) error {
	payload := resultPayload{
		Command: command,
		Kind:    string(result.Kind),
		Status:  result.Status,
		Time:    p.now().Format(time.RFC3339),
	}
	if result.HasResponseError() {
		payload.Error = result.ResponseError.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.logger.Debug("mqtt@publishResult", zap.String("command", command), zap.ByteString("payload", data))
	return p.publish(resultTopic(p.baseTopic, command), data, true)
}

// UnsetDischargeControlFlag switches the retained discharge request off once
// a discharge has been scheduled.
func (p *StatusPublisher) UnsetDischargeControlFlag() error {
	return p.PublishSwitchState(SWITCH_ID_DISCHARGE_REQUESTED, false)
}

func (p *StatusPublisher) PublishSwitchState(switchId string, on bool) error {
	payload := MQTT_PAYLOAD_OFF
	if on {
		payload = MQTT_PAYLOAD_ON
	}
	return p.publish(switchStateTopic(p.baseTopic, switchId), payload, true)
}

func (p *StatusPublisher) PublishOnline() error {
	return p.publish(bridgeStateTopic(p.baseTopic), MQTT_PAYLOAD_ONLINE, true)
}

func (p *StatusPublisher) publish(topic string, payload any, retain bool) error {
	done := make(chan error, 1)
	p.client.Publish(topic, payload, 0, retain, func(err error) {
		done <- err
	}, p.timeout)
	if err := <-done; err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// SwitchHandler receives parsed switch commands from the broker.
type SwitchHandler func(cmd ParsedSwitchCommand)

// Start connects the client, announces the bridge as online and routes switch
// commands to handler.
func Start(client *MQTTClient, publisher *StatusPublisher, handler SwitchHandler, timeout time.Duration, logger *zap.Logger) error {
	logger = logger.With(zap.String("component", "mqtt"))
	connected := make(chan error, 1)
	client.Connect(func(err error) { connected <- err }, timeout)
	if err := <-connected; err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	if err := publisher.PublishOnline(); err != nil {
		return err
	}
	subscribed := make(chan error, 1)
	client.SubscribeToCommandTopic(func(_ pahomqtt.Client, msg pahomqtt.Message) {
		cmd, err := client.ParseSwitchCommand(msg)
		if err != nil {
			logger.Debug("mqtt@command: ignored", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		logger.Debug("mqtt@command", zap.String("switch", cmd.SwitchId), zap.Bool("on", cmd.On))
		handler(*cmd)
		if err := publisher.PublishSwitchState(cmd.SwitchId, cmd.On); err != nil {
			logger.Warn("mqtt@command: could not publish switch state", zap.Error(err))
		}
	}, func(err error) { subscribed <- err }, timeout)
	if err := <-subscribed; err != nil {
		return fmt.Errorf("mqtt subscribe: %w", err)
	}
	return nil
}

// ensure interface compliance
var _ port.ResultPublisher = (*StatusPublisher)(nil)
var _ port.Battery = (*StatusPublisher)(nil)
