package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

type MQTTDeliverer struct {
	client mqtt.Client
	prefix string
	qos    byte
}

func ConnectMQTT(cfg MQTTConfig, logger zerolog.Logger) (*MQTTDeliverer, error) {
	log := logger.With().Str("component", "mqtt").Logger()
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect MQTT broker: %w", token.Error())
	}
	return NewMQTTDeliverer(client, cfg.TopicPrefix, cfg.QoS), nil
}

func NewMQTTDeliverer(client mqtt.Client, prefix string, qos byte) *MQTTDeliverer {
	if prefix == "" {
		prefix = "salahd/notifications"
	}
	return &MQTTDeliverer{client: client, prefix: strings.TrimRight(prefix, "/"), qos: qos}
}

func (m *MQTTDeliverer) Name() string { return "mqtt" }

func (m *MQTTDeliverer) Topic(p Payload) string {
	return m.prefix + "/" + string(p.Event.Prayer)
}

func (m *MQTTDeliverer) Deliver(ctx context.Context, p Payload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.Topic(p), m.qos, false, raw)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MQTTDeliverer) Close() {
	m.client.Disconnect(250)
}
