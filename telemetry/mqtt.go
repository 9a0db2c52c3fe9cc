package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	Broker   string // e.g. tcp://broker.lab:1883
	ClientID string
	Username string
	Password string
	Topic    string
	QOS      byte

	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// MQTT publishes samples to one topic. The client reconnects on its
// own; a publish during an outage fails after PublishTimeout.
type MQTT struct {
	client     mqtt.Client
	topic      string
	qos        byte
	pubTimeout time.Duration
	log        zerolog.Logger
}

// NewMQTT connects to the broker and blocks until the connection is up
// or ConnectTimeout passes.
func NewMQTT(cfg MQTTConfig, log zerolog.Logger) (*MQTT, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	if cfg.Topic == "" {
		cfg.Topic = "hygro/samples"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "hygrologd"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(cfg.ConnectTimeout).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})

	client := mqtt.NewClient(opts)
	if err := tokenWait(client.Connect(), cfg.ConnectTimeout); err != nil {
		return nil, fmt.Errorf("telemetry: mqtt connect: %w", err)
	}

	return &MQTT{
		client:     client,
		topic:      cfg.Topic,
		qos:        cfg.QOS,
		pubTimeout: cfg.PublishTimeout,
		log:        log,
	}, nil
}

// Publish implements Publisher.
func (m *MQTT) Publish(_ context.Context, s Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("telemetry: encoding sample: %w", err)
	}
	if err := tokenWait(m.client.Publish(m.topic, m.qos, false, data), m.pubTimeout); err != nil {
		return fmt.Errorf("telemetry: mqtt publish: %w", err)
	}
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}

// tokenWait bounds a paho token wait.
func tokenWait(tok mqtt.Token, timeout time.Duration) error {
	if !tok.WaitTimeout(timeout) {
		return fmt.Errorf("token timeout after %v", timeout)
	}
	return tok.Error()
}
