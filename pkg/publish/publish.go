// Package publish fans streamed probe readings out to an MQTT broker as
// JSON telemetry. It is optional: the bridge works identically with no
// publisher attached, and publish failures never stop the sampling loop.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/aquamet/ecbridge/pkg/config"
	"github.com/aquamet/ecbridge/pkg/ezo"
)

// Client wraps a paho MQTT client with connection tracking and the
// reading-payload encoding.
type Client struct {
	client mqtt.Client
	cfg    config.MQTTConfig
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

type readingPayload struct {
	ProbeID   string    `json:"probe_id"`
	Timestamp time.Time `json:"timestamp"`
	EC        float64   `json:"ec_us_cm"`
	TDS       float64   `json:"tds_ppm"`
	SAL       float64   `json:"sal_ppm"`
	SG        *float64  `json:"sg,omitempty"`
}

// NewClient creates an MQTT client for the configured broker. Connect must
// be called before publishing.
func NewClient(cfg config.MQTTConfig, logger *slog.Logger) *Client {
	c := &Client{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect establishes the broker connection, waiting for the initial
// attempt while respecting ctx and Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// PublishReading publishes one reading on probes/<id>/reading. SG is
// omitted entirely when the probe reply did not carry it.
func (c *Client) PublishReading(r ezo.Reading) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := fmt.Sprintf("probes/%s/reading", c.cfg.ProbeID)

	payload := readingPayload{
		ProbeID:   c.cfg.ProbeID,
		Timestamp: time.Now(),
		EC:        r.EC,
		TDS:       r.TDS,
		SAL:       r.SAL,
	}
	if r.HasSG {
		sg := r.SG
		payload.SG = &sg
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := c.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(c.cfg.PublishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish reading: %w", token.Error())
	}

	c.logger.Debug("published reading", "topic", topic, "ec", r.EC)
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the connection. Idempotent.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.setConnected(false)
	c.client.Disconnect(250)
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
