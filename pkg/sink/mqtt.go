package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTConfig holds the broker session settings for the cloud sink.
type MQTTConfig struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	Topic          string
	ConnectTimeout time.Duration
}

// NewMQTTDialer returns a Dialer that opens an MQTT session to the
// configured broker. Auto-reconnect is disabled: the Manager owns the
// reconnect and queueing policy, and the paho session-level retries sit
// underneath it.
func NewMQTTDialer(cfg MQTTConfig) Dialer {
	return func(ctx context.Context) (Conn, error) {
		clientID := cfg.ClientID
		if clientID == "" {
			clientID = "envmon-" + uuid.NewString()[:8]
		}
		timeout := cfg.ConnectTimeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(cfg.BrokerURL)
		opts.SetClientID(clientID)
		opts.SetConnectTimeout(timeout)
		opts.SetAutoReconnect(false)
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
			opts.SetPassword(cfg.Password)
		}

		client := mqtt.NewClient(opts)
		token := client.Connect()
		if !token.WaitTimeout(timeout) {
			client.Disconnect(0)
			return nil, fmt.Errorf("connect to %s: timeout after %s", cfg.BrokerURL, timeout)
		}
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to %s: %w", cfg.BrokerURL, err)
		}

		return &mqttConn{client: client, topic: cfg.Topic}, nil
	}
}

type mqttConn struct {
	client mqtt.Client
	topic  string
}

func (c *mqttConn) Publish(ctx context.Context, payload []byte) error {
	token := c.client.Publish(c.topic, 1, false, payload)

	if deadline, ok := ctx.Deadline(); ok {
		if !token.WaitTimeout(time.Until(deadline)) {
			return errors.New("publish timeout")
		}
	} else {
		token.Wait()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", c.topic, err)
	}
	return nil
}

func (c *mqttConn) Close() error {
	c.client.Disconnect(250)
	return nil
}
