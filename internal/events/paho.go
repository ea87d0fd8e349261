package events

import (
	"crypto/tls"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// BrokerConfig describes an MQTT broker connection.
type BrokerConfig struct {
	URL      string
	ClientID string
	Username string
	Password string
	TLS      *tls.Config
	Timeout  time.Duration
}

// PahoClient adapts an eclipse/paho connection to the Client interface.
type PahoClient struct {
	client  mqtt.Client
	timeout time.Duration
}

// ConnectBroker dials the broker and blocks until the connection is up or the
// timeout elapses. Reconnection after a drop is handled by the library; the
// publisher sees the gap as ErrUnreachable.
func ConnectBroker(cfg BrokerConfig) (*PahoClient, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.TLS != nil {
		opts.SetTLSConfig(cfg.TLS)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("events: connect to %s timed out after %s", cfg.URL, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("events: connect to %s: %w", cfg.URL, err)
	}

	return &PahoClient{client: client, timeout: timeout}, nil
}

// Publish sends one message and waits for the broker acknowledgement.
func (c *PahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("events: publish to %s timed out after %s", topic, c.timeout)
	}
	return token.Error()
}

// IsConnected reports whether the broker link is currently up.
func (c *PahoClient) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker, allowing in-flight messages to drain.
func (c *PahoClient) Close() {
	c.client.Disconnect(250)
}
