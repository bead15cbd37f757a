package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/common"
)

var ErrNotConnected = errors.New("bus: not connected")

type Options struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	Namespace      string
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	// OnConnectionChange is called from paho goroutines. On connect it runs
	// before the subscriptions are renewed, so it precedes any retained replay.
	OnConnectionChange func(connected bool, at time.Time)
}

// Client wraps a paho client. Reconnects are left to paho's auto-reconnect policy.
type Client struct {
	opts   Options
	client mqtt.Client
	logger *zap.Logger

	mu      sync.Mutex
	handler func(Message)
}

func NewClient(opts Options) *Client {
	if opts.ClientID == "" {
		opts.ClientID = "envctld-" + uuid.NewString()[:8]
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.PublishTimeout == 0 {
		opts.PublishTimeout = 5 * time.Second
	}

	c := &Client{
		opts:   opts,
		logger: common.GetCoreLogger(common.LoggerCategoryBus),
	}

	mqttOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetCleanSession(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)
	if opts.Username != "" {
		mqttOpts.SetUsername(opts.Username)
		mqttOpts.SetPassword(opts.Password)
	}

	c.client = mqtt.NewClient(mqttOpts)
	return c
}

func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()
	select {
	case <-token.Done():
		return token.Error()
	case <-time.After(c.opts.ConnectTimeout):
		return fmt.Errorf("bus: connect to %s timed out after %s", c.opts.Broker, c.opts.ConnectTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler for every inbound topic; subscriptions are renewed on reconnect.
func (c *Client) Subscribe(handler func(Message)) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	if !c.client.IsConnected() {
		// onConnect subscribes once the connection comes up
		return nil
	}
	return c.subscribe()
}

func (c *Client) subscribe() error {
	filters := map[string]byte{}
	for _, f := range SubscriptionFilters(c.opts.Namespace) {
		filters[f] = byte(QoSTelemetry)
	}

	token := c.client.SubscribeMultiple(filters, c.onMessage)
	if !token.WaitTimeout(c.opts.ConnectTimeout) {
		return fmt.Errorf("bus: subscribe timed out")
	}
	if err := token.Error(); err != nil {
		return err
	}
	c.logger.Info("Subscribed", zap.Reflect("filters", filters))
	return nil
}

// Publish hands the message to paho and returns; a delivery failure is logged only.
func (c *Client) Publish(topic string, qos QoS, payload string) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(qos), false, payload)
	go func() {
		if !token.WaitTimeout(c.opts.PublishTimeout) {
			c.logger.Warn("Publish not acknowledged in time", zap.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			c.logger.Error("Publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
	return nil
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

func (c *Client) Close() {
	c.client.Disconnect(250)
}

func (c *Client) onConnect(_ mqtt.Client) {
	c.logger.Info("Connected to broker", zap.String("broker", c.opts.Broker))

	if c.opts.OnConnectionChange != nil {
		c.opts.OnConnectionChange(true, time.Now())
	}

	c.mu.Lock()
	hasHandler := c.handler != nil
	c.mu.Unlock()
	if hasHandler {
		if err := c.subscribe(); err != nil {
			c.logger.Error("Subscribe after connect failed", zap.Error(err))
		}
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.logger.Warn("Connection lost, waiting for auto reconnect", zap.Error(err))
	if c.opts.OnConnectionChange != nil {
		c.opts.OnConnectionChange(false, time.Now())
	}
}

func (c *Client) onMessage(_ mqtt.Client, m mqtt.Message) {
	msg, ok := ParseTopic(c.opts.Namespace, m.Topic())
	if !ok {
		c.logger.Debug("Dropped unroutable topic", zap.String("topic", m.Topic()))
		return
	}
	msg.Payload = string(m.Payload())
	msg.Retained = m.Retained()
	msg.ReceivedAt = time.Now()

	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}
