package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wjvent/gate-controller/internal/gate"
)

const (
	connectTimeout = 10 * time.Second
	retryInterval  = 5 * time.Second
	publishTimeout = 5 * time.Second
)

// CommandSink accepts a decoded command; it reports false when the command
// was dropped (queue full).
type CommandSink func(gate.Command) bool

// Client owns the broker connection. It starts idle: Start connects once a
// broker is configured, Reconfigure tears down and reconnects when the
// operator changes broker or topics through the portal. Publishing on an
// idle client is a no-op, so the core runs safely with no broker at all.
type Client struct {
	mu     sync.Mutex
	client paho.Client
	topics Topics

	sink     CommandSink
	snapshot func() gate.StatusSnapshot
	log      *zap.Logger
}

// NewClient creates an idle client. snapshot supplies the status published
// on every (re)connect so subscribers see the current state immediately.
func NewClient(sink CommandSink, snapshot func() gate.StatusSnapshot, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{sink: sink, snapshot: snapshot, log: log}
}

// Start connects to the broker and subscribes to the command topic. The
// connection keeps retrying in the background; Start only fails on a
// malformed broker reference.
func (c *Client) Start(broker string, topics Topics) error {
	if broker == "" {
		return fmt.Errorf("empty broker address")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.topics = topics

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("gate-controller-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.Warn("mqtt connection lost", zap.Error(err))
		})

	client := paho.NewClient(opts)
	c.client = client

	token := client.Connect()
	go func() {
		if !token.WaitTimeout(connectTimeout) {
			c.log.Warn("mqtt broker not reachable yet, retrying in background",
				zap.String("broker", broker))
			return
		}
		if err := token.Error(); err != nil {
			c.log.Error("mqtt connect failed", zap.String("broker", broker), zap.Error(err))
		}
	}()
	return nil
}

// Reconfigure applies a new broker and topic set.
func (c *Client) Reconfigure(broker string, topics Topics) error {
	if broker == "" {
		c.mu.Lock()
		c.stopLocked()
		c.topics = Topics{}
		c.mu.Unlock()
		c.log.Info("mqtt stopped: broker cleared")
		return nil
	}
	return c.Start(broker, topics)
}

func (c *Client) onConnect(client paho.Client) {
	c.mu.Lock()
	topics := c.topics
	c.mu.Unlock()

	c.log.Info("mqtt connected", zap.String("command_topic", topics.Command))
	if topics.Command != "" {
		token := client.Subscribe(topics.Command, 1, c.onCommand)
		go c.logToken("subscribe", token)
	}
	// Fresh retained status so late subscribers see the current state.
	c.PublishStatus(c.snapshot())
}

func (c *Client) onCommand(_ paho.Client, msg paho.Message) {
	cmd := DecodeCommand(msg.Payload())
	if cmd == gate.CmdNone {
		c.log.Debug("unknown command discarded", zap.ByteString("payload", msg.Payload()))
		return
	}
	if !c.sink(cmd) {
		c.log.Warn("command dropped: queue full", zap.Stringer("cmd", cmd))
	}
}

// PublishStatus publishes the transition snapshot, retained at QoS 1 so the
// last state survives subscriber restarts. It never blocks the caller.
func (c *Client) PublishStatus(s gate.StatusSnapshot) {
	c.publish(c.currentTopics().Status, true, func() ([]byte, error) { return FormatStatus(s) })
}

// PublishTelemetry publishes the periodic snapshot.
func (c *Client) PublishTelemetry(s gate.StatusSnapshot) {
	c.publish(c.currentTopics().Telemetry, false, func() ([]byte, error) { return FormatTelemetry(s) })
}

func (c *Client) publish(topic string, retained bool, format func() ([]byte, error)) {
	client := c.currentClient()
	if client == nil || topic == "" {
		return
	}
	payload, err := format()
	if err != nil {
		c.log.Error("format payload", zap.Error(err))
		return
	}
	token := client.Publish(topic, 1, retained, payload)
	go c.logToken("publish "+topic, token)
}

// logToken waits for a token off the dispatch loop and logs failures.
func (c *Client) logToken(op string, token paho.Token) {
	if !token.WaitTimeout(publishTimeout) {
		c.log.Warn("mqtt operation timed out", zap.String("op", op))
		return
	}
	if err := token.Error(); err != nil {
		c.log.Warn("mqtt operation failed", zap.String("op", op), zap.Error(err))
	}
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	client := c.currentClient()
	return client != nil && client.IsConnected()
}

func (c *Client) currentClient() paho.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

func (c *Client) currentTopics() Topics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topics
}

func (c *Client) stopLocked() {
	if c.client != nil {
		c.client.Disconnect(1000) // 1 second timeout
		c.client = nil
	}
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	return nil
}
