package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Transport implements link.Transport on an MQTT broker.
type Transport struct {
	client   paho.Client
	pubTopic string
	subTopic string
	timeout  time.Duration
	log      *zap.SugaredLogger

	mu      sync.RWMutex
	handler func(payload []byte, sender string)
}

// NewTransport connects to the broker and blocks until the link is up or the
// connect timeout expires.
func NewTransport(opts Options, log *zap.SugaredLogger) (*Transport, error) {
	opts = opts.withDefaults()
	t := &Transport{
		pubTopic: Topic(opts.TopicPrefix, opts.Self),
		subTopic: Topic(opts.TopicPrefix, opts.Peer),
		timeout:  opts.SendTimeout,
		log:      log,
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(ClientID(opts)).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetMaxReconnectInterval(10 * time.Second).
		SetOrderMatters(false).
		SetOnConnectHandler(t.onConnect).
		SetConnectionLostHandler(t.onConnectionLost)

	t.client = paho.NewClient(clientOpts)
	token := t.client.Connect()
	if !token.WaitTimeout(opts.ConnectTimeout) {
		t.client.Disconnect(0)
		return nil, fmt.Errorf("connect to broker %s: timeout after %v", opts.Broker, opts.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", opts.Broker, err)
	}

	return t, nil
}

// IsLinkUp reports whether the broker connection is open.
func (t *Transport) IsLinkUp() bool {
	return t.client.IsConnectionOpen()
}

// Send publishes one payload to this node's topic.
func (t *Transport) Send(payload []byte) error {
	// QoS 0 (at-most-once), not retained
	token := t.client.Publish(t.pubTopic, 0, false, payload)
	if !token.WaitTimeout(t.timeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// OnReceive registers the callback for messages on the peer's topic.
func (t *Transport) OnReceive(handler func(payload []byte, sender string)) {
	t.mu.Lock()
	t.handler = handler
	t.mu.Unlock()
}

// Close disconnects from the broker.
func (t *Transport) Close() error {
	t.client.Disconnect(250)
	return nil
}

// onConnect subscribes on every (re)connect; with a clean session the
// broker forgets subscriptions when the connection drops.
func (t *Transport) onConnect(c paho.Client) {
	t.log.Infow("link up", "subscribe", t.subTopic, "publish", t.pubTopic)
	token := c.Subscribe(t.subTopic, 0, t.onMessage)
	go func() {
		if token.WaitTimeout(t.timeout*4) && token.Error() != nil {
			t.log.Errorw("subscribe failed", "topic", t.subTopic, "err", token.Error())
		}
	}()
}

func (t *Transport) onConnectionLost(_ paho.Client, err error) {
	t.log.Warnw("link down", "err", err)
}

func (t *Transport) onMessage(_ paho.Client, msg paho.Message) {
	t.mu.RLock()
	h := t.handler
	t.mu.RUnlock()
	if h == nil {
		return
	}
	h(msg.Payload(), SenderFromTopic(msg.Topic()))
}
