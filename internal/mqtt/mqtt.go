// Package mqtt carries the node-to-node link over an MQTT broker.
//
// Each node publishes to <prefix>/<own role> and subscribes to
// <prefix>/<peer role>. Messages are QoS 0 and never retained.
package mqtt

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTopicPrefix is the topic prefix used when none is configured.
const DefaultTopicPrefix = "shop/compressor"

// Options configures a Transport.
type Options struct {
	Broker         string
	ClientID       string // generated from prefix, role and a random suffix when empty
	TopicPrefix    string
	Self           string // own role, used as the publish topic suffix
	Peer           string // peer role, used as the subscribe topic suffix
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
}

// Topic returns the topic a role publishes to.
func Topic(prefix, role string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + role
}

// SenderFromTopic returns the role that published on topic (its last segment).
func SenderFromTopic(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

// ClientID returns opts.ClientID, or a generated one unique per call.
func ClientID(opts Options) string {
	if opts.ClientID != "" {
		return opts.ClientID
	}
	prefix := strings.ReplaceAll(strings.Trim(opts.TopicPrefix, "/"), "/", "-")
	if prefix == "" {
		prefix = "interlock"
	}
	return prefix + "-" + opts.Self + "-" + uuid.NewString()[:8]
}

func (o Options) withDefaults() Options {
	if o.TopicPrefix == "" {
		o.TopicPrefix = DefaultTopicPrefix
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 500 * time.Millisecond
	}
	return o
}
