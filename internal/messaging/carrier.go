package messaging

import (
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
)

// Headers stamped on every order event next to the trace context.
const (
	HeaderEventType   = "event-type"
	HeaderContentType = "content-type"

	contentTypeJSON = "application/json"
)

var _ propagation.TextMapCarrier = (*MessageCarrier)(nil)

// MessageCarrier exposes kafka message headers as a TextMapCarrier so trace
// context and event metadata travel with the order event.
type MessageCarrier struct {
	msg *kafka.Message
}

func NewMessageCarrier(msg *kafka.Message) *MessageCarrier {
	return &MessageCarrier{msg: msg}
}

func (c *MessageCarrier) Get(key string) string {
	if i := c.index(key); i >= 0 {
		return string(c.msg.Headers[i].Value)
	}
	return ""
}

// Set replaces the header when present so re-injection never duplicates it.
func (c *MessageCarrier) Set(key, value string) {
	if i := c.index(key); i >= 0 {
		c.msg.Headers[i].Value = []byte(value)
		return
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *MessageCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// SetEvent marks the message as a JSON order event of the given type.
func (c *MessageCarrier) SetEvent(eventType string) {
	c.Set(HeaderEventType, eventType)
	c.Set(HeaderContentType, contentTypeJSON)
}

// EventType returns the stamped event type, or "" for unstamped messages.
func (c *MessageCarrier) EventType() string {
	return c.Get(HeaderEventType)
}

func (c *MessageCarrier) index(key string) int {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			return i
		}
	}
	return -1
}
