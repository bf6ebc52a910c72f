package protocol

import (
	"fmt"
	"strings"
	"time"

	"github.com/robotalks/cloudlink/pkg/channel"
	"github.com/robotalks/cloudlink/pkg/coap"
)

// EventType selects the event visibility.
type EventType byte

// Event types, encoded as the first Uri-Path segment.
const (
	PublicEvent  EventType = 'E'
	PrivateEvent EventType = 'e'
)

// EventFlags modify how an event is published.
type EventFlags uint8

// Event flags.
const (
	EmptyFlags EventFlags = 0
	NoAck      EventFlags = 0x02
)

// Event limits.
const (
	DefaultEventTTL      = 60
	MaxEventNameLength   = 64
	MaxEventDataLength   = 622
	SystemEventPrefix    = "spark/"
	userEventLimit       = 4
	userEventWindow      = time.Second
	systemEventLimit     = 255
	systemEventWindow    = time.Minute
	eventMessageOverhead = 32
)

// CoapTypeFor selects the message type of a published event. Events
// are confirmable unless the no-ack flag is set, whatever the channel
// reliability.
func CoapTypeFor(reliable, noAck bool) coap.Type {
	if noAck {
		return coap.NonConfirmable
	}
	return coap.Confirmable
}

// eventWindow admits at most len(sent) events within any window.
type eventWindow struct {
	window time.Duration
	sent   []time.Time
	next   int
	count  int
}

func newEventWindow(limit int, window time.Duration) *eventWindow {
	return &eventWindow{window: window, sent: make([]time.Time, limit)}
}

// allow records an event at now unless the window is already full.
func (w *eventWindow) allow(now time.Time) bool {
	if w.count == len(w.sent) && now.Sub(w.sent[w.next]) < w.window {
		return false
	}
	w.sent[w.next] = now
	w.next = (w.next + 1) % len(w.sent)
	if w.count < len(w.sent) {
		w.count++
	}
	return true
}

// Publisher encodes and sends events, enforcing rate limits.
type Publisher struct {
	user   *eventWindow
	system *eventWindow
}

// NewPublisher creates a Publisher.
func NewPublisher() *Publisher {
	return &Publisher{
		user:   newEventWindow(userEventLimit, userEventWindow),
		system: newEventWindow(systemEventLimit, systemEventWindow),
	}
}

// IsSystemEvent reports whether name is reserved for the system.
func IsSystemEvent(name string) bool {
	return strings.HasPrefix(name, SystemEventPrefix)
}

// EncodeEvent writes an event message into msg.
func EncodeEvent(msg *coap.Message, t coap.Type, id uint16, name string, data []byte, ttl int, typ EventType) error {
	w := coap.NewWriter(msg).
		Header(coap.Header{Type: t, Code: coap.CodePost, ID: id}).
		StringOption(coap.OptionURIPath, string(typ))
	for _, seg := range strings.Split(name, "/") {
		w.StringOption(coap.OptionURIPath, seg)
	}
	if ttl != DefaultEventTTL {
		w.UintOption(coap.OptionMaxAge, uint32(ttl))
	}
	return w.Payload(data).Finish()
}

// SendEvent encodes an event with message id and sends it over ch.
// The sent message is returned.
func (p *Publisher) SendEvent(ch channel.Channel, id uint16, name string, data []byte, ttl int, typ EventType, flags EventFlags, now time.Time) (*coap.Message, error) {
	if name == "" || len(name) > MaxEventNameLength {
		return nil, fmt.Errorf("%w: event name %q", ErrInvalidArgument, name)
	}
	if len(data) > MaxEventDataLength {
		return nil, fmt.Errorf("%w: event data of %d bytes", ErrInvalidArgument, len(data))
	}
	if typ != PublicEvent && typ != PrivateEvent {
		return nil, fmt.Errorf("%w: event type %q", ErrInvalidArgument, typ)
	}
	window := p.user
	if IsSystemEvent(name) {
		window = p.system
	}
	if !window.allow(now) {
		return nil, ErrRateLimited
	}
	msg := coap.NewMessage(0)
	if err := ch.Create(msg, eventMessageOverhead+len(name)+len(data)); err != nil {
		return nil, err
	}
	t := CoapTypeFor(!ch.IsUnreliable(), flags&NoAck != 0)
	if err := EncodeEvent(msg, t, id, name, data, ttl, typ); err != nil {
		return nil, err
	}
	if err := ch.Send(msg); err != nil {
		return nil, &SendError{Err: err}
	}
	return msg, nil
}
