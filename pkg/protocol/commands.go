package protocol

import (
	"errors"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/coap"
)

// Command is an application-initiated session command.
type Command int

// Commands.
const (
	// CommandPing sends a keepalive ping now.
	CommandPing Command = iota + 1
	// CommandDescribe posts the describe document. data may carry the
	// describe flags as a byte.
	CommandDescribe
	// CommandSleep waits for outstanding confirmables before the device
	// sleeps. The session is kept. data may carry a time.Duration bound.
	CommandSleep
	// CommandDisconnect waits for outstanding confirmables, then closes
	// the session. data may carry a time.Duration bound.
	CommandDisconnect
	// CommandTerminate closes the session immediately, cancelling
	// outstanding confirmables.
	CommandTerminate
	// CommandRequestTime asks the cloud for the current time, delivered
	// to the TimeSetter.
	CommandRequestTime
)

// ErrTooManyHandlers indicates the event handler table is full.
var ErrTooManyHandlers = errors.New("protocol: too many event handlers")

// Command executes cmd.
func (p *Protocol) Command(cmd Command, data interface{}) error {
	if p.state != Connected {
		return ErrNotConnected
	}
	var err error
	switch cmd {
	case CommandPing:
		err = p.sendPing(p.now())
	case CommandDescribe:
		flags := DescribeDefault
		if f, ok := data.(byte); ok {
			flags = f
		}
		err = p.sendDescribe(flags)
	case CommandSleep:
		err = p.waitOutstanding(waitTimeout(data))
		if err == ErrTimeout {
			glog.Warningf("sleeping with %d unacknowledged messages", p.acks.len())
			return err
		}
		if err != nil {
			p.fail(err)
		}
		return err
	case CommandDisconnect:
		p.state = Disconnecting
		err = p.waitOutstanding(waitTimeout(data))
		if err != nil && err != ErrTimeout {
			p.fail(err)
			return err
		}
		p.disconnect(nil)
		return err
	case CommandTerminate:
		p.disconnect(nil)
		return nil
	case CommandRequestTime:
		err = p.requestTime()
	default:
		return ErrUnknownCommand
	}
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		p.fail(err)
	}
	return err
}

func waitTimeout(data interface{}) time.Duration {
	if d, ok := data.(time.Duration); ok && d > 0 {
		return d
	}
	return DefaultWaitTimeout
}

func (p *Protocol) requestTime() error {
	token := p.tokens.Next()
	msg := coap.NewMessage(0)
	if err := p.ch.Create(msg, 16); err != nil {
		return err
	}
	err := coap.NewWriter(msg).
		Header(coap.Header{Type: coap.Confirmable, Code: coap.CodeGet, ID: p.ids.Next(), Token: token}).
		StringOption(coap.OptionURIPath, coap.ResourceTime).
		Finish()
	if err != nil {
		return err
	}
	p.requests[string(token)] = func(resp *coap.Parsed) {
		p.setTime(resp.Payload)
	}
	return p.sendConfirmable(msg, token, nil)
}

// SendEvent publishes an event. done, if not nil, is called once the
// event is delivered or failed.
func (p *Protocol) SendEvent(name string, data []byte, ttl int, typ EventType, flags EventFlags, done CompletionFunc) error {
	if p.state != Connected {
		return ErrNotConnected
	}
	msg, err := p.publisher.SendEvent(p.ch, p.ids.Next(), name, data, ttl, typ, flags, p.now())
	if err != nil {
		var sendErr *SendError
		if errors.As(err, &sendErr) {
			p.fail(err)
		}
		return err
	}
	p.stats.Sent++
	p.stats.EventsSent++
	h, _ := msg.Header()
	if h.Type == coap.Confirmable {
		p.track(msg, nil, done)
	} else if done != nil {
		done(nil)
	}
	return nil
}

// AddEventHandler registers an event handler. It fails when the table
// is full or the filter is empty or too long.
func (p *Protocol) AddEventHandler(filter string, handler EventHandlerFunc) bool {
	return p.handlers.add(EventHandler{Filter: filter, Handler: handler})
}

// RemoveEventHandlers removes handlers registered with filter, or all
// handlers with MatchAll.
func (p *Protocol) RemoveEventHandlers(filter string) {
	p.handlers.remove(filter)
}

// EventHandlers returns the registered handlers in slot order.
func (p *Protocol) EventHandlers() []EventHandler {
	return p.handlers.handlers()
}

// Subscribe registers handler and asks the cloud for events matching
// filter. Registered subscriptions are sent again on every connect.
func (p *Protocol) Subscribe(filter string, handler EventHandlerFunc, scope SubscriptionScope) error {
	if !p.handlers.add(EventHandler{Filter: filter, Handler: handler, Scope: scope}) {
		return ErrTooManyHandlers
	}
	if p.state != Connected {
		return nil
	}
	if err := p.sendSubscription(filter, scope); err != nil {
		p.fail(err)
		return err
	}
	return nil
}

func (p *Protocol) replaySubscriptions() error {
	type subscription struct {
		filter string
		scope  SubscriptionScope
	}
	sent := make(map[subscription]bool)
	for _, h := range p.handlers.handlers() {
		key := subscription{filter: h.Filter, scope: h.Scope}
		if sent[key] {
			continue
		}
		sent[key] = true
		if err := p.sendSubscription(h.Filter, h.Scope); err != nil {
			return err
		}
	}
	return nil
}

// EncodeSubscription writes a subscription request: CON GET e/<filter>,
// with a "u" query for ScopeMyDevices.
func EncodeSubscription(msg *coap.Message, id uint16, filter string, scope SubscriptionScope) error {
	w := coap.NewWriter(msg).
		Header(coap.Header{Type: coap.Confirmable, Code: coap.CodeGet, ID: id}).
		StringOption(coap.OptionURIPath, coap.ResourcePrivateEvent)
	for _, seg := range strings.Split(filter, "/") {
		w.StringOption(coap.OptionURIPath, seg)
	}
	if scope == ScopeMyDevices {
		w.StringOption(coap.OptionURIQuery, "u")
	}
	return w.Finish()
}

func (p *Protocol) sendSubscription(filter string, scope SubscriptionScope) error {
	msg := coap.NewMessage(0)
	if err := p.ch.Create(msg, len(filter)+32); err != nil {
		return err
	}
	if err := EncodeSubscription(msg, p.ids.Next(), filter, scope); err != nil {
		return err
	}
	return p.sendConfirmable(msg, nil, nil)
}
