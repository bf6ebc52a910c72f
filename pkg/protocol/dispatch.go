package protocol

import (
	"encoding/binary"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/coap"
)

// dispatch routes one received message. Messages which can't be parsed
// are dropped without reply. Only channel failures are returned.
func (p *Protocol) dispatch(msg *coap.Message, now time.Time) error {
	p.lastRecv = now
	p.stats.Received++
	req, err := msg.Parse()
	if err != nil {
		p.stats.Dropped++
		glog.Warningf("malformed message dropped: %v", err)
		return nil
	}
	p.current = nil
	if req.Type == coap.Confirmable && p.ch.IsUnreliable() {
		if r := p.seen(req.ID); r != nil {
			p.stats.Duplicates++
			if r.reply != nil {
				return p.resend(r.reply)
			}
			return nil
		}
		p.current = p.remember(req.ID)
	}

	kind := coap.Classify(req)
	glog.V(2).Infof("RCV %s %s id=%d code=%s", kind, req.Type, req.ID, req.Code)
	switch kind {
	case coap.KindReply:
		p.handleReply(req)
	case coap.KindPing:
		return p.respond(req, coap.CodeEmpty, nil)
	case coap.KindHello:
		p.hello = true
		return p.respond(req, coap.CodeEmpty, nil)
	case coap.KindEvent:
		return p.handleEvent(req)
	case coap.KindFunctionCall:
		return p.handleFunctionCall(req)
	case coap.KindVariableRequest:
		return p.handleVariableRequest(req)
	case coap.KindDescribe:
		return p.handleDescribe(req)
	case coap.KindTime:
		p.setTime(req.Payload)
		return p.respond(req, coap.CodeChanged, nil)
	case coap.KindSignal:
		return p.handleSignal(req)
	case coap.KindKeyChange:
		return p.handleKeyChange(req)
	case coap.KindResponse:
		p.handleResponse(req)
		return p.respond(req, coap.CodeEmpty, nil)
	case coap.KindSubscribe:
		return p.respond(req, coap.CodeMethodNotAllowed, nil)
	default:
		p.stats.Dropped++
		if req.Type == coap.Confirmable {
			return p.reset(req)
		}
	}
	return nil
}

func (p *Protocol) handleReply(req *coap.Parsed) {
	if p.ping.pending && req.ID == p.ping.id {
		p.ping.pending = false
	}
	var err error
	if req.Type == coap.Reset {
		err = ErrRejected
	}
	p.acks.reply(req.ID, req.Token, err)
	if req.Type == coap.Acknowledgement && req.Code != coap.CodeEmpty {
		p.handleResponse(req)
	}
}

func (p *Protocol) handleResponse(req *coap.Parsed) {
	key := string(req.Token)
	if fn := p.requests[key]; fn != nil {
		delete(p.requests, key)
		fn(req)
	}
}

// handleEvent acknowledges a confirmable event only over an unreliable
// channel, then runs every matching handler.
func (p *Protocol) handleEvent(req *coap.Parsed) error {
	if req.Type == coap.Confirmable && p.ch.IsUnreliable() {
		if err := p.respond(req, coap.CodeEmpty, nil); err != nil {
			return err
		}
	}
	_, name := req.Resource()
	data := append([]byte(nil), req.Payload...)
	p.stats.EventsReceived++
	if n := p.handlers.dispatch(name, data); n == 0 {
		glog.V(3).Infof("event %q not handled", name)
	}
	if p.callbacks.Events != nil {
		p.callbacks.Events.EventReceived(name, data)
	}
	return nil
}

func (p *Protocol) handleSignal(req *coap.Parsed) error {
	on := len(req.Payload) > 0 && req.Payload[0] != 0
	if err := p.respond(req, coap.CodeChanged, nil); err != nil {
		return err
	}
	if p.callbacks.Signaler != nil {
		p.callbacks.Signaler.Signal(on)
	}
	return nil
}

func (p *Protocol) handleKeyChange(req *coap.Parsed) error {
	if err := p.respond(req, coap.CodeChanged, nil); err != nil {
		return err
	}
	if p.callbacks.KeyChanger != nil && len(req.Payload) > 0 {
		p.callbacks.KeyChanger.KeyChanged(req.Payload[0])
	}
	return nil
}

func (p *Protocol) setTime(payload []byte) {
	if len(payload) < 4 {
		glog.Warningf("bad time payload of %d bytes", len(payload))
		return
	}
	t := time.Unix(int64(binary.BigEndian.Uint32(payload)), 0)
	glog.V(1).Infof("time synced: %s", t.UTC())
	if p.callbacks.TimeSetter != nil {
		p.callbacks.TimeSetter.SetTime(t)
	}
}

// respond replies to req: a CON request is acknowledged echoing its id
// and, unless the ACK is empty, its token. A NON request gets a NON
// response carrying its token unless code is empty.
func (p *Protocol) respond(req *coap.Parsed, code coap.Code, payload []byte, opts ...coap.Option) error {
	h := coap.Header{Code: code}
	switch {
	case req.Type == coap.Confirmable:
		h.Type, h.ID = coap.Acknowledgement, req.ID
	case code == coap.CodeEmpty:
		return nil
	default:
		h.Type, h.ID = coap.NonConfirmable, p.ids.Next()
	}
	if code != coap.CodeEmpty {
		h.Token = req.Token
	}
	msg := coap.NewMessage(0)
	err := p.ch.Response(p.recv, msg, h.Size()+len(payload)+16)
	if err != nil {
		return err
	}
	if h.Type == coap.Acknowledgement && code == coap.CodeEmpty && len(payload) == 0 && len(opts) == 0 {
		err = coap.EncodeEmptyAck(msg, h.ID)
	} else {
		w := coap.NewWriter(msg).Header(h)
		for _, opt := range opts {
			w.Option(opt.Number, opt.Value)
		}
		err = w.Payload(payload).Finish()
	}
	if err != nil {
		return err
	}
	if err := p.send(msg); err != nil {
		return err
	}
	if p.current != nil && h.Type == coap.Acknowledgement {
		p.current.reply = append([]byte(nil), msg.Bytes()...)
	}
	return nil
}

func (p *Protocol) reset(req *coap.Parsed) error {
	msg := coap.NewMessage(0)
	if err := p.ch.Response(p.recv, msg, coap.HeaderSize); err != nil {
		return err
	}
	if err := coap.EncodeReset(msg, req.ID); err != nil {
		return err
	}
	return p.send(msg)
}

func (p *Protocol) resend(b []byte) error {
	msg := coap.NewMessage(0)
	if err := p.ch.Create(msg, len(b)); err != nil {
		return err
	}
	if err := msg.SetBytes(b); err != nil {
		return err
	}
	msg.DecodeID()
	return p.send(msg)
}

// seen finds a recently received confirmable message.
func (p *Protocol) seen(id uint16) *recentMessage {
	for i := range p.recent {
		if r := &p.recent[i]; r.valid && r.id == id {
			return r
		}
	}
	return nil
}

func (p *Protocol) remember(id uint16) *recentMessage {
	r := &p.recent[p.next]
	*r = recentMessage{id: id, valid: true}
	p.next = (p.next + 1) % recentSize
	return r
}
