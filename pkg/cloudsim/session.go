package cloudsim

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/channel"
	"github.com/robotalks/cloudlink/pkg/coap"
	"github.com/robotalks/cloudlink/pkg/handshake"
	"github.com/robotalks/cloudlink/pkg/protocol"
	"github.com/robotalks/cloudlink/pkg/transport"
)

// DefaultEventBuffer is the number of received events a Session queues.
const DefaultEventBuffer = 64

const recentSize = 8

var (
	// ErrSessionClosed indicates the session ended before a reply arrived.
	ErrSessionClosed = errors.New("session closed")
	// ErrFailed indicates the device answered with an error code.
	ErrFailed = errors.New("request failed")
)

// Event is an event published by a device.
type Event struct {
	Name        string
	Data        []byte
	TTL         int
	Type        protocol.EventType
	Confirmable bool
}

// Subscription is an event filter registered by a device.
type Subscription struct {
	Filter string
	Scope  protocol.SubscriptionScope
}

type exchange struct {
	ack    chan *coap.Parsed
	result chan *coap.Parsed
}

// Session is an authenticated device connection.
type Session struct {
	ID       string
	DeviceID []byte

	server *Server
	ch     *channel.Secure
	events chan Event
	done   chan struct{}

	sendLock sync.Mutex

	lock      sync.Mutex
	ids       *coap.IDGenerator
	tokens    *coap.TokenGenerator
	acks      map[uint16]*exchange
	results   map[string]*exchange
	hello     *protocol.Hello
	subs      []Subscription
	describe  []byte
	described []byte
	recent    []uint16
	err       error
}

// Cloud-initiated ids and tokens start half way from the device's so
// the two directions do not collide.
func newSession(server *Server, id string, peer *handshake.Peer, conn *transport.Poller) *Session {
	s := &Session{
		ID:       id,
		DeviceID: peer.DeviceID,
		server:   server,
		ch:       channel.NewSecure(conn, peer.Keys, channel.CloudRole),
		events:   make(chan Event, DefaultEventBuffer),
		done:     make(chan struct{}),
		ids:      coap.NewIDGenerator(peer.Keys.MessageID ^ 0x8000),
		tokens:   coap.NewTokenGenerator(peer.Keys.Token ^ 0x80),
		acks:     make(map[uint16]*exchange),
		results:  make(map[string]*exchange),
	}
	peer.Keys.Zero()
	return s
}

// DeviceHex returns the device id in lower case hex.
func (s *Session) DeviceHex() string {
	return hex.EncodeToString(s.DeviceID)
}

// Unreliable indicates the session runs over a datagram transport.
func (s *Session) Unreliable() bool {
	return s.ch.IsUnreliable()
}

// Hello returns the hello sent by the device, if received.
func (s *Session) Hello() (protocol.Hello, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.hello == nil {
		return protocol.Hello{}, false
	}
	return *s.hello, true
}

// Subscriptions returns the filters the device subscribed to.
func (s *Session) Subscriptions() []Subscription {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Subscription(nil), s.subs...)
}

func (s *Session) subscribed(name string, fromDevice bool) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, sub := range s.subs {
		if sub.Scope == protocol.ScopeMyDevices && !fromDevice {
			continue
		}
		if strings.HasPrefix(name, sub.Filter) {
			return true
		}
	}
	return false
}

// Described returns the last describe document posted by the device.
func (s *Session) Described() []byte {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.described
}

// Events returns received events. The channel is closed when the
// session ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error which ended the session.
func (s *Session) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.err
}

// Close closes the connection. Run returns afterwards.
func (s *Session) Close() error {
	return s.ch.Close()
}

// Run receives and handles device messages until the connection fails
// or ctx is done.
func (s *Session) Run(ctx context.Context) (err error) {
	defer func() { s.finish(err) }()
	msg := coap.NewMessage(channel.DefaultMTU)
	for {
		if err = s.ch.ReceiveContext(ctx, msg); err != nil {
			return err
		}
		if err = s.dispatch(ctx, msg); err != nil {
			return err
		}
	}
}

func (s *Session) finish(err error) {
	s.ch.Close()
	s.server.remove(s)
	s.lock.Lock()
	s.err = err
	s.lock.Unlock()
	close(s.done)
	close(s.events)
	glog.Infof("session %s: closed: %v", s.ID, err)
}

func (s *Session) next() (uint16, []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.ids.Next(), s.tokens.Next()
}

func (s *Session) send(msg *coap.Message) error {
	s.sendLock.Lock()
	defer s.sendLock.Unlock()
	return s.ch.Send(msg)
}

func (s *Session) build(h coap.Header, size int, fn func(*coap.Writer)) (*coap.Message, error) {
	msg := coap.NewMessage(0)
	if err := s.ch.Create(msg, h.Size()+size+16); err != nil {
		return nil, err
	}
	w := coap.NewWriter(msg).Header(h)
	if fn != nil {
		fn(w)
	}
	return msg, w.Finish()
}

func (s *Session) dispatch(ctx context.Context, msg *coap.Message) error {
	req, err := coap.Parse(append([]byte(nil), msg.Bytes()...))
	if err != nil {
		glog.Warningf("session %s: malformed message: %v", s.ID, err)
		return nil
	}
	kind := coap.Classify(req)
	glog.V(3).Infof("session %s: %s %s id=%d", s.ID, kind, req.Type, req.ID)
	switch kind {
	case coap.KindReply:
		s.handleReply(req)
		return nil
	case coap.KindResponse:
		s.handleResult(req)
		return s.ack(req, coap.CodeEmpty, nil)
	case coap.KindPing:
		return s.ack(req, coap.CodeEmpty, nil)
	case coap.KindHello:
		return s.handleHello(req)
	case coap.KindEvent:
		return s.handleEvent(ctx, req)
	case coap.KindSubscribe:
		return s.handleSubscribe(req)
	case coap.KindDescribe:
		return s.handleDescribe(req)
	case coap.KindTime:
		if req.Code != coap.CodeGet {
			return s.ack(req, coap.CodeMethodNotAllowed, nil)
		}
		payload := make([]byte, 4)
		binary.BigEndian.PutUint32(payload, uint32(time.Now().Unix()))
		return s.ack(req, coap.CodeContent, payload)
	}
	if req.Type == coap.Confirmable {
		msg, err := s.build(coap.Header{Type: coap.Reset, ID: req.ID}, 0, nil)
		if err != nil {
			return err
		}
		return s.send(msg)
	}
	return nil
}

// ack acknowledges a confirmable request echoing its id.
func (s *Session) ack(req *coap.Parsed, code coap.Code, payload []byte) error {
	if req.Type != coap.Confirmable {
		return nil
	}
	var token []byte
	if code != coap.CodeEmpty {
		token = req.Token
	}
	msg := coap.NewMessage(0)
	if err := s.ch.Create(msg, coap.HeaderSize+len(token)+len(payload)+16); err != nil {
		return err
	}
	if err := coap.EncodeAck(msg, req.ID, token, code, payload); err != nil {
		return err
	}
	return s.send(msg)
}

func (s *Session) handleReply(req *coap.Parsed) {
	s.lock.Lock()
	ex := s.acks[req.ID]
	delete(s.acks, req.ID)
	s.lock.Unlock()
	if ex != nil {
		ex.ack <- req
	}
}

func (s *Session) handleResult(req *coap.Parsed) {
	key := string(req.Token)
	s.lock.Lock()
	ex := s.results[key]
	delete(s.results, key)
	s.lock.Unlock()
	if ex != nil {
		ex.result <- req
	}
}

func (s *Session) handleHello(req *coap.Parsed) error {
	hello, ok := protocol.ParseHello(req.Payload)
	if !ok {
		glog.Warningf("session %s: bad hello of %d bytes", s.ID, len(req.Payload))
		return s.ack(req, coap.CodeBadRequest, nil)
	}
	s.lock.Lock()
	s.hello = &hello
	s.lock.Unlock()
	glog.Infof("session %s: hello product %d version %d platform %d flags %#x",
		s.ID, hello.ProductID, hello.ProductVersion, hello.PlatformID, hello.Flags)
	if err := s.ack(req, coap.CodeEmpty, nil); err != nil {
		return err
	}
	if !s.server.SendHello {
		return nil
	}
	id, _ := s.next()
	msg, err := s.build(coap.Header{Type: coap.NonConfirmable, Code: coap.CodePost, ID: id}, 4,
		func(w *coap.Writer) { w.StringOption(coap.OptionURIPath, coap.ResourceHello) })
	if err != nil {
		return err
	}
	return s.send(msg)
}

// duplicate records id and reports whether it was seen recently.
func (s *Session) duplicate(id uint16) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, seen := range s.recent {
		if seen == id {
			return true
		}
	}
	s.recent = append(s.recent, id)
	if len(s.recent) > recentSize {
		s.recent = s.recent[1:]
	}
	return false
}

// handleEvent acknowledges confirmable events only over unreliable
// channels, records the event and forwards it to subscribers.
func (s *Session) handleEvent(ctx context.Context, req *coap.Parsed) error {
	confirmable := req.Type == coap.Confirmable
	if confirmable && s.ch.IsUnreliable() {
		if err := s.ack(req, coap.CodeEmpty, nil); err != nil {
			return err
		}
		if s.duplicate(req.ID) {
			return nil
		}
	}
	res, name := req.Resource()
	ev := Event{
		Name:        name,
		Data:        req.Payload,
		TTL:         protocol.DefaultEventTTL,
		Type:        protocol.EventType(res[0]),
		Confirmable: confirmable,
	}
	if ttl, ok := req.Uint(coap.OptionMaxAge); ok {
		ev.TTL = int(ttl)
	}
	select {
	case s.events <- ev:
	default:
		glog.Warningf("session %s: event %q dropped, queue full", s.ID, name)
	}
	if n := s.server.route(ctx, s, name, ev.Data, ev.Type); n > 0 {
		glog.V(2).Infof("session %s: event %q forwarded to %d sessions", s.ID, name, n)
	}
	return nil
}

func (s *Session) handleSubscribe(req *coap.Parsed) error {
	_, filter := req.Resource()
	sub := Subscription{Filter: filter, Scope: protocol.ScopeFirehose}
	for _, q := range req.Query() {
		if q == "u" {
			sub.Scope = protocol.ScopeMyDevices
		}
	}
	s.lock.Lock()
	found := false
	for _, existing := range s.subs {
		if existing == sub {
			found = true
			break
		}
	}
	if !found {
		s.subs = append(s.subs, sub)
	}
	s.lock.Unlock()
	glog.V(1).Infof("session %s: subscribed %q", s.ID, filter)
	return s.ack(req, coap.CodeEmpty, nil)
}

// handleDescribe collects a describe document posted by the device in
// Block1 chunks.
func (s *Session) handleDescribe(req *coap.Parsed) error {
	if req.Code != coap.CodePost {
		return s.ack(req, coap.CodeMethodNotAllowed, nil)
	}
	block := coap.Block{}
	if v, ok := req.Uint(coap.OptionBlock1); ok {
		block = coap.ParseBlock(v)
	}
	s.lock.Lock()
	if block.Num == 0 {
		s.describe = nil
	}
	s.describe = append(s.describe, req.Payload...)
	if !block.More {
		s.described, s.describe = s.describe, nil
	}
	s.lock.Unlock()
	return s.ack(req, coap.CodeEmpty, nil)
}

// request sends a confirmable request and waits for its acknowledgement,
// retransmitting over unreliable channels. When the acknowledgement is
// empty and withResult is set, it waits for the separate response
// carrying token.
func (s *Session) request(ctx context.Context, msg *coap.Message, token []byte, withResult bool) (*coap.Parsed, error) {
	id := msg.ID()
	ex := &exchange{ack: make(chan *coap.Parsed, 1), result: make(chan *coap.Parsed, 1)}
	s.lock.Lock()
	s.acks[id] = ex
	if withResult {
		s.results[string(token)] = ex
	}
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		if s.acks[id] == ex {
			delete(s.acks, id)
		}
		if withResult && s.results[string(token)] == ex {
			delete(s.results, string(token))
		}
		s.lock.Unlock()
	}()

	var ack *coap.Parsed
	timeout := s.server.AckTimeout
	for retries := 0; ack == nil; retries++ {
		if err := s.send(msg); err != nil {
			return nil, err
		}
		var expire <-chan time.Time
		if s.ch.IsUnreliable() {
			expire = time.After(timeout)
			timeout *= 2
		}
		select {
		case ack = <-ex.ack:
		case <-expire:
			if retries >= s.server.MaxRetransmit {
				return nil, protocol.ErrRetransmitExhausted
			}
			glog.Warningf("session %s: retransmit %d", s.ID, id)
		case <-s.done:
			return nil, ErrSessionClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if ack.Type == coap.Reset {
		return nil, protocol.ErrRejected
	}
	if !withResult || ack.Code != coap.CodeEmpty {
		return ack, nil
	}
	select {
	case result := <-ex.result:
		return result, nil
	case <-s.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func failure(op string, reply *coap.Parsed) error {
	return fmt.Errorf("%s: %w: %s", op, ErrFailed, reply.Code)
}

// CallFunction calls a device function and returns its result.
func (s *Session) CallFunction(ctx context.Context, name, arg string) (int32, error) {
	id, token := s.next()
	h := coap.Header{Type: coap.Confirmable, Code: coap.CodePost, ID: id, Token: token}
	msg, err := s.build(h, len(name)+len(arg)+8, func(w *coap.Writer) {
		w.StringOption(coap.OptionURIPath, coap.ResourceFunction).StringOption(coap.OptionURIPath, name)
		if arg != "" {
			w.StringOption(coap.OptionURIQuery, arg)
		}
	})
	if err != nil {
		return 0, err
	}
	reply, err := s.request(ctx, msg, token, true)
	if err != nil {
		return 0, err
	}
	if reply.Code != coap.CodeChanged || len(reply.Payload) < 4 {
		return 0, failure("function "+name, reply)
	}
	return int32(binary.BigEndian.Uint32(reply.Payload)), nil
}

// ReadVariable reads the encoded value of a device variable.
func (s *Session) ReadVariable(ctx context.Context, name string) ([]byte, error) {
	id, token := s.next()
	h := coap.Header{Type: coap.Confirmable, Code: coap.CodeGet, ID: id, Token: token}
	msg, err := s.build(h, len(name)+4, func(w *coap.Writer) {
		w.StringOption(coap.OptionURIPath, coap.ResourceVariable).StringOption(coap.OptionURIPath, name)
	})
	if err != nil {
		return nil, err
	}
	reply, err := s.request(ctx, msg, token, true)
	if err != nil {
		return nil, err
	}
	if reply.Code != coap.CodeContent {
		return nil, failure("variable "+name, reply)
	}
	return reply.Payload, nil
}

// ReadVariableAs reads a device variable and decodes it as typ.
func (s *Session) ReadVariableAs(ctx context.Context, name string, typ protocol.VariableType) (interface{}, error) {
	b, err := s.ReadVariable(ctx, name)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeVariable(typ, b)
}

// PublishEvent sends an event to the device. Over unreliable channels
// it waits for the acknowledgement.
func (s *Session) PublishEvent(ctx context.Context, name string, data []byte, typ protocol.EventType) error {
	id, _ := s.next()
	msg := coap.NewMessage(0)
	if err := s.ch.Create(msg, len(name)+len(data)+24); err != nil {
		return err
	}
	if err := protocol.EncodeEvent(msg, coap.Confirmable, id, name, data, protocol.DefaultEventTTL, typ); err != nil {
		return err
	}
	if !s.ch.IsUnreliable() {
		return s.send(msg)
	}
	_, err := s.request(ctx, msg, nil, false)
	return err
}

// RequestDescribe fetches the describe document of the device block by
// block.
func (s *Session) RequestDescribe(ctx context.Context, flags byte) ([]byte, error) {
	var doc []byte
	for num := uint32(0); ; num++ {
		id, token := s.next()
		h := coap.Header{Type: coap.Confirmable, Code: coap.CodeGet, ID: id, Token: token}
		block := coap.Block{Num: num, Size: coap.MaxBlockSize}
		msg, err := s.build(h, 12, func(w *coap.Writer) {
			w.StringOption(coap.OptionURIPath, coap.ResourceDescribe).
				Option(coap.OptionURIQuery, []byte{flags}).
				UintOption(coap.OptionBlock2, block.Value())
		})
		if err != nil {
			return nil, err
		}
		reply, err := s.request(ctx, msg, token, true)
		if err != nil {
			return nil, err
		}
		if reply.Code != coap.CodeContent {
			return nil, failure("describe", reply)
		}
		doc = append(doc, reply.Payload...)
		v, ok := reply.Uint(coap.OptionBlock2)
		if !ok || !coap.ParseBlock(v).More {
			return doc, nil
		}
	}
}

func (s *Session) post(ctx context.Context, op, resource string, payload []byte) error {
	id, token := s.next()
	h := coap.Header{Type: coap.Confirmable, Code: coap.CodePost, ID: id, Token: token}
	msg, err := s.build(h, len(payload)+4, func(w *coap.Writer) {
		w.StringOption(coap.OptionURIPath, resource).Payload(payload)
	})
	if err != nil {
		return err
	}
	reply, err := s.request(ctx, msg, token, false)
	if err != nil {
		return err
	}
	if reply.Code != coap.CodeEmpty && !reply.Code.IsSuccess() {
		return failure(op, reply)
	}
	return nil
}

// Signal turns the device signal indication on or off.
func (s *Session) Signal(ctx context.Context, on bool) error {
	payload := []byte{0}
	if on {
		payload[0] = 1
	}
	return s.post(ctx, "signal", coap.ResourceSignal, payload)
}

// ChangeKey tells the device its keys changed.
func (s *Session) ChangeKey(ctx context.Context, param byte) error {
	return s.post(ctx, "key change", coap.ResourceKeyChange, []byte{param})
}

// SetTime pushes the current time to the device.
func (s *Session) SetTime(ctx context.Context, t time.Time) error {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(t.Unix()))
	return s.post(ctx, "time", coap.ResourceTime, payload)
}
