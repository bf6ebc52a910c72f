// Package protocol implements the device side of a cloud session.
//
// A Protocol is single-context: all calls must come from one goroutine,
// usually the loop driving EventLoop.
package protocol

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/channel"
	"github.com/robotalks/cloudlink/pkg/coap"
	"github.com/robotalks/cloudlink/pkg/handshake"
	"github.com/robotalks/cloudlink/pkg/transport"
)

// State is the session state.
type State int

// States.
const (
	Uninitialized State = iota
	Handshaking
	Connected
	Disconnecting
)

var stateNames = [...]string{"uninitialized", "handshaking", "connected", "disconnecting"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// Protocol flags.
const (
	// RequireHelloResponse makes Begin wait for the cloud hello.
	RequireHelloResponse uint32 = 1 << iota
	// DeviceInitiatedDescribe makes the device post its describe after
	// connecting.
	DeviceInitiatedDescribe
)

// Session defaults.
const (
	DefaultKeepAlive   = 15 * time.Second
	DefaultPingTimeout = 10 * time.Second
	DefaultWaitTimeout = 5 * time.Second
)

const (
	recentSize   = 8
	pollInterval = 5 * time.Millisecond
	helloSize    = 32
	pingSize     = coap.HeaderSize
)

// Options configure a Protocol.
type Options struct {
	DeviceID         []byte
	Keys             *handshake.KeyMaterial
	PlatformID       uint16
	Flags            uint32
	HelloFlags       byte
	KeepAlive        time.Duration
	PingTimeout      time.Duration
	AckTimeout       time.Duration
	MaxRetransmit    int
	HandshakeTimeout time.Duration
}

// DefaultOptions returns Options with all defaults.
func DefaultOptions() Options {
	return Options{
		PlatformID:       DefaultPlatformID,
		HelloFlags:       HelloDiagnosticsSupport,
		KeepAlive:        DefaultKeepAlive,
		PingTimeout:      DefaultPingTimeout,
		AckTimeout:       DefaultAckTimeout,
		MaxRetransmit:    DefaultMaxRetransmit,
		HandshakeTimeout: handshake.DefaultTimeout,
	}
}

// Stats are session counters.
type Stats struct {
	Connects       int
	Sent           int
	Received       int
	Dropped        int
	Duplicates     int
	EventsSent     int
	EventsReceived int
}

type recentMessage struct {
	id    uint16
	valid bool
	reply []byte
}

type pinger struct {
	id      uint16
	sent    time.Time
	pending bool
}

type responseFunc func(*coap.Parsed)

// Protocol is one device session with the cloud.
type Protocol struct {
	opts       Options
	state      State
	callbacks  Callbacks
	clock      TimeSource
	descriptor Descriptor
	product    ProductDetails
	handlers   handlerTable
	publisher  *Publisher
	upgraded   bool
	err        error
	stats      Stats

	ch       channel.Channel
	keys     *handshake.SessionKeys
	ids      *coap.IDGenerator
	tokens   *coap.TokenGenerator
	acks     *reliability
	requests map[string]responseFunc
	recv     *coap.Message
	lastRecv time.Time
	ping     pinger
	hello    bool
	recent   [recentSize]recentMessage
	next     int
	current  *recentMessage
}

// New creates a Protocol. Zero durations and counts in opts take
// their defaults.
func New(opts Options) *Protocol {
	defaults := DefaultOptions()
	if opts.PlatformID == 0 {
		opts.PlatformID = defaults.PlatformID
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaults.KeepAlive
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = defaults.PingTimeout
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = defaults.AckTimeout
	}
	if opts.MaxRetransmit <= 0 {
		opts.MaxRetransmit = defaults.MaxRetransmit
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaults.HandshakeTimeout
	}
	return &Protocol{
		opts:      opts,
		clock:     wallClock{},
		product:   DefaultProductDetails(),
		publisher: NewPublisher(),
		recv:      coap.NewMessage(channel.DefaultMTU),
	}
}

// Init installs the application callbacks and descriptor and drops any
// session. Event handlers are kept.
func (p *Protocol) Init(callbacks Callbacks, descriptor Descriptor) {
	p.disconnect(nil)
	p.callbacks, p.descriptor = callbacks, descriptor
	p.clock = callbacks.Time
	if p.clock == nil {
		p.clock = wallClock{}
	}
}

// Options returns the options in effect.
func (p *Protocol) Options() Options {
	return p.opts
}

// State returns the session state.
func (p *Protocol) State() State {
	return p.state
}

// IsConnected reports whether a session is established.
func (p *Protocol) IsConnected() bool {
	return p.state == Connected
}

// Err returns the error which ended the last session.
func (p *Protocol) Err() error {
	return p.err
}

// Stats returns the session counters.
func (p *Protocol) Stats() Stats {
	return p.stats
}

// ProductDetails returns the product details sent in hello.
func (p *Protocol) ProductDetails() ProductDetails {
	return p.product
}

// SetProductDetails overrides the product details.
func (p *Protocol) SetProductDetails(d ProductDetails) {
	p.product = d
}

// MarkUpgraded flags the next hello as following a successful update.
func (p *Protocol) MarkUpgraded() {
	p.upgraded = true
}

func (p *Protocol) now() time.Time {
	return p.clock.Now()
}

// Begin runs the handshake over conn and establishes the session.
// conn is owned by the session afterwards and closed when it ends.
func (p *Protocol) Begin(ctx context.Context, conn transport.Conn) error {
	p.disconnect(nil)
	if p.opts.Keys == nil {
		return ErrInvalidArgument
	}
	p.state = Handshaking
	poller := transport.NewPoller(conn)
	client := &handshake.Client{
		Keys:     p.opts.Keys,
		DeviceID: p.opts.DeviceID,
		Timeout:  p.opts.HandshakeTimeout,
	}
	keys, err := client.Run(ctx, poller)
	if err != nil {
		poller.Close()
		p.state, p.err = Uninitialized, err
		glog.Warningf("handshake failed: %v", err)
		return err
	}
	return p.Attach(ctx, channel.NewSecure(poller, keys, channel.DeviceRole), keys)
}

// Attach establishes the session over an already secured channel.
// The channel is closed when the session ends if it's an io.Closer.
func (p *Protocol) Attach(ctx context.Context, ch channel.Channel, keys *handshake.SessionKeys) error {
	if p.keys == keys {
		p.keys = nil
	}
	p.disconnect(nil)
	p.state = Handshaking
	p.ch, p.keys = ch, keys
	p.ids = coap.NewIDGenerator(keys.MessageID)
	p.tokens = coap.NewTokenGenerator(keys.Token)
	p.acks = newReliability(p.opts.AckTimeout, p.opts.MaxRetransmit)
	p.requests = make(map[string]responseFunc)
	p.lastRecv, p.ping, p.hello, p.err = p.now(), pinger{}, false, nil
	p.recent, p.next = [recentSize]recentMessage{}, 0

	msg, err := p.BuildHello(p.upgraded)
	if err == nil {
		err = p.send(msg)
	}
	if err == nil && p.opts.Flags&RequireHelloResponse != 0 {
		err = p.waitHello(ctx)
	}
	if err != nil {
		p.fail(err)
		return err
	}
	p.upgraded = false
	p.state = Connected
	p.stats.Connects++
	glog.Infof("connected, %d event handlers", len(p.handlers.handlers()))

	if err = p.replaySubscriptions(); err == nil && p.opts.Flags&DeviceInitiatedDescribe != 0 {
		err = p.sendDescribe(DescribeDefault)
	}
	if err != nil {
		p.fail(err)
	}
	return err
}

func (p *Protocol) waitHello(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.HandshakeTimeout)
	defer cancel()
	for !p.hello {
		ok, err := p.ch.Receive(p.recv)
		if err != nil {
			return err
		}
		if ok {
			if err = p.dispatch(p.recv, p.now()); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ErrTimeout
		case <-time.After(pollInterval):
		}
	}
	return nil
}

// BuildHello encodes the hello message of the current session.
func (p *Protocol) BuildHello(newlyUpgraded bool) (*coap.Message, error) {
	if p.ch == nil {
		return nil, ErrNotConnected
	}
	flags := p.opts.HelloFlags
	if newlyUpgraded {
		flags |= HelloOTAUpgradeSuccessful
	}
	msg := coap.NewMessage(0)
	if err := p.ch.Create(msg, helloSize); err != nil {
		return nil, err
	}
	if err := EncodeHello(msg, p.ids.Next(), p.product, p.opts.PlatformID, flags); err != nil {
		return nil, err
	}
	return msg, nil
}

// EventLoop runs one non-blocking iteration of the session: it receives
// and dispatches at most one message, then drives retransmissions and
// keepalive. It returns false when there's no session, including when
// the session just failed.
func (p *Protocol) EventLoop() bool {
	if p.state != Connected {
		return false
	}
	if err := p.iterate(); err != nil {
		p.fail(err)
		return false
	}
	return true
}

func (p *Protocol) iterate() error {
	now := p.now()
	ok, err := p.ch.Receive(p.recv)
	if err != nil {
		return err
	}
	if ok {
		if err = p.dispatch(p.recv, now); err != nil {
			return err
		}
	}
	if err = p.acks.poll(now, p.send); err != nil {
		return err
	}
	return p.keepalive(now)
}

func (p *Protocol) keepalive(now time.Time) error {
	if p.ping.pending {
		if now.Sub(p.ping.sent) >= p.opts.PingTimeout {
			return ErrTimeout
		}
		return nil
	}
	if now.Sub(p.lastRecv) >= p.opts.KeepAlive {
		return p.sendPing(now)
	}
	return nil
}

func (p *Protocol) sendPing(now time.Time) error {
	if p.ping.pending {
		return nil
	}
	msg := coap.NewMessage(0)
	if err := p.ch.Create(msg, pingSize); err != nil {
		return err
	}
	if err := coap.EncodePing(msg, p.ids.Next()); err != nil {
		return err
	}
	if err := p.send(msg); err != nil {
		return err
	}
	p.ping = pinger{id: msg.ID(), sent: now, pending: true}
	return nil
}

func (p *Protocol) send(msg *coap.Message) error {
	if err := p.ch.Send(msg); err != nil {
		return &SendError{Err: err}
	}
	p.stats.Sent++
	return nil
}

// sendConfirmable sends a CON message. Over an unreliable channel it's
// tracked until acknowledged. Over a reliable channel delivery is
// guaranteed by the transport, so done completes right away.
func (p *Protocol) sendConfirmable(msg *coap.Message, token []byte, done CompletionFunc) error {
	if err := p.send(msg); err != nil {
		return err
	}
	p.track(msg, token, done)
	return nil
}

func (p *Protocol) track(msg *coap.Message, token []byte, done CompletionFunc) {
	if p.ch.IsUnreliable() {
		p.acks.track(msg, token, p.now(), done)
	} else if done != nil {
		done(nil)
	}
}

// Outstanding returns the number of unacknowledged confirmable messages.
func (p *Protocol) Outstanding() int {
	if p.acks == nil {
		return 0
	}
	return p.acks.len()
}

// ClearAckHandlers cancels all outstanding confirmable messages.
func (p *Protocol) ClearAckHandlers() {
	if p.acks != nil {
		p.acks.clear(ErrCancelled)
	}
}

func (p *Protocol) fail(err error) {
	glog.Warningf("session failed: %v", err)
	p.disconnect(err)
}

func (p *Protocol) disconnect(err error) {
	if p.ch == nil {
		p.state = Uninitialized
		return
	}
	if p.state == Connected {
		glog.Infof("disconnected")
	}
	p.ClearAckHandlers()
	if closer, ok := p.ch.(io.Closer); ok {
		closer.Close()
	}
	if p.keys != nil {
		p.keys.Zero()
	}
	p.ch, p.keys, p.acks, p.requests = nil, nil, nil, nil
	p.state, p.err = Uninitialized, err
}

// waitOutstanding processes incoming messages until all confirmable
// messages are acknowledged or timeout elapses.
func (p *Protocol) waitOutstanding(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for p.acks.len() > 0 {
		if err := p.iterate(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(pollInterval)
	}
	return nil
}
