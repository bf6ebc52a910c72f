package protocol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudlink/pkg/channel"
	"github.com/robotalks/cloudlink/pkg/coap"
	"github.com/robotalks/cloudlink/pkg/handshake"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// testKeys derive from credentials 0, 1, 2, ... so the first message id
// is 0x2021 and the first token is 0x22.
func testKeys(t *testing.T) *handshake.SessionKeys {
	creds := make([]byte, handshake.CredentialsSize)
	for i := range creds {
		creds[i] = byte(i)
	}
	keys, err := handshake.DeriveSessionKeys(creds)
	require.NoError(t, err)
	return keys
}

type harness struct {
	*Protocol
	ch    *channel.Memory
	clock *fakeClock
}

func quietOptions() Options {
	return Options{KeepAlive: 24 * time.Hour, PingTimeout: 24 * time.Hour}
}

func newHarness(t *testing.T, unreliable bool, opts Options, cbs Callbacks, d Descriptor) *harness {
	h := &harness{
		Protocol: New(opts),
		ch:       channel.NewMemory(unreliable),
		clock:    &fakeClock{t: time.Unix(1500000000, 0)},
	}
	cbs.Time = h.clock
	h.Init(cbs, d)
	require.NoError(t, h.Attach(context.Background(), h.ch, testKeys(t)))
	require.Equal(t, Connected, h.State())
	h.ch.Take()
	return h
}

func (h *harness) inject(t *testing.T, hdr coap.Header, payload []byte, opts ...coap.Option) {
	msg := coap.NewMessage(channel.DefaultMTU)
	w := coap.NewWriter(msg).Header(hdr)
	for _, opt := range opts {
		w.Option(opt.Number, opt.Value)
	}
	require.NoError(t, w.Payload(payload).Finish())
	h.ch.InjectMessage(msg)
}

func (h *harness) sent(t *testing.T) []*coap.Parsed {
	var out []*coap.Parsed
	for _, msg := range h.ch.Take() {
		p, err := msg.Parse()
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func path(segs ...string) []coap.Option {
	opts := make([]coap.Option, len(segs))
	for i, seg := range segs {
		opts[i] = coap.Option{Number: coap.OptionURIPath, Value: []byte(seg)}
	}
	return opts
}

func query(q string) coap.Option {
	return coap.Option{Number: coap.OptionURIQuery, Value: []byte(q)}
}

func TestAttachSendsHello(t *testing.T) {
	p := New(quietOptions())
	p.Init(Callbacks{}, nil)
	p.SetProductDetails(ProductDetails{ProductID: 0x1234, ProductVersion: 7})
	p.MarkUpgraded()
	ch := channel.NewMemory(false)
	require.NoError(t, p.Attach(context.Background(), ch, testKeys(t)))
	require.True(t, p.IsConnected())
	require.Equal(t, 1, p.Stats().Connects)

	sent := ch.Take()
	require.Len(t, sent, 1)
	msg, err := sent[0].Parse()
	require.NoError(t, err)
	require.Equal(t, coap.NonConfirmable, msg.Type)
	require.Equal(t, coap.CodePost, msg.Code)
	require.Equal(t, uint16(0x2021), msg.ID)
	res, _ := msg.Resource()
	require.Equal(t, coap.ResourceHello, res)
	hello, ok := ParseHello(msg.Payload)
	require.True(t, ok)
	require.Equal(t, ProductDetails{ProductID: 0x1234, ProductVersion: 7}, hello.ProductDetails)
	require.Equal(t, DefaultPlatformID, hello.PlatformID)
	require.Equal(t, HelloDiagnosticsSupport|HelloOTAUpgradeSuccessful, hello.Flags)

	// the upgrade flag is sent once
	require.NoError(t, p.Attach(context.Background(), ch, testKeys(t)))
	msg, err = ch.Take()[0].Parse()
	require.NoError(t, err)
	hello, _ = ParseHello(msg.Payload)
	require.Equal(t, HelloDiagnosticsSupport, hello.Flags)
}

func TestDefaultProductDetails(t *testing.T) {
	p := New(Options{})
	require.Equal(t, DefaultProductID, p.ProductDetails().ProductID)
	require.Equal(t, DefaultProductFirmwareVersion, p.ProductDetails().ProductVersion)
	p.SetProductDetails(ProductDetails{ProductID: 1, ProductVersion: 2})
	require.Equal(t, ProductDetails{ProductID: 1, ProductVersion: 2}, p.ProductDetails())
}

func TestNotConnected(t *testing.T) {
	p := New(Options{})
	require.Equal(t, Uninitialized, p.State())
	require.False(t, p.EventLoop())
	require.Equal(t, ErrNotConnected, p.Command(CommandPing, nil))
	require.Equal(t, ErrNotConnected, p.SendEvent("a", nil, DefaultEventTTL, PublicEvent, EmptyFlags, nil))
	_, err := p.BuildHello(false)
	require.Equal(t, ErrNotConnected, err)
	require.Equal(t, ErrInvalidArgument, p.Begin(context.Background(), nil))
}

func TestRequireHelloResponse(t *testing.T) {
	opts := quietOptions()
	opts.Flags = RequireHelloResponse
	opts.HandshakeTimeout = 20 * time.Millisecond

	p := New(opts)
	p.Init(Callbacks{}, nil)
	ch := channel.NewMemory(false)
	err := p.Attach(context.Background(), ch, testKeys(t))
	require.Equal(t, ErrTimeout, err)
	require.Equal(t, Uninitialized, p.State())
	require.Equal(t, ErrTimeout, p.Err())

	h := &harness{Protocol: p, ch: ch}
	h.inject(t, coap.Header{Type: coap.Confirmable, Code: coap.CodePost, ID: 9}, nil, path(coap.ResourceHello)...)
	require.NoError(t, p.Attach(context.Background(), ch, testKeys(t)))
	require.True(t, p.IsConnected())
	sent := h.sent(t)
	require.Len(t, sent, 3)
	// the cloud hello is acknowledged
	require.Equal(t, coap.Acknowledgement, sent[2].Type)
	require.Equal(t, uint16(9), sent[2].ID)
}

func TestReceiveErrorDisconnects(t *testing.T) {
	h := newHarness(t, false, quietOptions(), Callbacks{}, nil)
	boom := errors.New("boom")
	h.ch.ReceiveErr = boom
	require.False(t, h.EventLoop())
	require.Equal(t, Uninitialized, h.State())
	require.Equal(t, boom, h.Err())
	require.False(t, h.EventLoop())
}

func TestSendErrorDisconnects(t *testing.T) {
	h := newHarness(t, false, quietOptions(), Callbacks{}, nil)
	boom := errors.New("boom")
	h.ch.SendErr = boom
	err := h.SendEvent("temp", nil, DefaultEventTTL, PublicEvent, EmptyFlags, nil)
	require.True(t, errors.Is(err, boom))
	require.Equal(t, Uninitialized, h.State())
}

func TestMalformedDropped(t *testing.T) {
	h := newHarness(t, true, quietOptions(), Callbacks{}, nil)
	// payload marker without payload
	h.ch.Inject([]byte{0x40, 0x02, 0x00, 0x01, 0xff})
	require.True(t, h.EventLoop())
	require.Empty(t, h.ch.Sent())
	require.Equal(t, 1, h.Stats().Dropped)
	require.True(t, h.IsConnected())
}

func TestUnknownConfirmableReset(t *testing.T) {
	h := newHarness(t, false, quietOptions(), Callbacks{}, nil)
	h.inject(t, coap.Header{Type: coap.Confirmable, Code: coap.CodePost, ID: 77}, nil, path("zz")...)
	require.True(t, h.EventLoop())
	sent := h.sent(t)
	require.Len(t, sent, 1)
	require.Equal(t, coap.Reset, sent[0].Type)
	require.Equal(t, uint16(77), sent[0].ID)

	h.inject(t, coap.Header{Type: coap.NonConfirmable, Code: coap.CodePost, ID: 78}, nil, path("zz")...)
	require.True(t, h.EventLoop())
	require.Empty(t, h.ch.Sent())
}

func TestPingAcknowledged(t *testing.T) {
	h := newHarness(t, false, quietOptions(), Callbacks{}, nil)
	h.inject(t, coap.Header{Type: coap.Confirmable, ID: 5}, nil)
	require.True(t, h.EventLoop())
	sent := h.ch.Take()
	require.Len(t, sent, 1)
	require.Equal(t, coap.HeaderSize, sent[0].Len())
	require.Equal(t, uint16(5), sent[0].ID())
}

func TestKeepalive(t *testing.T) {
	opts := Options{KeepAlive: 15 * time.Second, PingTimeout: 10 * time.Second}
	h := newHarness(t, false, opts, Callbacks{}, nil)

	h.clock.Advance(14 * time.Second)
	require.True(t, h.EventLoop())
	require.Empty(t, h.ch.Sent())

	h.clock.Advance(time.Second)
	require.True(t, h.EventLoop())
	sent := h.sent(t)
	require.Len(t, sent, 1)
	require.Equal(t, coap.Confirmable, sent[0].Type)
	require.Equal(t, coap.CodeEmpty, sent[0].Code)

	h.inject(t, coap.Header{Type: coap.Acknowledgement, ID: sent[0].ID}, nil)
	require.True(t, h.EventLoop())
	h.clock.Advance(10 * time.Second)
	require.True(t, h.EventLoop())
	require.Empty(t, h.ch.Sent())

	h.clock.Advance(5 * time.Second)
	require.True(t, h.EventLoop())
	require.Len(t, h.ch.Take(), 1)
	h.clock.Advance(10 * time.Second)
	require.False(t, h.EventLoop())
	require.Equal(t, ErrTimeout, h.Err())
}

func TestCommandPing(t *testing.T) {
	h := newHarness(t, false, quietOptions(), Callbacks{}, nil)
	require.NoError(t, h.Command(CommandPing, nil))
	require.NoError(t, h.Command(CommandPing, nil))
	require.Len(t, h.ch.Take(), 1)
	require.Equal(t, ErrUnknownCommand, h.Command(Command(99), nil))
}

func TestCommandDisconnect(t *testing.T) {
	h := newHarness(t, false, quietOptions(), Callbacks{}, nil)
	require.NoError(t, h.Command(CommandDisconnect, nil))
	require.Equal(t, Uninitialized, h.State())
	require.NoError(t, h.Err())

	h = newHarness(t, true, quietOptions(), Callbacks{}, nil)
	var result error
	require.NoError(t, h.SendEvent("a", nil, DefaultEventTTL, PublicEvent, EmptyFlags, func(err error) { result = err }))
	require.Equal(t, ErrTimeout, h.Command(CommandSleep, 10*time.Millisecond))
	require.True(t, h.IsConnected())
	require.NoError(t, h.Command(CommandTerminate, nil))
	require.Equal(t, ErrCancelled, result)
	require.Equal(t, Uninitialized, h.State())
}

type timeRecorder struct {
	t time.Time
}

func (r *timeRecorder) SetTime(t time.Time) { r.t = t }

func TestRequestTime(t *testing.T) {
	rec := &timeRecorder{}
	h := newHarness(t, true, quietOptions(), Callbacks{TimeSetter: rec}, nil)
	require.NoError(t, h.Command(CommandRequestTime, nil))
	sent := h.sent(t)
	require.Len(t, sent, 1)
	req := sent[0]
	require.Equal(t, coap.Confirmable, req.Type)
	require.Equal(t, coap.CodeGet, req.Code)
	res, _ := req.Resource()
	require.Equal(t, coap.ResourceTime, res)
	require.Equal(t, 1, h.Outstanding())

	h.inject(t, coap.Header{Type: coap.Acknowledgement, Code: coap.CodeContent, ID: req.ID, Token: req.Token},
		[]byte{0x5a, 0x00, 0x00, 0x01})
	require.True(t, h.EventLoop())
	require.Equal(t, int64(0x5a000001), rec.t.Unix())
	require.Zero(t, h.Outstanding())
}

type signalRecorder struct {
	signals []bool
	keys    []byte
}

func (r *signalRecorder) Signal(on bool)        { r.signals = append(r.signals, on) }
func (r *signalRecorder) KeyChanged(param byte) { r.keys = append(r.keys, param) }

func TestSignalAndKeyChange(t *testing.T) {
	rec := &signalRecorder{}
	h := newHarness(t, false, quietOptions(), Callbacks{Signaler: rec, KeyChanger: rec}, nil)
	h.inject(t, coap.Header{Type: coap.Confirmable, Code: coap.CodePut, ID: 1, Token: []byte{3}}, []byte{1}, path(coap.ResourceSignal)...)
	h.inject(t, coap.Header{Type: coap.Confirmable, Code: coap.CodePut, ID: 2, Token: []byte{4}}, []byte{0}, path(coap.ResourceSignal)...)
	h.inject(t, coap.Header{Type: coap.Confirmable, Code: coap.CodePut, ID: 3}, []byte{9}, path(coap.ResourceKeyChange)...)
	for i := 0; i < 3; i++ {
		require.True(t, h.EventLoop())
	}
	require.Equal(t, []bool{true, false}, rec.signals)
	require.Equal(t, []byte{9}, rec.keys)
	sent := h.sent(t)
	require.Len(t, sent, 3)
	for i, msg := range sent {
		require.Equal(t, coap.Acknowledgement, msg.Type)
		require.Equal(t, coap.CodeChanged, msg.Code)
		require.Equal(t, uint16(i+1), msg.ID)
	}
}

func TestDuplicateConfirmable(t *testing.T) {
	reg := NewRegistry()
	var calls int
	require.NoError(t, reg.Function("inc", func(string) int32 {
		calls++
		return int32(calls)
	}))
	h := newHarness(t, true, quietOptions(), Callbacks{Functions: reg}, reg)
	for i := 0; i < 2; i++ {
		h.inject(t, coap.Header{Type: coap.Confirmable, Code: coap.CodePost, ID: 0x4444, Token: []byte{1}}, nil, path(coap.ResourceFunction, "inc")...)
		require.True(t, h.EventLoop())
	}
	require.Equal(t, 1, calls)
	require.Equal(t, 1, h.Stats().Duplicates)
	sent := h.sent(t)
	require.Len(t, sent, 3)
	require.Equal(t, coap.Acknowledgement, sent[0].Type)
	require.Equal(t, coap.NonConfirmable, sent[1].Type)
	require.Equal(t, coap.Acknowledgement, sent[2].Type)
	require.Equal(t, uint16(0x4444), sent[2].ID)
}
