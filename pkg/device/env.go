package device

import (
	"context"
	"encoding/hex"
	"log"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/cloudlink/pkg/framework"
	"github.com/robotalks/cloudlink/pkg/handshake"
	"github.com/robotalks/cloudlink/pkg/protocol"
	"github.com/robotalks/cloudlink/pkg/transport"
	"github.com/robotalks/cloudlink/pkg/transport/endpoint"
)

// MaxReconnectDelay bounds the reconnect backoff.
const MaxReconnectDelay = time.Minute

// Env runs a device session in a framework loop. It connects, drives
// the protocol and reconnects with backoff. The Protocol must only be
// used from the loop, e.g. through Do.
type Env struct {
	Config   *Config
	Protocol *protocol.Protocol
	Registry *protocol.Registry
	Loop     *fx.Loop
	// Dial opens the transport to the cloud.
	Dial func(ctx context.Context) (transport.Conn, error)

	autoConnect bool
	delay       time.Duration
	retryAt     time.Time
}

// NewEnv loads the device identity and keys and creates an Env.
func (c *Config) NewEnv() (*Env, error) {
	id, err := c.ID()
	if err != nil {
		return nil, err
	}
	keys, err := c.LoadKeys()
	if err != nil {
		return nil, err
	}
	return NewEnv(c, id, keys), nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// NewEnv creates an Env with explicit identity and keys.
func NewEnv(c *Config, id []byte, keys *handshake.KeyMaterial) *Env {
	e := &Env{
		Config:      c,
		Protocol:    protocol.New(c.Options(id, keys)),
		Registry:    protocol.NewRegistry(),
		Loop:        fx.NewLoop(),
		autoConnect: true,
		delay:       c.ReconnectDelay,
	}
	e.Protocol.SetProductDetails(c.Product())
	e.SetCallbacks(protocol.Callbacks{})
	deviceID := hex.EncodeToString(id)
	e.Dial = func(ctx context.Context) (transport.Conn, error) {
		return endpoint.Dial(ctx, c.ServerURL, deviceID)
	}
	e.Loop.AddController(fx.PrLvSession, fx.ControlFunc(e.control))
	return e
}

// SetCallbacks installs application callbacks. Functions and variables
// default to the Registry. It must be called before Run.
func (e *Env) SetCallbacks(cbs protocol.Callbacks) {
	if cbs.Functions == nil {
		cbs.Functions = e.Registry
	}
	if cbs.Variables == nil {
		cbs.Variables = e.Registry
	}
	e.Protocol.Init(cbs, e.Registry)
}

// Run runs the loop until ctx is done.
func (e *Env) Run(ctx context.Context) error {
	return e.Loop.Run(ctx)
}

func (e *Env) control(cc fx.ControlContext) error {
	p := e.Protocol
	if p.IsConnected() {
		if !p.EventLoop() {
			glog.Warningf("disconnected: %v", p.Err())
			e.retryAt = cc.Time().Add(e.delay)
		}
		return nil
	}
	if !e.autoConnect || cc.Time().Before(e.retryAt) {
		return nil
	}
	if err := e.connect(cc.Context()); err != nil {
		e.retryAt = cc.Time().Add(e.delay)
		if e.delay *= 2; e.delay > MaxReconnectDelay {
			e.delay = MaxReconnectDelay
		}
		return err
	}
	e.delay = e.Config.ReconnectDelay
	return nil
}

func (e *Env) connect(ctx context.Context) error {
	glog.Infof("connecting %s", e.Config.ServerURL)
	conn, err := e.Dial(ctx)
	if err != nil {
		return err
	}
	return e.Protocol.Begin(ctx, conn)
}

// Do runs fn in the loop and returns its error.
func (e *Env) Do(ctx context.Context, fn func(*protocol.Protocol) error) error {
	errCh := make(chan error, 1)
	e.Loop.Do(func(fx.ControlContext) { errCh <- fn(e.Protocol) })
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect enables connecting and reconnecting.
func (e *Env) Connect(ctx context.Context) error {
	return e.Loop.DoSync(ctx, func(fx.ControlContext) {
		e.autoConnect, e.retryAt, e.delay = true, time.Time{}, e.Config.ReconnectDelay
	})
}

// Disconnect closes the session gracefully and stops reconnecting.
func (e *Env) Disconnect(ctx context.Context) error {
	return e.Do(ctx, func(p *protocol.Protocol) error {
		e.autoConnect = false
		if !p.IsConnected() {
			return nil
		}
		return p.Command(protocol.CommandDisconnect, nil)
	})
}

// Publish sends an event from the loop.
func (e *Env) Publish(ctx context.Context, name string, data []byte, typ protocol.EventType, flags protocol.EventFlags) error {
	return e.Do(ctx, func(p *protocol.Protocol) error {
		return p.SendEvent(name, data, protocol.DefaultEventTTL, typ, flags, nil)
	})
}

// Subscribe registers an event handler. The handler runs in the loop.
func (e *Env) Subscribe(ctx context.Context, filter string, handler protocol.EventHandlerFunc, scope protocol.SubscriptionScope) error {
	return e.Do(ctx, func(p *protocol.Protocol) error {
		return p.Subscribe(filter, handler, scope)
	})
}
