// Package cloudsim implements the cloud side of a device session. It is
// used by tests and by the `cloudlink cloud` command.
package cloudsim

import (
	"context"
	"crypto/rsa"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	fx "github.com/robotalks/cloudlink/pkg/framework"
	"github.com/robotalks/cloudlink/pkg/handshake"
	"github.com/robotalks/cloudlink/pkg/protocol"
	"github.com/robotalks/cloudlink/pkg/transport"
	"github.com/robotalks/cloudlink/pkg/transport/endpoint"
)

// Server accepts devices and keeps their sessions.
type Server struct {
	Key              *rsa.PrivateKey
	Lookup           handshake.KeyLookup
	HandshakeTimeout time.Duration
	AckTimeout       time.Duration
	MaxRetransmit    int
	// SendHello answers every device hello with a hello of the cloud.
	SendHello bool
	// OnSession is invoked when a device session is established.
	OnSession func(*Session)

	lock     sync.RWMutex
	sessions map[string]*Session
}

// NewServer creates a Server with the default settings.
func NewServer(key *rsa.PrivateKey) *Server {
	return &Server{
		Key:              key,
		HandshakeTimeout: handshake.DefaultTimeout,
		AckTimeout:       protocol.DefaultAckTimeout,
		MaxRetransmit:    protocol.DefaultMaxRetransmit,
		SendHello:        true,
	}
}

// Serve accepts connections from ln and serves each in its own
// goroutine until ctx is done.
func (s *Server) Serve(ctx context.Context, ln endpoint.Listener) error {
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			go func() {
				if err := s.ServeConn(ctx, conn); err != nil && err != context.Canceled {
					glog.Warningf("session ended: %v", err)
				}
			}()
		}
	})
}

// ServeConn authenticates the device on conn and serves the session
// until the connection fails or ctx is done.
func (s *Server) ServeConn(ctx context.Context, conn transport.Conn) error {
	sess, err := s.Accept(ctx, conn)
	if err != nil {
		return err
	}
	return sess.Run(ctx)
}

// Accept runs the handshake on conn and registers the resulting
// session. The caller must Run the session.
func (s *Server) Accept(ctx context.Context, conn transport.Conn) (*Session, error) {
	poller := transport.NewPoller(conn)
	hs := &handshake.Server{Key: s.Key, Lookup: s.Lookup, Timeout: s.HandshakeTimeout}
	peer, err := hs.Run(ctx, poller)
	if err != nil {
		poller.Close()
		glog.Warningf("handshake failed: %v", err)
		return nil, err
	}
	sess := newSession(s, uuid.New().String(), peer, poller)
	s.lock.Lock()
	if s.sessions == nil {
		s.sessions = make(map[string]*Session)
	}
	s.sessions[sess.ID] = sess
	s.lock.Unlock()
	glog.Infof("session %s: device %x connected", sess.ID, sess.DeviceID)
	if s.OnSession != nil {
		s.OnSession(sess)
	}
	return sess, nil
}

func (s *Server) remove(sess *Session) {
	s.lock.Lock()
	delete(s.sessions, sess.ID)
	s.lock.Unlock()
}

// Session returns the session with id.
func (s *Server) Session(id string) *Session {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.sessions[id]
}

// Sessions returns all live sessions ordered by id.
func (s *Server) Sessions() []*Session {
	s.lock.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.lock.RUnlock()
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions
}

// FindDevice returns the session of a device given its hex id prefix.
func (s *Server) FindDevice(hexID string) *Session {
	for _, sess := range s.Sessions() {
		if strings.HasPrefix(sess.DeviceHex(), strings.ToLower(hexID)) {
			return sess
		}
	}
	return nil
}

// Publish delivers an event to every session subscribed to it and
// returns the number of sessions it was sent to.
func (s *Server) Publish(ctx context.Context, name string, data []byte, typ protocol.EventType) int {
	return s.route(ctx, nil, name, data, typ)
}

// route forwards an event to the subscribed sessions other than from.
// Subscriptions scoped to ScopeMyDevices only match events published
// by devices. Delivery is asynchronous.
func (s *Server) route(ctx context.Context, from *Session, name string, data []byte, typ protocol.EventType) int {
	var targets int
	for _, sess := range s.Sessions() {
		if sess == from || !sess.subscribed(name, from != nil) {
			continue
		}
		targets++
		go func(sess *Session) {
			if err := sess.PublishEvent(ctx, name, data, typ); err != nil {
				glog.Warningf("session %s: forward %q failed: %v", sess.ID, name, err)
			}
		}(sess)
	}
	return targets
}
