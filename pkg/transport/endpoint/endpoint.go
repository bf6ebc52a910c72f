// Package endpoint dials and listens on transports selected by URL scheme:
//
//	tcp://host:port       stream, reliable
//	udp://host:port       datagram, unreliable
//	ws://host:port/path   websocket, reliable
//	mqtt://host:port/pfx  MQTT QoS 0, unreliable
package endpoint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/transport"
	"github.com/robotalks/cloudlink/pkg/transport/mqtt"
	"github.com/robotalks/cloudlink/pkg/transport/stream"
	"github.com/robotalks/cloudlink/pkg/transport/udp"
	"github.com/robotalks/cloudlink/pkg/transport/websocket"
)

// Listener accepts transport connections.
type Listener interface {
	Accept() (transport.Conn, error)
	Close() error
}

// Dial connects to the cloud at rawURL. deviceID names the device
// on transports which address devices by topic.
func Dial(ctx context.Context, rawURL, deviceID string) (transport.Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	var dialer net.Dialer
	switch u.Scheme {
	case "tcp":
		conn, err := dialer.DialContext(ctx, "tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return stream.New(conn), nil
	case "udp":
		conn, err := udp.Dial(u.Host)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "ws", "wss":
		conn, err := websocket.Dial(rawURL)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "mqtt", "ssl", "tls":
		conn, err := mqtt.Dial(rawURL, deviceID)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return nil, fmt.Errorf("unsupported transport %q", u.Scheme)
}

// Listen starts accepting connections on rawURL.
func Listen(rawURL string) (Listener, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "tcp":
		ln, err := net.Listen("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return &streamListener{ln}, nil
	case "udp":
		ln, err := udp.Listen(u.Host)
		if err != nil {
			return nil, err
		}
		return ln, nil
	case "ws":
		ln, err := listenWebsocket(u)
		if err != nil {
			return nil, err
		}
		return ln, nil
	case "mqtt", "ssl", "tls":
		ln, err := mqtt.Listen(rawURL)
		if err != nil {
			return nil, err
		}
		return ln, nil
	}
	return nil, fmt.Errorf("unsupported transport %q", u.Scheme)
}

type streamListener struct {
	net.Listener
}

func (l *streamListener) Accept() (transport.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("tcp peer %s", conn.RemoteAddr())
	return stream.New(conn), nil
}

type wsListener struct {
	ln     net.Listener
	srv    *http.Server
	connCh chan transport.Conn
	done   chan struct{}
	once   sync.Once
}

func listenWebsocket(u *url.URL) (*wsListener, error) {
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	l := &wsListener{ln: ln, connCh: make(chan transport.Conn), done: make(chan struct{})}
	path := u.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(l.serve))
	l.srv = &http.Server{Handler: mux}
	go l.srv.Serve(ln)
	return l, nil
}

// serve hands the conn to Accept and holds the websocket open
// until the conn is closed.
func (l *wsListener) serve(conn transport.Conn) {
	c := &notifyConn{Conn: conn, closed: make(chan struct{})}
	select {
	case l.connCh <- c:
	case <-l.done:
		return
	}
	select {
	case <-c.closed:
	case <-l.done:
	}
}

func (l *wsListener) Accept() (transport.Conn, error) {
	select {
	case conn := <-l.connCh:
		return conn, nil
	case <-l.done:
		return nil, transport.ErrClosed
	}
}

func (l *wsListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return l.srv.Close()
}

type notifyConn struct {
	transport.Conn
	closed chan struct{}
	once   sync.Once
}

func (c *notifyConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.Conn.Close()
}
