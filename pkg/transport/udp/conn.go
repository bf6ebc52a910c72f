// Package udp carries packets as UDP datagrams.
package udp

import (
	"net"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/transport"
)

// MaxDatagramSize bounds a single received datagram.
const MaxDatagramSize = 1500

// Conn is a connected UDP socket implementing transport.Conn.
type Conn struct {
	conn net.Conn
}

// Dial connects to a UDP address.
func Dial(addr string) (*Conn, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: conn}, nil
}

// ReadPacket implements PacketReader.
func (c *Conn) ReadPacket() ([]byte, error) {
	buf := make([]byte, MaxDatagramSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// WritePacket implements PacketWriter.
func (c *Conn) WritePacket(pkt []byte) error {
	_, err := c.conn.Write(pkt)
	return err
}

// Unreliable implements transport.Conn.
func (c *Conn) Unreliable() bool { return true }

// Close implements io.Closer.
func (c *Conn) Close() error { return c.conn.Close() }

// Listener demultiplexes datagrams from many peers on one socket.
type Listener struct {
	conn  net.PacketConn
	peers map[string]*peerConn
	lock  sync.Mutex
}

// Listen listens on a UDP address.
func Listen(addr string) (*Listener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{conn: conn, peers: make(map[string]*peerConn)}, nil
}

// Addr returns the local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Accept reads datagrams until a packet arrives from a new peer and
// returns the Conn for it.
func (l *Listener) Accept() (transport.Conn, error) {
	for {
		buf := make([]byte, MaxDatagramSize)
		n, addr, err := l.conn.ReadFrom(buf)
		if err != nil {
			return nil, err
		}
		l.lock.Lock()
		peer, exists := l.peers[addr.String()]
		if !exists {
			peer = &peerConn{
				listener: l,
				addr:     addr,
				packetCh: make(chan []byte, transport.DefaultPollerDepth),
				closed:   make(chan struct{}),
			}
			l.peers[addr.String()] = peer
		}
		l.lock.Unlock()
		peer.deliver(buf[:n])
		if !exists {
			glog.V(2).Infof("udp peer %s", addr)
			return peer, nil
		}
	}
}

// Close closes the socket and all peers.
func (l *Listener) Close() error {
	l.lock.Lock()
	for key, peer := range l.peers {
		peer.closeOnce.Do(func() { close(peer.closed) })
		delete(l.peers, key)
	}
	l.lock.Unlock()
	return l.conn.Close()
}

type peerConn struct {
	listener  *Listener
	addr      net.Addr
	packetCh  chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func (p *peerConn) deliver(pkt []byte) {
	select {
	case p.packetCh <- pkt:
	default:
		glog.Warningf("udp peer %s: queue full, datagram dropped", p.addr)
	}
}

func (p *peerConn) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.closed:
		return nil, transport.ErrClosed
	}
}

func (p *peerConn) WritePacket(pkt []byte) error {
	_, err := p.listener.conn.WriteTo(pkt, p.addr)
	return err
}

func (p *peerConn) Unreliable() bool { return true }

func (p *peerConn) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	p.listener.lock.Lock()
	delete(p.listener.peers, p.addr.String())
	p.listener.lock.Unlock()
	return nil
}
