package transport

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// DefaultPollerDepth is the number of packets buffered by a Poller.
const DefaultPollerDepth = 16

// Poller turns a blocking Conn into a non-blocking one by reading packets
// in a background goroutine.
type Poller struct {
	conn     Conn
	packetCh chan []byte
	errCh    chan error
	err      error
	done     chan struct{}
	once     sync.Once
}

// NewPoller starts polling conn.
func NewPoller(conn Conn) *Poller {
	p := &Poller{
		conn:     conn,
		packetCh: make(chan []byte, DefaultPollerDepth),
		errCh:    make(chan error, 1),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Poller) run() {
	defer close(p.packetCh)
	for {
		pkt, err := p.conn.ReadPacket()
		if err != nil {
			glog.V(4).Infof("poller stopped: %v", err)
			p.errCh <- err
			return
		}
		select {
		case p.packetCh <- pkt:
		case <-p.done:
			return
		}
	}
}

func (p *Poller) closedErr() error {
	if p.err == nil {
		select {
		case p.err = <-p.errCh:
		default:
			p.err = ErrClosed
		}
	}
	return p.err
}

// TryReadPacket returns a packet if one is available.
func (p *Poller) TryReadPacket() ([]byte, bool, error) {
	select {
	case pkt, ok := <-p.packetCh:
		if !ok {
			return nil, false, p.closedErr()
		}
		return pkt, true, nil
	default:
		return nil, false, nil
	}
}

// ReadPacketContext waits for a packet or the context to be done.
func (p *Poller) ReadPacketContext(ctx context.Context) ([]byte, error) {
	select {
	case pkt, ok := <-p.packetCh:
		if !ok {
			return nil, p.closedErr()
		}
		return pkt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadPacket implements PacketReader.
func (p *Poller) ReadPacket() ([]byte, error) {
	return p.ReadPacketContext(context.Background())
}

// WritePacket implements PacketWriter.
func (p *Poller) WritePacket(pkt []byte) error {
	return p.conn.WritePacket(pkt)
}

// Unreliable implements Conn.
func (p *Poller) Unreliable() bool {
	return p.conn.Unreliable()
}

// Close closes the underlying Conn.
func (p *Poller) Close() (err error) {
	p.once.Do(func() {
		close(p.done)
		err = p.conn.Close()
	})
	return
}
