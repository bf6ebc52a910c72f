package transport

import "sync"

// pipeEnd is one end of an in-memory packet pipe.
type pipeEnd struct {
	readCh     <-chan []byte
	writeCh    chan<- []byte
	closed     chan struct{}
	once       *sync.Once
	unreliable bool
}

// Pipe creates two connected in-memory Conns. Packets written to one end
// are read from the other in order.
func Pipe(unreliable bool) (Conn, Conn) {
	a2b, b2a := make(chan []byte, DefaultPollerDepth), make(chan []byte, DefaultPollerDepth)
	closed, once := make(chan struct{}), &sync.Once{}
	return &pipeEnd{readCh: b2a, writeCh: a2b, closed: closed, once: once, unreliable: unreliable},
		&pipeEnd{readCh: a2b, writeCh: b2a, closed: closed, once: once, unreliable: unreliable}
}

// ReadPacket implements PacketReader.
func (p *pipeEnd) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.readCh:
		return pkt, nil
	case <-p.closed:
		return nil, ErrClosed
	}
}

// WritePacket implements PacketWriter.
func (p *pipeEnd) WritePacket(pkt []byte) error {
	data := make([]byte, len(pkt))
	copy(data, pkt)
	select {
	case p.writeCh <- data:
		return nil
	case <-p.closed:
		return ErrClosed
	}
}

// Unreliable implements Conn.
func (p *pipeEnd) Unreliable() bool {
	return p.unreliable
}

// Close closes both ends.
func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
