// Package stream carries packets over a byte stream such as TCP.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
)

// MaxPacketSize is the largest packet the 2-byte length prefix can carry.
const MaxPacketSize = 0xffff

// ErrPacketTooLarge is returned when writing a packet above MaxPacketSize.
var ErrPacketTooLarge = errors.New("stream: packet too large")

// Conn implements transport.Conn.
// Each packet is prefixed by its length as 2-byte big-endian.
type Conn struct {
	io.ReadWriteCloser

	writeLock sync.Mutex
}

// New creates a Conn with io.ReadWriteCloser.
func New(s io.ReadWriteCloser) *Conn {
	return &Conn{ReadWriteCloser: s}
}

// ReadPacket implements PacketReader.
func (c *Conn) ReadPacket() ([]byte, error) {
	var size uint16
	if err := binary.Read(c.ReadWriteCloser, binary.BigEndian, &size); err != nil {
		return nil, err
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(c.ReadWriteCloser, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (c *Conn) WritePacket(pkt []byte) error {
	if len(pkt) > MaxPacketSize {
		return ErrPacketTooLarge
	}
	buf := make([]byte, 2+len(pkt))
	binary.BigEndian.PutUint16(buf, uint16(len(pkt)))
	copy(buf[2:], pkt)
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	_, err := c.Write(buf)
	return err
}

// Unreliable implements transport.Conn.
func (c *Conn) Unreliable() bool {
	return false
}
