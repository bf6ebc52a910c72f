// Package transport moves opaque packets between a device and the cloud.
//
// Every transport presents the same packet interface, and reports whether
// it guarantees delivery. Stream and websocket transports are reliable,
// datagram and QoS 0 MQTT transports are not.
package transport

import (
	"errors"
	"io"
)

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport: closed")

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Conn is a packet connection to a peer.
type Conn interface {
	PacketReadWriter
	io.Closer
	// Unreliable indicates the transport may drop or reorder packets.
	Unreliable() bool
}
