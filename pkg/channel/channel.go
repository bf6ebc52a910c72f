// Package channel moves whole messages between session peers.
package channel

import (
	"errors"

	"github.com/robotalks/cloudlink/pkg/coap"
)

// DefaultMTU is the largest plaintext message a channel carries.
const DefaultMTU = 1024

var (
	// ErrTooLarge indicates a message exceeding the channel MTU.
	ErrTooLarge = errors.New("channel: message too large")
	// ErrClosed indicates the channel is closed.
	ErrClosed = errors.New("channel: closed")
)

// Channel is the message transport of a session.
type Channel interface {
	// Create prepares msg to hold a message of up to the channel MTU.
	// It fails if size exceeds the MTU.
	Create(msg *coap.Message, size int) error
	// Send sends one encoded message.
	Send(msg *coap.Message) error
	// Receive receives one message if available without blocking.
	// The message id is decoded when true is returned.
	Receive(msg *coap.Message) (bool, error)
	// Response prepares out to carry a reply to original.
	Response(original, out *coap.Message, minSize int) error
	// IsUnreliable indicates the transport may lose messages.
	IsUnreliable() bool
}

func create(msg *coap.Message, size, mtu int) error {
	if size > mtu {
		return ErrTooLarge
	}
	msg.Reset(mtu)
	return nil
}
