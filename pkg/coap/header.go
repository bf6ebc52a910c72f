// Package coap implements the CoAP-like wire format spoken over a session:
// the 4-byte header, token, delta-encoded options and payload.
package coap

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Version is the only protocol version emitted and accepted.
const Version = 1

const (
	// HeaderSize is the fixed size of a header without token.
	HeaderSize = 4
	// MaxTokenLen is the longest token a header can carry.
	MaxTokenLen = 8
	// PayloadMarker separates options from payload.
	PayloadMarker = 0xff
)

var (
	// ErrMalformed indicates bytes which can't be parsed as a message.
	ErrMalformed = errors.New("coap: malformed message")
	// ErrOverflow indicates the encoded message exceeds buffer capacity.
	ErrOverflow = errors.New("coap: message exceeds capacity")
	// ErrTokenTooLong indicates a token longer than MaxTokenLen.
	ErrTokenTooLong = errors.New("coap: token too long")
	// ErrOptionOrder indicates options written in decreasing order.
	ErrOptionOrder = errors.New("coap: options out of order")
)

// Type is the message type.
type Type byte

// Message types.
const (
	Confirmable     Type = 0
	NonConfirmable  Type = 1
	Acknowledgement Type = 2
	Reset           Type = 3
)

// IsReply indicates ACK or RESET.
func (t Type) IsReply() bool {
	return t == Acknowledgement || t == Reset
}

func (t Type) String() string {
	switch t {
	case Confirmable:
		return "CON"
	case NonConfirmable:
		return "NON"
	case Acknowledgement:
		return "ACK"
	case Reset:
		return "RST"
	}
	return fmt.Sprintf("Type(%d)", byte(t))
}

// Code is the method or response code, class in the top 3 bits.
type Code byte

// Codes used by the protocol.
const (
	CodeEmpty Code = 0x00

	CodeGet    Code = 0x01
	CodePost   Code = 0x02
	CodePut    Code = 0x03
	CodeDelete Code = 0x04

	CodeCreated Code = 0x41
	CodeDeleted Code = 0x42
	CodeValid   Code = 0x43
	CodeChanged Code = 0x44
	CodeContent Code = 0x45

	CodeBadRequest            Code = 0x80
	CodeUnauthorized          Code = 0x81
	CodeNotFound              Code = 0x84
	CodeMethodNotAllowed      Code = 0x85
	CodeRequestEntityTooLarge Code = 0x8d

	CodeInternalServerError Code = 0xa0
	CodeServiceUnavailable  Code = 0xa3
)

// Class returns the code class.
func (c Code) Class() byte { return byte(c) >> 5 }

// Detail returns the code detail.
func (c Code) Detail() byte { return byte(c) & 0x1f }

// IsRequest indicates a method code.
func (c Code) IsRequest() bool { return c.Class() == 0 && c != CodeEmpty }

// IsResponse indicates a response code.
func (c Code) IsResponse() bool { return c.Class() >= 2 }

// IsSuccess indicates a 2.xx response code.
func (c Code) IsSuccess() bool { return c.Class() == 2 }

func (c Code) String() string {
	return fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
}

// Header is the parsed fixed header plus token.
type Header struct {
	Type  Type
	Code  Code
	ID    uint16
	Token []byte
}

// Size returns the encoded size.
func (h *Header) Size() int {
	return HeaderSize + len(h.Token)
}

// Encode writes the header into buf and returns the bytes written.
func (h *Header) Encode(buf []byte) (int, error) {
	if len(h.Token) > MaxTokenLen {
		return 0, ErrTokenTooLong
	}
	if len(buf) < h.Size() {
		return 0, ErrOverflow
	}
	buf[0] = Version<<6 | byte(h.Type&3)<<4 | byte(len(h.Token))
	buf[1] = byte(h.Code)
	binary.BigEndian.PutUint16(buf[2:], h.ID)
	copy(buf[HeaderSize:], h.Token)
	return h.Size(), nil
}

// ParseHeader parses the header and returns the bytes consumed.
// The token aliases b.
func ParseHeader(b []byte) (h Header, n int, err error) {
	if len(b) < HeaderSize || b[0]>>6 != Version {
		return h, 0, ErrMalformed
	}
	tkl := int(b[0] & 0x0f)
	if tkl > MaxTokenLen || len(b) < HeaderSize+tkl {
		return h, 0, ErrMalformed
	}
	h.Type = Type(b[0]>>4) & 3
	h.Code = Code(b[1])
	h.ID = binary.BigEndian.Uint16(b[2:])
	if tkl > 0 {
		h.Token = b[HeaderSize : HeaderSize+tkl]
	}
	return h, HeaderSize + tkl, nil
}
