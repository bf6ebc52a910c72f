package coap

import "encoding/binary"

// Message is a fixed-capacity buffer holding one encoded message.
//
// The message id is parsed from the raw bytes by DecodeID and can't be
// set independently: it's only trusted after DecodeID returned true.
type Message struct {
	buf     []byte
	length  int
	id      uint16
	decoded bool
}

// NewMessage creates an empty Message with the given capacity.
func NewMessage(capacity int) *Message {
	return &Message{buf: make([]byte, capacity)}
}

// Reset empties the message and ensures capacity, reusing the buffer
// when it's large enough.
func (m *Message) Reset(capacity int) {
	if cap(m.buf) < capacity {
		m.buf = make([]byte, capacity)
	} else {
		m.buf = m.buf[:capacity]
	}
	m.length, m.id, m.decoded = 0, 0, false
}

// Capacity returns the buffer capacity.
func (m *Message) Capacity() int { return len(m.buf) }

// Len returns the length of the encoded message.
func (m *Message) Len() int { return m.length }

// Buf returns the whole buffer for encoders to write into.
func (m *Message) Buf() []byte { return m.buf }

// Bytes returns the encoded message.
func (m *Message) Bytes() []byte { return m.buf[:m.length] }

// SetLength sets the encoded length after writing into Buf.
func (m *Message) SetLength(n int) error {
	if n < 0 || n > len(m.buf) {
		return ErrOverflow
	}
	m.length, m.decoded = n, false
	return nil
}

// SetBytes copies b into the message.
func (m *Message) SetBytes(b []byte) error {
	if len(b) > len(m.buf) {
		return ErrOverflow
	}
	copy(m.buf, b)
	return m.SetLength(len(b))
}

// DecodeID parses the message id from the raw bytes.
func (m *Message) DecodeID() bool {
	if m.length < HeaderSize {
		m.decoded = false
		return false
	}
	m.id = binary.BigEndian.Uint16(m.buf[2:])
	m.decoded = true
	return true
}

// ID returns the decoded message id.
func (m *Message) ID() uint16 { return m.id }

// Decoded indicates DecodeID succeeded since the last modification.
func (m *Message) Decoded() bool { return m.decoded }

// Header parses the header from the raw bytes.
func (m *Message) Header() (Header, error) {
	h, _, err := ParseHeader(m.Bytes())
	return h, err
}

// Parse parses the whole message.
func (m *Message) Parse() (*Parsed, error) {
	return Parse(m.Bytes())
}

// Clone returns a copy with capacity trimmed to the length.
func (m *Message) Clone() *Message {
	c := &Message{buf: make([]byte, m.length), length: m.length, id: m.id, decoded: m.decoded}
	copy(c.buf, m.buf[:m.length])
	return c
}
