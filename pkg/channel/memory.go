package channel

import "github.com/robotalks/cloudlink/pkg/coap"

// Memory is an in-process Channel recording sent messages and replaying
// injected ones. It carries plaintext and is meant for tests and
// simulations.
type Memory struct {
	MTU        int
	Unreliable bool
	// SkipDecode leaves received message ids undecoded.
	SkipDecode bool
	// SendErr and ReceiveErr, when set, are returned by Send and Receive.
	SendErr    error
	ReceiveErr error

	sent  []*coap.Message
	inbox [][]byte
}

// NewMemory creates a Memory channel.
func NewMemory(unreliable bool) *Memory {
	return &Memory{MTU: DefaultMTU, Unreliable: unreliable}
}

// Inject queues an encoded message for Receive.
func (m *Memory) Inject(b []byte) {
	m.inbox = append(m.inbox, append([]byte(nil), b...))
}

// InjectMessage queues msg for Receive.
func (m *Memory) InjectMessage(msg *coap.Message) {
	m.Inject(msg.Bytes())
}

// Sent returns the messages sent so far.
func (m *Memory) Sent() []*coap.Message {
	return m.sent
}

// Take returns and clears the messages sent so far.
func (m *Memory) Take() []*coap.Message {
	sent := m.sent
	m.sent = nil
	return sent
}

// Create implements Channel.
func (m *Memory) Create(msg *coap.Message, size int) error {
	return create(msg, size, m.MTU)
}

// Response implements Channel.
func (m *Memory) Response(original, out *coap.Message, minSize int) error {
	return create(out, minSize, m.MTU)
}

// IsUnreliable implements Channel.
func (m *Memory) IsUnreliable() bool {
	return m.Unreliable
}

// Send implements Channel.
func (m *Memory) Send(msg *coap.Message) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	if msg.Len() > m.MTU {
		return ErrTooLarge
	}
	m.sent = append(m.sent, msg.Clone())
	return nil
}

// Receive implements Channel.
func (m *Memory) Receive(msg *coap.Message) (bool, error) {
	if m.ReceiveErr != nil {
		return false, m.ReceiveErr
	}
	if len(m.inbox) == 0 {
		return false, nil
	}
	b := m.inbox[0]
	m.inbox = m.inbox[1:]
	msg.Reset(m.MTU)
	if err := msg.SetBytes(b); err != nil {
		return false, nil
	}
	if !m.SkipDecode && !msg.DecodeID() {
		return false, nil
	}
	return true, nil
}
