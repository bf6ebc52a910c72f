package coap

// IDGenerator issues message ids for one direction of a session.
type IDGenerator struct {
	next uint16
}

// NewIDGenerator creates a generator whose first id is seed.
func NewIDGenerator(seed uint16) *IDGenerator {
	return &IDGenerator{next: seed}
}

// Next returns the next message id, wrapping around at 65535.
func (g *IDGenerator) Next() uint16 {
	id := g.next
	g.next++
	return id
}

// TokenGenerator issues single-byte tokens.
type TokenGenerator struct {
	next byte
}

// NewTokenGenerator creates a generator whose first token is seed.
func NewTokenGenerator(seed byte) *TokenGenerator {
	return &TokenGenerator{next: seed}
}

// Next returns the next token.
func (g *TokenGenerator) Next() []byte {
	t := g.next
	g.next++
	return []byte{t}
}
