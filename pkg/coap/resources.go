package coap

// Resources selected by the first Uri-Path segment.
const (
	ResourceHello        = "h"
	ResourcePublicEvent  = "E"
	ResourcePrivateEvent = "e"
	ResourceDescribe     = "d"
	ResourceFunction     = "f"
	ResourceVariable     = "v"
	ResourceTime         = "t"
	ResourceSignal       = "s"
	ResourceKeyChange    = "k"
)

// Kind classifies a received message.
type Kind int

// Message kinds.
const (
	KindUnknown Kind = iota
	KindReply
	KindPing
	KindHello
	KindEvent
	KindSubscribe
	KindDescribe
	KindFunctionCall
	KindVariableRequest
	KindTime
	KindSignal
	KindKeyChange
	KindResponse
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindReply:           "reply",
	KindPing:            "ping",
	KindHello:           "hello",
	KindEvent:           "event",
	KindSubscribe:       "subscribe",
	KindDescribe:        "describe",
	KindFunctionCall:    "function",
	KindVariableRequest: "variable",
	KindTime:            "time",
	KindSignal:          "signal",
	KindKeyChange:       "key-change",
	KindResponse:        "response",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Classify determines the kind of a parsed message.
func Classify(p *Parsed) Kind {
	if p.Type.IsReply() {
		return KindReply
	}
	if p.Code == CodeEmpty {
		if p.Type == Confirmable {
			return KindPing
		}
		return KindUnknown
	}
	if p.Code.IsResponse() {
		return KindResponse
	}
	res, _ := p.Resource()
	switch res {
	case ResourceHello:
		return KindHello
	case ResourcePublicEvent, ResourcePrivateEvent:
		if p.Code == CodeGet {
			return KindSubscribe
		}
		return KindEvent
	case ResourceDescribe:
		return KindDescribe
	case ResourceFunction:
		return KindFunctionCall
	case ResourceVariable:
		return KindVariableRequest
	case ResourceTime:
		return KindTime
	case ResourceSignal:
		return KindSignal
	case ResourceKeyChange:
		return KindKeyChange
	}
	return KindUnknown
}

// EncodeEmptyAck writes a header-only ACK echoing id.
func EncodeEmptyAck(msg *Message, id uint16) error {
	return NewWriter(msg).Header(Header{Type: Acknowledgement, ID: id}).Finish()
}

// EncodeReset writes a header-only RESET echoing id.
func EncodeReset(msg *Message, id uint16) error {
	return NewWriter(msg).Header(Header{Type: Reset, ID: id}).Finish()
}

// EncodeAck writes a piggybacked ACK with code, token and payload.
func EncodeAck(msg *Message, id uint16, token []byte, code Code, payload []byte) error {
	return NewWriter(msg).
		Header(Header{Type: Acknowledgement, Code: code, ID: id, Token: token}).
		Payload(payload).
		Finish()
}

// EncodePing writes an empty confirmable message.
func EncodePing(msg *Message, id uint16) error {
	return NewWriter(msg).Header(Header{Type: Confirmable, ID: id}).Finish()
}
