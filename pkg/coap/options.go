package coap

import "encoding/binary"

// OptionNumber identifies an option.
type OptionNumber uint16

// Options used by the protocol.
const (
	OptionIfMatch       OptionNumber = 1
	OptionURIHost       OptionNumber = 3
	OptionETag          OptionNumber = 4
	OptionObserve       OptionNumber = 6
	OptionURIPort       OptionNumber = 7
	OptionLocationPath  OptionNumber = 8
	OptionURIPath       OptionNumber = 11
	OptionContentFormat OptionNumber = 12
	OptionMaxAge        OptionNumber = 14
	OptionURIQuery      OptionNumber = 15
	OptionAccept        OptionNumber = 17
	OptionBlock2        OptionNumber = 23
	OptionBlock1        OptionNumber = 27
	OptionSize2         OptionNumber = 28
)

// Option is a decoded option.
type Option struct {
	Number OptionNumber
	Value  []byte
}

// nibble splits v into the 4-bit field and its extended bytes.
func nibble(v int) (byte, []byte) {
	switch {
	case v < 13:
		return byte(v), nil
	case v < 269:
		return 13, []byte{byte(v - 13)}
	default:
		ext := make([]byte, 2)
		binary.BigEndian.PutUint16(ext, uint16(v-269))
		return 14, ext
	}
}

// readNibble expands a 4-bit field using the extended bytes in b.
func readNibble(n byte, b []byte) (int, int, error) {
	switch n {
	case 13:
		if len(b) < 1 {
			return 0, 0, ErrMalformed
		}
		return int(b[0]) + 13, 1, nil
	case 14:
		if len(b) < 2 {
			return 0, 0, ErrMalformed
		}
		return int(binary.BigEndian.Uint16(b)) + 269, 2, nil
	case 15:
		return 0, 0, ErrMalformed
	}
	return int(n), 0, nil
}

// EncodeUint encodes an integer option value with the fewest bytes.
func EncodeUint(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	i := 0
	for i < 4 && b[i] == 0 {
		i++
	}
	return b[i:]
}

// DecodeUint decodes an integer option value.
func DecodeUint(b []byte) (uint32, bool) {
	if len(b) > 4 {
		return 0, false
	}
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v, true
}

// Writer encodes a message into a Message buffer.
// Errors are sticky and reported by Finish.
type Writer struct {
	msg  *Message
	n    int
	last OptionNumber
	err  error
}

// NewWriter starts encoding into msg, discarding its content.
func NewWriter(msg *Message) *Writer {
	msg.length, msg.decoded = 0, false
	return &Writer{msg: msg}
}

func (w *Writer) put(b ...byte) {
	if w.err != nil {
		return
	}
	if w.n+len(b) > len(w.msg.buf) {
		w.err = ErrOverflow
		return
	}
	w.n += copy(w.msg.buf[w.n:], b)
}

// Header writes the header. It must be the first call.
func (w *Writer) Header(h Header) *Writer {
	if w.err == nil {
		var n int
		n, w.err = h.Encode(w.msg.buf[w.n:])
		w.n += n
	}
	return w
}

// Option appends an option. Options must be appended in
// non-decreasing number order.
func (w *Writer) Option(num OptionNumber, value []byte) *Writer {
	if w.err != nil {
		return w
	}
	if num < w.last {
		w.err = ErrOptionOrder
		return w
	}
	delta, deltaExt := nibble(int(num - w.last))
	length, lengthExt := nibble(len(value))
	w.put(delta<<4 | length)
	w.put(deltaExt...)
	w.put(lengthExt...)
	w.put(value...)
	w.last = num
	return w
}

// StringOption appends an option with a string value.
func (w *Writer) StringOption(num OptionNumber, value string) *Writer {
	return w.Option(num, []byte(value))
}

// UintOption appends an option with an integer value.
func (w *Writer) UintOption(num OptionNumber, value uint32) *Writer {
	return w.Option(num, EncodeUint(value))
}

// Payload appends the payload marker and payload if it's not empty.
func (w *Writer) Payload(p []byte) *Writer {
	if len(p) > 0 {
		w.put(PayloadMarker)
		w.put(p...)
	}
	return w
}

// Finish sets the message length and decodes its id.
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}
	w.msg.length = w.n
	w.msg.DecodeID()
	return nil
}
