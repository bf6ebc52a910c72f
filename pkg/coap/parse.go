package coap

import "strings"

// Parsed is a fully decoded message. Slices alias the source bytes.
type Parsed struct {
	Header
	Options []Option
	Payload []byte
}

// Parse decodes header, options and payload.
func Parse(b []byte) (*Parsed, error) {
	h, n, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	p := &Parsed{Header: h}
	var num int
	for n < len(b) {
		if b[n] == PayloadMarker {
			if n+1 == len(b) {
				return nil, ErrMalformed
			}
			p.Payload = b[n+1:]
			break
		}
		head := b[n]
		n++
		delta, used, err := readNibble(head>>4, b[n:])
		if err != nil {
			return nil, err
		}
		n += used
		length, used, err := readNibble(head&0x0f, b[n:])
		if err != nil {
			return nil, err
		}
		n += used
		if n+length > len(b) {
			return nil, ErrMalformed
		}
		num += delta
		p.Options = append(p.Options, Option{Number: OptionNumber(num), Value: b[n : n+length]})
		n += length
	}
	return p, nil
}

// Option returns the first value of an option.
func (p *Parsed) Option(num OptionNumber) ([]byte, bool) {
	for _, opt := range p.Options {
		if opt.Number == num {
			return opt.Value, true
		}
	}
	return nil, false
}

// Values returns all values of a repeatable option.
func (p *Parsed) Values(num OptionNumber) [][]byte {
	var vals [][]byte
	for _, opt := range p.Options {
		if opt.Number == num {
			vals = append(vals, opt.Value)
		}
	}
	return vals
}

// Uint returns an integer option.
func (p *Parsed) Uint(num OptionNumber) (uint32, bool) {
	if val, ok := p.Option(num); ok {
		return DecodeUint(val)
	}
	return 0, false
}

// URIPath returns the Uri-Path segments.
func (p *Parsed) URIPath() []string {
	vals := p.Values(OptionURIPath)
	segs := make([]string, len(vals))
	for i, v := range vals {
		segs[i] = string(v)
	}
	return segs
}

// Resource returns the first Uri-Path segment, which selects the
// message kind, and the remaining segments joined with "/".
func (p *Parsed) Resource() (string, string) {
	segs := p.URIPath()
	if len(segs) == 0 {
		return "", ""
	}
	return segs[0], strings.Join(segs[1:], "/")
}

// Query returns the Uri-Query values.
func (p *Parsed) Query() []string {
	vals := p.Values(OptionURIQuery)
	qs := make([]string, len(vals))
	for i, v := range vals {
		qs[i] = string(v)
	}
	return qs
}
