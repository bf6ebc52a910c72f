package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/cloudlink/pkg/channel"
	"github.com/robotalks/cloudlink/pkg/coap"
)

// describeBlockSize is the Block2 size of describe chunks, leaving room
// for header and options within the channel MTU.
var describeBlockSize = coap.BlockSizeFor(channel.DefaultMTU - 64)

// handleFunctionCall acknowledges the call, coded 4.00 when it can't be
// made, then calls the function and sends the result as a NON 2.04
// carrying the request token.
func (p *Protocol) handleFunctionCall(req *coap.Parsed) error {
	_, name := req.Resource()
	arg := strings.Join(req.Query(), "")
	if !p.canCall(name, arg) {
		glog.Warningf("function call %q rejected", name)
		return p.respond(req, coap.CodeBadRequest, nil)
	}
	if err := p.respond(req, coap.CodeEmpty, nil); err != nil {
		return err
	}
	result, err := p.callbacks.Functions.CallFunction(name, arg)
	code, payload := coap.CodeChanged, make([]byte, 4)
	if err != nil {
		glog.Warningf("function %q failed: %v", name, err)
		code, payload = coap.CodeBadRequest, nil
	} else {
		binary.BigEndian.PutUint32(payload, uint32(result))
	}
	msg := coap.NewMessage(0)
	if err = p.ch.Create(msg, 32); err != nil {
		return err
	}
	err = coap.NewWriter(msg).
		Header(coap.Header{Type: coap.NonConfirmable, Code: code, ID: p.ids.Next(), Token: req.Token}).
		Payload(payload).
		Finish()
	if err != nil {
		return err
	}
	return p.send(msg)
}

func (p *Protocol) canCall(name, arg string) bool {
	if name == "" || len(arg) > MaxFunctionArgLength || p.callbacks.Functions == nil {
		return false
	}
	if p.descriptor == nil {
		return true
	}
	for _, fn := range p.descriptor.Functions() {
		if fn == name {
			return true
		}
	}
	return false
}

// handleVariableRequest replies 2.05 with the encoded value, or 4.04
// when the variable doesn't exist.
func (p *Protocol) handleVariableRequest(req *coap.Parsed) error {
	_, name := req.Resource()
	if p.callbacks.Variables == nil {
		return p.respond(req, coap.CodeNotFound, nil)
	}
	value, err := p.callbacks.Variables.ReadVariable(name)
	if err != nil {
		return p.respond(req, coap.CodeNotFound, nil)
	}
	typ, ok := VariableType(0), false
	if p.descriptor != nil {
		typ, ok = p.descriptor.Variables()[name]
	}
	if !ok {
		typ = TypeOf(value)
	}
	payload, err := EncodeVariable(typ, value)
	if err != nil {
		glog.Warningf("variable %q: %v", name, err)
		return p.respond(req, coap.CodeInternalServerError, nil)
	}
	return p.respond(req, coap.CodeContent, payload)
}

// handleDescribe replies with the requested Block2 chunk of the
// describe document selected by the one-byte Uri-Query flags.
func (p *Protocol) handleDescribe(req *coap.Parsed) error {
	flags := DescribeDefault
	if q, ok := req.Option(coap.OptionURIQuery); ok && len(q) > 0 {
		flags = q[0]
	}
	var num uint32
	if v, ok := req.Uint(coap.OptionBlock2); ok {
		num = coap.ParseBlock(v).Num
	}
	doc, err := p.describe(flags)
	if err != nil {
		glog.Errorf("describe failed: %v", err)
		return p.respond(req, coap.CodeInternalServerError, nil)
	}
	chunk, more, ok := describeBlock(doc, num, describeBlockSize)
	if !ok {
		return p.respond(req, coap.CodeBadRequest, nil)
	}
	block := coap.Block{Num: num, More: more, Size: describeBlockSize}
	return p.respond(req, coap.CodeContent, chunk,
		coap.Option{Number: coap.OptionBlock2, Value: coap.EncodeUint(block.Value())})
}

func (p *Protocol) describe(flags byte) ([]byte, error) {
	if flags&DescribeMetrics != 0 {
		var metrics map[string]interface{}
		if md, ok := p.descriptor.(MetricsDescriptor); ok {
			metrics = md.Metrics()
		}
		return BuildMetrics(metrics)
	}
	return BuildDescribe(p.descriptor, p.product, p.opts.PlatformID, flags)
}

// sendDescribe posts the describe document as confirmable Block1
// chunks.
func (p *Protocol) sendDescribe(flags byte) error {
	doc, err := p.describe(flags)
	if err != nil {
		return err
	}
	for num := uint32(0); ; num++ {
		chunk, more, ok := describeBlock(doc, num, describeBlockSize)
		if !ok {
			return nil
		}
		msg := coap.NewMessage(0)
		if err = p.ch.Create(msg, len(chunk)+32); err != nil {
			return err
		}
		block := coap.Block{Num: num, More: more, Size: describeBlockSize}
		err = coap.NewWriter(msg).
			Header(coap.Header{Type: coap.Confirmable, Code: coap.CodePost, ID: p.ids.Next()}).
			StringOption(coap.OptionURIPath, coap.ResourceDescribe).
			Option(coap.OptionURIQuery, []byte{flags}).
			UintOption(coap.OptionBlock1, block.Value()).
			Payload(chunk).
			Finish()
		if err != nil {
			return err
		}
		if err = p.sendConfirmable(msg, nil, nil); err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// TypeOf infers the variable type of a value.
func TypeOf(v interface{}) VariableType {
	switch v.(type) {
	case bool:
		return VarBool
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return VarInt
	case float32, float64:
		return VarDouble
	}
	return VarString
}

var errVariableValue = errors.New("value doesn't match variable type")

// EncodeVariable encodes a variable value: bool as one byte, int as
// int32 big-endian, double as IEEE754 big-endian and string as is.
func EncodeVariable(typ VariableType, v interface{}) ([]byte, error) {
	switch typ {
	case VarBool:
		b, ok := v.(bool)
		if !ok {
			return nil, errVariableValue
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case VarInt:
		n, ok := toInt64(v)
		if !ok {
			return nil, errVariableValue
		}
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(int32(n)))
		return b, nil
	case VarDouble:
		var f float64
		switch val := v.(type) {
		case float64:
			f = val
		case float32:
			f = float64(val)
		default:
			n, ok := toInt64(v)
			if !ok {
				return nil, errVariableValue
			}
			f = float64(n)
		}
		b := make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(f))
		return b, nil
	case VarString:
		switch val := v.(type) {
		case string:
			return []byte(val), nil
		case []byte:
			return val, nil
		}
		return []byte(fmt.Sprint(v)), nil
	}
	return nil, fmt.Errorf("%w: variable type %d", ErrInvalidArgument, typ)
}

// DecodeVariable decodes a payload produced by EncodeVariable.
func DecodeVariable(typ VariableType, b []byte) (interface{}, error) {
	switch typ {
	case VarBool:
		if len(b) != 1 {
			return nil, coap.ErrMalformed
		}
		return b[0] != 0, nil
	case VarInt:
		if len(b) != 4 {
			return nil, coap.ErrMalformed
		}
		return int32(binary.BigEndian.Uint32(b)), nil
	case VarDouble:
		if len(b) != 8 {
			return nil, coap.ErrMalformed
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	case VarString:
		return string(b), nil
	}
	return nil, fmt.Errorf("%w: variable type %d", ErrInvalidArgument, typ)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}
