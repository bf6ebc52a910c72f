package protocol

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

// Describe flags, carried as a one-byte Uri-Query.
const (
	DescribeSystem      byte = 0x01
	DescribeApplication byte = 0x02
	DescribeMetrics     byte = 0x04
	DescribeDefault     byte = DescribeSystem | DescribeApplication
)

// BuildDescribe renders the JSON describe document.
func BuildDescribe(d Descriptor, product ProductDetails, platformID uint16, flags byte) ([]byte, error) {
	doc := make(map[string]interface{})
	if flags&DescribeSystem != 0 {
		if d != nil {
			for k, v := range d.SystemInfo() {
				doc[k] = v
			}
		}
		doc["p"] = platformID
		doc["pid"] = product.ProductID
		doc["pver"] = product.ProductVersion
	}
	if flags&DescribeApplication != 0 {
		funcs, vars := []string{}, map[string]VariableType{}
		if d != nil {
			if names := d.Functions(); names != nil {
				funcs = append(funcs, names...)
				sort.Strings(funcs)
			}
			if v := d.Variables(); v != nil {
				vars = v
			}
		}
		doc["f"], doc["v"] = funcs, vars
	}
	return json.Marshal(doc)
}

// BuildMetrics encodes metrics as a protobuf Struct.
func BuildMetrics(metrics map[string]interface{}) ([]byte, error) {
	s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(metrics))}
	for k, v := range metrics {
		s.Fields[k] = toValue(v)
	}
	return proto.Marshal(s)
}

// ParseMetrics decodes a metrics blob produced by BuildMetrics.
func ParseMetrics(b []byte) (map[string]interface{}, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return fromStruct(&s), nil
}

func toValue(v interface{}) *structpb.Value {
	switch val := v.(type) {
	case nil:
		return &structpb.Value{Kind: &structpb.Value_NullValue{NullValue: structpb.NullValue_NULL_VALUE}}
	case bool:
		return &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: val}}
	case string:
		return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: val}}
	case int:
		return numberValue(float64(val))
	case int32:
		return numberValue(float64(val))
	case int64:
		return numberValue(float64(val))
	case uint16:
		return numberValue(float64(val))
	case uint32:
		return numberValue(float64(val))
	case uint64:
		return numberValue(float64(val))
	case float32:
		return numberValue(float64(val))
	case float64:
		return numberValue(val)
	case []interface{}:
		lst := &structpb.ListValue{Values: make([]*structpb.Value, len(val))}
		for i, item := range val {
			lst.Values[i] = toValue(item)
		}
		return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: lst}}
	case map[string]interface{}:
		s := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(val))}
		for k, item := range val {
			s.Fields[k] = toValue(item)
		}
		return &structpb.Value{Kind: &structpb.Value_StructValue{StructValue: s}}
	}
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: fmt.Sprint(v)}}
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func fromStruct(s *structpb.Struct) map[string]interface{} {
	m := make(map[string]interface{}, len(s.Fields))
	for k, v := range s.Fields {
		m[k] = fromValue(v)
	}
	return m
}

func fromValue(v *structpb.Value) interface{} {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return kind.BoolValue
	case *structpb.Value_NumberValue:
		return kind.NumberValue
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_ListValue:
		lst := make([]interface{}, len(kind.ListValue.GetValues()))
		for i, item := range kind.ListValue.GetValues() {
			lst[i] = fromValue(item)
		}
		return lst
	case *structpb.Value_StructValue:
		return fromStruct(kind.StructValue)
	}
	return nil
}

// describeBlock returns block num of doc split into size-byte blocks.
func describeBlock(doc []byte, num uint32, size int) ([]byte, bool, bool) {
	start := int(num) * size
	if start > len(doc) || (start == len(doc) && num > 0) {
		return nil, false, false
	}
	end := start + size
	if end >= len(doc) {
		return doc[start:], false, true
	}
	return doc[start:end], true, true
}
