package track

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strconv"
)

// Kind is the wire type of a metadata value.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt
	KindFloat
	KindBlob
	KindString
)

// Value is one metadata value. Exactly one payload field is meaningful,
// selected by Kind.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Blob  []byte
	Str   string
}

func BoolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func IntValue(v int64) Value     { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func BlobValue(v []byte) Value   { return Value{Kind: KindBlob, Blob: v} }
func StringValue(v string) Value { return Value{Kind: KindString, Str: v} }

// String renders the value as text. Blobs are base64 encoded.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBlob:
		return base64.StdEncoding.EncodeToString(v.Blob)
	case KindString:
		return v.Str
	default:
		return ""
	}
}

// Number returns the value as float64 for int and float kinds.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Interface returns the JSON-friendly Go value.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBlob:
		return base64.StdEncoding.EncodeToString(v.Blob)
	case KindString:
		return v.Str
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Metadata is an insertion-ordered string-keyed map. Setting an existing key
// replaces its value in place. The zero value is empty and ready to use.
type Metadata struct {
	keys []string
	vals map[string]Value
}

func (m *Metadata) Set(key string, v Value) {
	if m.vals == nil {
		m.vals = make(map[string]Value)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

func (m *Metadata) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Text returns a string-kind value.
func (m *Metadata) Text(key string) (string, bool) {
	v, ok := m.vals[key]
	if !ok || v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

func (m *Metadata) Len() int { return len(m.keys) }

// Keys returns the keys in first-insertion order.
func (m *Metadata) Keys() []string {
	return append([]string(nil), m.keys...)
}

// MarshalJSON writes an object whose keys keep insertion order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
