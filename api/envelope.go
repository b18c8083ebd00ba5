package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// AttributionKey is injected as the first key of every response body
const AttributionKey = "creator"

// Field is one key/value pair of a JSON object
type Field struct {
	Key   string
	Value any
}

// Fields is a JSON object that keeps its keys in insertion order
type Fields []Field

// MarshalJSON encodes the fields as an object in slice order
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Key, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value stored under key
func (f Fields) Get(key string) (any, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Normalize wraps a payload in a response envelope. Mappings keep their keys
// after the attribution key; a payload that already carries the attribution
// key overrides its value but not its position. Any other value is nested
// under "data".
func Normalize(creator string, payload any) Fields {
	switch p := payload.(type) {
	case Fields:
		out := make(Fields, 0, len(p)+1)
		out = append(out, Field{Key: AttributionKey, Value: creator})
		for _, field := range p {
			if field.Key == AttributionKey {
				out[0].Value = field.Value
				continue
			}
			out = append(out, field)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fields := make(Fields, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Value: p[k]})
		}
		return Normalize(creator, fields)
	default:
		return Fields{
			{Key: AttributionKey, Value: creator},
			{Key: "data", Value: payload},
		}
	}
}
