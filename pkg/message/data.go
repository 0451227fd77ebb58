package message

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Data is an insertion-ordered mapping of template parameters. Several
// providers take positional parameters, so the order is significant.
type Data struct {
	keys   []string
	values map[string]any
}

// NewData builds Data from alternating key/value arguments. A trailing key
// without a value is ignored.
func NewData(kv ...any) Data {
	d := Data{}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		d = d.With(key, kv[i+1])
	}
	return d
}

// DataFromMap builds Data from a map. Go maps are unordered, so keys are sorted.
func DataFromMap(m map[string]any) Data {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := Data{}
	for _, k := range keys {
		d = d.With(k, m[k])
	}
	return d
}

// With returns a copy of d with key set. Existing keys keep their position.
func (d Data) With(key string, value any) Data {
	out := Data{
		keys:   append([]string(nil), d.keys...),
		values: make(map[string]any, len(d.values)+1),
	}
	for k, v := range d.values {
		out.values[k] = v
	}
	if _, exists := out.values[key]; !exists {
		out.keys = append(out.keys, key)
	}
	out.values[key] = value
	return out
}

// Get returns the value under key.
func (d Data) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (d Data) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Values returns the values in insertion order.
func (d Data) Values() []any {
	out := make([]any, 0, len(d.keys))
	for _, k := range d.keys {
		out = append(out, d.values[k])
	}
	return out
}

// Len returns the number of entries.
func (d Data) Len() int {
	return len(d.keys)
}

// Map returns an unordered copy of the entries.
func (d Data) Map() map[string]any {
	out := make(map[string]any, len(d.keys))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// MarshalJSON renders Data as a JSON object in insertion order.
func (d Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
