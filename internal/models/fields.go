package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldPair is one form field label and its value.
type FieldPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Fields is an insertion-ordered mapping of field label text to value text.
// Setting an existing key replaces its value in place; the key keeps its first position.
type Fields struct {
	pairs []FieldPair
	index map[string]int
}

// NewFields returns an empty Fields.
func NewFields() *Fields {
	return &Fields{index: make(map[string]int)}
}

// Set stores value under key. It reports whether an earlier value was overwritten.
func (f *Fields) Set(key, value string) bool {
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if i, ok := f.index[key]; ok {
		f.pairs[i].Value = value
		return true
	}
	f.index[key] = len(f.pairs)
	f.pairs = append(f.pairs, FieldPair{Key: key, Value: value})
	return false
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	i, ok := f.index[key]
	if !ok {
		return "", false
	}
	return f.pairs[i].Value, true
}

// Len returns the number of distinct keys.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.pairs)
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, len(f.pairs))
	for i, p := range f.pairs {
		keys[i] = p.Key
	}
	return keys
}

// Pairs returns a copy of the pairs in insertion order.
func (f *Fields) Pairs() []FieldPair {
	if f == nil {
		return nil
	}
	return append([]FieldPair(nil), f.pairs...)
}

// Map returns the fields as a plain map.
func (f *Fields) Map() map[string]string {
	m := make(map[string]string, f.Len())
	if f == nil {
		return m
	}
	for _, p := range f.pairs {
		m[p.Key] = p.Value
	}
	return m
}

// MarshalJSON encodes the fields as a JSON object in insertion order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if f != nil {
		for i, p := range f.pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(p.Key)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(p.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping key order.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}
	out := NewFields()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fields: expected string key, got %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("fields: value for %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = *out
	return nil
}
