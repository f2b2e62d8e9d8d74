// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"bytes"
	"encoding/json"
	"iter"
	"slices"
)

// OrderedMap is a string-keyed map that remembers insertion order.
// The zero value is not usable; create one with NewOrderedMap.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (m *OrderedMap[V]) Set(key string, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	return slices.Clone(m.keys)
}

// All iterates over the entries in insertion order.
func (m *OrderedMap[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
