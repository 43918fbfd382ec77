package com

import (
	"errors"
	"sync"
)

// Map defines a concurrent-safe map structure.
type Map[K comparable, V any] struct {
	m  map[K]V
	mu sync.Mutex
}

var ErrNotFound = errors.New("not found")

func NewMap[K comparable, V any]() *Map[K, V] { return &Map[K, V]{m: make(map[K]V, 10)} }

func (m *Map[K, _]) Has(key K) bool    { _, err := m.Find(key); return err == nil }
func (m *Map[_, _]) Len() int          { m.mu.Lock(); defer m.mu.Unlock(); return len(m.m) }
func (m *Map[K, V]) Put(key K, v V)    { m.mu.Lock(); m.m[key] = v; m.mu.Unlock() }
func (m *Map[K, _]) RemoveByKey(key K) { m.mu.Lock(); delete(m.m, key); m.mu.Unlock() }

// GetOrPut returns the value by its key or stores a new one made with the fn,
// loaded is true when the value already was there.
func (m *Map[K, V]) GetOrPut(key K, fn func() V) (v V, loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, loaded = m.m[key]; loaded {
		return
	}
	v = fn()
	m.m[key] = v
	return
}

// Find searches for the first match by a specified key value,
// returns ErrNotFound otherwise.
func (m *Map[K, V]) Find(key K) (v V, err error) {
	var empty K
	if key == empty {
		return v, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.m[key]; ok {
		return c, nil
	}
	return v, ErrNotFound
}

// RemoveIf deletes the key only when the predicate holds for its current value.
func (m *Map[K, V]) RemoveIf(key K, fn func(v V) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.m[key]; ok && fn(v) {
		delete(m.m, key)
		return true
	}
	return false
}

// Values returns a copy of all the values.
func (m *Map[_, V]) Values() []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := make([]V, 0, len(m.m))
	for _, v := range m.m {
		l = append(l, v)
	}
	return l
}
