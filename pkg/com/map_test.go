package com

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

type testClient struct {
	id int
	c  int32
}

func (t *testClient) Id() string   { return fmt.Sprintf("%v", t.id) }
func (t *testClient) change(n int) { atomic.AddInt32(&t.c, int32(n)) }

func TestPointerValue(t *testing.T) {
	m := NewMap[string, *testClient]()
	c := testClient{id: 1}
	m.Put(c.Id(), &c)
	fc, _ := m.Find("1")
	c.change(100)
	fc2, _ := m.Find(fc.Id())

	expected := c.c == fc.c && c.c == fc2.c
	if !expected {
		t.Errorf("not expected change, o: %v != %v != %v", c.c, fc.c, fc2.c)
	}
}

func TestFindEmptyKey(t *testing.T) {
	m := NewMap[string, int]()
	m.Put("", 1)
	if _, err := m.Find(""); err != ErrNotFound {
		t.Errorf("empty keys should not be found, got %v", err)
	}
}

func TestRemoveIf(t *testing.T) {
	m := NewMap[string, int]()
	m.Put("b", 2)

	if m.RemoveIf("b", func(v int) bool { return v == 3 }) {
		t.Errorf("b should stay")
	}
	if !m.RemoveIf("b", func(v int) bool { return v == 2 }) {
		t.Errorf("b should be removed")
	}
	if m.Len() != 0 || m.Has("b") {
		t.Errorf("map should be empty, has %v", m.Len())
	}
}

func TestGetOrPutOnce(t *testing.T) {
	m := NewMap[string, *testClient]()
	const n = 50
	var made int32
	var wg sync.WaitGroup
	wg.Add(n)
	got := make([]*testClient, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			got[i], _ = m.GetOrPut("x", func() *testClient { atomic.AddInt32(&made, 1); return &testClient{id: i} })
		}(i)
	}
	wg.Wait()
	if made != 1 {
		t.Errorf("expected one value, made %v", made)
	}
	for _, c := range got {
		if c != got[0] {
			t.Fatalf("different values for the same key")
		}
	}
}

func TestConcurrentPut(t *testing.T) {
	m := NewMap[int, int]()
	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			m.Put(i, i)
		}(i)
	}
	wg.Wait()
	if m.Len() != n || len(m.Values()) != n {
		t.Errorf("expected %v values, got %v", n, m.Len())
	}
}

func TestUidShort(t *testing.T) {
	id := NewUid()
	if id.IsEmpty() {
		t.Fatalf("new id is empty")
	}
	if s := id.Short(); len(s) != 7 {
		t.Errorf("short id %q has wrong length", s)
	}
	if !NilUid.IsEmpty() {
		t.Errorf("nil id should be empty")
	}
}
