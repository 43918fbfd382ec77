package peer

import (
	"sync"
	"testing"
	"time"
)

func TestQueueOrder(t *testing.T) {
	q := newQueue()
	defer q.close()

	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	wg.Add(100)
	for i := 0; i < 100; i++ {
		q.push(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	for i, v := range got {
		if v != i {
			t.Fatalf("task %v ran at %v", v, i)
		}
	}
}

func TestQueueClose(t *testing.T) {
	q := newQueue()
	started, release := make(chan struct{}), make(chan struct{})
	ran := make(chan int, 2)

	q.push(func() { close(started); <-release; ran <- 1 })
	q.push(func() { ran <- 2 })
	<-started
	q.close()
	close(release)

	if v := <-ran; v != 1 {
		t.Errorf("ran %v", v)
	}
	select {
	case v := <-ran:
		t.Errorf("task %v ran after close", v)
	case <-time.After(50 * time.Millisecond):
	}
	if q.push(func() {}) {
		t.Errorf("push after close")
	}
	q.close()
}
