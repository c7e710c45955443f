package audio

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueBoundsConcurrency(t *testing.T) {
	q := NewQueue(2)

	var running, peak int32
	var wg sync.WaitGroup
	release := make(chan struct{})

	for i := 0; i < 6; i++ {
		wg.Add(1)
		q.Add(string(rune('a'+i)), func() {
			defer wg.Done()
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&running, -1)
		})
	}
	close(release)
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestQueueDropsDuplicateIDs(t *testing.T) {
	q := NewQueue(1)

	var ran int32
	block := make(chan struct{})
	done := make(chan struct{})

	q.Add("msg-1", func() {
		atomic.AddInt32(&ran, 1)
		<-block
	})
	// Same id while the original is still running: dropped.
	q.Add("msg-1", func() {
		atomic.AddInt32(&ran, 1)
	})
	q.Add("msg-2", func() {
		atomic.AddInt32(&ran, 1)
		close(done)
	})
	close(block)
	<-done

	if n := atomic.LoadInt32(&ran); n != 2 {
		t.Errorf("tasks ran = %d, want 2 (duplicate dropped)", n)
	}
}

func TestQueueSurvivesPanickingTask(t *testing.T) {
	q := NewQueue(1)

	done := make(chan struct{})
	q.Add("boom", func() { panic("synthesizer exploded") })
	q.Add("next", func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queue wedged after a panicking task")
	}
}

func TestQueueReusesIDAfterCompletion(t *testing.T) {
	q := NewQueue(1)

	first := make(chan struct{})
	q.Add("msg-1", func() { close(first) })
	<-first

	// The id is free again once the task finished and was reaped.
	var reran int32
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		q.Add("msg-1", func() { atomic.AddInt32(&reran, 1) })
		if atomic.LoadInt32(&reran) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt32(&reran) == 0 {
		t.Fatal("id never became reusable")
	}
}
