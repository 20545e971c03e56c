package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(4, 0)
	var done int64

	for i := 0; i < 100; i++ {
		pool.Submit(func() {
			atomic.AddInt64(&done, 1)
		})
	}
	pool.Wait()

	if done != 100 {
		t.Errorf("expected 100 completed jobs, got %d", done)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2, 0)
	var running, peak int64
	var mu sync.Mutex

	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			n := atomic.AddInt64(&running, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
		})
	}
	pool.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency %d exceeds pool size 2", peak)
	}
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 50
	pool := NewWorkerPool(1, rateLimitMs)

	var timestamps []time.Time
	var mu sync.Mutex

	for i := 0; i < 3; i++ {
		pool.Submit(func() {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	min := time.Duration(rateLimitMs) * time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap < min {
			t.Errorf("gap between job %d and %d: %v < minimum %v", i-1, i, gap, min)
		}
	}
}

func TestChunks(t *testing.T) {
	tests := []struct {
		n, parts int
		want     [][2]int
	}{
		{0, 4, nil},
		{3, 4, [][2]int{{0, 1}, {1, 2}, {2, 3}}},
		{10, 3, [][2]int{{0, 4}, {4, 7}, {7, 10}}},
		{5, 0, [][2]int{{0, 5}}},
	}

	for _, tt := range tests {
		got := Chunks(tt.n, tt.parts)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Chunks(%d, %d) mismatch (-want +got):\n%s", tt.n, tt.parts, diff)
		}
	}
}
