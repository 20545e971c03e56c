package utils

import (
	"sync"
	"time"
)

// WorkerPool manages a pool of goroutines with optional rate limiting.
type WorkerPool struct {
	maxWorkers  int
	rateLimitMs int
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastStart   time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and minimum
// gap between job starts. A rateLimitMs of zero disables the gap.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		maxWorkers:  maxWorkers,
		rateLimitMs: rateLimitMs,
		semaphore:   make(chan struct{}, maxWorkers),
	}
}

// Size returns the maximum number of concurrent jobs.
func (wp *WorkerPool) Size() int {
	return wp.maxWorkers
}

// Submit enqueues a job for execution in the pool. It blocks while the pool
// is full.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.enforceRateLimit()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	if wp.rateLimitMs <= 0 {
		return
	}

	wp.mu.Lock()
	defer wp.mu.Unlock()

	minInterval := time.Duration(wp.rateLimitMs) * time.Millisecond
	if !wp.lastStart.IsZero() {
		if elapsed := time.Since(wp.lastStart); elapsed < minInterval {
			time.Sleep(minInterval - elapsed)
		}
	}
	wp.lastStart = time.Now()
}

// Chunks splits n items into at most parts contiguous [start, end) ranges
// of near-equal size, in order.
func Chunks(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	out := make([][2]int, 0, parts)
	size, rem := n/parts, n%parts
	start := 0
	for i := 0; i < parts; i++ {
		end := start + size
		if i < rem {
			end++
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}
