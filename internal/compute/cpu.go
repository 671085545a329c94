package compute

import (
	"runtime"
	"sync"
)

// item counts below this run on the calling goroutine
const serialThreshold = 16

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

// NewCPUBackendWorkers pins the worker count, which fixes the summation
// order and therefore the last bits of the result.
func NewCPUBackendWorkers(workers int) *CPUBackend {
	if workers < 1 {
		workers = 1
	}
	return &CPUBackend{workers: workers}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}
func (c *CPUBackend) Workers() int    { return c.workers }

func (c *CPUBackend) Reduce(n, nBead, dim int, fn Kernel) *Accumulator {
	if n < serialThreshold || c.workers <= 1 {
		acc := NewAccumulator(nBead, dim)
		fn(0, n, acc)
		return acc
	}
	return c.reduceParallel(n, nBead, dim, fn)
}

func (c *CPUBackend) reduceParallel(n, nBead, dim int, fn Kernel) *Accumulator {
	workers := c.workers
	if workers > n {
		workers = n
	}

	local := make([]*Accumulator, workers)
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		local[w] = NewAccumulator(nBead, dim)
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(acc *Accumulator, s, e int) {
			defer wg.Done()
			fn(s, e, acc)
		}(local[w], start, end)
	}

	wg.Wait()

	out := local[0]
	for w := 1; w < workers; w++ {
		out.Merge(local[w])
	}
	return out
}
