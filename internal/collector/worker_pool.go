package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ppiankov/clusterpulse/internal/ingest"
)

type decodeJob struct {
	index int
	name  string
	load  func() ([]byte, error)
}

type decodeResult struct {
	index int
	batch Batch
	err   error
}

// WorkerPool decodes upload documents on a fixed number of goroutines.
// Jobs are submitted by a single producer which calls Stop when done;
// results are drained by the caller until the channel closes.
type WorkerPool struct {
	size    int
	jobs    chan decodeJob
	results chan decodeResult

	mu      sync.Mutex
	running sync.WaitGroup
	done    <-chan struct{}
	cancel  context.CancelFunc
}

// NewWorkerPool sizes a pool; fewer than one worker means one
func NewWorkerPool(workers int) *WorkerPool {
	workers = max(workers, 1)
	return &WorkerPool{
		size:    workers,
		jobs:    make(chan decodeJob, workers*2),
		results: make(chan decodeResult, workers*2),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = ctx.Done()
	for id := range p.size {
		p.running.Add(1)
		go func() {
			defer p.running.Done()
			p.work(id)
		}()
	}
}

func (p *WorkerPool) work(id int) {
	for {
		select {
		case <-p.done:
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.results <- decodeSafely(id, job)
		}
	}
}

// decodeSafely turns a panicking loader or decoder into a job error
func decodeSafely(worker int, job decodeJob) (res decodeResult) {
	res.index = job.index
	defer func() {
		if r := recover(); r != nil {
			slog.Error("decode panic recovered",
				slog.Int("worker_id", worker),
				slog.String("input", job.name),
				slog.String("panic", fmt.Sprint(r)),
			)
			res.batch = Batch{}
			res.err = fmt.Errorf("failed to decode %s: panic: %v", job.name, r)
		}
	}()

	data, err := job.load()
	if err != nil {
		res.err = err
		return res
	}
	records, err := ingest.Decode(data)
	if err != nil {
		res.err = fmt.Errorf("failed to decode %s: %w", job.name, err)
		return res
	}
	res.batch = Batch{Name: job.name, Records: records}
	return res
}

// Submit queues a job. It reports false once the pool's context is done.
func (p *WorkerPool) Submit(job decodeJob) bool {
	select {
	case <-p.done:
		return false
	case p.jobs <- job:
		return true
	}
}

// Results is closed by Stop after the last worker exits
func (p *WorkerPool) Results() <-chan decodeResult {
	return p.results
}

// Stop closes the job queue, waits for the workers and closes Results.
// It must be called once, by the producer, after Start.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel == nil {
		return
	}

	close(p.jobs)
	p.running.Wait()
	close(p.results)
	cancel()
}
