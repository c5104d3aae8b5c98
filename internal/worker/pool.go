package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/zuhrulumam/mortchart/internal/models"
	"github.com/zuhrulumam/mortchart/internal/processor"
)

// Pool validates rows concurrently. Results arrive in completion order;
// callers that need source order sort on Row.LineNumber.
type Pool struct {
	workers []*Worker
	rows    <-chan *models.Row
	results chan *models.Result

	// halted carries the error that stopped a worker mid-row
	halted chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// Config holds configuration for the worker pool
type Config struct {
	// Context bounds the pool; canceling it stops every worker
	Context context.Context

	// Workers is the number of concurrent workers (0 = NumCPU)
	Workers int

	// Processor validates rows (default: RecordValidator on the standard columns)
	Processor processor.Processor

	InputChannel     <-chan *models.Row
	OutputBufferSize int
}

// NewPool creates a pool; nothing runs until Start
func NewPool(config Config) *Pool {
	n := config.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	buffer := config.OutputBufferSize
	if buffer <= 0 {
		buffer = n * 2
	}
	proc := config.Processor
	if proc == nil {
		proc = processor.NewRecordValidator("", "")
	}
	parent := config.Context
	if parent == nil {
		parent = context.Background()
	}

	p := &Pool{
		workers: make([]*Worker, n),
		rows:    config.InputChannel,
		results: make(chan *models.Result, buffer),
		halted:  make(chan error, n),
	}
	p.ctx, p.cancel = context.WithCancel(parent)
	for i := range p.workers {
		p.workers[i] = NewWorker(i, proc)
	}
	return p
}

// Start launches the workers. Results and Errors close once all of them
// have returned.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("pool already started")
	}
	p.started = true

	p.wg.Add(len(p.workers))
	for _, w := range p.workers {
		go p.run(w)
	}

	go func() {
		p.wg.Wait()
		p.cancel()
		close(p.results)
		close(p.halted)
	}()
	return nil
}

func (p *Pool) run(w *Worker) {
	defer p.wg.Done()

	for {
		var row *models.Row
		select {
		case <-p.ctx.Done():
			return
		case r, ok := <-p.rows:
			if !ok {
				return
			}
			row = r
		}

		result, err := w.Process(p.ctx, row)
		if err != nil {
			// one slot per worker, so this never blocks
			p.halted <- err
			return
		}

		select {
		case p.results <- result:
		case <-p.ctx.Done():
			return
		}
	}
}

// Results streams one result per validated row
func (p *Pool) Results() <-chan *models.Result {
	return p.results
}

// Errors yields at most one error per worker
func (p *Pool) Errors() <-chan error {
	return p.halted
}

// Stats returns per-worker counters
func (p *Pool) Stats() []WorkerStats {
	stats := make([]WorkerStats, 0, len(p.workers))
	for _, w := range p.workers {
		stats = append(stats, w.Stats())
	}
	return stats
}
