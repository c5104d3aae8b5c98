package worker

import (
	"context"
	"sync/atomic"

	"github.com/zuhrulumam/mortchart/internal/models"
	"github.com/zuhrulumam/mortchart/internal/processor"
)

// Worker validates rows and counts outcomes
type Worker struct {
	id        int
	processor processor.Processor
	kept      uint64
	discarded uint64
}

// NewWorker creates a new worker
func NewWorker(id int, proc processor.Processor) *Worker {
	if proc == nil {
		proc = processor.NewRecordValidator("", "")
	}

	return &Worker{
		id:        id,
		processor: proc,
	}
}

// Process validates a single row. An error means processing stopped
// (usually cancellation), not that the row was invalid.
func (w *Worker) Process(ctx context.Context, row *models.Row) (*models.Result, error) {
	result, err := w.processor.Process(ctx, row)
	if err != nil {
		return nil, err
	}

	if result.IsKept() {
		atomic.AddUint64(&w.kept, 1)
	} else {
		atomic.AddUint64(&w.discarded, 1)
	}

	return result, nil
}

// Stats returns worker statistics
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		ID:        w.id,
		Kept:      atomic.LoadUint64(&w.kept),
		Discarded: atomic.LoadUint64(&w.discarded),
	}
}

// WorkerStats holds statistics for a worker
type WorkerStats struct {
	ID        int
	Kept      uint64
	Discarded uint64
}
