package tracker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zuhrulumam/mortchart/internal/models"
)

// LoadTracker counts rows as a load progresses
type LoadTracker struct {
	// Atomic counters (must be 64-bit aligned for 32-bit systems)
	readCount      uint64
	keptCount      uint64
	discardedCount uint64

	startTime time.Time

	// ticker drives periodic progress lines
	ticker *time.Ticker

	writer   io.Writer
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup

	// mu guards started and startTime
	mu sync.RWMutex

	started bool
}

// Config holds configuration for the load tracker
type Config struct {
	// Writer is where progress lines are written (default: io.Discard)
	Writer io.Writer

	// UpdateInterval is how often to print progress (default: 1 second)
	UpdateInterval time.Duration
}

// NewLoadTracker creates a new load tracker
func NewLoadTracker(config Config) *LoadTracker {
	if config.Writer == nil {
		config.Writer = io.Discard
	}

	if config.UpdateInterval <= 0 {
		config.UpdateInterval = 1 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &LoadTracker{
		startTime: time.Now(),
		writer:    config.Writer,
		interval:  config.UpdateInterval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins printing periodic progress lines
func (lt *LoadTracker) Start() error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if lt.started {
		return fmt.Errorf("load tracker already started")
	}

	lt.started = true
	lt.startTime = time.Now()
	lt.ticker = time.NewTicker(lt.interval)

	lt.wg.Add(1)
	go lt.updateLoop()

	return nil
}

func (lt *LoadTracker) updateLoop() {
	defer lt.wg.Done()

	for {
		select {
		case <-lt.ctx.Done():
			return
		case <-lt.ticker.C:
			lt.printProgress()
		}
	}
}

// RecordResult counts one validated row
func (lt *LoadTracker) RecordResult(result *models.Result) {
	atomic.AddUint64(&lt.readCount, 1)

	if result == nil {
		return
	}

	switch result.Status {
	case models.StatusKept:
		atomic.AddUint64(&lt.keptCount, 1)
	case models.StatusDiscarded:
		atomic.AddUint64(&lt.discardedCount, 1)
	}
}

// IncrementKept counts one kept row
func (lt *LoadTracker) IncrementKept() {
	atomic.AddUint64(&lt.readCount, 1)
	atomic.AddUint64(&lt.keptCount, 1)
}

// IncrementDiscarded counts one discarded row
func (lt *LoadTracker) IncrementDiscarded() {
	atomic.AddUint64(&lt.readCount, 1)
	atomic.AddUint64(&lt.discardedCount, 1)
}

func (lt *LoadTracker) Read() uint64 {
	return atomic.LoadUint64(&lt.readCount)
}

func (lt *LoadTracker) Kept() uint64 {
	return atomic.LoadUint64(&lt.keptCount)
}

func (lt *LoadTracker) Discarded() uint64 {
	return atomic.LoadUint64(&lt.discardedCount)
}

// Elapsed returns the time elapsed since start
func (lt *LoadTracker) Elapsed() time.Duration {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return time.Since(lt.startTime)
}

// Throughput returns rows read per second
func (lt *LoadTracker) Throughput() float64 {
	elapsed := lt.Elapsed().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(lt.Read()) / elapsed
}

// DiscardRate returns the share of discarded rows as a percentage
func (lt *LoadTracker) DiscardRate() float64 {
	read := lt.Read()
	if read == 0 {
		return 0
	}
	return float64(lt.Discarded()) / float64(read) * 100
}

func (lt *LoadTracker) printProgress() {
	fmt.Fprintf(lt.writer,
		"\r[%s] Rows: %d | Kept: %d | Discarded: %d | %.0f rows/s",
		lt.Elapsed().Round(time.Millisecond),
		lt.Read(),
		lt.Kept(),
		lt.Discarded(),
		lt.Throughput(),
	)
}

// PrintFinal prints the load summary banner
func (lt *LoadTracker) PrintFinal() {
	fmt.Fprintf(lt.writer, "\n")
	fmt.Fprintf(lt.writer, "========================================\n")
	fmt.Fprintf(lt.writer, "Load Complete\n")
	fmt.Fprintf(lt.writer, "========================================\n")
	fmt.Fprintf(lt.writer, "Total Time:       %s\n", lt.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(lt.writer, "Rows Read:        %d\n", lt.Read())
	fmt.Fprintf(lt.writer, "Kept:             %d\n", lt.Kept())
	fmt.Fprintf(lt.writer, "Discarded:        %d (%.1f%%)\n", lt.Discarded(), lt.DiscardRate())
	fmt.Fprintf(lt.writer, "========================================\n")
}

// Stats returns a snapshot of the counters
func (lt *LoadTracker) Stats() Stats {
	return Stats{
		Read:        lt.Read(),
		Kept:        lt.Kept(),
		Discarded:   lt.Discarded(),
		Elapsed:     lt.Elapsed(),
		Throughput:  lt.Throughput(),
		DiscardRate: lt.DiscardRate(),
	}
}

// Stop stops periodic printing and writes one last progress line
func (lt *LoadTracker) Stop() {
	lt.mu.Lock()
	if !lt.started {
		lt.mu.Unlock()
		return
	}
	lt.started = false
	if lt.ticker != nil {
		lt.ticker.Stop()
	}
	lt.mu.Unlock()

	lt.cancel()
	lt.wg.Wait()

	lt.printProgress()
}

// StopAndPrintFinal stops the tracker and prints the summary
func (lt *LoadTracker) StopAndPrintFinal() {
	lt.Stop()
	lt.PrintFinal()
}

// Stats holds a counters snapshot
type Stats struct {
	Read        uint64
	Kept        uint64
	Discarded   uint64
	Elapsed     time.Duration
	Throughput  float64
	DiscardRate float64
}

// String returns a string representation of stats
func (s Stats) String() string {
	return fmt.Sprintf(
		"Read: %d, Kept: %d, Discarded: %d (%.1f%%), Elapsed: %s",
		s.Read,
		s.Kept,
		s.Discarded,
		s.DiscardRate,
		s.Elapsed.Round(time.Millisecond),
	)
}
