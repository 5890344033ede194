package ingest

import (
	"context"
	"fmt"
	"sync"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
)

// Orchestrator fans a batch out to one goroutine per file, waits for every file
// to settle and keeps the newest batch's outcome for later lookups.
type Orchestrator struct {
	runner *Runner
	log    logger.Logger

	mu      sync.RWMutex
	current uuid.UUID
	latest  *BatchOutcome
}

func NewOrchestrator(runner *Runner) *Orchestrator {
	return &Orchestrator{
		runner: runner,
		log:    logger.New("ingestionOrchestrator"),
	}
}

// Process decodes every file concurrently and returns once all of them have
// produced a Result. A failing file never stops or delays the others.
func (o *Orchestrator) Process(ctx context.Context, files []File) BatchOutcome {
	log := o.log.TraceFromContext(ctx).Function("Process")

	batchID := o.begin()
	log.Info("Starting batch", "batchID", batchID, "fileCount", len(files))

	results := make([]Result, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(index int, file File) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					_ = log.Error("file job panicked", "batchID", batchID, "index", index, "panic", r)
					results[index] = Failed(
						NewFileJob(index, file.Name),
						fmt.Errorf("%w: %v", ErrDecodeFailure, r),
					)
				}
			}()

			results[index] = o.runner.Run(ctx, index, file)
		}(i, file)
	}
	wg.Wait()

	outcome := Partition(batchID, results)
	o.finish(outcome)

	log.Info("Batch complete",
		"batchID", batchID,
		"successes", len(outcome.Successes),
		"failures", len(outcome.Failures),
	)

	return outcome
}

// begin drops the previous batch's retained outcome and claims the slot for a
// new batch.
func (o *Orchestrator) begin() uuid.UUID {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.current = uuid.New()
	o.latest = nil
	return o.current
}

// finish retains the outcome unless a newer batch was submitted meanwhile.
func (o *Orchestrator) finish(outcome BatchOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != outcome.BatchID {
		return
	}
	o.latest = &outcome
}

func (o *Orchestrator) Latest() (BatchOutcome, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.latest == nil {
		return BatchOutcome{}, false
	}
	return *o.latest, true
}

// Retained reports whether batchID is the outcome currently kept for lookups.
// It turns false as soon as a newer batch begins.
func (o *Orchestrator) Retained(batchID uuid.UUID) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.latest != nil && o.latest.BatchID == batchID
}

// InFlight reports whether the newest submitted batch has not finished yet.
func (o *Orchestrator) InFlight() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.current != uuid.Nil && o.latest == nil
}

// Result returns one result of the retained batch by its index.
func (o *Orchestrator) Result(index int) (Result, bool) {
	outcome, ok := o.Latest()
	if !ok {
		return Result{}, false
	}
	return outcome.Find(index)
}
