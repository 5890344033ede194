package services

import (
	"context"
	"sync"

	"avroviewer/internal/events"
	"avroviewer/internal/ingest"
	"avroviewer/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
)

// IngestionService runs upload batches through the orchestrator and fans the
// outcome out to the latest-batch cache, the history table and the event bus.
type IngestionService struct {
	orchestrator *ingest.Orchestrator
	history      *HistoryService
	outcomes     repositories.OutcomeRepository
	eventBus     *events.EventBus
	log          logger.Logger

	cacheMu sync.Mutex
}

func NewIngestionService(
	orchestrator *ingest.Orchestrator,
	history *HistoryService,
	outcomes repositories.OutcomeRepository,
	eventBus *events.EventBus,
) *IngestionService {
	return &IngestionService{
		orchestrator: orchestrator,
		history:      history,
		outcomes:     outcomes,
		eventBus:     eventBus,
		log:          logger.New("ingestionService"),
	}
}

func (s *IngestionService) Process(ctx context.Context, files []ingest.File) ingest.BatchOutcome {
	log := s.log.TraceFromContext(ctx).Function("Process")

	s.cacheMu.Lock()
	if err := s.outcomes.ClearLatest(ctx); err != nil {
		log.Warn("failed to clear cached batch outcome", "error", err)
	}
	s.cacheMu.Unlock()

	outcome := s.orchestrator.Process(ctx, files)
	s.cacheLatest(ctx, outcome)

	if err := s.history.Record(ctx, outcome); err != nil {
		log.Warn("failed to record batch history", "batchID", outcome.BatchID, "error", err)
	}

	err := s.eventBus.Publish(events.BATCH_CHANNEL, events.Event{
		Type: events.BATCH_COMPLETE,
		Data: map[string]any{
			"batchId":   outcome.BatchID.String(),
			"successes": len(outcome.Successes),
			"failures":  len(outcome.Failures),
		},
	})
	if err != nil {
		log.Warn("failed to publish batch completion", "batchID", outcome.BatchID, "error", err)
	}

	return outcome
}

// cacheLatest writes the outcome only while the orchestrator still retains it.
// The check and the write hold cacheMu so a superseded batch cannot land after
// its successor.
func (s *IngestionService) cacheLatest(ctx context.Context, outcome ingest.BatchOutcome) {
	log := s.log.TraceFromContext(ctx).Function("cacheLatest")

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if !s.orchestrator.Retained(outcome.BatchID) {
		log.Info("Batch superseded, not caching outcome", "batchID", outcome.BatchID)
		return
	}

	if err := s.outcomes.SaveLatest(ctx, outcome); err != nil {
		log.Warn("failed to cache batch outcome", "batchID", outcome.BatchID, "error", err)
	}
}

// Latest returns the newest completed batch, preferring this process's copy
// over the shared cache. While a batch is running here the cache is not
// consulted, since anything in it predates that batch.
func (s *IngestionService) Latest(ctx context.Context) (ingest.BatchOutcome, bool) {
	log := s.log.TraceFromContext(ctx).Function("Latest")

	if outcome, ok := s.orchestrator.Latest(); ok {
		return outcome, true
	}

	if s.orchestrator.InFlight() {
		return ingest.BatchOutcome{}, false
	}

	outcome, found, err := s.outcomes.GetLatest(ctx)
	if err != nil {
		log.Warn("failed to read cached batch outcome", "error", err)
		return ingest.BatchOutcome{}, false
	}

	return outcome, found
}

func (s *IngestionService) Result(ctx context.Context, index int) (ingest.Result, bool) {
	outcome, ok := s.Latest(ctx)
	if !ok {
		return ingest.Result{}, false
	}
	return outcome.Find(index)
}
