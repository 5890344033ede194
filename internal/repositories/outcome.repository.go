package repositories

import (
	"context"

	"avroviewer/internal/constants"
	"avroviewer/internal/database"
	"avroviewer/internal/ingest"

	logger "github.com/Bparsons0904/goLogger"
)

// OutcomeRepository keeps a copy of the latest batch outcome in valkey so a
// restarted process, or a sibling instance, can still serve exports.
type OutcomeRepository interface {
	SaveLatest(ctx context.Context, outcome ingest.BatchOutcome) error
	GetLatest(ctx context.Context) (ingest.BatchOutcome, bool, error)
	ClearLatest(ctx context.Context) error
}

type outcomeRepository struct {
	cache database.CacheClient
	log   logger.Logger
}

func NewOutcomeRepository(cache database.CacheClient) OutcomeRepository {
	return &outcomeRepository{
		cache: cache,
		log:   logger.New("outcomeRepository"),
	}
}

func (r *outcomeRepository) SaveLatest(ctx context.Context, outcome ingest.BatchOutcome) error {
	log := r.log.Function("SaveLatest")

	if r.cache == nil {
		return nil
	}

	err := database.NewCacheBuilder(r.cache, constants.LatestBatchCacheKey).
		WithContext(ctx).
		WithHash(constants.BatchOutcomeCachePrefix).
		WithStruct(outcome).
		WithTTL(constants.BatchOutcomeCacheExpiry).
		Set()
	if err != nil {
		return log.Err("failed to cache latest batch outcome", err, "batchID", outcome.BatchID)
	}

	return nil
}

func (r *outcomeRepository) GetLatest(ctx context.Context) (ingest.BatchOutcome, bool, error) {
	log := r.log.Function("GetLatest")

	if r.cache == nil {
		return ingest.BatchOutcome{}, false, nil
	}

	var outcome ingest.BatchOutcome
	found, err := database.NewCacheBuilder(r.cache, constants.LatestBatchCacheKey).
		WithContext(ctx).
		WithHash(constants.BatchOutcomeCachePrefix).
		Get(&outcome)
	if err != nil {
		return ingest.BatchOutcome{}, false, log.Err("failed to read latest batch outcome", err)
	}

	return outcome, found, nil
}

func (r *outcomeRepository) ClearLatest(ctx context.Context) error {
	log := r.log.Function("ClearLatest")

	if r.cache == nil {
		return nil
	}

	err := database.NewCacheBuilder(r.cache, constants.LatestBatchCacheKey).
		WithContext(ctx).
		WithHash(constants.BatchOutcomeCachePrefix).
		Delete()
	if err != nil {
		return log.Err("failed to clear latest batch outcome", err)
	}

	return nil
}
