package services

import (
	"context"
	"time"

	"avroviewer/internal/ingest"
	"avroviewer/internal/models"
	"avroviewer/internal/repositories"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

type executor interface {
	Enabled() bool
	Execute(ctx context.Context, fn func(context.Context, *gorm.DB) error) error
}

// HistoryService persists batch summaries. Every method is a no-op when no
// database is configured.
type HistoryService struct {
	tx            executor
	repo          repositories.BatchRecordRepository
	retentionDays int
	now           func() time.Time
	log           logger.Logger
}

func NewHistoryService(
	tx executor,
	repo repositories.BatchRecordRepository,
	retentionDays int,
) *HistoryService {
	return &HistoryService{
		tx:            tx,
		repo:          repo,
		retentionDays: retentionDays,
		now:           time.Now,
		log:           logger.New("historyService"),
	}
}

func (s *HistoryService) Enabled() bool {
	return s.tx != nil && s.tx.Enabled()
}

func (s *HistoryService) Record(ctx context.Context, outcome ingest.BatchOutcome) error {
	log := s.log.TraceFromContext(ctx).Function("Record")

	if !s.Enabled() {
		return nil
	}

	record, err := models.NewBatchRecord(outcome)
	if err != nil {
		return log.Err("failed to build batch record", err, "batchID", outcome.BatchID)
	}

	err = s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return s.repo.Create(ctx, tx, record)
	})
	if err != nil {
		return log.Err("failed to record batch", err, "batchID", outcome.BatchID)
	}

	log.Info("Batch recorded", "batchID", outcome.BatchID, "files", record.FileCount, "successRate", record.SuccessRate.String())
	return nil
}

func (s *HistoryService) Recent(ctx context.Context, limit int) ([]models.BatchRecord, error) {
	log := s.log.TraceFromContext(ctx).Function("Recent")

	if !s.Enabled() {
		return []models.BatchRecord{}, nil
	}

	var records []models.BatchRecord
	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		records, err = s.repo.GetRecent(ctx, tx, limit)
		return err
	})
	if err != nil {
		return nil, log.Err("failed to load batch history", err)
	}

	return records, nil
}

// PruneExpired deletes batch records older than the retention window.
func (s *HistoryService) PruneExpired(ctx context.Context) (int, error) {
	log := s.log.Function("PruneExpired")

	if !s.Enabled() {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -s.retentionDays)

	var deleted int
	err := s.tx.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.DeleteOlderThan(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return 0, log.Err("failed to prune batch history", err, "cutoff", cutoff)
	}

	log.Info("Pruned batch history", "deleted", deleted, "cutoff", cutoff)
	return deleted, nil
}
