package repositories

import (
	"context"
	"time"

	. "avroviewer/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

const DEFAULT_HISTORY_LIMIT = 50

type BatchRecordRepository interface {
	Create(ctx context.Context, tx *gorm.DB, record *BatchRecord) error
	GetRecent(ctx context.Context, tx *gorm.DB, limit int) ([]BatchRecord, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int, error)
}

type batchRecordRepository struct {
	log logger.Logger
}

func NewBatchRecordRepository() BatchRecordRepository {
	return &batchRecordRepository{
		log: logger.New("batchRecordRepository"),
	}
}

func (r *batchRecordRepository) Create(ctx context.Context, tx *gorm.DB, record *BatchRecord) error {
	log := r.log.Function("Create")

	if err := gorm.G[BatchRecord](tx).Create(ctx, record); err != nil {
		return log.Err("failed to create batch record", err, "batchID", record.BatchID)
	}

	return nil
}

func (r *batchRecordRepository) GetRecent(
	ctx context.Context,
	tx *gorm.DB,
	limit int,
) ([]BatchRecord, error) {
	log := r.log.Function("GetRecent")

	if limit <= 0 {
		limit = DEFAULT_HISTORY_LIMIT
	}

	records, err := gorm.G[BatchRecord](tx).
		Order("created_at DESC").
		Limit(limit).
		Find(ctx)
	if err != nil {
		return nil, log.Err("failed to get recent batch records", err, "limit", limit)
	}

	return records, nil
}

func (r *batchRecordRepository) DeleteOlderThan(
	ctx context.Context,
	tx *gorm.DB,
	cutoff time.Time,
) (int, error) {
	log := r.log.Function("DeleteOlderThan")

	deleted, err := gorm.G[BatchRecord](tx).
		Where("created_at < ?", cutoff).
		Delete(ctx)
	if err != nil {
		return 0, log.Err("failed to delete expired batch records", err, "cutoff", cutoff)
	}

	return deleted, nil
}
