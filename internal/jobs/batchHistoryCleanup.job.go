package jobs

import (
	"context"

	"avroviewer/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

type HistoryPruner interface {
	PruneExpired(ctx context.Context) (int, error)
}

type BatchHistoryCleanupJob struct {
	history  HistoryPruner
	log      logger.Logger
	schedule services.Schedule
}

func NewBatchHistoryCleanupJob(
	history HistoryPruner,
	schedule services.Schedule,
) *BatchHistoryCleanupJob {
	return &BatchHistoryCleanupJob{
		history:  history,
		log:      logger.New("batchHistoryCleanupJob"),
		schedule: schedule,
	}
}

func (j *BatchHistoryCleanupJob) Name() string {
	return "BatchHistoryCleanup"
}

func (j *BatchHistoryCleanupJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	deleted, err := j.history.PruneExpired(ctx)
	if err != nil {
		return log.Err("batch history cleanup failed", err)
	}

	log.Info("Batch history cleanup completed", "deleted", deleted)
	return nil
}

func (j *BatchHistoryCleanupJob) Schedule() services.Schedule {
	return j.schedule
}
