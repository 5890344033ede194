package jobs

import (
	"avroviewer/config"
	"avroviewer/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

func RegisterAllJobs(
	schedulerService *services.SchedulerService,
	config config.Config,
	service services.Service,
) error {
	log := logger.New("jobs").Function("RegisterAllJobs")

	if !config.SchedulerEnabled {
		log.Info("Scheduler disabled, skipping job registration")
		return nil
	}

	if !service.History.Enabled() {
		log.Info("Batch history disabled, skipping cleanup job")
		return nil
	}

	cleanupJob := NewBatchHistoryCleanupJob(service.History, services.Hourly)
	if err := schedulerService.AddJob(cleanupJob); err != nil {
		return log.Err("failed to register batch history cleanup job", err)
	}
	log.Info("Registered batch history cleanup job", "schedule", services.Hourly.String())

	return nil
}
