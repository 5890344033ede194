package services

import (
	"avroviewer/config"
	"avroviewer/internal/database"
	"avroviewer/internal/events"
	"avroviewer/internal/ingest"
	"avroviewer/internal/repositories"
)

type Service struct {
	Transaction *TransactionService
	Scheduler   *SchedulerService
	Token       *TokenService
	Progress    *ProgressService
	History     *HistoryService
	Ingestion   *IngestionService
}

func New(
	db database.DB,
	config config.Config,
	eventBus *events.EventBus,
	repos repositories.Repository,
) Service {
	transactionService := NewTransactionService(db)
	progressService := NewProgressService(eventBus)
	historyService := NewHistoryService(
		transactionService,
		repos.BatchRecord,
		config.HistoryRetentionDays,
	)
	orchestrator := ingest.NewOrchestrator(ingest.NewRunner(progressService, ingest.NewAvroStream))

	return Service{
		Transaction: transactionService,
		Scheduler:   NewSchedulerService(),
		Token:       NewTokenService(config),
		Progress:    progressService,
		History:     historyService,
		Ingestion:   NewIngestionService(orchestrator, historyService, repos.Outcome, eventBus),
	}
}

func (s Service) Close() {
	if s.Progress != nil {
		s.Progress.Close()
	}
}
