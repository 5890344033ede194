package repositories

import (
	"avroviewer/internal/database"
)

type Repository struct {
	BatchRecord BatchRecordRepository
	Outcome     OutcomeRepository
}

func New(db database.DB) Repository {
	return Repository{
		BatchRecord: NewBatchRecordRepository(),
		Outcome:     NewOutcomeRepository(db.Cache.Batches),
	}
}
