package controllers

import (
	"avroviewer/internal/services"

	batchController "avroviewer/internal/controllers/batches"
)

type Controllers struct {
	Batch batchController.BatchControllerInterface
}

func New(services services.Service) Controllers {
	return Controllers{
		Batch: batchController.New(services.Ingestion, services.History),
	}
}
