package models

import (
	"encoding/json"

	"avroviewer/internal/ingest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BatchRecord is the persisted summary of one processed upload batch. File
// contents never reach the database; only per-file counts and messages do.
type BatchRecord struct {
	AppendOnlyModel
	BatchID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"batchId"`
	FileCount      int             `gorm:"not null;default:0"             json:"fileCount"`
	SuccessCount   int             `gorm:"not null;default:0"             json:"successCount"`
	FailureCount   int             `gorm:"not null;default:0"             json:"failureCount"`
	RecordCount    int             `gorm:"not null;default:0"             json:"recordCount"`
	TruncatedCount int             `gorm:"not null;default:0"             json:"truncatedCount"`
	SuccessRate    decimal.Decimal `gorm:"type:decimal(5,2);not null"     json:"successRate"`
	Files          datatypes.JSON  `gorm:"type:jsonb"                     json:"files"`
}

type BatchFileSummary struct {
	Index        int    `json:"index"`
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	Status       string `json:"status"`
	Count        int    `json:"count,omitempty"`
	LimitReached bool   `json:"limitReached,omitempty"`
	Message      string `json:"message,omitempty"`
}

func NewBatchRecord(outcome ingest.BatchOutcome) (*BatchRecord, error) {
	record := &BatchRecord{
		BatchID:     outcome.BatchID,
		FileCount:   outcome.Total(),
		SuccessRate: decimal.Zero,
	}

	summaries := make([]BatchFileSummary, 0, outcome.Total())

	for _, result := range outcome.Successes {
		record.SuccessCount++
		record.RecordCount += result.Count
		if result.LimitReached {
			record.TruncatedCount++
		}
		summaries = append(summaries, summarize(result))
	}

	for _, result := range outcome.Failures {
		record.FailureCount++
		summaries = append(summaries, summarize(result))
	}

	if record.FileCount > 0 {
		record.SuccessRate = decimal.NewFromInt(int64(record.SuccessCount)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(record.FileCount))).
			Round(2)
	}

	files, err := json.Marshal(summaries)
	if err != nil {
		return nil, err
	}
	record.Files = datatypes.JSON(files)

	return record, nil
}

// FileSummaries decodes the stored per-file list.
func (b *BatchRecord) FileSummaries() ([]BatchFileSummary, error) {
	var summaries []BatchFileSummary
	if len(b.Files) == 0 {
		return summaries, nil
	}
	if err := json.Unmarshal(b.Files, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func summarize(result ingest.Result) BatchFileSummary {
	return BatchFileSummary{
		Index:        result.Index,
		Filename:     result.Filename,
		Format:       ingest.Classify(result.Filename).String(),
		Status:       string(result.Status),
		Count:        result.Count,
		LimitReached: result.LimitReached,
		Message:      result.Message,
	}
}
