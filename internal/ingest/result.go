package ingest

import (
	"encoding/json"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOk     Status = "Ok"
	StatusFailed Status = "Failed"
)

// Result is the single terminal outcome of one FileJob. Data, Count and
// LimitReached are only meaningful for Ok results, Message only for Failed ones.
type Result struct {
	Status       Status `json:"status"`
	Filename     string `json:"filename"`
	Index        int    `json:"index"`
	Data         string `json:"data"`
	Count        int    `json:"count"`
	LimitReached bool   `json:"limitReached"`
	Message      string `json:"message"`

	Err error `json:"-"`
}

func Ok(job FileJob, data string, count int, limitReached bool) Result {
	return Result{
		Status:       StatusOk,
		Filename:     job.Filename,
		Index:        job.Index,
		Data:         data,
		Count:        count,
		LimitReached: limitReached,
	}
}

func Failed(job FileJob, err error) Result {
	return Result{
		Status:   StatusFailed,
		Filename: job.Filename,
		Index:    job.Index,
		Message:  failureMessage(err),
		Err:      err,
	}
}

func (r Result) IsOk() bool {
	return r.Status == StatusOk
}

// MarshalJSON writes only the fields that belong to the result's status.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.IsOk() {
		return json.Marshal(struct {
			Status       Status `json:"status"`
			Filename     string `json:"filename"`
			Index        int    `json:"index"`
			Data         string `json:"data"`
			Count        int    `json:"count"`
			LimitReached bool   `json:"limitReached"`
		}{r.Status, r.Filename, r.Index, r.Data, r.Count, r.LimitReached})
	}

	return json.Marshal(struct {
		Status   Status `json:"status"`
		Filename string `json:"filename"`
		Index    int    `json:"index"`
		Message  string `json:"message"`
	}{r.Status, r.Filename, r.Index, r.Message})
}

// BatchOutcome is the partitioned view of every Result of one batch. It is built
// once by Partition and never mutated afterwards.
type BatchOutcome struct {
	BatchID   uuid.UUID `json:"batchId"`
	Successes []Result  `json:"successes"`
	Failures  []Result  `json:"failures"`
}

// Partition splits results into successes and failures, keeping submission order
// inside each partition.
func Partition(batchID uuid.UUID, results []Result) BatchOutcome {
	outcome := BatchOutcome{
		BatchID:   batchID,
		Successes: make([]Result, 0, len(results)),
		Failures:  make([]Result, 0),
	}

	for _, result := range results {
		if result.IsOk() {
			outcome.Successes = append(outcome.Successes, result)
		} else {
			outcome.Failures = append(outcome.Failures, result)
		}
	}

	return outcome
}

func (o BatchOutcome) Total() int {
	return len(o.Successes) + len(o.Failures)
}

// Find looks a result up by its batch index in either partition.
func (o BatchOutcome) Find(index int) (Result, bool) {
	for _, partition := range [][]Result{o.Successes, o.Failures} {
		for _, result := range partition {
			if result.Index == index {
				return result, true
			}
		}
	}
	return Result{}, false
}

// Payloads serializes the two partitions separately, successes first.
func (o BatchOutcome) Payloads() ([2]string, error) {
	successes, err := json.Marshal(o.Successes)
	if err != nil {
		return [2]string{}, err
	}

	failures, err := json.Marshal(o.Failures)
	if err != nil {
		return [2]string{}, err
	}

	return [2]string{string(successes), string(failures)}, nil
}
