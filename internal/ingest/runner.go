package ingest

import (
	"context"
	"fmt"

	logger "github.com/Bparsons0904/goLogger"
)

// ProgressSink receives per-file decode progress out-of-band from the batch
// result. Implementations are called from many goroutines at once.
type ProgressSink interface {
	OnProgress(index int, filename string, count int)
	OnComplete(index int, filename string, count int)
}

type NopSink struct{}

func (NopSink) OnProgress(int, string, int) {}
func (NopSink) OnComplete(int, string, int) {}

// Runner turns one raw file into exactly one Result.
type Runner struct {
	sink ProgressSink
	open StreamOpener
	log  logger.Logger
}

func NewRunner(sink ProgressSink, open StreamOpener) *Runner {
	if sink == nil {
		sink = NopSink{}
	}
	if open == nil {
		open = NewAvroStream
	}

	return &Runner{
		sink: sink,
		open: open,
		log:  logger.New("fileJobRunner"),
	}
}

func (r *Runner) Run(ctx context.Context, index int, file File) Result {
	log := r.log.Function("Run")
	job := NewFileJob(index, file.Name)

	var result Result
	switch job.Format {
	case FormatText:
		result = DecodeText(job, file.Content)
	case FormatBinary:
		result = r.runBinary(ctx, job, file.Content)
	default:
		result = Failed(job, fmt.Errorf("%w: %s", ErrUnsupportedFormat, job.Filename))
	}

	if result.IsOk() {
		log.Info("File decoded",
			"index", job.Index,
			"filename", job.Filename,
			"format", job.Format.String(),
			"count", result.Count,
			"limitReached", result.LimitReached,
		)
	} else {
		log.Warn("File failed",
			"index", job.Index,
			"filename", job.Filename,
			"format", job.Format.String(),
			"error", result.Err,
		)
	}

	return result
}

func (r *Runner) runBinary(ctx context.Context, job FileJob, content []byte) Result {
	log := r.log.Function("runBinary")

	worker := NewDecodeWorker(job, content, r.open)
	events, err := worker.Start(ctx)
	if err != nil {
		return Failed(job, err)
	}

	limitReached := false
	var terminal *Result
	for event := range events {
		switch event.Type {
		case EventProgress:
			r.sink.OnProgress(job.Index, job.Filename, event.Count)
		case EventLimitReached:
			limitReached = true
		case EventSerializingStarted:
			log.Debug("Finished decoding, serializing records", "index", job.Index, "filename", job.Filename)
		case EventComplete:
			r.sink.OnComplete(job.Index, job.Filename, event.Count)
			result := Ok(job, event.Data, event.Count, limitReached)
			terminal = &result
		case EventError:
			result := Failed(job, event.Err)
			terminal = &result
		}
	}

	if terminal == nil {
		return Failed(job, fmt.Errorf("%w: worker ended without a terminal event", ErrDecodeFailure))
	}

	return *terminal
}
