package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	logger "github.com/Bparsons0904/goLogger"
)

const (
	MaxRecords       = 10000
	ProgressInterval = 100

	EVENT_BUFFER_SIZE = 64
)

type EventType string

const (
	EventProgress           EventType = "decode_progress"
	EventLimitReached       EventType = "decode_limit_reached"
	EventSerializingStarted EventType = "serializing_started"
	EventComplete           EventType = "decode_complete"
	EventError              EventType = "decode_error"
)

// DecodeEvent is the only value that crosses from a DecodeWorker to its consumer.
// Count is set for Progress and Complete, Data for Complete, Err for Error.
type DecodeEvent struct {
	Type  EventType
	Count int
	Data  string
	Err   error
}

func (e DecodeEvent) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

type workerState int32

const (
	stateIdle workerState = iota
	stateDecoding
	stateLimitReached
	stateCompleting
	stateFailed
	stateTerminated
)

// DecodeWorker stream-decodes one binary blob in its own goroutine. It owns the
// blob and the decoder exclusively and reports only through its event channel,
// which is closed once the worker terminates. A worker decodes exactly one file.
type DecodeWorker struct {
	job     FileJob
	content []byte
	open    StreamOpener
	events  chan DecodeEvent
	state   atomic.Int32
	log     logger.Logger
}

func NewDecodeWorker(job FileJob, content []byte, open StreamOpener) *DecodeWorker {
	if open == nil {
		open = NewAvroStream
	}

	return &DecodeWorker{
		job:     job,
		content: content,
		open:    open,
		events:  make(chan DecodeEvent, EVENT_BUFFER_SIZE),
		log:     logger.New("decodeWorker"),
	}
}

// Start launches the decode loop and returns the worker's event stream. The
// stream carries Progress events, at most one LimitReached, then either
// SerializingStarted followed by Complete, or Error, and is then closed.
func (w *DecodeWorker) Start(ctx context.Context) (<-chan DecodeEvent, error) {
	if !w.state.CompareAndSwap(int32(stateIdle), int32(stateDecoding)) {
		return nil, ErrWorkerStarted
	}

	go w.run(ctx)

	return w.events, nil
}

func (w *DecodeWorker) run(ctx context.Context) {
	log := w.log.Function("run")

	defer w.terminate()
	defer func() {
		if r := recover(); r != nil {
			_ = log.Error("decoder panicked", "index", w.job.Index, "filename", w.job.Filename, "panic", r)
			w.fail(fmt.Errorf("%w: decoder panic: %v", ErrDecodeFailure, r))
		}
	}()

	records, err := w.decode(ctx)
	if err != nil {
		w.fail(err)
		return
	}

	w.complete(records)
}

func (w *DecodeWorker) decode(ctx context.Context) ([]any, error) {
	stream, err := w.open(w.content)
	if err != nil {
		return nil, err
	}

	records := make([]any, 0, ProgressInterval)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
		}

		record, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		accepted := len(records)
		if accepted >= MaxRecords {
			w.state.Store(int32(stateLimitReached))
			w.emit(DecodeEvent{Type: EventLimitReached})
			return records, nil
		}

		records = append(records, record)

		if accepted%ProgressInterval == 0 {
			w.progress(accepted)
		}
	}
}

func (w *DecodeWorker) complete(records []any) {
	w.state.Store(int32(stateCompleting))
	w.emit(DecodeEvent{Type: EventSerializingStarted})

	for i, record := range records {
		records[i] = finiteFloats(record)
	}

	data, err := json.Marshal(records)
	if err != nil {
		w.fail(fmt.Errorf("%w: serialize records: %v", ErrDecodeFailure, err))
		return
	}

	w.emit(DecodeEvent{Type: EventComplete, Data: string(data), Count: len(records)})
}

// finiteFloats replaces NaN and ±Inf with nil so they serialize as null.
// Maps and slices are rewritten in place.
func finiteFloats(value any) any {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	case float32:
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	case map[string]any:
		for key, item := range v {
			v[key] = finiteFloats(item)
		}
	case []any:
		for i, item := range v {
			v[i] = finiteFloats(item)
		}
	}
	return value
}

func (w *DecodeWorker) fail(err error) {
	w.state.Store(int32(stateFailed))
	w.emit(DecodeEvent{Type: EventError, Err: err})
}

// progress never blocks the decode loop; updates are dropped when the consumer
// falls behind.
func (w *DecodeWorker) progress(count int) {
	select {
	case w.events <- DecodeEvent{Type: EventProgress, Count: count}:
	default:
		w.log.Function("progress").Debug("Event buffer full, dropping progress", "index", w.job.Index, "count", count)
	}
}

func (w *DecodeWorker) emit(event DecodeEvent) {
	w.events <- event
}

func (w *DecodeWorker) terminate() {
	w.state.Store(int32(stateTerminated))
	w.content = nil
	close(w.events)
}

func (w *DecodeWorker) Terminated() bool {
	return workerState(w.state.Load()) == stateTerminated
}
