package ingest

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWorker(t *testing.T, ctx context.Context, open StreamOpener) (*DecodeWorker, []DecodeEvent) {
	t.Helper()

	worker := NewDecodeWorker(NewFileJob(0, "records.avro"), []byte("blob"), open)
	events, err := worker.Start(ctx)
	require.NoError(t, err)

	return worker, collect(events)
}

func TestDecodeWorker_ProgressCadence(t *testing.T) {
	worker, events := startWorker(t, context.Background(), fakeOpener(250))

	types := make([]EventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	assert.Equal(t, []EventType{
		EventProgress,
		EventProgress,
		EventProgress,
		EventSerializingStarted,
		EventComplete,
	}, types)

	progress := ofType(events, EventProgress)
	assert.Equal(t, 0, progress[0].Count)
	assert.Equal(t, 100, progress[1].Count)
	assert.Equal(t, 200, progress[2].Count)

	complete := events[len(events)-1]
	assert.Equal(t, 250, complete.Count)

	var decoded []map[string]int
	require.NoError(t, json.Unmarshal([]byte(complete.Data), &decoded))
	assert.Len(t, decoded, 250)
	assert.Equal(t, 249, decoded[249]["n"])

	assert.True(t, worker.Terminated())
}

func TestDecodeWorker_EmptyStream(t *testing.T) {
	_, events := startWorker(t, context.Background(), fakeOpener(0))

	require.Len(t, events, 2)
	assert.Equal(t, EventSerializingStarted, events[0].Type)
	assert.Equal(t, EventComplete, events[1].Type)
	assert.Equal(t, 0, events[1].Count)
	assert.Equal(t, "[]", events[1].Data)
}

func TestDecodeWorker_ExactlyAtCap(t *testing.T) {
	_, events := startWorker(t, context.Background(), fakeOpener(MaxRecords))

	assert.Empty(t, ofType(events, EventLimitReached))

	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Type)
	assert.Equal(t, MaxRecords, last.Count)
}

func TestDecodeWorker_CapReached(t *testing.T) {
	var calls atomic.Int64
	_, events := startWorker(t, context.Background(), countingOpener(MaxRecords*2, &calls))

	require.Len(t, ofType(events, EventLimitReached), 1)
	assert.Empty(t, ofType(events, EventError))

	// decoding stops at the first record past the cap
	assert.Equal(t, int64(MaxRecords+1), calls.Load())

	limitAt, serializeAt := -1, -1
	for i, event := range events {
		switch event.Type {
		case EventLimitReached:
			limitAt = i
		case EventSerializingStarted:
			serializeAt = i
		}
	}
	assert.Less(t, limitAt, serializeAt)

	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Type)
	assert.Equal(t, MaxRecords, last.Count)

	var decoded []any
	require.NoError(t, json.Unmarshal([]byte(last.Data), &decoded))
	assert.Len(t, decoded, MaxRecords)
}

func TestDecodeWorker_MidStreamFailure(t *testing.T) {
	worker, events := startWorker(t, context.Background(), failingOpener(500, 150))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.ErrorIs(t, last.Err, errBrokenBlock)

	assert.Empty(t, ofType(events, EventComplete))
	assert.Empty(t, ofType(events, EventSerializingStarted))

	progress := ofType(events, EventProgress)
	require.Len(t, progress, 2)
	assert.Equal(t, 0, progress[0].Count)
	assert.Equal(t, 100, progress[1].Count)

	assert.True(t, worker.Terminated())
}

func TestDecodeWorker_PanicIsContained(t *testing.T) {
	_, events := startWorker(t, context.Background(), panickingOpener(5))

	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Type)
	assert.ErrorIs(t, last.Err, ErrDecodeFailure)
	assert.Empty(t, ofType(events, EventComplete))
}

func TestDecodeWorker_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, events := startWorker(t, ctx, fakeOpener(1000))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.ErrorIs(t, events[0].Err, context.Canceled)
}

func TestDecodeWorker_SingleUse(t *testing.T) {
	worker := NewDecodeWorker(NewFileJob(0, "records.avro"), nil, fakeOpener(3))

	events, err := worker.Start(context.Background())
	require.NoError(t, err)
	collect(events)

	_, err = worker.Start(context.Background())
	assert.ErrorIs(t, err, ErrWorkerStarted)
}

func TestDecodeWorker_TerminalEventIsLast(t *testing.T) {
	for _, open := range []StreamOpener{fakeOpener(1234), failingOpener(1234, 777)} {
		_, events := startWorker(t, context.Background(), open)

		terminals := 0
		for i, event := range events {
			if event.IsTerminal() {
				terminals++
				assert.Equal(t, len(events)-1, i)
			}
		}
		assert.Equal(t, 1, terminals)
	}
}

type sliceStream struct {
	records []any
}

func (s *sliceStream) Next() (any, error) {
	if len(s.records) == 0 {
		return nil, io.EOF
	}
	record := s.records[0]
	s.records = s.records[1:]
	return record, nil
}

func TestDecodeWorker_NonFiniteFloatsBecomeNull(t *testing.T) {
	open := func([]byte) (RecordStream, error) {
		return &sliceStream{records: []any{
			map[string]any{"score": math.NaN(), "ratio": float32(1.5)},
			map[string]any{"score": math.Inf(1), "nested": map[string]any{"low": float32(math.Inf(-1))}},
			map[string]any{"samples": []any{1.25, math.NaN()}},
		}}, nil
	}

	_, events := startWorker(t, context.Background(), open)

	complete := events[len(events)-1]
	require.Equal(t, EventComplete, complete.Type)
	assert.Equal(t, 3, complete.Count)
	assert.JSONEq(t,
		`[{"score":null,"ratio":1.5},{"score":null,"nested":{"low":null}},{"samples":[1.25,null]}]`,
		complete.Data,
	)
}
