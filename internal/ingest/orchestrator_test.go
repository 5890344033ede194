package ingest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routedOpener picks a fake stream by the blob content so one batch can mix
// healthy and broken binary files.
func routedOpener(content []byte) (RecordStream, error) {
	switch string(content) {
	case "broken":
		return &fakeStream{total: 1000, failAt: 420}, nil
	case "huge":
		return &fakeStream{total: MaxRecords + 50, failAt: -1}, nil
	default:
		return &fakeStream{total: 640, failAt: -1}, nil
	}
}

func mixedBatch() []File {
	return []File{
		{Name: "a.json", Content: []byte(`[{"x":1},{"x":2}]`)},
		{Name: "b.avro", Content: []byte("broken")},
		{Name: "c.avro", Content: []byte("normal")},
		{Name: "d.txt", Content: []byte("plain text")},
		{Name: "e.json", Content: []byte(`{"single":true}`)},
		{Name: "f.avro", Content: []byte("huge")},
		{Name: "g.json", Content: []byte(`{not json`)},
	}
}

func TestOrchestrator_Process(t *testing.T) {
	sink := &recordingSink{}
	orchestrator := NewOrchestrator(NewRunner(sink, routedOpener))

	outcome := orchestrator.Process(context.Background(), mixedBatch())

	assert.Equal(t, 7, outcome.Total())

	seen := map[int]bool{}
	for _, result := range append(append([]Result{}, outcome.Successes...), outcome.Failures...) {
		assert.False(t, seen[result.Index], "duplicate index %d", result.Index)
		seen[result.Index] = true
		assert.GreaterOrEqual(t, result.Index, 0)
		assert.Less(t, result.Index, 7)
	}

	successIndexes := make([]int, 0, len(outcome.Successes))
	for _, result := range outcome.Successes {
		successIndexes = append(successIndexes, result.Index)
	}
	assert.Equal(t, []int{0, 2, 4, 5}, successIndexes)

	failureIndexes := make([]int, 0, len(outcome.Failures))
	for _, result := range outcome.Failures {
		failureIndexes = append(failureIndexes, result.Index)
	}
	assert.Equal(t, []int{1, 3, 6}, failureIndexes)

	assert.Equal(t, 2, outcome.Successes[0].Count)
	assert.Equal(t, 640, outcome.Successes[1].Count)
	assert.Equal(t, 1, outcome.Successes[2].Count)
	assert.Equal(t, MaxRecords, outcome.Successes[3].Count)
	assert.True(t, outcome.Successes[3].LimitReached)

	assert.Equal(t, MessageDecodeFailure, outcome.Failures[0].Message)
	assert.Equal(t, MessageUnsupportedFormat, outcome.Failures[1].Message)
	assert.Equal(t, MessageMalformedContent, outcome.Failures[2].Message)

	// the broken file's progress stays visible even though it failed
	brokenCalls := sink.forIndex(1)
	require.NotEmpty(t, brokenCalls)
	assert.Equal(t, 0, brokenCalls[0].count)
}

func TestOrchestrator_OnlyFailures(t *testing.T) {
	orchestrator := NewOrchestrator(NewRunner(nil, routedOpener))

	outcome := orchestrator.Process(context.Background(), []File{
		{Name: "one.csv"},
		{Name: "two.avro", Content: []byte("broken")},
	})

	assert.Empty(t, outcome.Successes)
	assert.NotNil(t, outcome.Successes)
	assert.Len(t, outcome.Failures, 2)
}

func TestOrchestrator_EmptyBatch(t *testing.T) {
	orchestrator := NewOrchestrator(NewRunner(nil, routedOpener))

	outcome := orchestrator.Process(context.Background(), nil)

	assert.Equal(t, 0, outcome.Total())

	payloads, err := outcome.Payloads()
	require.NoError(t, err)
	assert.Equal(t, [2]string{"[]", "[]"}, payloads)
}

func TestOrchestrator_Idempotent(t *testing.T) {
	orchestrator := NewOrchestrator(NewRunner(nil, routedOpener))

	first := orchestrator.Process(context.Background(), mixedBatch())
	second := orchestrator.Process(context.Background(), mixedBatch())

	assert.NotEqual(t, first.BatchID, second.BatchID)

	firstPayloads, err := first.Payloads()
	require.NoError(t, err)
	secondPayloads, err := second.Payloads()
	require.NoError(t, err)
	assert.Equal(t, firstPayloads, secondPayloads)
}

func TestOrchestrator_RetainsLatestBatch(t *testing.T) {
	orchestrator := NewOrchestrator(NewRunner(nil, routedOpener))

	_, ok := orchestrator.Latest()
	assert.False(t, ok)

	first := orchestrator.Process(context.Background(), mixedBatch())
	latest, ok := orchestrator.Latest()
	require.True(t, ok)
	assert.Equal(t, first.BatchID, latest.BatchID)

	result, ok := orchestrator.Result(4)
	require.True(t, ok)
	assert.Equal(t, "e.json", result.Filename)

	second := orchestrator.Process(context.Background(), []File{
		{Name: "only.json", Content: []byte(`[]`)},
	})
	latest, ok = orchestrator.Latest()
	require.True(t, ok)
	assert.Equal(t, second.BatchID, latest.BatchID)

	_, ok = orchestrator.Result(4)
	assert.False(t, ok)
}

func TestOrchestrator_RetainedAndInFlight(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	held := func([]byte) (RecordStream, error) {
		entered <- struct{}{}
		<-release
		return &fakeStream{total: 1, failAt: -1}, nil
	}
	orchestrator := NewOrchestrator(NewRunner(nil, held))

	assert.False(t, orchestrator.InFlight())

	done := make(chan BatchOutcome, 1)
	go func() {
		done <- orchestrator.Process(context.Background(), []File{{Name: "slow.avro"}})
	}()
	<-entered

	assert.True(t, orchestrator.InFlight())

	close(release)
	first := <-done

	assert.False(t, orchestrator.InFlight())
	assert.True(t, orchestrator.Retained(first.BatchID))

	second := orchestrator.Process(context.Background(), []File{{Name: "x.json", Content: []byte(`{}`)}})
	assert.False(t, orchestrator.Retained(first.BatchID))
	assert.True(t, orchestrator.Retained(second.BatchID))
}

func TestBatchOutcome_Payloads(t *testing.T) {
	outcome := Partition(uuid.Nil, []Result{
		Ok(NewFileJob(0, "a.json"), `{"k":1}`, 1, false),
		Failed(NewFileJob(1, "b.txt"), ErrUnsupportedFormat),
	})

	payloads, err := outcome.Payloads()
	require.NoError(t, err)

	assert.JSONEq(t,
		`[{"status":"Ok","filename":"a.json","index":0,"data":"{\"k\":1}","count":1,"limitReached":false}]`,
		payloads[0],
	)
	assert.JSONEq(t,
		`[{"status":"Failed","filename":"b.txt","index":1,"message":"File is not in a supported format"}]`,
		payloads[1],
	)
}
