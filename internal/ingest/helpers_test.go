package ingest

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

var errBrokenBlock = errors.New("broken block")

// fakeStream yields total records of the form {"n": i}. When failAt >= 0 it
// returns errBrokenBlock instead of record failAt.
type fakeStream struct {
	total  int
	failAt int
	panic  bool
	calls  *atomic.Int64
	next   int
}

func (s *fakeStream) Next() (any, error) {
	if s.calls != nil {
		s.calls.Add(1)
	}
	if s.failAt >= 0 && s.next == s.failAt {
		if s.panic {
			panic("corrupt decoder state")
		}
		return nil, errBrokenBlock
	}
	if s.next >= s.total {
		return nil, io.EOF
	}
	record := map[string]any{"n": s.next}
	s.next++
	return record, nil
}

func fakeOpener(total int) StreamOpener {
	return func([]byte) (RecordStream, error) {
		return &fakeStream{total: total, failAt: -1}, nil
	}
}

func failingOpener(total, failAt int) StreamOpener {
	return func([]byte) (RecordStream, error) {
		return &fakeStream{total: total, failAt: failAt}, nil
	}
}

func countingOpener(total int, calls *atomic.Int64) StreamOpener {
	return func([]byte) (RecordStream, error) {
		return &fakeStream{total: total, failAt: -1, calls: calls}, nil
	}
}

func panickingOpener(failAt int) StreamOpener {
	return func([]byte) (RecordStream, error) {
		return &fakeStream{total: failAt + 10, failAt: failAt, panic: true}, nil
	}
}

type sinkCall struct {
	index    int
	filename string
	count    int
	complete bool
}

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (s *recordingSink) OnProgress(index int, filename string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{index: index, filename: filename, count: count})
}

func (s *recordingSink) OnComplete(index int, filename string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{index: index, filename: filename, count: count, complete: true})
}

func (s *recordingSink) forIndex(index int) []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	var calls []sinkCall
	for _, call := range s.calls {
		if call.index == index {
			calls = append(calls, call)
		}
	}
	return calls
}

func collect(events <-chan DecodeEvent) []DecodeEvent {
	var all []DecodeEvent
	for event := range events {
		all = append(all, event)
	}
	return all
}

func ofType(events []DecodeEvent, eventType EventType) []DecodeEvent {
	var matched []DecodeEvent
	for _, event := range events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
