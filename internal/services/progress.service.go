package services

import (
	"sync"
	"sync/atomic"

	"avroviewer/internal/events"

	logger "github.com/Bparsons0904/goLogger"
)

const PROGRESS_QUEUE_SIZE = 256

type progressUpdate struct {
	index    int
	filename string
	count    int
	complete bool
}

// ProgressService is the decode progress sink. Workers never wait on it for
// intermediate counts: a full queue drops them. Completion notices are
// queued with a blocking send so the final count always goes out.
type ProgressService struct {
	eventBus *events.EventBus
	queue    chan progressUpdate
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	dropped  atomic.Int64
	log      logger.Logger
}

func NewProgressService(eventBus *events.EventBus) *ProgressService {
	s := &ProgressService{
		eventBus: eventBus,
		queue:    make(chan progressUpdate, PROGRESS_QUEUE_SIZE),
		done:     make(chan struct{}),
		log:      logger.New("progressService"),
	}

	s.wg.Add(1)
	go s.drain()

	return s
}

func (s *ProgressService) OnProgress(index int, filename string, count int) {
	select {
	case s.queue <- progressUpdate{index: index, filename: filename, count: count}:
	default:
		s.dropped.Add(1)
	}
}

func (s *ProgressService) OnComplete(index int, filename string, count int) {
	select {
	case s.queue <- progressUpdate{index: index, filename: filename, count: count, complete: true}:
	case <-s.done:
	}
}

// Dropped reports how many progress updates were discarded on a full queue.
func (s *ProgressService) Dropped() int64 {
	return s.dropped.Load()
}

// Close publishes whatever is already queued and stops the drainer.
func (s *ProgressService) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()

	if dropped := s.Dropped(); dropped > 0 {
		s.log.Function("Close").Info("Progress service stopped", "droppedUpdates", dropped)
	}
}

func (s *ProgressService) drain() {
	defer s.wg.Done()

	for {
		select {
		case update := <-s.queue:
			s.publish(update)
		case <-s.done:
			for {
				select {
				case update := <-s.queue:
					s.publish(update)
				default:
					return
				}
			}
		}
	}
}

func (s *ProgressService) publish(update progressUpdate) {
	eventType := events.DECODE_PROGRESS
	if update.complete {
		eventType = events.DECODE_COMPLETE
	}

	err := s.eventBus.Publish(events.DECODE_CHANNEL, events.Event{
		Type: eventType,
		Data: map[string]any{
			"index":    update.index,
			"filename": update.filename,
			"count":    update.count,
			"complete": update.complete,
		},
	})
	if err != nil {
		s.log.Function("publish").Warn("failed to publish decode progress", "index", update.index, "error", err)
	}
}
