package queue

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Queue hands items from any number of producers to a single consumer
// without ever blocking either side.
type Queue[T any] struct {
	Name     string
	log      zerolog.Logger
	itemChan chan T
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewQueue creates a queue holding at most maxLength pending items.
func NewQueue[T any](name string, maxLength int, log zerolog.Logger) (*Queue[T], error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("queue '%s' needs a positive length, got %d", name, maxLength)
	}

	return &Queue[T]{
		Name:     name,
		log:      log.With().Str("queue", name).Logger(),
		itemChan: make(chan T, maxLength),
		stopChan: make(chan struct{}),
	}, nil
}

// Add attempts to queue an item. It reports false if the queue is full or stopped.
func (q *Queue[T]) Add(item T) bool {
	select {
	case <-q.stopChan:
		q.log.Debug().Str("item", fmt.Sprint(item)).Msg("Queue stopped, dropping item")
		return false
	default:
	}

	select {
	case q.itemChan <- item:
		q.log.Trace().Str("item", fmt.Sprint(item)).Msg("Item added to queue")
		return true
	default:
		q.log.Debug().Str("item", fmt.Sprint(item)).Msg("Queue full, dropping item")
		return false
	}
}

// Drain passes pending items to fn in order and returns how many it
// handled. It handles at most the queue's capacity, so items added while
// draining may wait for the next call. Drain never blocks or logs.
func (q *Queue[T]) Drain(fn func(T)) int {
	limit := cap(q.itemChan)
	for n := 0; n < limit; n++ {
		select {
		case item := <-q.itemChan:
			fn(item)
		default:
			return n
		}
	}
	return limit
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int { return len(q.itemChan) }

// Stop makes every later Add fail. Pending items can still be drained.
func (q *Queue[T]) Stop() {
	q.stopOnce.Do(func() {
		q.log.Debug().Msg("Stopping queue")
		close(q.stopChan)
	})
}
