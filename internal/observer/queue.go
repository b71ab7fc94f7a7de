package observer

import (
	"sync"
	"sync/atomic"
)

// Kind tells which field of a Message is set.
type Kind int

const (
	KindLog Kind = iota
	KindStats
)

// Message is a single item delivered through a Queue.
type Message struct {
	Kind  Kind
	Line  string
	Stats Stats
}

// Queue is a one-directional buffered channel of run messages for front-ends
// that poll on their own schedule. Sends never block: when the buffer is full
// the message is dropped and counted.
type Queue struct {
	ch      chan Message
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

const defaultQueueSize = 256

// NewQueue creates a queue with the given buffer size.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{ch: make(chan Message, size)}
}

func (q *Queue) OnLogLine(line string) {
	q.send(Message{Kind: KindLog, Line: line})
}

func (q *Queue) OnStatsUpdate(stats Stats) {
	q.send(Message{Kind: KindStats, Stats: stats})
}

// Messages returns the receive side of the queue.
func (q *Queue) Messages() <-chan Message {
	return q.ch
}

// Dropped reports how many messages were discarded because the buffer was full.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Close closes the channel. Sends after Close are discarded.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

func (q *Queue) send(m Message) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return
	}
	select {
	case q.ch <- m:
	default:
		q.dropped.Add(1)
	}
}
