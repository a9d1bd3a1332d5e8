package peer

import (
	"sync"
	"time"
)

// tickInterval is the cadence the shared scheduler drives every peer's
// message queue at.
const tickInterval = 10 * time.Millisecond

// QueueScheduler multiplexes the flush ticks of every registered
// MessageQueue onto a single timer goroutine. It replaces a per-peer
// timer thread: queues register on activation and unregister when their
// peer goes away; closed queues ignore ticks on their own.
type QueueScheduler struct {
	lock   sync.Mutex
	queues map[*MessageQueue]struct{}

	started bool
	quit    chan struct{}
	done    chan struct{}
}

// NewQueueScheduler returns a stopped QueueScheduler.
func NewQueueScheduler() *QueueScheduler {
	return &QueueScheduler{
		queues: make(map[*MessageQueue]struct{}),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the scheduler goroutine. It may only be called once.
func (s *QueueScheduler) Start() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.started {
		return
	}
	s.started = true
	spawn(s.run)
}

// Stop terminates the scheduler goroutine and waits for it to exit.
func (s *QueueScheduler) Stop() {
	s.lock.Lock()
	if !s.started {
		s.lock.Unlock()
		return
	}
	s.lock.Unlock()

	close(s.quit)
	<-s.done
}

// Register adds a queue to the tick rotation.
func (s *QueueScheduler) Register(mq *MessageQueue) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.queues[mq] = struct{}{}
}

// Unregister removes a queue from the tick rotation.
func (s *QueueScheduler) Unregister(mq *MessageQueue) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.queues, mq)
}

func (s *QueueScheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, mq := range s.snapshot() {
				mq.tick()
			}
		case <-s.quit:
			return
		}
	}
}

func (s *QueueScheduler) snapshot() []*MessageQueue {
	s.lock.Lock()
	defer s.lock.Unlock()
	queues := make([]*MessageQueue, 0, len(s.queues))
	for mq := range s.queues {
		queues = append(queues, mq)
	}
	return queues
}
