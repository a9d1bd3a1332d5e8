package peer

import (
	"sync"

	"github.com/xdagger/xdagd/wire"
)

const (
	// messagesPerTick is how many queued messages one tick drains at
	// most. The transport is flushed once per tick, not per message.
	messagesPerTick = 5
)

// Transport is the write side of a peer connection as the message queue
// sees it: buffered writes plus an explicit flush.
type Transport interface {
	WriteMessage(msg wire.Message) error
	Flush() error
	Close() error
}

// queueState tracks the message queue lifecycle: Idle until activated,
// Active while draining, Closed forever after.
type queueState int

const (
	queueStateIdle queueState = iota
	queueStateActive
	queueStateClosed
)

// MessageQueueConfig bounds and shapes a MessageQueue.
type MessageQueueConfig struct {
	// MaxQueueSize is the number of queued messages past which Send
	// refuses and the connection is dropped with MESSAGE_QUEUE_FULL.
	MaxQueueSize int

	// PriorityOpcodes lists the opcodes routed to the priority sub-queue.
	PriorityOpcodes []wire.MessageOpcode
}

// DefaultPriorityOpcodes returns the opcodes prioritized by default:
// session-control traffic overtakes bulk block transfer.
func DefaultPriorityOpcodes() []wire.MessageOpcode {
	return []wire.MessageOpcode{
		wire.OpcodeDisconnect,
		wire.OpcodeHello,
		wire.OpcodePing,
	}
}

// MessageQueue is the ordered, bounded, priority-aware outbound path of
// one peer. Sends append to one of two FIFO sub-queues; a shared
// scheduler drains both on a fixed tick, priority first. Within a
// sub-queue, submission order is delivery order. Overflow closes the
// queue with MESSAGE_QUEUE_FULL.
type MessageQueue struct {
	transport Transport
	maxSize   int
	priority  map[wire.MessageOpcode]bool

	lock          sync.Mutex
	state         queueState
	normalQueue   []wire.Message
	priorityQueue []wire.Message

	// onClose, when set, is invoked once with the reason the queue
	// closed. It runs outside the queue lock.
	onClose func(reason wire.DisconnectReason)
}

// NewMessageQueue returns an idle MessageQueue writing to the given
// transport.
func NewMessageQueue(transport Transport, config *MessageQueueConfig) *MessageQueue {
	priority := make(map[wire.MessageOpcode]bool, len(config.PriorityOpcodes))
	for _, opcode := range config.PriorityOpcodes {
		priority[opcode] = true
	}
	return &MessageQueue{
		transport: transport,
		maxSize:   config.MaxQueueSize,
		priority:  priority,
		state:     queueStateIdle,
	}
}

// SetOnClose registers the close callback. Must be called before
// Activate.
func (mq *MessageQueue) SetOnClose(onClose func(reason wire.DisconnectReason)) {
	mq.onClose = onClose
}

// Activate moves the queue from Idle to Active. Only an Active queue
// accepts sends and drains on ticks.
func (mq *MessageQueue) Activate() {
	mq.lock.Lock()
	defer mq.lock.Unlock()
	if mq.state == queueStateIdle {
		mq.state = queueStateActive
	}
}

// Size returns the total number of queued messages.
func (mq *MessageQueue) Size() int {
	mq.lock.Lock()
	defer mq.lock.Unlock()
	return len(mq.normalQueue) + len(mq.priorityQueue)
}

// IsClosed returns whether the queue reached its terminal state.
func (mq *MessageQueue) IsClosed() bool {
	mq.lock.Lock()
	defer mq.lock.Unlock()
	return mq.state == queueStateClosed
}

// Send enqueues msg for transmission. It returns false when the queue is
// not Active or when appending would exceed the configured bound; in the
// overflow case the queue emits DISCONNECT(MESSAGE_QUEUE_FULL), closes
// itself, and all further sends fail.
func (mq *MessageQueue) Send(msg wire.Message) bool {
	mq.lock.Lock()
	if mq.state != queueStateActive {
		mq.lock.Unlock()
		return false
	}
	if len(mq.normalQueue)+len(mq.priorityQueue) >= mq.maxSize {
		mq.lock.Unlock()
		log.Debugf("Message queue is full (%d messages), disconnecting", mq.maxSize)
		mq.Close(wire.DisconnectMessageQueueFull)
		return false
	}
	if mq.priority[msg.Opcode()] {
		mq.priorityQueue = append(mq.priorityQueue, msg)
	} else {
		mq.normalQueue = append(mq.normalQueue, msg)
	}
	mq.lock.Unlock()
	return true
}

// tick drains up to messagesPerTick messages, priority sub-queue first,
// writes each to the transport without flushing, and issues one flush at
// the end. A transport error is logged and closes the queue with reason
// TIMEOUT.
func (mq *MessageQueue) tick() {
	mq.lock.Lock()
	if mq.state != queueStateActive {
		mq.lock.Unlock()
		return
	}
	var batch []wire.Message
	for len(batch) < messagesPerTick {
		if len(mq.priorityQueue) > 0 {
			batch = append(batch, mq.priorityQueue[0])
			mq.priorityQueue = mq.priorityQueue[1:]
			continue
		}
		if len(mq.normalQueue) > 0 {
			batch = append(batch, mq.normalQueue[0])
			mq.normalQueue = mq.normalQueue[1:]
			continue
		}
		break
	}
	mq.lock.Unlock()

	if len(batch) == 0 {
		return
	}
	for _, msg := range batch {
		if err := mq.transport.WriteMessage(msg); err != nil {
			log.Warnf("Failed to write %s to transport: %s", msg.Opcode(), err)
			mq.Close(wire.DisconnectTimeout)
			return
		}
	}
	if err := mq.transport.Flush(); err != nil {
		log.Warnf("Failed to flush transport: %s", err)
		mq.Close(wire.DisconnectTimeout)
	}
}

// Close closes the queue with the given reason. The first call writes a
// DISCONNECT frame, flushes, and shuts the transport down; subsequent
// calls are no-ops. Closed is terminal.
func (mq *MessageQueue) Close(reason wire.DisconnectReason) {
	mq.lock.Lock()
	if mq.state == queueStateClosed {
		mq.lock.Unlock()
		return
	}
	mq.state = queueStateClosed
	mq.normalQueue = nil
	mq.priorityQueue = nil
	mq.lock.Unlock()

	log.Debugf("Closing message queue: reason %s", reason)
	if err := mq.transport.WriteMessage(wire.NewMsgDisconnect(reason)); err == nil {
		_ = mq.transport.Flush()
	}
	if err := mq.transport.Close(); err != nil {
		log.Debugf("Error closing transport: %s", err)
	}
	if mq.onClose != nil {
		mq.onClose(reason)
	}
}
