package peer

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/dagconfig"
	"github.com/xdagger/xdagd/util/daghash"
	"github.com/xdagger/xdagd/util/random"
	"github.com/xdagger/xdagd/wire"
)

const (
	// handshakeTimeout is how long a connection may take to complete the
	// HELLO/WORLD exchange.
	handshakeTimeout = 5 * time.Second

	// pingInterval is the interval of time to wait in between sending
	// ping messages.
	pingInterval = 15 * time.Second

	// maxMissedPongs is the number of consecutive unanswered pings after
	// which the peer is dropped with TIMEOUT.
	maxMissedPongs = 2

	// defaultMaxQueueSize bounds the outbound message queue when the
	// config does not say otherwise.
	defaultMaxQueueSize = 1024
)

// MessageListeners defines callback function pointers to invoke with
// message listeners for a peer. Any listener which is not set to a
// concrete callback during peer initialization is ignored. Execution of
// multiple message listeners occurs serially, so one callback blocks the
// execution of the next.
type MessageListeners struct {
	// OnHandshake is invoked once the HELLO/WORLD exchange completes.
	// Returning reject=true refuses the peer with the returned reason:
	// used by the server to refuse duplicate node ids.
	OnHandshake func(p *Peer, msg *wire.MsgHello) (reject bool, reason wire.DisconnectReason)

	// OnMainBlock is invoked when a peer receives a MAIN_BLOCK message.
	OnMainBlock func(p *Peer, msg *wire.MsgMainBlock)

	// OnGetMainBlock is invoked when a peer receives a GET_MAIN_BLOCK
	// message.
	OnGetMainBlock func(p *Peer, msg *wire.MsgGetMainBlock)

	// OnMainBlockHeader is invoked when a peer receives a
	// MAIN_BLOCK_HEADER message.
	OnMainBlockHeader func(p *Peer, msg *wire.MsgMainBlockHeader)

	// OnGetMainBlockHeader is invoked when a peer receives a
	// GET_MAIN_BLOCK_HEADER message.
	OnGetMainBlockHeader func(p *Peer, msg *wire.MsgGetMainBlockHeader)

	// OnNewBlock is invoked when a peer receives a NEW_BLOCK message.
	OnNewBlock func(p *Peer, msg *wire.MsgNewBlock)

	// OnDisconnect is invoked when a peer connection goes away for any
	// reason.
	OnDisconnect func(p *Peer, reason wire.DisconnectReason)
}

// Config is the struct to hold configuration options useful to Peer.
type Config struct {
	// Params identifies the network the peer speaks.
	Params *dagconfig.Params

	// NodeID is this node's identifier, exchanged in the handshake.
	NodeID wire.NodeID

	// ListenPort is the port advertised in the handshake.
	ListenPort uint16

	// BestTip supplies the tip advertised in the handshake.
	BestTip func() (*daghash.Hash, uint64)

	// Scheduler drives this peer's message queue ticks.
	Scheduler *QueueScheduler

	// MaxQueueSize bounds the outbound queue; 0 means the default.
	MaxQueueSize int

	// PriorityOpcodes overrides the prioritized opcode set; nil means the
	// default.
	PriorityOpcodes []wire.MessageOpcode

	// Listeners houses the message callbacks.
	Listeners MessageListeners
}

var peerIDCounter int32

// Peer provides a peer session for handling xdag communications via the
// peer-to-peer protocol: the handshake state machine, liveness pings and
// the dispatch of consensus messages to the registered listeners. Writes
// go through the peer's MessageQueue; reads run on a dedicated goroutine.
type Peer struct {
	id      int32
	cfg     *Config
	conn    net.Conn
	inbound bool

	queue *MessageQueue

	statusLock     sync.RWMutex
	remoteHello    *wire.MsgHello
	handshakeDone  bool
	disconnected   int32
	disconnectOnce sync.Once

	pingLock        sync.Mutex
	outstandingPing map[uint64]time.Time
	missedPongs     int

	quit chan struct{}
}

// NewPeer returns a new peer session over the given connection. inbound
// tells which side dialed.
func NewPeer(cfg *Config, conn net.Conn, inbound bool) *Peer {
	maxQueueSize := cfg.MaxQueueSize
	if maxQueueSize == 0 {
		maxQueueSize = defaultMaxQueueSize
	}
	priorityOpcodes := cfg.PriorityOpcodes
	if priorityOpcodes == nil {
		priorityOpcodes = DefaultPriorityOpcodes()
	}

	p := &Peer{
		id:              atomic.AddInt32(&peerIDCounter, 1),
		cfg:             cfg,
		conn:            conn,
		inbound:         inbound,
		outstandingPing: make(map[uint64]time.Time),
		quit:            make(chan struct{}),
	}
	p.queue = NewMessageQueue(newConnTransport(conn), &MessageQueueConfig{
		MaxQueueSize:    maxQueueSize,
		PriorityOpcodes: priorityOpcodes,
	})
	p.queue.SetOnClose(p.onQueueClosed)
	return p
}

// ID returns the peer's unique session id.
func (p *Peer) ID() int32 {
	return p.id
}

// Addr returns the remote address of the connection.
func (p *Peer) Addr() string {
	return p.conn.RemoteAddr().String()
}

// Inbound returns whether the remote side dialed us.
func (p *Peer) Inbound() bool {
	return p.inbound
}

// String returns the peer's address and directionality as a human-readable
// string.
func (p *Peer) String() string {
	direction := "outbound"
	if p.inbound {
		direction = "inbound"
	}
	return p.Addr() + " (" + direction + ")"
}

// RemoteHello returns the remote handshake message, or nil before the
// handshake completes.
func (p *Peer) RemoteHello() *wire.MsgHello {
	p.statusLock.RLock()
	defer p.statusLock.RUnlock()
	return p.remoteHello
}

// NodeID returns the remote node id. Only valid after the handshake.
func (p *Peer) NodeID() wire.NodeID {
	hello := p.RemoteHello()
	if hello == nil {
		return wire.NodeID{}
	}
	return hello.NodeID
}

// Start activates the session: it registers the queue with the
// scheduler, performs the handshake, and launches the read and ping
// loops. It blocks until the handshake completes or fails.
func (p *Peer) Start() error {
	p.queue.Activate()
	p.cfg.Scheduler.Register(p.queue)

	if err := p.negotiate(); err != nil {
		return err
	}

	spawn(p.readLoop)
	spawn(p.pingLoop)
	log.Debugf("Connected to %s", p)
	return nil
}

// localHello builds this node's handshake message.
func (p *Peer) localHello() *wire.MsgHello {
	tipHash, tipHeight := p.cfg.BestTip()
	return wire.NewMsgHello(p.cfg.Params.NetworkID, tipHash, tipHeight,
		p.cfg.ListenPort, p.cfg.NodeID)
}

// negotiate runs the HELLO/WORLD exchange under a deadline: the dialer
// sends HELLO and expects WORLD; the listener expects HELLO and answers
// WORLD. Reads bypass the queue: nothing else may be in flight yet.
func (p *Peer) negotiate() error {
	deadline := time.Now().Add(handshakeTimeout)
	if err := p.conn.SetDeadline(deadline); err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		_ = p.conn.SetDeadline(time.Time{})
	}()

	if !p.inbound {
		if !p.queue.Send(p.localHello()) {
			return errors.New("cannot send HELLO: queue refused")
		}
	}

	msg, err := wire.ReadMessage(p.conn)
	if err != nil {
		p.Disconnect(wire.DisconnectInvalidHandshake)
		return errors.Wrap(err, "handshake read failed")
	}
	hello, ok := msg.(*wire.MsgHello)
	if !ok {
		p.Disconnect(wire.DisconnectInvalidHandshake)
		return errors.Errorf("expected HELLO/WORLD, got %s", msg.Opcode())
	}

	if reason, rejected := p.validateHello(hello); rejected {
		p.Disconnect(reason)
		return errors.Errorf("handshake with %s rejected: %s", p.Addr(), reason)
	}

	if p.inbound {
		if !p.queue.Send(p.localHello()) {
			return errors.New("cannot send WORLD: queue refused")
		}
	}

	p.statusLock.Lock()
	p.remoteHello = hello
	p.handshakeDone = true
	p.statusLock.Unlock()

	if p.cfg.Listeners.OnHandshake != nil {
		if reject, reason := p.cfg.Listeners.OnHandshake(p, hello); reject {
			p.Disconnect(reason)
			return errors.Errorf("peer %s refused: %s", p.Addr(), reason)
		}
	}
	return nil
}

// validateHello checks the remote handshake fields against the local
// network.
func (p *Peer) validateHello(hello *wire.MsgHello) (wire.DisconnectReason, bool) {
	if hello.NetworkID != p.cfg.Params.NetworkID {
		return wire.DisconnectBadNetwork, true
	}
	if hello.ProtocolVersion != wire.ProtocolVersion {
		return wire.DisconnectBadProtocol, true
	}
	if hello.NodeID == p.cfg.NodeID {
		// Connected to ourselves.
		return wire.DisconnectDuplicatedPeerID, true
	}
	return 0, false
}

// SendMessage enqueues a message for transmission. It returns false when
// the peer's queue refused it.
func (p *Peer) SendMessage(msg wire.Message) bool {
	return p.queue.Send(msg)
}

// Disconnect closes the session with the given reason. Idempotent.
func (p *Peer) Disconnect(reason wire.DisconnectReason) {
	p.disconnectOnce.Do(func() {
		atomic.StoreInt32(&p.disconnected, 1)
		close(p.quit)
		p.queue.Close(reason)
	})
}

// Connected returns whether the session is still live.
func (p *Peer) Connected() bool {
	return atomic.LoadInt32(&p.disconnected) == 0
}

// onQueueClosed propagates queue shutdown to the session: the queue may
// close itself (overflow, transport error) without Disconnect having been
// called.
func (p *Peer) onQueueClosed(reason wire.DisconnectReason) {
	p.disconnectOnce.Do(func() {
		atomic.StoreInt32(&p.disconnected, 1)
		close(p.quit)
	})
	p.cfg.Scheduler.Unregister(p.queue)
	if p.cfg.Listeners.OnDisconnect != nil {
		p.cfg.Listeners.OnDisconnect(p, reason)
	}
}

// readLoop reads and dispatches incoming messages until the connection
// goes away.
func (p *Peer) readLoop() {
	for p.Connected() {
		msg, err := wire.ReadMessage(p.conn)
		if err != nil {
			if p.Connected() {
				log.Debugf("Read from %s failed: %s", p, err)
				p.Disconnect(wire.DisconnectTimeout)
			}
			return
		}
		p.handleMessage(msg)
	}
}

// handleMessage dispatches one inbound message. Polymorphism is a switch
// on the concrete variant, nothing more.
func (p *Peer) handleMessage(msg wire.Message) {
	switch msg := msg.(type) {
	case *wire.MsgDisconnect:
		log.Debugf("Peer %s disconnected us: %s", p, msg.Reason)
		p.Disconnect(msg.Reason)

	case *wire.MsgPing:
		p.handlePing(msg)

	case *wire.MsgHello:
		// A second handshake on an established session is a protocol
		// violation.
		log.Warnf("Unexpected HELLO from established peer %s", p)
		p.Disconnect(wire.DisconnectUnexpectedMsg)

	case *wire.MsgMainBlock:
		if p.cfg.Listeners.OnMainBlock != nil {
			p.cfg.Listeners.OnMainBlock(p, msg)
		}

	case *wire.MsgGetMainBlock:
		if p.cfg.Listeners.OnGetMainBlock != nil {
			p.cfg.Listeners.OnGetMainBlock(p, msg)
		}

	case *wire.MsgMainBlockHeader:
		if p.cfg.Listeners.OnMainBlockHeader != nil {
			p.cfg.Listeners.OnMainBlockHeader(p, msg)
		}

	case *wire.MsgGetMainBlockHeader:
		if p.cfg.Listeners.OnGetMainBlockHeader != nil {
			p.cfg.Listeners.OnGetMainBlockHeader(p, msg)
		}

	case *wire.MsgNewBlock:
		if p.cfg.Listeners.OnNewBlock != nil {
			p.cfg.Listeners.OnNewBlock(p, msg)
		}

	default:
		log.Warnf("Unexpected message %s from %s", msg.Opcode(), p)
		p.Disconnect(wire.DisconnectUnexpectedMsg)
	}
}

// handlePing tells an incoming ping from a pong by the nonce: a nonce we
// are waiting on is a pong, anything else is a ping to echo.
func (p *Peer) handlePing(msg *wire.MsgPing) {
	p.pingLock.Lock()
	if _, outstanding := p.outstandingPing[msg.Nonce]; outstanding {
		delete(p.outstandingPing, msg.Nonce)
		p.missedPongs = 0
		p.pingLock.Unlock()
		return
	}
	p.pingLock.Unlock()

	p.SendMessage(wire.NewMsgPing(msg.Nonce))
}

// pingLoop sends a ping every pingInterval and drops the peer after
// maxMissedPongs consecutive unanswered ones.
func (p *Peer) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pingLock.Lock()
			if len(p.outstandingPing) > 0 {
				p.missedPongs++
				p.outstandingPing = make(map[uint64]time.Time)
			}
			missed := p.missedPongs
			p.pingLock.Unlock()

			if missed >= maxMissedPongs {
				log.Debugf("Peer %s missed %d pongs, disconnecting", p, missed)
				p.Disconnect(wire.DisconnectTimeout)
				return
			}

			nonce, err := random.Uint64()
			if err != nil {
				log.Errorf("Cannot generate ping nonce: %s", err)
				continue
			}
			p.pingLock.Lock()
			p.outstandingPing[nonce] = time.Now()
			p.pingLock.Unlock()
			p.SendMessage(wire.NewMsgPing(nonce))

		case <-p.quit:
			return
		}
	}
}
