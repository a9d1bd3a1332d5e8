// Package netsync implements the sync controller: it watches peers' tip
// heights, pipelines main-block header and body requests over a sliding
// window, and feeds received blocks into the DAG.
package netsync

import (
	"sync/atomic"
	"time"

	"github.com/xdagger/xdagd/blockdag"
	"github.com/xdagger/xdagd/peer"
	"github.com/xdagger/xdagd/util/daghash"
	"github.com/xdagger/xdagd/wire"
)

const (
	// syncWindowSize is how many heights may have requests in flight at
	// once.
	syncWindowSize = 16

	// syncTriggerDelta is how far ahead a remote tip must be before the
	// manager enters SYNCING.
	syncTriggerDelta = 2

	// requestTimeout is how long a request may stay unanswered before it
	// is re-issued to a different peer.
	requestTimeout = 5 * time.Second

	// maxRequestRetries is how many re-issues a request survives before
	// the unresponsive peer is dropped with TIMEOUT.
	maxRequestRetries = 3
)

// SyncState is the manager's view of how current the local DAG is.
type SyncState int32

const (
	// StateSync means the local DAG is believed current.
	StateSync SyncState = iota

	// StateSyncing means the manager is actively downloading the main
	// chain from a peer.
	StateSyncing
)

// String returns the state's name.
func (s SyncState) String() string {
	if s == StateSyncing {
		return "SYNCING"
	}
	return "SYNC"
}

// Messages consumed by the handler goroutine. Every external entry point
// posts one of these; the handler serializes all state mutations.
type newPeerMsg struct{ peer *peer.Peer }
type donePeerMsg struct{ peer *peer.Peer }
type headerMsg struct {
	header *wire.MsgMainBlockHeader
	peer   *peer.Peer
}
type blockMsg struct {
	blockBytes []byte
	peer       *peer.Peer
	isNew      bool
}

// syncRequest tracks one outstanding height request: first the header,
// then (when the block is unknown) the body.
type syncRequest struct {
	height  uint64
	lowHash *daghash.Hash
	peer    *peer.Peer
	sentAt  time.Time
	retries int
}

// Config holds the sync manager's dependencies.
type Config struct {
	DAG *blockdag.BlockDAG
}

// SyncManager decides, per connected peer, whether the local main chain
// lags behind and drives the catch-up request pipeline. A single handler
// goroutine owns all of its state.
type SyncManager struct {
	cfg Config

	started  int32
	shutdown int32
	state    int32 // SyncState, atomic

	msgChan chan interface{}
	quit    chan struct{}
	done    chan struct{}

	peers    map[int32]*peer.Peer
	requests map[uint64]*syncRequest
	// bestHeight is the highest tip height any peer advertised.
	bestHeight uint64
}

// New constructs a new SyncManager.
func New(cfg *Config) *SyncManager {
	return &SyncManager{
		cfg:      *cfg,
		msgChan:  make(chan interface{}, 128),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		peers:    make(map[int32]*peer.Peer),
		requests: make(map[uint64]*syncRequest),
	}
}

// Start begins the core block handler which processes blocks, headers and
// peer lifecycle notifications.
func (sm *SyncManager) Start() {
	if !atomic.CompareAndSwapInt32(&sm.started, 0, 1) {
		return
	}
	log.Trace("Starting sync manager")
	spawn(sm.handler)
}

// Stop gracefully shuts down the sync manager.
func (sm *SyncManager) Stop() {
	if !atomic.CompareAndSwapInt32(&sm.shutdown, 0, 1) {
		return
	}
	log.Trace("Sync manager shutting down")
	close(sm.quit)
	<-sm.done
}

// State returns the manager's current sync state.
func (sm *SyncManager) State() SyncState {
	return SyncState(atomic.LoadInt32(&sm.state))
}

// IsSynced returns whether the manager believes the local DAG is current.
func (sm *SyncManager) IsSynced() bool {
	return sm.State() == StateSync
}

func (sm *SyncManager) setState(state SyncState) {
	if SyncState(atomic.SwapInt32(&sm.state, int32(state))) != state {
		log.Infof("Sync state is now %s", state)
	}
}

// NewPeer informs the sync manager of a newly active peer.
func (sm *SyncManager) NewPeer(p *peer.Peer) {
	sm.post(&newPeerMsg{peer: p})
}

// DonePeer informs the sync manager that a peer has gone away.
func (sm *SyncManager) DonePeer(p *peer.Peer) {
	sm.post(&donePeerMsg{peer: p})
}

// QueueHeader hands a received MAIN_BLOCK_HEADER to the handler.
func (sm *SyncManager) QueueHeader(header *wire.MsgMainBlockHeader, p *peer.Peer) {
	sm.post(&headerMsg{header: header, peer: p})
}

// QueueBlock hands a received MAIN_BLOCK body to the handler.
func (sm *SyncManager) QueueBlock(blockBytes []byte, p *peer.Peer) {
	sm.post(&blockMsg{blockBytes: blockBytes, peer: p})
}

// QueueNewBlock hands an unsolicited NEW_BLOCK relay to the handler.
func (sm *SyncManager) QueueNewBlock(blockBytes []byte, p *peer.Peer) {
	sm.post(&blockMsg{blockBytes: blockBytes, peer: p, isNew: true})
}

func (sm *SyncManager) post(msg interface{}) {
	if atomic.LoadInt32(&sm.shutdown) != 0 {
		return
	}
	select {
	case sm.msgChan <- msg:
	case <-sm.quit:
	}
}

// handler is the main handler for the sync manager. It must be run as a
// goroutine. It processes block and header messages in a separate
// goroutine from the peer handlers so the block DAG is never asked to do
// two conflicting things at once.
func (sm *SyncManager) handler() {
	defer close(sm.done)

	timeoutTicker := time.NewTicker(time.Second)
	defer timeoutTicker.Stop()

	for {
		select {
		case m := <-sm.msgChan:
			switch msg := m.(type) {
			case *newPeerMsg:
				sm.handleNewPeer(msg.peer)
			case *donePeerMsg:
				sm.handleDonePeer(msg.peer)
			case *headerMsg:
				sm.handleHeader(msg.header, msg.peer)
			case *blockMsg:
				sm.handleBlock(msg.blockBytes, msg.peer, msg.isNew)
			default:
				log.Warnf("Invalid message type in sync handler: %T", msg)
			}

		case <-timeoutTicker.C:
			sm.checkRequestTimeouts()

		case <-sm.quit:
			log.Trace("Sync manager done")
			return
		}
	}
}

func (sm *SyncManager) handleNewPeer(p *peer.Peer) {
	sm.peers[p.ID()] = p

	hello := p.RemoteHello()
	if hello == nil {
		return
	}
	if hello.TipHeight > sm.bestHeight {
		sm.bestHeight = hello.TipHeight
	}

	localHeight := sm.cfg.DAG.TipHeight()
	if sm.bestHeight > localHeight+syncTriggerDelta {
		sm.setState(StateSyncing)
		sm.fillRequestWindow()
	} else {
		sm.setState(StateSync)
	}
}

func (sm *SyncManager) handleDonePeer(p *peer.Peer) {
	delete(sm.peers, p.ID())

	// Re-issue this peer's in-flight requests elsewhere right away.
	for _, request := range sm.requests {
		if request.peer.ID() == p.ID() {
			sm.reissueRequest(request)
		}
	}
}

// pickPeer returns a connected peer advertising at least the given
// height, preferring one different from exclude.
func (sm *SyncManager) pickPeer(height uint64, exclude *peer.Peer) *peer.Peer {
	var fallback *peer.Peer
	for _, p := range sm.peers {
		hello := p.RemoteHello()
		if hello == nil || hello.TipHeight < height || !p.Connected() {
			continue
		}
		if exclude != nil && p.ID() == exclude.ID() {
			fallback = p
			continue
		}
		return p
	}
	return fallback
}

// fillRequestWindow keeps the sliding window of header requests full
// while syncing.
func (sm *SyncManager) fillRequestWindow() {
	if sm.State() != StateSyncing {
		return
	}
	localHeight := sm.cfg.DAG.TipHeight()
	for height := localHeight + 1; height <= sm.bestHeight &&
		height <= localHeight+syncWindowSize; height++ {

		if _, inFlight := sm.requests[height]; inFlight {
			continue
		}
		p := sm.pickPeer(height, nil)
		if p == nil {
			return
		}
		sm.requests[height] = &syncRequest{
			height: height,
			peer:   p,
			sentAt: time.Now(),
		}
		p.SendMessage(wire.NewMsgGetMainBlockHeader(height))
		log.Tracef("Requested main block header %d from %s", height, p)
	}
}

func (sm *SyncManager) handleHeader(header *wire.MsgMainBlockHeader, p *peer.Peer) {
	request, inFlight := sm.requests[header.Height]
	if !inFlight {
		log.Debugf("Unsolicited header for height %d from %s", header.Height, p)
		return
	}

	info, err := sm.cfg.DAG.BlockInfoByLowHash(&header.LowHash)
	if err != nil {
		log.Errorf("Cannot look up block %s: %s", header.LowHash, err)
		return
	}
	if info != nil {
		// Already have the body; the request is satisfied.
		delete(sm.requests, header.Height)
		sm.maybeFinishSyncing()
		sm.fillRequestWindow()
		return
	}

	lowHash := header.LowHash
	request.lowHash = &lowHash
	request.sentAt = time.Now()
	p.SendMessage(wire.NewMsgGetMainBlock(&lowHash))
	log.Tracef("Requested main block %s (height %d) from %s", &lowHash,
		header.Height, p)
}

func (sm *SyncManager) handleBlock(blockBytes []byte, p *peer.Peer, isNew bool) {
	block, err := blockdag.DecodeBlock(blockBytes)
	if err != nil {
		log.Debugf("Invalid block from %s: %s", p, err)
		p.Disconnect(wire.DisconnectBadProtocol)
		return
	}
	lowHash := block.LowHash()

	// Complete the matching body request, if any.
	for height, request := range sm.requests {
		if request.lowHash != nil && request.lowHash.IsEqual(lowHash) {
			delete(sm.requests, height)
			break
		}
	}

	isOrphan, err := sm.cfg.DAG.ProcessBlock(block)
	if err != nil {
		if blockdag.IsRuleError(err) {
			log.Debugf("Rejected block %s from %s: %s", lowHash, p, err)
			if blockdag.IsRuleError(err, blockdag.ErrDuplicateBlock) {
				// Duplicates are expected noise during relay.
				sm.maybeFinishSyncing()
				sm.fillRequestWindow()
				return
			}
			if isNew {
				// A peer relaying garbage is dropped.
				p.Disconnect(wire.DisconnectBadProtocol)
			}
			return
		}
		log.Errorf("Failed to process block %s: %s", lowHash, err)
		return
	}

	if isOrphan {
		// Chase the missing dependencies on the same peer.
		for _, missing := range sm.cfg.DAG.OrphanRoots(lowHash) {
			p.SendMessage(wire.NewMsgGetMainBlock(missing))
		}
		return
	}

	sm.maybeFinishSyncing()
	sm.fillRequestWindow()
}

// maybeFinishSyncing flips back to SYNC once the local tip reached the
// best advertised height with nothing outstanding.
func (sm *SyncManager) maybeFinishSyncing() {
	if sm.State() != StateSyncing {
		return
	}
	if len(sm.requests) == 0 && sm.cfg.DAG.TipHeight() >= sm.bestHeight {
		sm.setState(StateSync)
	}
}

// checkRequestTimeouts re-issues requests unanswered for requestTimeout.
// A request that exhausts its retries costs the unresponsive peer its
// connection.
func (sm *SyncManager) checkRequestTimeouts() {
	now := time.Now()
	for _, request := range sm.requests {
		if now.Sub(request.sentAt) < requestTimeout {
			continue
		}
		sm.reissueRequest(request)
	}
	sm.fillRequestWindow()
}

func (sm *SyncManager) reissueRequest(request *syncRequest) {
	request.retries++
	if request.retries > maxRequestRetries {
		log.Warnf("Request for height %d failed %d times; dropping peer %s",
			request.height, request.retries, request.peer)
		request.peer.Disconnect(wire.DisconnectTimeout)
		delete(sm.requests, request.height)
		return
	}

	next := sm.pickPeer(request.height, request.peer)
	if next == nil {
		delete(sm.requests, request.height)
		return
	}
	request.peer = next
	request.sentAt = time.Now()
	if request.lowHash != nil {
		next.SendMessage(wire.NewMsgGetMainBlock(request.lowHash))
	} else {
		next.SendMessage(wire.NewMsgGetMainBlockHeader(request.height))
	}
	log.Debugf("Re-issued request for height %d to %s", request.height, next)
}
