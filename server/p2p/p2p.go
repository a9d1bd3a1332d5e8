// Package p2p ties the network together: it accepts inbound connections,
// dials boot nodes, owns the live peer set, answers block queries from
// the DAG and routes consensus traffic into the sync manager.
package p2p

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/blockdag"
	"github.com/xdagger/xdagd/dagconfig"
	"github.com/xdagger/xdagd/netsync"
	"github.com/xdagger/xdagd/peer"
	"github.com/xdagger/xdagd/util/daghash"
	"github.com/xdagger/xdagd/util/random"
	"github.com/xdagger/xdagd/wire"
)

const (
	// dialTimeout is the timeout for outbound connection attempts.
	dialTimeout = 30 * time.Second

	// retryDialInterval is how long the server waits before re-dialing
	// boot nodes when it has no peers.
	retryDialInterval = time.Minute
)

// Config holds the p2p server's dependencies and knobs.
type Config struct {
	// DAG is the consensus engine queries are answered from.
	DAG *blockdag.BlockDAG

	// SyncManager receives all inbound consensus traffic.
	SyncManager *netsync.SyncManager

	// Params identifies the network.
	Params *dagconfig.Params

	// ListenPort is the TCP port to accept peers on; 0 disables the
	// listener.
	ListenPort uint16

	// BootNodes are host:port addresses dialed at startup.
	BootNodes []string

	// Proxy, when non-empty, routes outbound dials through the given
	// SOCKS5 proxy address.
	Proxy string

	// MaxQueueSize bounds each peer's outbound queue; 0 means the peer
	// package default.
	MaxQueueSize int
}

// Server is the p2p connection manager.
type Server struct {
	cfg    Config
	nodeID wire.NodeID

	scheduler *peer.QueueScheduler

	peersLock sync.RWMutex
	peers     map[int32]*peer.Peer
	byNodeID  map[wire.NodeID]*peer.Peer

	listener net.Listener
	started  int32
	shutdown int32
	quit     chan struct{}
}

// New builds a Server with a fresh random node id.
func New(cfg *Config) (*Server, error) {
	s := &Server{
		cfg:       *cfg,
		scheduler: peer.NewQueueScheduler(),
		peers:     make(map[int32]*peer.Peer),
		byNodeID:  make(map[wire.NodeID]*peer.Peer),
		quit:      make(chan struct{}),
	}
	if err := random.Bytes(s.nodeID[:]); err != nil {
		return nil, errors.Wrap(err, "cannot generate node id")
	}
	return s, nil
}

// NodeID returns this node's identifier.
func (s *Server) NodeID() wire.NodeID {
	return s.nodeID
}

// Start brings the server up: queue scheduler, listener and boot-node
// dialer.
func (s *Server) Start() error {
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return nil
	}
	s.scheduler.Start()

	if s.cfg.ListenPort != 0 {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.ListenPort))
		if err != nil {
			return errors.Wrapf(err, "cannot listen on port %d", s.cfg.ListenPort)
		}
		s.listener = listener
		log.Infof("P2P server listening on %s", listener.Addr())
		spawn(s.acceptLoop)
	}

	spawn(s.dialLoop)
	return nil
}

// Stop tears the server down: listener first, then every peer, then the
// scheduler.
func (s *Server) Stop() {
	if !atomic.CompareAndSwapInt32(&s.shutdown, 0, 1) {
		return
	}
	close(s.quit)
	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.peersLock.RLock()
	peers := make([]*peer.Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.peersLock.RUnlock()
	for _, p := range peers {
		p.Disconnect(wire.DisconnectTimeout)
	}

	s.scheduler.Stop()
}

// ConnectedCount returns the number of live peers.
func (s *Server) ConnectedCount() int {
	s.peersLock.RLock()
	defer s.peersLock.RUnlock()
	return len(s.peers)
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if atomic.LoadInt32(&s.shutdown) != 0 {
				return
			}
			log.Warnf("Accept failed: %s", err)
			continue
		}
		spawn(func() {
			s.startPeer(conn, true)
		})
	}
}

// dialLoop dials the boot nodes and keeps retrying while the server is
// peerless.
func (s *Server) dialLoop() {
	for {
		if s.ConnectedCount() == 0 {
			for _, addr := range s.cfg.BootNodes {
				bootAddr := addr
				spawn(func() {
					s.dialPeer(bootAddr)
				})
			}
		}
		select {
		case <-time.After(retryDialInterval):
		case <-s.quit:
			return
		}
	}
}

// dialPeer establishes an outbound connection, through the configured
// SOCKS proxy when one is set.
func (s *Server) dialPeer(addr string) {
	var conn net.Conn
	var err error
	if s.cfg.Proxy != "" {
		proxy := &socks.Proxy{Addr: s.cfg.Proxy}
		conn, err = proxy.Dial("tcp", addr)
	} else {
		conn, err = net.DialTimeout("tcp", addr, dialTimeout)
	}
	if err != nil {
		log.Debugf("Cannot dial %s: %s", addr, err)
		return
	}
	s.startPeer(conn, false)
}

// startPeer runs a new peer session over an established connection and,
// on a successful handshake, hands it to the sync manager.
func (s *Server) startPeer(conn net.Conn, inbound bool) {
	p := peer.NewPeer(s.peerConfig(), conn, inbound)
	if err := p.Start(); err != nil {
		log.Debugf("Peer %s failed to start: %s", conn.RemoteAddr(), err)
		return
	}
	s.cfg.SyncManager.NewPeer(p)
}

func (s *Server) peerConfig() *peer.Config {
	return &peer.Config{
		Params:       s.cfg.Params,
		NodeID:       s.nodeID,
		ListenPort:   s.cfg.ListenPort,
		MaxQueueSize: s.cfg.MaxQueueSize,
		Scheduler:    s.scheduler,
		BestTip: func() (*daghash.Hash, uint64) {
			return s.cfg.DAG.TipHash(), s.cfg.DAG.TipHeight()
		},
		Listeners: peer.MessageListeners{
			OnHandshake:          s.onHandshake,
			OnDisconnect:         s.onDisconnect,
			OnGetMainBlock:       s.onGetMainBlock,
			OnGetMainBlockHeader: s.onGetMainBlockHeader,
			OnMainBlock: func(p *peer.Peer, msg *wire.MsgMainBlock) {
				s.cfg.SyncManager.QueueBlock(msg.BlockBytes[:], p)
			},
			OnMainBlockHeader: func(p *peer.Peer, msg *wire.MsgMainBlockHeader) {
				s.cfg.SyncManager.QueueHeader(msg, p)
			},
			OnNewBlock: func(p *peer.Peer, msg *wire.MsgNewBlock) {
				s.cfg.SyncManager.QueueNewBlock(msg.BlockBytes[:], p)
			},
		},
	}
}

// onHandshake enforces node-id uniqueness across live connections.
func (s *Server) onHandshake(p *peer.Peer, hello *wire.MsgHello) (bool, wire.DisconnectReason) {
	s.peersLock.Lock()
	defer s.peersLock.Unlock()
	if _, exists := s.byNodeID[hello.NodeID]; exists {
		return true, wire.DisconnectAlreadyConnected
	}
	s.peers[p.ID()] = p
	s.byNodeID[hello.NodeID] = p
	return false, 0
}

func (s *Server) onDisconnect(p *peer.Peer, reason wire.DisconnectReason) {
	s.peersLock.Lock()
	if _, exists := s.peers[p.ID()]; exists {
		delete(s.peers, p.ID())
		delete(s.byNodeID, p.NodeID())
	}
	s.peersLock.Unlock()

	log.Infof("Peer %s gone: %s", p, reason)
	s.cfg.SyncManager.DonePeer(p)
}

// onGetMainBlock answers a block-body query from the store.
func (s *Server) onGetMainBlock(p *peer.Peer, msg *wire.MsgGetMainBlock) {
	block, err := s.cfg.DAG.BlockByLowHash(&msg.LowHash)
	if err != nil {
		log.Errorf("Cannot fetch block %s: %s", msg.LowHash, err)
		return
	}
	if block == nil {
		log.Debugf("Peer %s requested unknown block %s", p, msg.LowHash)
		return
	}
	reply, err := wire.NewMsgMainBlock(block.Encode())
	if err != nil {
		log.Errorf("Cannot build MAIN_BLOCK reply: %s", err)
		return
	}
	p.SendMessage(reply)
}

// onGetMainBlockHeader answers a header query from the heights index.
func (s *Server) onGetMainBlockHeader(p *peer.Peer, msg *wire.MsgGetMainBlockHeader) {
	lowHash, err := s.cfg.DAG.MainBlockHashAtHeight(msg.Height)
	if err != nil {
		log.Errorf("Cannot resolve height %d: %s", msg.Height, err)
		return
	}
	if lowHash == nil {
		log.Debugf("Peer %s requested header above tip: %d", p, msg.Height)
		return
	}
	block, err := s.cfg.DAG.BlockByLowHash(lowHash)
	if err != nil || block == nil {
		log.Errorf("Main block %s at height %d has no body", lowHash, msg.Height)
		return
	}
	p.SendMessage(wire.NewMsgMainBlockHeader(msg.Height, lowHash, block.Field(0)))
}

// RelayBlock broadcasts a freshly accepted block to every live peer. It
// is wired as the DAG's block-added listener.
func (s *Server) RelayBlock(block *blockdag.Block) {
	msg, err := wire.NewMsgNewBlock(block.Encode())
	if err != nil {
		log.Errorf("Cannot build NEW_BLOCK relay: %s", err)
		return
	}
	s.peersLock.RLock()
	defer s.peersLock.RUnlock()
	for _, p := range s.peers {
		p.SendMessage(msg)
	}
}
