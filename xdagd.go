package main

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/blockdag"
	"github.com/xdagger/xdagd/config"
	"github.com/xdagger/xdagd/crypto"
	"github.com/xdagger/xdagd/dagconfig"
	"github.com/xdagger/xdagd/infrastructure/db/dbaccess"
	"github.com/xdagger/xdagd/infrastructure/logger"
	"github.com/xdagger/xdagd/netsync"
	"github.com/xdagger/xdagd/server/p2p"
	"github.com/xdagger/xdagd/signal"
	"github.com/xdagger/xdagd/version"
)

const dbDirname = "db"

// xdagdMain assembles and runs the node. It returns the process exit
// code.
func xdagdMain() int {
	interrupt := signal.InterruptListener()

	cfg, err := config.LoadConfig()
	if err != nil {
		fatalf("Invalid configuration: %s", err)
		return exitCodeInvalidConfig
	}

	if err := logger.BackendLog.Run(); err != nil {
		fatalf("Cannot start logger: %s", err)
		return exitCodeInvalidConfig
	}
	defer logger.BackendLog.Close()
	log.Infof("Version %s", version.Version())
	log.Infof("Active network: %s", cfg.Params.Name)

	if err := cryptoSelfCheck(); err != nil {
		log.Criticalf("Cryptographic self-test failed: %s", err)
		return exitCodeCryptoFailure
	}

	databaseContext, err := dbaccess.New(filepath.Join(cfg.DataDir, dbDirname))
	if err != nil {
		log.Criticalf("Cannot open block store: %s", err)
		return exitCodeStoreFailure
	}
	defer func() {
		log.Info("Gracefully shutting down the database...")
		if err := databaseContext.Close(); err != nil {
			log.Errorf("Error closing the database: %s", err)
		}
	}()

	dag, err := blockdag.New(&blockdag.Config{
		DatabaseContext: databaseContext,
		Params:          cfg.Params,
	})
	if err != nil {
		log.Criticalf("Cannot initialize the DAG: %s", err)
		return exitCodeStoreFailure
	}

	syncManager := netsync.New(&netsync.Config{DAG: dag})

	server, err := p2p.New(&p2p.Config{
		DAG:          dag,
		SyncManager:  syncManager,
		Params:       cfg.Params,
		ListenPort:   cfg.ListenPort,
		BootNodes:    cfg.BootNodeList,
		Proxy:        cfg.Proxy,
		MaxQueueSize: cfg.MaxQueueSize,
	})
	if err != nil {
		log.Criticalf("Cannot create the p2p server: %s", err)
		return exitCodeInvalidConfig
	}
	dag.SetBlockAddedListener(server.RelayBlock)

	syncManager.Start()
	if err := server.Start(); err != nil {
		log.Criticalf("Cannot start the p2p server: %s", err)
		return exitCodeInvalidConfig
	}

	// The epoch ticker drives main-chain election.
	epochTickerDone := make(chan struct{})
	spawn(func() {
		ticker := time.NewTicker(dagconfig.EpochDuration)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := dag.HandleEpochTick(); err != nil {
					if blockdag.IsReorgError(err) {
						log.Criticalf("Reorg invariant violation at tip %s: %s",
							dag.TipHash(), err)
						signal.ShutdownRequestChannel <- struct{}{}
						return
					}
					log.Errorf("Epoch tick failed: %s", err)
				}
			case <-epochTickerDone:
				return
			}
		}
	})

	<-interrupt

	log.Info("Shutting down...")
	close(epochTickerDone)
	server.Stop()
	syncManager.Stop()
	return exitCodeOK
}

// cryptoSelfCheck proves at boot that signing round-trips: a node with a
// broken crypto backend must not join the network.
func cryptoSelfCheck() error {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	pubKey, err := key.PublicKey()
	if err != nil {
		return err
	}
	digest := crypto.DoubleSha256([]byte("xdagd boot self check"))
	sig, err := key.Sign(digest)
	if err != nil {
		return err
	}
	if !pubKey.Verify(digest, sig) {
		return errors.New("signature round-trip verification failed")
	}
	return nil
}
