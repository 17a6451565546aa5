package main

// Process entrypoint. Grounded on the teacher's cmd/synnergy/main.go
// cobra rootCmd + sub-command registration pattern, narrowed to the
// single `run` subcommand this core needs.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anusornc/provchain-org2-sub005/core"
	"github.com/anusornc/provchain-org2-sub005/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "provchain-node"}
	rootCmd.AddCommand(runCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "start a provchain node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(env)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay config name")
	return cmd
}

func run(env string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log.SetLevel(level)

	store := core.NewStore(log)

	var storage *core.Storage
	if cfg.Storage.Persistent {
		storage = core.NewStorage(log, cfg.Storage.DataDir, 7)
		if err := storage.Load(store); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}

	authorities := core.NewAuthoritySet(nil)
	for i, hexKey := range cfg.Consensus.AuthorityKeys {
		pub, err := core.ParsePublicKeyHex(hexKey)
		if err != nil {
			return fmt.Errorf("config: consensus.authority_keys[%d]: %w", i, err)
		}
		authorities.AddAuthority(hexKey, pub, 0)
	}

	chain := core.NewChain()
	if chain.Len() == 0 {
		genesisGraph := core.DataGraphIRI(0)
		// A small deterministic RDF assertion of the chain's identity,
		// per spec.md §3's "contents implementation-defined but
		// deterministic" genesis rule, so data_hash is never the hash
		// of an empty graph.
		_ = store.InsertQuad(
			core.IRI("http://provchain.example/chain"),
			core.Literal{Lexical: cfg.Network.NetworkID},
			core.IRI("http://provchain.example/hasNetworkID"),
			genesisGraph,
		)
		genesis := core.NewBlock(0, genesisGraph, core.ZeroHashHex, "", "genesis")
		sum := core.Canonical(store, genesisGraph)
		genesis.DataHash = hex.EncodeToString(sum[:])
		if err := chain.Append(genesis); err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		core.RecordBlockMetadata(store, genesis)
	}

	var localID string
	var signer core.AuthoritySigner
	if cfg.Consensus.IsAuthority {
		pub, priv, err := core.LoadOrGenerateKeypair(cfg.Consensus.AuthorityKeyFile)
		if err != nil {
			return fmt.Errorf("keypair: %w", err)
		}
		localID = core.PublicKeyHex(pub)
		signer = core.Ed25519Signer{Priv: priv}
		authorities.AddAuthority(localID, pub, uint64(chain.Len()))
	}

	listenAddr := fmt.Sprintf("%s:%d", cfg.Network.BindAddress, cfg.Network.ListenPort)
	node := core.NewNode(log, localID, cfg.Network.NetworkID, listenAddr, nil, store)
	node.SetMaxPeers(cfg.Network.MaxPeers)

	consensus := core.NewConsensus(log, store, chain, authorities, nil, node, localID).
		WithTiming(time.Duration(cfg.Consensus.BlockIntervalSecs)*time.Second, core.DefaultGrace)
	node.SetChain(consensus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startedAt := time.Now()
	mux := http.NewServeMux()
	mux.Handle("/p2p", node)
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := node.Status(authorities, localID, startedAt)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(status)
	})
	srv := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("p2p listener stopped")
		}
	}()

	for _, peerAddr := range cfg.Network.KnownPeers {
		if err := node.Dial("ws://" + peerAddr + "/p2p"); err != nil {
			log.WithError(err).WithField("peer", peerAddr).Warn("bootstrap dial failed")
		}
	}
	go node.HealthLoop(ctx, 30*time.Second)

	if storage != nil {
		go backupLoop(ctx, log, storage, store)
	}

	if cfg.Consensus.IsAuthority {
		go consensus.Run(ctx, signer)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	_ = node.Close()
	_ = srv.Close()
	if storage != nil {
		if err := storage.Save(store); err != nil {
			log.WithError(err).Error("final save failed")
		}
	}
	return nil
}

// backupLoop periodically snapshots the data directory per spec.md
// §4.8's Backup rule, independent of the explicit final Save on
// shutdown.
func backupLoop(ctx context.Context, log *logrus.Logger, storage *core.Storage, store *core.Store) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := storage.BackupResult(time.Now())
			if err != nil {
				log.WithError(err).Error("periodic backup failed")
				continue
			}
			log.WithField("path", result.Path).Info("periodic backup complete")
		}
	}
}
