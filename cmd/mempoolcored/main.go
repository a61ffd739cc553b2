// Command mempoolcored is a minimal standalone host for the mempool core:
// it parses the process configuration, opens the configured coin store, and
// keeps a Manager running so its exported methods can be driven over
// whatever transport an embedding deployment wires up (RPC, in-process call,
// etc. — left to the embedder per the library's external-interfaces design).
//
// The script runner used here is a pass-through placeholder: it reports
// every spend as zero-cost with no conditions beyond its own coin id,
// never a real CLVM evaluation. A production deployment replaces it with a
// genuine validate.ScriptRunner backed by a CLVM interpreter; this binary
// exists to exercise config parsing and Manager wiring end to end, the way
// the teacher's mining/simulator is a harness rather than a production peer.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chia-network/mempool-core/config"
	"github.com/chia-network/mempool-core/coins"
	"github.com/chia-network/mempool-core/domain/mempool"
	"github.com/chia-network/mempool-core/logger"
	"github.com/chia-network/mempool-core/util/panics"
	"github.com/chia-network/mempool-core/validate"
)

var log, _ = logger.Get(logger.SubsystemTags.MPOL)

// passThroughScriptRunner reports zero-cost, condition-free spends. It is
// not a CLVM interpreter; it exists only so this binary can construct a
// Manager without requiring the embedding process's real script runner.
type passThroughScriptRunner struct{}

func (passThroughScriptRunner) Run(spend coins.CoinSpend, _ uint64) (uint64, coins.SpendConditions, error) {
	return 0, coins.SpendConditions{CoinID: spend.Coin.ID()}, nil
}

func main() {
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error parsing command-line arguments: %s\n", err)
		os.Exit(1)
	}

	coinStore, closeStore, err := cfg.CoinStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening coin store: %s\n", err)
		os.Exit(1)
	}
	defer closeStore()

	manager := mempool.New(mempool.Config{
		Policy:         cfg.Policy(),
		CoinStore:      coinStore,
		ScriptRunner:   passThroughScriptRunner{},
		SignatureCache: validate.NewSignatureCache(),
	})
	defer manager.Close()

	log.Infof("mempoolcored started (coindbpath=%q)", cfg.CoinDBPath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	spawn := panics.GoroutineWrapperFunc(log)
	spawn(func() {
		<-sigCh
		log.Infof("shutting down")
		manager.Close()
		os.Exit(0)
	})

	select {}
}
