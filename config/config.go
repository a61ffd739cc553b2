// Package config parses the process-level command-line flags for a mempool
// core embedding process: where to write logs, how verbose to be, and the
// policy tunables the mempool manager is constructed with.
package config

import (
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/chia-network/mempool-core/coinstore"
	"github.com/chia-network/mempool-core/domain/mempool"
	"github.com/chia-network/mempool-core/logger"
)

const (
	defaultLogFilename    = "mempoolcore.log"
	defaultErrLogFilename = "mempoolcore_err.log"
	defaultLogLevel       = "info"
)

var (
	defaultHomeDir    = filepath.Join(".", "data", "mempoolcore")
	defaultLogDir     = filepath.Join(defaultHomeDir, "logs")
	defaultLogFile    = filepath.Join(defaultLogDir, defaultLogFilename)
	defaultErrLogFile = filepath.Join(defaultLogDir, defaultErrLogFilename)
)

// Config holds every flag the embedding process accepts.
type Config struct {
	LogDir   string `long:"logdir" description:"Directory to log output"`
	LogLevel string `long:"loglevel" description:"Logging level: trace, debug, info, warn, error, critical"`

	MaxBlockCost        uint64  `long:"maxblockcost" description:"Maximum CLVM cost a block's transactions may sum to"`
	LimitFactor         float64 `long:"limitfactor" description:"Fraction of maxblockcost a single bundle or constructed block may use"`
	MempoolBlockBuffer  uint64  `long:"mempoolblockbuffer" description:"Multiple of maxblockcost the pool holds in total"`
	MinFeeIncrease      uint64  `long:"minfeeincrease" description:"Minimum absolute fee increase, in mojo, a replacement must clear"`
	WorkerPoolSize      int     `long:"workers" description:"Number of pre-validation worker goroutines"`
	SeenCacheSize       int     `long:"seencachesize" description:"Size of the recently-seen bundle id de-duplication cache"`
	PendingCacheMaxCost uint64  `long:"pendingcachemaxcost" description:"Maximum cumulative CLVM cost held in the pending retry cache"`

	CoinDBPath string `long:"coindbpath" description:"LevelDB directory backing the coin store; empty keeps the coin set in memory"`
}

// defaultConfig returns a Config seeded with the package's defaults, the
// policy numbers mirroring mempool.DefaultPolicy.
func defaultConfig() *Config {
	policy := mempool.DefaultPolicy()
	return &Config{
		LogDir:              defaultLogDir,
		LogLevel:            defaultLogLevel,
		MaxBlockCost:        policy.MaxBlockCost,
		LimitFactor:         policy.LimitFactor,
		MempoolBlockBuffer:  policy.MempoolBlockBuffer,
		MinFeeIncrease:      policy.MinFeeIncrease,
		WorkerPoolSize:      policy.WorkerPoolSize,
		SeenCacheSize:       policy.SeenCacheSize,
		PendingCacheMaxCost: policy.PendingCacheMaxCost,
		CoinDBPath:          "",
	}
}

// Parse parses os.Args, initializes the logging rotators, and returns the
// resulting Config.
func Parse() (*Config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
	errLogFile := filepath.Join(cfg.LogDir, defaultErrLogFilename)
	if cfg.LogDir == defaultLogDir {
		logFile = defaultLogFile
		errLogFile = defaultErrLogFile
	}
	logger.InitLogRotators(logFile, errLogFile)
	logger.SetLogLevels(cfg.LogLevel)

	return cfg, nil
}

// Policy builds a mempool.Policy from the parsed flags, starting from
// mempool.DefaultPolicy for every tunable this Config doesn't expose
// directly.
func (c *Config) Policy() mempool.Policy {
	policy := mempool.DefaultPolicy()
	policy.MaxBlockCost = c.MaxBlockCost
	policy.LimitFactor = c.LimitFactor
	policy.MempoolBlockBuffer = c.MempoolBlockBuffer
	policy.MinFeeIncrease = c.MinFeeIncrease
	policy.WorkerPoolSize = c.WorkerPoolSize
	policy.SeenCacheSize = c.SeenCacheSize
	policy.PendingCacheMaxCost = c.PendingCacheMaxCost
	return policy
}

// CoinStore builds the coin store backing this configuration: a LevelDB
// database at CoinDBPath, or an in-memory store when CoinDBPath is empty.
func (c *Config) CoinStore() (coinstore.Store, func() error, error) {
	if c.CoinDBPath == "" {
		return coinstore.NewMemStore(), func() error { return nil }, nil
	}
	store, err := coinstore.OpenLevelDBStore(c.CoinDBPath)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}
