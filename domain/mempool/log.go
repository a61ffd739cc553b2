package mempool

import "github.com/chia-network/mempool-core/logger"

var log, _ = logger.Get(logger.SubsystemTags.MPOL)
