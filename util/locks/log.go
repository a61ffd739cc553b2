package locks

import (
	"github.com/chia-network/mempool-core/logger"
	"github.com/chia-network/mempool-core/util/panics"
)

var log, _ = logger.Get(logger.SubsystemTags.UTIL)
var spawn = panics.GoroutineWrapperFunc(log)
