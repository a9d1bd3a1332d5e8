package peer

import (
	"github.com/xdagger/xdagd/infrastructure/logger"
	"github.com/xdagger/xdagd/util/panics"
)

var log = logger.RegisterSubSystem(logger.SubsystemTags.PEER)
var spawn = panics.GoroutineWrapperFunc(log)
