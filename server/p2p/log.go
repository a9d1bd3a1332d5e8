package p2p

import (
	"github.com/xdagger/xdagd/infrastructure/logger"
	"github.com/xdagger/xdagd/util/panics"
)

var log = logger.RegisterSubSystem(logger.SubsystemTags.SRVR)
var spawn = panics.GoroutineWrapperFunc(log)
