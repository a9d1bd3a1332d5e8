package signal

import (
	"github.com/xdagger/xdagd/infrastructure/logger"
)

var log = logger.RegisterSubSystem(logger.SubsystemTags.XDGD)
