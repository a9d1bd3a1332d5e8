package ldb

import (
	"github.com/xdagger/xdagd/infrastructure/logger"
)

var log = logger.RegisterSubSystem(logger.SubsystemTags.BCDB)
