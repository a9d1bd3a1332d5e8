package main

import (
	"github.com/xdagger/xdagd/infrastructure/logger"
	"github.com/xdagger/xdagd/util/panics"
)

var log = logger.RegisterSubSystem(logger.SubsystemTags.XDGD)
var spawn = panics.GoroutineWrapperFunc(log)
