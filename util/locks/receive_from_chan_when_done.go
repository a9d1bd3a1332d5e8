package locks

import (
	"github.com/xdagger/xdagd/infrastructure/logger"
	"github.com/xdagger/xdagd/util/panics"
)

var spawn = panics.GoroutineWrapperFunc(logger.RegisterSubSystem(logger.SubsystemTags.UTIL))

// ReceiveFromChanWhenDone takes a blocking function and returns a channel
// that sends an empty struct when the function is done.
func ReceiveFromChanWhenDone(callback func()) <-chan struct{} {
	ch := make(chan struct{})
	spawn(func() {
		callback()
		close(ch)
	})
	return ch
}
