package peer

import (
	"bufio"
	"net"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/wire"
)

// connTransport adapts a net.Conn to the Transport interface with a
// buffered writer, so that one tick's worth of messages reaches the
// kernel in a single flush.
type connTransport struct {
	conn   net.Conn
	writer *bufio.Writer
}

func newConnTransport(conn net.Conn) *connTransport {
	return &connTransport{
		conn:   conn,
		writer: bufio.NewWriter(conn),
	}
}

func (t *connTransport) WriteMessage(msg wire.Message) error {
	return wire.WriteMessage(t.writer, msg)
}

func (t *connTransport) Flush() error {
	return errors.WithStack(t.writer.Flush())
}

func (t *connTransport) Close() error {
	return errors.WithStack(t.conn.Close())
}
