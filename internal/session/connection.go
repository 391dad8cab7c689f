package session

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/ryanbekhen/proxyd/internal/pool"
	"github.com/ryanbekhen/proxyd/internal/wire"
)

// recvScratch pools the byte slices Connection.Recv reads into, the way
// bytebufferpool is meant to be used — whole buffers checked out and
// returned, not a consume-from-front queue (that's what wire.ByteBuffer is
// for, and it is deliberately not built on this pool; see DESIGN.md).
var recvScratch bytebufferpool.Pool

// outBufPool recycles the outbound wire.ByteBuffer across Connection
// lifetimes: a session opens and closes one per client and one per
// upstream dial, so reusing the backing array avoids re-allocating the
// 4KiB buffer on every new connection.
var outBufPool = pool.New(func() *wire.ByteBuffer { return wire.NewByteBuffer(4096) })

// Addr is a parsed (hostname, port) pair, used both for a Connection's own
// address and for the dial target a ProxySession derives from a request.
type Addr struct {
	Host string
	Port int
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Connection is a thin adapter around a stream socket exposing
// receive/queue/flush with an outbound ByteBuffer, per spec.md §4.4.
type Connection struct {
	sock net.Conn
	Addr Addr
	out  *wire.ByteBuffer
}

// NewConnection wraps sock. addr is the peer's (or upstream target's)
// logical address, used for logging and routing — not necessarily
// sock.RemoteAddr() (a dialed upstream's addr is the original request's
// derived host:port, which may differ after DNS).
func NewConnection(sock net.Conn, addr Addr) *Connection {
	return &Connection{
		sock: sock,
		Addr: addr,
		out:  outBufPool.Get(),
	}
}

// Recv reads up to n bytes (default 8192 when n <= 0). A clean EOF returns
// a nil slice and a nil error, matching spec.md §4.4's "returns empty on
// clean EOF, raises on error" contract.
func (c *Connection) Recv(n int) ([]byte, error) {
	if n <= 0 {
		n = 8192
	}
	buf := recvScratch.Get()
	defer recvScratch.Put(buf)
	buf.B = buf.B[:0]
	if cap(buf.B) < n {
		buf.B = make([]byte, n)
	} else {
		buf.B = buf.B[:n]
	}

	read, err := c.sock.Read(buf.B)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, nil
		}
		if isEOF(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]byte, read)
	copy(out, buf.B[:read])
	return out, nil
}

func isEOF(err error) bool {
	return err != nil && strings.Contains(err.Error(), "EOF")
}

// Queue appends data to the outbound buffer.
func (c *Connection) Queue(data []byte) {
	c.out.Append(data)
}

// Flush writes as much of the outbound buffer as the socket accepts,
// retaining the rest for a later Flush.
func (c *Connection) Flush() error {
	_, err := c.out.Flush(c.sock)
	return err
}

// BufferSize returns the number of unflushed outbound bytes.
func (c *Connection) BufferSize() int {
	return c.out.Size()
}

// Drain consumes and returns every queued outbound byte without touching the
// socket. internal/netio uses this for the client side of a gnet-driven
// session: gnet.Conn.Write is only safe to call from the event loop
// goroutine, so the upstream-relay goroutine drains the queue here and hands
// the bytes to Conn.AsyncWrite instead of calling Flush directly.
func (c *Connection) Drain() []byte {
	return c.out.Consume(c.out.Size())
}

// Close closes the underlying socket and returns the outbound buffer to
// the pool. The Connection must not be used afterward.
func (c *Connection) Close() error {
	c.out.Reset()
	outBufPool.Put(c.out)
	return c.sock.Close()
}
