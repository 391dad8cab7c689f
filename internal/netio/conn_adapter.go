package netio

import (
	"net"
	"time"

	"github.com/panjf2000/gnet/v2"
)

// gnetConnAdapter makes a gnet.Conn satisfy net.Conn, so a client
// session.Connection can wrap it the same way it wraps a dialed upstream
// socket. gnet's event loop already manages readiness and buffering
// internally, so the deadline methods are no-ops. The engine-level
// IdleTimeout is wired only as gnet.WithTCPKeepAlive's period, which detects
// dead peers; nothing closes an idle connection whose peer is still alive.
type gnetConnAdapter struct {
	c gnet.Conn
}

func (a *gnetConnAdapter) Read(b []byte) (int, error)  { return a.c.Read(b) }
func (a *gnetConnAdapter) Write(b []byte) (int, error)  { return a.c.Write(b) }
func (a *gnetConnAdapter) Close() error                 { return a.c.Close() }
func (a *gnetConnAdapter) LocalAddr() net.Addr          { return a.c.LocalAddr() }
func (a *gnetConnAdapter) RemoteAddr() net.Addr         { return a.c.RemoteAddr() }
func (a *gnetConnAdapter) SetDeadline(time.Time) error  { return nil }
func (a *gnetConnAdapter) SetReadDeadline(time.Time) error  { return nil }
func (a *gnetConnAdapter) SetWriteDeadline(time.Time) error { return nil }
