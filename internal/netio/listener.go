// Package netio wires ProxySession to a gnet event loop, the way
// server.go's httpServer wires the router to one. OnTraffic drains
// gnet's internal buffer via Peek/Discard instead of a blocking Read,
// matching gnet's non-blocking model; OnOpen rejects a connection by
// source IP before any byte is interpreted, per SPEC_FULL.md §4.9.
package netio

import (
	"encoding/base64"
	"net"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/panjf2000/gnet/v2"

	"github.com/ryanbekhen/proxyd/internal/config"
	"github.com/ryanbekhen/proxyd/internal/plog"
	"github.com/ryanbekhen/proxyd/internal/plugin"
	"github.com/ryanbekhen/proxyd/internal/ratelimit"
	"github.com/ryanbekhen/proxyd/internal/session"
)

// sessionCtx is what OnOpen stashes in a gnet.Conn's Context: the session
// itself, plus the relay-goroutine started-once guard. A gnet.Conn is only
// ever touched by one event loop goroutine at a time for OnOpen/OnTraffic/
// OnClose, but the upstream relay goroutine below reaches into the
// connection concurrently via AsyncWrite/Close, which gnet guarantees are
// safe to call from any goroutine.
type sessionCtx struct {
	sess    *session.ProxySession
	relayed bool
}

// Listener runs a ProxySession per accepted connection on a gnet event
// loop, grounded on server.go's httpServer.
type Listener struct {
	gnet.BuiltinEventEngine

	cfg        config.Config
	cred       string
	limiter    *ratelimit.Limiter
	dialPool   *ants.Pool
	newPlugins func() plugin.Chain
	eng        gnet.Engine
}

// NewListener builds a Listener from cfg. newPlugins is called once per
// accepted connection to produce that session's interceptor chain (a
// factory, not a shared value, since plugin.AccessLog carries per-session
// state); pass nil for no interceptors.
func NewListener(cfg config.Config, newPlugins func() plugin.Chain) (*Listener, error) {
	pool, err := ants.NewPool(256, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	if newPlugins == nil {
		newPlugins = func() plugin.Chain { return nil }
	}

	var cred string
	if cfg.BasicAuthConfigured() {
		raw := cfg.BasicAuthUser + ":" + cfg.BasicAuthPass
		cred = "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	}

	return &Listener{
		cfg:        cfg,
		cred:       cred,
		limiter:    ratelimit.New(ratelimit.Config{ConnectionsPerSecond: cfg.RateLimit, Burst: cfg.RateLimitBurst, ExpiresIn: ratelimit.DefaultConfig().ExpiresIn}),
		dialPool:   pool,
		newPlugins: newPlugins,
	}, nil
}

// Run starts the event engine, blocking until Shutdown or a fatal error.
func (l *Listener) Run(addr string) error {
	if !l.cfg.DisableStartupMessage {
		plog.Listener("listening on " + addr)
	}
	return gnet.Run(
		l,
		"tcp://"+addr,
		gnet.WithMulticore(true),
		gnet.WithReuseAddr(true),
		gnet.WithReusePort(true),
		gnet.WithTCPNoDelay(gnet.TCPNoDelay),
		gnet.WithTCPKeepAlive(l.cfg.IdleTimeout),
	)
}

func (l *Listener) OnBoot(eng gnet.Engine) gnet.Action {
	l.eng = eng
	return gnet.None
}

func (l *Listener) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	ip, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil {
		ip = c.RemoteAddr().String()
	}
	if !l.limiter.Allow(ip) {
		plog.Session(ip, "rejected: rate limit exceeded")
		return nil, gnet.Close
	}

	addr := session.Addr{Host: ip}
	client := session.NewConnection(&gnetConnAdapter{c: c}, addr)
	sess := session.New(client, l.cred, l.makeDialer(c), l.newPlugins(), l.cfg.MaxHeaderBytes)
	c.SetContext(&sessionCtx{sess: sess})
	return nil, gnet.None
}

func (l *Listener) OnTraffic(c gnet.Conn) gnet.Action {
	sc := c.Context().(*sessionCtx)

	// Backpressure (spec.md §5): if the upstream can't keep up, the bytes
	// queued to send it pile up in Server's outbound buffer rather than the
	// socket. Stop pulling more bytes off the client until that drains
	// below the cap, instead of growing it without bound.
	if sc.sess.Server != nil && sc.sess.Server.BufferSize() > l.cfg.MaxPendingWriteBytes {
		return gnet.None
	}

	buf, _ := c.Peek(-1)
	n := len(buf)
	if n == 0 {
		return gnet.None
	}

	if err := sc.sess.OnClientReadable(buf); err != nil {
		c.Discard(n)
		return l.fail(c, sc, err)
	}
	c.Discard(n)

	if sc.sess.Server != nil {
		if err := sc.sess.Server.Flush(); err != nil {
			return l.fail(c, sc, session.ErrProxyConnectionFailed(err))
		}
	}

	if sc.sess.Server != nil && !sc.relayed {
		sc.relayed = true
		go l.relayUpstream(c, sc.sess)
	}

	if out := sc.sess.Client.Drain(); len(out) > 0 {
		c.Write(out)
	}
	return gnet.None
}

func (l *Listener) OnClose(c gnet.Conn, err error) gnet.Action {
	if sc, ok := c.Context().(*sessionCtx); ok && sc != nil {
		sc.sess.Close()
	}
	return gnet.None
}

// fail writes a SessionError's literal response (if any) and closes, per
// spec.md §6/§7.
func (l *Listener) fail(c gnet.Conn, sc *sessionCtx, err error) gnet.Action {
	if serr, ok := err.(*session.SessionError); ok {
		if resp := serr.ResponseBytes(); resp != nil {
			c.Write(resp)
		}
		plog.SessionErr(c.RemoteAddr().String(), "session error", serr)
	} else {
		plog.SessionErr(c.RemoteAddr().String(), "unexpected error", err)
	}
	return gnet.Close
}

// relayUpstream pumps bytes from the upstream connection to the client for
// the lifetime of one session. It runs off the event loop goroutine — a
// real net.Conn has no non-blocking Peek/Discard equivalent — and only
// ever touches the gnet.Conn through AsyncWrite/Close, both safe to call
// from any goroutine per gnet's contract.
func (l *Listener) relayUpstream(c gnet.Conn, sess *session.ProxySession) {
	for {
		// Symmetric backpressure for the other direction: in practice
		// Client's buffer is fully drained every iteration below, so this
		// rarely engages, but it keeps the rule intact if a slow client
		// ever causes Drain to fall behind AsyncWrite.
		if sess.Client.BufferSize() > l.cfg.MaxPendingWriteBytes {
			time.Sleep(time.Millisecond)
			continue
		}

		data, err := sess.Server.Recv(0)
		if err != nil {
			_ = c.Close()
			return
		}
		if data == nil {
			sess.FinishResponseOnEOF()
			_ = c.Close()
			return
		}
		if perr := sess.OnServerReadable(data); perr != nil {
			_ = c.Close()
			return
		}
		if out := sess.Client.Drain(); len(out) > 0 {
			_ = c.AsyncWrite(out, nil)
		}
	}
}

// makeDialer returns a session.Dialer that runs the blocking net.Dial on
// l.dialPool, bounding total concurrent in-flight dials across the engine
// via ants the way middleware/ratelimit bounds request rates — a CONNECT
// flood cannot spawn unbounded goroutines. It does NOT make the dial
// non-blocking from the caller's point of view: ProxySession.processRequest
// calls establishUpstream synchronously from OnClientReadable, which
// OnTraffic calls directly, so the `<-done` receive below blocks the gnet
// event-loop goroutine itself for the dial's duration, same as the
// Server.Flush() call OnTraffic makes afterward. A genuinely non-blocking
// dial would need gnet.Conn.Wake to resume OnTraffic once done fires,
// deferring processRequest's continuation to a later callback; that
// restructuring was not attempted here (see DESIGN.md) because the
// straight-line ProxySession.processRequest call chain isn't shaped for it
// and getting the resume-ordering right without running the code was
// judged too risky. One loop's worth of concurrent CONNECTs/dials/upstream
// writes therefore serializes on whichever goroutine they land on; only
// the goroutine count is bounded, not the blocking.
func (l *Listener) makeDialer(c gnet.Conn) session.Dialer {
	return func(host string, port int) (net.Conn, error) {
		type result struct {
			conn net.Conn
			err  error
		}
		done := make(chan result, 1)
		submitErr := l.dialPool.Submit(func() {
			conn, err := session.NetDialer(host, port)
			done <- result{conn, err}
		})
		if submitErr != nil {
			return nil, submitErr
		}
		res := <-done
		return res.conn, res.err
	}
}
