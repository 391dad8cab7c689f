// Package session implements ProxySession, the per-client state machine
// that consumes bytes from a client Connection, feeds the request
// HttpParser, opens or reuses the upstream Connection, performs
// authentication, writes the rewritten request or the tunnel-established
// response, and then shuttles data — per spec.md §4.5.
package session

import (
	"net"
	"strconv"
	"strings"

	"github.com/ryanbekhen/proxyd/internal/plugin"
	"github.com/ryanbekhen/proxyd/internal/wire"
)

// Mode is the session-level relay mode, set once upstream is established.
type Mode uint8

const (
	// ModeHTTP rewrites and relays one request/response pair at a time.
	ModeHTTP Mode = iota
	// ModeTunnel opaquely shuttles bytes in both directions, entered after
	// a successful CONNECT.
	ModeTunnel
)

// tunnelEstablished is the literal response bytes written to the client
// once a CONNECT tunnel is up, per spec.md §6.
var tunnelEstablished = []byte("HTTP/1.1 200 Connection established\r\n\r\n")

// Dialer opens a TCP connection to host:port. Production code uses
// net.Dial; tests substitute a function that dials a loopback listener or
// returns an error to exercise ProxyConnectionFailed.
type Dialer func(host string, port int) (net.Conn, error)

// NetDialer is the production Dialer, a thin synchronous net.Dial wrapper.
// internal/netio runs it on a bounded goroutine pool, which caps concurrent
// dials; the event-loop goroutine still waits for the result.
func NetDialer(host string, port int) (net.Conn, error) {
	return net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// ProxySession is the per-client state machine described by spec.md §4.5.
type ProxySession struct {
	Client *Connection
	Server *Connection

	Request  *wire.HttpParser
	Response *wire.HttpParser

	Mode Mode

	expectedCredential string // exact Proxy-Authorization header value, or "" to disable auth
	dial               Dialer
	plugins            plugin.Chain

	requestForwarded bool // whether the current request's rewritten bytes were already queued
}

// New constructs a ProxySession around an already-accepted client
// Connection. expectedCredential is the exact octets expected in the
// Proxy-Authorization header value (e.g. "Basic dXNlcjpwYXNz"); pass "" to
// disable proxy authentication. maxHeaderBytes caps both parsers'
// accumulated header block (Config.MaxHeaderBytes); 0 uses the parser's
// own default.
func New(client *Connection, expectedCredential string, dial Dialer, plugins plugin.Chain, maxHeaderBytes int) *ProxySession {
	if dial == nil {
		dial = NetDialer
	}
	return &ProxySession{
		Client:             client,
		Request:            wire.NewHttpParserWithMaxHeaderBytes(wire.RequestParser, maxHeaderBytes),
		Response:           wire.NewHttpParserWithMaxHeaderBytes(wire.ResponseParser, maxHeaderBytes),
		expectedCredential: expectedCredential,
		dial:               dial,
		plugins:            plugins,
	}
}

// OnClientReadable handles bytes newly available from the client.
func (s *ProxySession) OnClientReadable(data []byte) error {
	return s.processRequest(data)
}

// OnServerReadable handles bytes newly available from the upstream
// connection: parsed-and-observed in HTTP mode, or relayed verbatim in
// tunnel mode.
func (s *ProxySession) OnServerReadable(data []byte) error {
	if s.Mode == ModeTunnel {
		s.plugins.OnUpstreamResponseChunk(data)
		s.Client.Queue(data)
		return nil
	}
	return s.processResponse(data)
}

// processRequest is _process_request from spec.md §4.5.
func (s *ProxySession) processRequest(data []byte) error {
	if s.Mode == ModeTunnel {
		s.Server.Queue(data)
		return nil
	}

	if err := s.Request.Parse(data); err != nil {
		return ErrHttpParse(err)
	}

	if s.Request.State >= wire.LineReceived && s.Server == nil {
		if err := s.establishUpstream(); err != nil {
			return err
		}
	}

	if s.Server == nil {
		return nil
	}

	if strings.EqualFold(s.Request.Method, "CONNECT") {
		if !s.requestForwarded {
			s.Client.Queue(tunnelEstablished)
			s.Mode = ModeTunnel
			s.requestForwarded = true
		}
		return nil
	}

	if s.Request.State == wire.Complete && !s.requestForwarded {
		s.forwardRewrittenRequest()
		s.requestForwarded = true
	}
	return nil
}

// establishUpstream performs authentication, derives the dial address, and
// connects — steps 3a-3d of spec.md §4.5.
func (s *ProxySession) establishUpstream() error {
	if s.expectedCredential != "" {
		value, _, ok := s.Request.Headers.Get("Proxy-Authorization")
		if !ok || value != s.expectedCredential {
			return ErrProxyAuthenticationFailed()
		}
	}

	host, port, err := s.dialTarget()
	if err != nil {
		return ErrProxyConnectionFailed(err)
	}

	if err := s.plugins.BeforeUpstreamConnect(host, port); err != nil {
		return ErrProxyConnectionFailed(err)
	}

	conn, err := s.dial(host, port)
	if err != nil {
		return ErrProxyConnectionFailed(err)
	}

	s.Server = NewConnection(conn, Addr{Host: host, Port: port})
	return nil
}

// dialTarget derives (host, port) per spec.md §4.5 step 3b: for CONNECT,
// from the authority-form URL; otherwise from url.hostname/Host header and
// url.port/explicit port in Host/default 80.
func (s *ProxySession) dialTarget() (string, int, error) {
	if strings.EqualFold(s.Request.Method, "CONNECT") {
		if s.Request.URL.Port == 0 {
			return "", 0, ErrMissingPort
		}
		return s.Request.URL.Hostname, s.Request.URL.Port, nil
	}

	host := s.Request.URL.Hostname
	port := s.Request.URL.Port
	if host == "" {
		if hv, _, ok := s.Request.Headers.Get("Host"); ok {
			host, port = splitHostHeader(hv)
		}
	}
	if port == 0 {
		port = 80
	}
	if host == "" {
		return "", 0, ErrMissingHost
	}
	return host, port, nil
}

func splitHostHeader(hostHeader string) (host string, port int) {
	h, p, err := net.SplitHostPort(hostHeader)
	if err != nil {
		return hostHeader, 0
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return h, 0
	}
	return h, n
}

// forwardRewrittenRequest rewrites the completed request to origin-form and
// queues it upstream, per spec.md §4.5 step 4.
func (s *ProxySession) forwardRewrittenRequest() {
	hostHeader := s.Server.Addr.String()
	rewritten := s.Request.Build(
		[]string{"Host", "Proxy-Authorization", "Proxy-Connection"},
		[][2]string{{"Host", hostHeader}},
	)
	s.Server.Queue(rewritten)
}

// processResponse is _process_response from spec.md §4.5.
func (s *ProxySession) processResponse(data []byte) error {
	if err := s.Response.Parse(data); err != nil {
		return ErrHttpParse(err)
	}
	s.plugins.OnUpstreamResponseChunk(data)
	s.Client.Queue(data)
	return nil
}

// FinishResponseOnEOF promotes a response parser stuck at HeadersComplete
// (no Content-Length, no chunked framing) to Complete once the caller has
// observed upstream EOF — spec.md §9's "caller, not parser, observes EOF".
func (s *ProxySession) FinishResponseOnEOF() {
	s.Response.Finish()
}

// Close tears down both connections and notifies the plugin chain.
func (s *ProxySession) Close() {
	if s.Client != nil {
		_ = s.Client.Close()
	}
	if s.Server != nil {
		_ = s.Server.Close()
		s.plugins.OnUpstreamConnectionClose()
	}
}
