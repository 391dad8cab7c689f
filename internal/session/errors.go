package session

import (
	"errors"
	"fmt"
)

// ErrMissingHost is returned when a plain HTTP request carries neither an
// absolute-form URL hostname nor a Host header to derive the dial target
// from.
var ErrMissingHost = errors.New("session: request has no derivable host")

// ErrMissingPort is returned when a CONNECT request's authority-form
// target carries no port.
var ErrMissingPort = errors.New("session: CONNECT target has no port")

// SessionError is the shape every session-level error takes: an HTTP status
// code the session should emit to the client (0 means "close without
// response"), a short message, and the underlying cause if any.
type SessionError struct {
	Code    int
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// ResponseBytes returns the literal wire bytes the session must write to
// the client before closing, or nil if the connection should simply be
// dropped (spec.md §6's "other parse errors close the connection without
// response").
func (e *SessionError) ResponseBytes() []byte {
	switch e.Code {
	case 407:
		return []byte("HTTP/1.1 407 Proxy Authentication Required\r\nProxy-Authenticate: Basic\r\n\r\n")
	case 502:
		return []byte("HTTP/1.1 502 Bad Gateway\r\n\r\n")
	default:
		return nil
	}
}

// ErrProxyAuthenticationFailed is raised when an expected credential is
// configured and the request's Proxy-Authorization header is absent or
// doesn't byte-compare equal to it. The session responds 407 and closes.
func ErrProxyAuthenticationFailed() *SessionError {
	return &SessionError{Code: 407, Message: "proxy authentication required"}
}

// ErrProxyConnectionFailed is raised when the upstream dial fails. The
// session responds 502 and closes.
func ErrProxyConnectionFailed(err error) *SessionError {
	return &SessionError{Code: 502, Message: "proxy connection failed", Err: err}
}

// ErrHttpParse wraps a wire parse error. The session closes without any
// response — there is no well-formed way to reply to a peer whose framing
// can't be trusted.
func ErrHttpParse(err error) *SessionError {
	return &SessionError{Code: 0, Message: "http parse error", Err: err}
}
