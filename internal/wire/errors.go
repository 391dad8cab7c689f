package wire

import "errors"

// ErrMalformedRequestTarget is returned when a request-line target is
// neither valid absolute-form, origin-form, nor (for CONNECT) authority-form.
var ErrMalformedRequestTarget = errors.New("wire: malformed request target")

// ErrMalformedFirstLine is returned when a request or status line doesn't
// split into the expected space-separated tokens.
var ErrMalformedFirstLine = errors.New("wire: malformed first line")

// ErrMalformedHeaderLine is returned when a header line lacks a colon.
var ErrMalformedHeaderLine = errors.New("wire: malformed header line")

// ErrInvalidChunkSize is returned when a chunk size line fails to parse as
// hexadecimal, or carries a chunk extension (";"), which this parser does
// not support (spec.md §4.2).
var ErrInvalidChunkSize = errors.New("wire: invalid chunk size")

// ErrHeaderTooLarge is returned when the accumulated header block exceeds
// the parser's configured cap, guarding against unbounded memory growth
// from a peer that never terminates its headers.
var ErrHeaderTooLarge = errors.New("wire: header block too large")
