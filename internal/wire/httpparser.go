package wire

import (
	"bytes"
	"strconv"
	"strings"
)

// ParserKind selects whether an HttpParser decodes a request (method, target,
// version) or a response (version, status code, reason) first line.
type ParserKind uint8

const (
	RequestParser ParserKind = iota
	ResponseParser
)

// ParserState is the HttpParser's lifecycle, per spec.md §3 and §4.3.
type ParserState uint8

const (
	Initialized ParserState = iota
	LineReceived
	RcvingHeaders
	HeadersComplete
	RcvingBody
	Complete
)

func (s ParserState) String() string {
	switch s {
	case Initialized:
		return "INITIALIZED"
	case LineReceived:
		return "LINE_RCVD"
	case RcvingHeaders:
		return "RCVING_HEADERS"
	case HeadersComplete:
		return "HEADERS_COMPLETE"
	case RcvingBody:
		return "RCVING_BODY"
	case Complete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// bodyKind classifies how (or whether) HttpParser should read a message body
// once its headers are complete.
type bodyKind uint8

const (
	bodyNone bodyKind = iota
	bodyContentLength
	bodyChunked
	bodyUnknown // response with neither content-length nor chunked framing
)

// HttpParser incrementally decodes an HTTP/1.x request or status line,
// headers and body across arbitrarily fragmented Parse calls. It never
// blocks or reads from a socket itself; callers feed it bytes as they
// arrive.
type HttpParser struct {
	Kind    ParserKind
	State   ParserState
	Method  string
	URL     ParsedURL
	Version string
	Code    string
	Reason  string
	Headers *Headers
	Body    []byte

	// Buffer is the unconsumed residue retained between Parse calls — a
	// partial line, or whatever arrived after the last complete line the
	// parser could extract.
	Buffer []byte

	chunk            *ChunkParser
	contentRemaining int // -1 once unknown/consumed; valid only during RcvingBody with bodyContentLength

	maxHeaderBytes int
}

// defaultMaxHeaderBytes is used by NewHttpParser; callers that need a
// different cap (e.g. session.New, threading through Config.MaxHeaderBytes)
// use NewHttpParserWithMaxHeaderBytes instead.
const defaultMaxHeaderBytes = 64 * 1024

// NewHttpParser returns an empty HttpParser of the given kind, with the
// default 64KiB header cap.
func NewHttpParser(kind ParserKind) *HttpParser {
	return NewHttpParserWithMaxHeaderBytes(kind, defaultMaxHeaderBytes)
}

// NewHttpParserWithMaxHeaderBytes returns an empty HttpParser of the given
// kind whose accumulated header block may not exceed maxHeaderBytes before
// Parse fails with ErrHeaderTooLarge. maxHeaderBytes <= 0 falls back to the
// default.
func NewHttpParserWithMaxHeaderBytes(kind ParserKind, maxHeaderBytes int) *HttpParser {
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = defaultMaxHeaderBytes
	}
	return &HttpParser{
		Kind:             kind,
		State:            Initialized,
		Headers:          NewHeaders(),
		contentRemaining: -1,
		maxHeaderBytes:   maxHeaderBytes,
	}
}

// Parse feeds input into the parser, advancing through as many states as
// the accumulated buffer allows. Residue that doesn't yet form a complete
// line, header, or body chunk is retained in p.Buffer for the next call.
func (p *HttpParser) Parse(input []byte) error {
	if p.State == Complete {
		return nil
	}

	working := append(p.Buffer, input...)
	p.Buffer = nil

	for {
		switch p.State {
		case Initialized:
			idx := bytes.Index(working, crlf)
			if idx == -1 {
				p.Buffer = working
				return nil
			}
			line := working[:idx]
			working = working[idx+2:]
			if err := p.parseFirstLine(line); err != nil {
				return err
			}
			p.State = LineReceived

		case LineReceived:
			// The first line extracted after LineReceived always promotes to
			// RcvingHeaders, whether or not that line turns out to be blank;
			// only a blank line seen while genuinely in RcvingHeaders ends
			// the header block.
			idx := bytes.Index(working, crlf)
			if idx == -1 {
				p.Buffer = working
				return nil
			}
			line := working[:idx]
			working = working[idx+2:]
			p.State = RcvingHeaders
			if len(line) > 0 {
				if err := p.recordHeaderLine(line); err != nil {
					return err
				}
			}

		case RcvingHeaders:
			idx := bytes.Index(working, crlf)
			if idx == -1 {
				p.Buffer = working
				if p.headerBytes() > p.maxHeaderBytes {
					return ErrHeaderTooLarge
				}
				return nil
			}
			line := working[:idx]
			working = working[idx+2:]
			if len(line) == 0 {
				p.State = HeadersComplete
				continue
			}
			if err := p.recordHeaderLine(line); err != nil {
				return err
			}

		case HeadersComplete:
			kind, length := p.classifyBody()
			switch kind {
			case bodyNone:
				p.State = Complete
				continue
			case bodyUnknown:
				// Response with no length information of any kind; only
				// Finish (driven by upstream EOF) can complete this.
				p.Buffer = working
				return nil
			}
			if len(working) == 0 {
				// Headers say a body is coming but no bytes are available
				// yet; don't advance further until some arrive.
				p.Buffer = working
				return nil
			}
			if kind == bodyContentLength {
				p.contentRemaining = length
				p.State = RcvingBody
				continue
			}
			// bodyChunked
			p.chunk = NewChunkParser()
			p.State = RcvingBody
			continue

		case RcvingBody:
			if p.chunk != nil {
				if err := p.chunk.Parse(working); err != nil {
					return err
				}
				working = nil
				p.Body = p.chunk.Body
				if p.chunk.State == ChunkComplete {
					p.State = Complete
				}
				return nil
			}
			if len(working) == 0 {
				return nil
			}
			n := len(working)
			if n > p.contentRemaining {
				n = p.contentRemaining
			}
			p.Body = append(p.Body, working[:n]...)
			working = working[n:]
			p.contentRemaining -= n
			if p.contentRemaining <= 0 {
				p.contentRemaining = -1
				p.State = Complete
				continue
			}
			return nil

		case Complete:
			return nil
		}
	}
}

// Finish tells a response parser paused at HeadersComplete (no
// content-length, no chunked framing) that the upstream connection has
// closed, so whatever body was accumulated is now final. It is a no-op in
// any other state.
func (p *HttpParser) Finish() {
	if p.State == HeadersComplete {
		p.State = Complete
	}
}

func (p *HttpParser) headerBytes() int {
	n := 0
	p.Headers.Each(func(name, value string) { n += len(name) + len(value) + 4 })
	return n
}

func (p *HttpParser) classifyBody() (bodyKind, int) {
	if p.Kind == RequestParser && strings.EqualFold(p.Method, "CONNECT") {
		return bodyNone, 0
	}
	if v := p.Headers.Value("Transfer-Encoding"); strings.Contains(strings.ToLower(v), "chunked") {
		return bodyChunked, 0
	}
	if v := p.Headers.Value("Content-Length"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return bodyNone, 0
		}
		if n == 0 {
			return bodyNone, 0
		}
		return bodyContentLength, n
	}
	if p.Kind == RequestParser {
		return bodyNone, 0
	}
	return bodyUnknown, 0
}

func (p *HttpParser) parseFirstLine(line []byte) error {
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return ErrMalformedFirstLine
	}
	if p.Kind == RequestParser {
		p.Method = string(parts[0])
		target := string(parts[1])
		p.Version = string(parts[2])
		isConnect := strings.EqualFold(p.Method, "CONNECT")
		u, err := ParseRequestTarget(target, isConnect)
		if err != nil {
			return err
		}
		p.URL = u
		return nil
	}
	p.Version = string(parts[0])
	p.Code = string(parts[1])
	p.Reason = string(parts[2])
	return nil
}

func (p *HttpParser) recordHeaderLine(line []byte) error {
	name, value, ok := parseHeaderLine(line)
	if !ok {
		return ErrMalformedHeaderLine
	}
	p.Headers.Set(name, value)
	return nil
}

// BuildURL reconstructs the request-target bytes for the rewritten,
// origin-form request a proxy forwards upstream. It preserves a legacy
// quirk: when no request target has been parsed yet, it returns the literal
// bytes "/None". An absolute-form target without a path yields "/"; an
// origin-form target is returned exactly as the client sent it.
func (p *HttpParser) BuildURL() []byte {
	if p.URL.Form == FormNone {
		return []byte("/None")
	}
	if p.URL.Form == FormOrigin {
		return []byte(p.URL.Raw)
	}
	var b bytes.Buffer
	if p.URL.Path != "" {
		b.WriteString(p.URL.Path)
	} else {
		b.WriteByte('/')
	}
	if p.URL.Query != "" {
		b.WriteByte('?')
		b.WriteString(p.URL.Query)
	}
	if p.URL.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(p.URL.Fragment)
	}
	return b.Bytes()
}

// Build reassembles the parsed request or response into wire bytes, after
// removing delHeaders and appending addHeaders. Header order and casing
// from the original message is preserved for anything not in delHeaders.
func (p *HttpParser) Build(delHeaders []string, addHeaders [][2]string) []byte {
	var b bytes.Buffer

	if p.Kind == RequestParser {
		b.WriteString(p.Method)
		b.WriteByte(' ')
		b.Write(p.BuildURL())
		b.WriteByte(' ')
		b.WriteString(p.Version)
	} else {
		b.WriteString(p.Version)
		b.WriteByte(' ')
		b.WriteString(p.Code)
		b.WriteByte(' ')
		b.WriteString(p.Reason)
	}
	b.WriteString("\r\n")

	dropped := make(map[string]bool, len(delHeaders))
	for _, name := range delHeaders {
		dropped[strings.ToLower(name)] = true
	}
	p.Headers.Each(func(name, value string) {
		if dropped[strings.ToLower(name)] {
			return
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	})
	for _, kv := range addHeaders {
		b.WriteString(kv[0])
		b.WriteString(": ")
		b.WriteString(kv[1])
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.Write(p.Body)
	return b.Bytes()
}
