// Package wire implements the proxy's incremental HTTP/1.x wire parsers —
// ByteBuffer, ChunkParser and HttpParser — the only pieces of the system
// that interpret bytes rather than merely relay them.
package wire

import "net"

// ByteBuffer is a growable append/consume byte queue. It is used both as a
// parser's input residue between Parse calls and as a Connection's outbound
// write queue. Consumed bytes are never re-read; callers that need to peek
// without consuming use Peek.
//
// ByteBuffer is not safe for concurrent use — each session owns its own.
type ByteBuffer struct {
	buf []byte
	off int // read offset into buf; bytes before off are already consumed
}

// NewByteBuffer returns an empty ByteBuffer with the given initial capacity hint.
func NewByteBuffer(capHint int) *ByteBuffer {
	return &ByteBuffer{buf: make([]byte, 0, capHint)}
}

// Append copies b onto the end of the buffer.
func (bb *ByteBuffer) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	bb.buf = append(bb.buf, b...)
}

// Peek returns the entire unconsumed contents without removing them. The
// returned slice aliases the buffer and is only valid until the next
// Append/Consume/Reset call.
func (bb *ByteBuffer) Peek() []byte {
	return bb.buf[bb.off:]
}

// Size returns the number of unconsumed bytes.
func (bb *ByteBuffer) Size() int {
	return len(bb.buf) - bb.off
}

// Consume removes and returns the first n unconsumed bytes. n is clamped to
// Size(); callers that need the exact count back should check the returned
// slice's length. The returned slice is a copy, not an alias into the
// buffer's backing array: compact() below may shift or overwrite that array
// on this same call for any future partial consume (n < Size()).
func (bb *ByteBuffer) Consume(n int) []byte {
	if n > bb.Size() {
		n = bb.Size()
	}
	start := bb.off
	bb.off += n
	out := make([]byte, n)
	copy(out, bb.buf[start:bb.off])
	bb.compact()
	return out
}

// compact reclaims consumed space once it grows large relative to the
// remaining data, so a long-lived buffer that is mostly drained doesn't
// retain an ever-growing backing array.
func (bb *ByteBuffer) compact() {
	if bb.off == 0 {
		return
	}
	if bb.off < 4096 && bb.off < len(bb.buf)/2 {
		return
	}
	remaining := bb.buf[bb.off:]
	copy(bb.buf, remaining)
	bb.buf = bb.buf[:len(remaining)]
	bb.off = 0
}

// Reset empties the buffer, retaining its backing array.
func (bb *ByteBuffer) Reset() {
	bb.buf = bb.buf[:0]
	bb.off = 0
}

// Flush writes as much of the buffer's contents to sock as it will accept
// and consumes exactly that many bytes, leaving the remainder queued for a
// later Flush. A short write is not an error.
func (bb *ByteBuffer) Flush(sock net.Conn) (int, error) {
	data := bb.Peek()
	if len(data) == 0 {
		return 0, nil
	}
	n, err := sock.Write(data)
	if n > 0 {
		bb.Consume(n)
	}
	return n, err
}
