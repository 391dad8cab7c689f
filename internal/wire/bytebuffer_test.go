package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteBuffer_AppendPeekConsume(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.Append([]byte("hello"))
	bb.Append([]byte(" world"))
	assert.Equal(t, "hello world", string(bb.Peek()))
	assert.Equal(t, 11, bb.Size())

	got := bb.Consume(5)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, " world", string(bb.Peek()))
	assert.Equal(t, 6, bb.Size())
}

func TestByteBuffer_ConsumeClampsToSize(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.Append([]byte("ab"))
	got := bb.Consume(100)
	assert.Equal(t, "ab", string(got))
	assert.Equal(t, 0, bb.Size())
}

func TestByteBuffer_Reset(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.Append([]byte("data"))
	bb.Reset()
	assert.Equal(t, 0, bb.Size())
	assert.Empty(t, bb.Peek())
}

func TestByteBuffer_FlushWritesAndConsumesExactlyWhatSocketAccepted(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	bb := NewByteBuffer(16)
	bb.Append([]byte("payload"))

	done := make(chan struct{})
	go func() {
		n, err := bb.Flush(client)
		assert.NoError(t, err)
		assert.Equal(t, 7, n)
		close(done)
	}()

	buf := make([]byte, 7)
	n, err := server.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, "payload", string(buf[:n]))
	<-done
	assert.Equal(t, 0, bb.Size())
}
