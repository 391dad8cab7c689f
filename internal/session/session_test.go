package session

import (
	"errors"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanbekhen/proxyd/internal/wire"
)

func TestProxySession_PlainHTTPRewritesAndRelays(t *testing.T) {
	upstreamLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer upstreamLn.Close()

	var receivedRequest []byte
	upstreamDone := make(chan struct{})
	go func() {
		defer close(upstreamDone)
		conn, err := upstreamLn.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		n, _ := conn.Read(buf)
		receivedRequest = append(receivedRequest, buf[:n]...)
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
	}()

	host, portStr, err := net.SplitHostPort(upstreamLn.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	dial := func(string, int) (net.Conn, error) {
		return net.Dial("tcp", upstreamLn.Addr().String())
	}

	_, proxySide := net.Pipe()
	defer proxySide.Close()
	clientConn := NewConnection(proxySide, Addr{})
	sess := New(clientConn, "", dial, nil, 0)

	require.NoError(t, sess.OnClientReadable([]byte("GET http://"+host+":"+portStr+"/get HTTP/1.1\r\n")))
	assert.NotEqual(t, wire.Complete, sess.Request.State)
	// Absolute-form targets carry host:port in the request line itself, so
	// the upstream dial fires as soon as the line is parsed, not waiting for
	// the rest of the headers.
	require.NotNil(t, sess.Server)
	assert.Equal(t, host, sess.Server.Addr.Host)
	assert.Equal(t, port, sess.Server.Addr.Port)

	require.NoError(t, sess.OnClientReadable([]byte("Host: "+host+":"+portStr+"\r\n\r\n")))
	assert.Equal(t, wire.Complete, sess.Request.State)
	assert.Equal(t, host, sess.Server.Addr.Host)
	assert.Equal(t, port, sess.Server.Addr.Port)

	require.NoError(t, sess.Server.Flush())
	<-upstreamDone
	assert.Contains(t, string(receivedRequest), "GET /get HTTP/1.1")
	assert.NotContains(t, string(receivedRequest), "Proxy-Authorization")

	data, err := sess.Server.Recv(0)
	require.NoError(t, err)
	require.NoError(t, sess.OnServerReadable(data))
	assert.Equal(t, wire.Complete, sess.Response.State)
	assert.Equal(t, "200", sess.Response.Code)
	assert.Equal(t, string(data), string(sess.Client.Drain()))
}

func TestProxySession_ConnectEstablishesTunnelAndRelaysVerbatim(t *testing.T) {
	upstreamLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer upstreamLn.Close()

	upstreamConnCh := make(chan net.Conn, 1)
	go func() {
		c, err := upstreamLn.Accept()
		if err == nil {
			upstreamConnCh <- c
		}
	}()

	host, portStr, err := net.SplitHostPort(upstreamLn.Addr().String())
	require.NoError(t, err)

	dial := func(string, int) (net.Conn, error) {
		return net.Dial("tcp", upstreamLn.Addr().String())
	}

	_, proxySide := net.Pipe()
	defer proxySide.Close()
	clientConn := NewConnection(proxySide, Addr{})
	sess := New(clientConn, "", dial, nil, 0)

	require.NoError(t, sess.OnClientReadable([]byte("CONNECT "+host+":"+portStr+" HTTP/1.1\r\n\r\n")))
	assert.Equal(t, ModeTunnel, sess.Mode)
	assert.Equal(t, "HTTP/1.1 200 Connection established\r\n\r\n", string(sess.Client.Drain()))

	upstreamConn := <-upstreamConnCh
	defer upstreamConn.Close()

	require.NoError(t, sess.OnClientReadable([]byte("raw-client-bytes")))
	require.NoError(t, sess.Server.Flush())
	buf := make([]byte, 32)
	n, err := upstreamConn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "raw-client-bytes", string(buf[:n]))

	_, err = upstreamConn.Write([]byte("raw-server-bytes"))
	require.NoError(t, err)
	data, err := sess.Server.Recv(0)
	require.NoError(t, err)
	require.NoError(t, sess.OnServerReadable(data))
	assert.Equal(t, "raw-server-bytes", string(sess.Client.Drain()))
}

func TestProxySession_MissingAuthRaisesProxyAuthenticationFailed(t *testing.T) {
	_, proxySide := net.Pipe()
	defer proxySide.Close()
	clientConn := NewConnection(proxySide, Addr{})
	sess := New(clientConn, "Basic dXNlcjpwYXNz", nil, nil, 0)

	err := sess.OnClientReadable([]byte("GET http://example.com/ HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	require.Error(t, err)
	var serr *SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 407, serr.Code)
	assert.Nil(t, sess.Server)
}

func TestProxySession_DialFailureRaisesProxyConnectionFailed(t *testing.T) {
	_, proxySide := net.Pipe()
	defer proxySide.Close()
	clientConn := NewConnection(proxySide, Addr{})
	dial := func(string, int) (net.Conn, error) {
		return nil, errors.New("no such host")
	}
	sess := New(clientConn, "", dial, nil, 0)

	err := sess.OnClientReadable([]byte("GET http://nonexistent.invalid/ HTTP/1.1\r\nHost: nonexistent.invalid\r\n\r\n"))
	require.Error(t, err)
	var serr *SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 502, serr.Code)
}
