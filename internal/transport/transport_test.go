package transport

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUDPSenderDeliversDatagrams(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer server.Close()

	sender, err := NewUDPSender(server.LocalAddr().String())
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, sender.Send("0.0000, 0.1000"))
	require.NoError(t, sender.Send("1.0000, 1.1000"))

	buf := make([]byte, 2048)
	for _, want := range []string{"0.0000, 0.1000", "1.0000, 1.1000"} {
		require.NoError(t, server.SetReadDeadline(time.Now().Add(time.Second)))
		n, _, err := server.ReadFromUDP(buf)
		require.NoError(t, err)
		assert.Equal(t, want, string(buf[:n]), "one payload per datagram, no framing")
	}
}

func TestUDPSenderWithoutListener(t *testing.T) {
	// grab a free port and release it so nobody listens there
	l, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	addr := l.LocalAddr().String()
	require.NoError(t, l.Close())

	sender, err := NewUDPSender(addr)
	require.NoError(t, err)
	defer sender.Close()
	for i := 0; i < 3; i++ {
		_ = sender.Send("x") // may or may not report, must not block
	}
}

func TestNewUDPSenderBadTarget(t *testing.T) {
	_, err := NewUDPSender("not a host:port")
	assert.Error(t, err)
}

type sinkFunc func(string) error

func (f sinkFunc) Send(p string) error { return f(p) }

func TestFanout(t *testing.T) {
	var a, b []string
	boom := errors.New("broker down")
	f := Fanout{
		sinkFunc(func(p string) error { a = append(a, p); return nil }),
		sinkFunc(func(p string) error { b = append(b, p); return boom }),
	}
	err := f.Send("hello")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"hello"}, a)
	assert.Equal(t, []string{"hello"}, b)
	assert.NoError(t, Fanout{}.Send("x"))
}
