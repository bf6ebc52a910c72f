package udp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialAndAccept(t *testing.T) {
	l, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	c, err := Dial(l.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	require.True(t, c.Unreliable())

	require.NoError(t, c.WritePacket([]byte("first")))
	peer, err := l.Accept()
	require.NoError(t, err)
	require.True(t, peer.Unreliable())
	pkt, err := peer.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("first"), pkt)

	require.NoError(t, peer.WritePacket([]byte("reply")))
	pkt, err = c.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("reply"), pkt)
}
