package handshake_test

import (
	"bytes"
	"context"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cloudlink/pkg/handshake"
	"github.com/robotalks/cloudlink/pkg/handshake/handshaketest"
	"github.com/robotalks/cloudlink/pkg/secure"
	"github.com/robotalks/cloudlink/pkg/transport"
)

func newClient() *handshake.Client {
	return &handshake.Client{
		Keys:     handshaketest.KeyMaterial(),
		DeviceID: handshaketest.DeviceID,
		Timeout:  5 * time.Second,
	}
}

func pipe() (*transport.Poller, *transport.Poller) {
	a, b := transport.Pipe(false)
	return transport.NewPoller(a), transport.NewPoller(b)
}

func TestHelloRoundTrip(t *testing.T) {
	keys := handshaketest.KeyMaterial()
	nonce := bytes.Repeat([]byte{0x5a}, handshake.NonceSize)
	hello, err := handshake.BuildHello(nonce, handshaketest.DeviceID, keys.DevicePublicDER, keys.Service)
	require.NoError(t, err)
	require.Len(t, hello, handshaketest.ServiceKeyBits/8)

	plaintext, err := secure.DecryptPrivate(handshaketest.ServiceKey(), hello)
	require.NoError(t, err)
	require.Equal(t, nonce, plaintext[:handshake.NonceSize])
	require.Equal(t, handshaketest.DeviceID, plaintext[handshake.NonceSize:handshake.NonceSize+handshake.DeviceIDSize])
	require.Equal(t, keys.DevicePublicDER, plaintext[handshake.NonceSize+handshake.DeviceIDSize:])

	creds := bytes.Repeat([]byte{1}, handshake.CredentialsSize)
	require.Equal(t, handshake.ComputeMAC(hello, creds), secure.MAC(creds, hello))
}

func TestClientServer(t *testing.T) {
	dev, cloud := pipe()
	defer dev.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type result struct {
		peer *handshake.Peer
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		srv := &handshake.Server{Key: handshaketest.ServiceKey()}
		peer, err := srv.Run(ctx, cloud)
		resultCh <- result{peer, err}
	}()

	keys, err := newClient().Run(ctx, dev)
	require.NoError(t, err)
	res := <-resultCh
	require.NoError(t, res.err)
	require.Equal(t, handshaketest.DeviceID, res.peer.DeviceID)
	require.Equal(t, 0, handshaketest.DeviceKey().N.Cmp(res.peer.DeviceKey.N))
	require.Equal(t, keys.Key, res.peer.Keys.Key)
	require.Equal(t, keys.SendIV, res.peer.Keys.ReceiveIV)
	require.Equal(t, keys.DeviceMAC, res.peer.Keys.DeviceMAC)
	require.Equal(t, keys.CloudMAC, res.peer.Keys.CloudMAC)
	require.Equal(t, keys.MessageID, res.peer.Keys.MessageID)
}

func TestServerLookup(t *testing.T) {
	dev, cloud := pipe()
	defer dev.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		srv := &handshake.Server{
			Key: handshaketest.ServiceKey(),
			Lookup: func(deviceID, der []byte) (*rsa.PublicKey, error) {
				return nil, handshake.ErrUnknownDevice
			},
		}
		_, err := srv.Run(ctx, cloud)
		errCh <- err
	}()

	client := newClient()
	client.Timeout = 200 * time.Millisecond
	_, err := client.Run(ctx, dev)
	var hsErr *handshake.Error
	require.True(t, errors.As(err, &hsErr))
	require.Equal(t, handshake.StepCredentials, hsErr.Step)

	err = <-errCh
	require.True(t, errors.As(err, &hsErr))
	require.Equal(t, handshake.StepHello, hsErr.Step)
	require.True(t, errors.Is(err, handshake.ErrUnknownDevice))
}

// fakeCloud answers a hello with a credentials block built by reply.
func fakeCloud(t *testing.T, conn *transport.Poller, reply func(creds []byte) []byte) {
	go func() {
		conn.WritePacket(bytes.Repeat([]byte{7}, handshake.NonceSize))
		if _, err := conn.ReadPacket(); err != nil {
			return
		}
		creds := bytes.Repeat([]byte{3}, handshake.CredentialsSize)
		conn.WritePacket(reply(creds))
	}()
}

func TestClientFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply func(creds []byte) []byte
		step  handshake.Step
		cause error
	}{
		{
			name:  "short",
			reply: func([]byte) []byte { return make([]byte, 10) },
			step:  handshake.StepCredentials,
			cause: handshake.ErrBadLength,
		},
		{
			name: "garbage",
			reply: func([]byte) []byte {
				return bytes.Repeat([]byte{0xee}, handshaketest.DeviceKeyBits/8+handshaketest.ServiceKeyBits/8)
			},
			step: handshake.StepCredentials,
		},
		{
			name: "forged-signature",
			reply: func(creds []byte) []byte {
				ct, err := secure.EncryptPublic(&handshaketest.DeviceKey().PublicKey, creds)
				require.NoError(t, err)
				return append(ct, make([]byte, handshaketest.ServiceKeyBits/8)...)
			},
			step:  handshake.StepSignature,
			cause: handshake.ErrBadSignature,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dev, cloud := pipe()
			defer dev.Close()
			fakeCloud(t, cloud, test.reply)
			keys, err := newClient().Run(context.Background(), dev)
			require.Nil(t, keys)
			var hsErr *handshake.Error
			require.True(t, errors.As(err, &hsErr), "%v", err)
			require.Equal(t, test.step, hsErr.Step)
			if test.cause != nil {
				require.True(t, errors.Is(err, test.cause))
			}
		})
	}
}

func TestNonceTimeout(t *testing.T) {
	dev, _ := pipe()
	defer dev.Close()
	client := newClient()
	client.Timeout = 10 * time.Millisecond
	_, err := client.Run(context.Background(), dev)
	var hsErr *handshake.Error
	require.True(t, errors.As(err, &hsErr))
	require.Equal(t, handshake.StepNonce, hsErr.Step)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}
