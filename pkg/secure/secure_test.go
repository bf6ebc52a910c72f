package secure

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPad(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 31, 32} {
		padded := Pad(bytes.Repeat([]byte{0xaa}, n))
		require.Len(t, padded, PaddedLen(n))
		require.Zero(t, len(padded)%BlockSize)
		require.True(t, len(padded) > n)
		out, err := Unpad(padded)
		require.NoError(t, err)
		require.Len(t, out, n)
	}
}

func TestUnpadRejects(t *testing.T) {
	block := make([]byte, BlockSize)
	_, err := Unpad(block)
	require.Equal(t, ErrBadPadding, err)

	block[BlockSize-1] = 17
	_, err = Unpad(block)
	require.Equal(t, ErrBadPadding, err)

	block[BlockSize-1], block[BlockSize-2] = 2, 3
	_, err = Unpad(block)
	require.Equal(t, ErrBadPadding, err)

	_, err = Unpad(block[:5])
	require.Equal(t, ErrBadPadding, err)
}

func TestCBC(t *testing.T) {
	key := bytes.Repeat([]byte{1}, 16)
	iv := bytes.Repeat([]byte{2}, 16)
	plaintext := []byte("a message that spans more than one block")
	ct, err := EncryptCBC(key, iv, plaintext)
	require.NoError(t, err)
	require.Len(t, ct, PaddedLen(len(plaintext)))
	require.NotEqual(t, plaintext, ct[:len(plaintext)])

	out, err := DecryptCBC(key, iv, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, out)

	_, err = DecryptCBC(key, iv, ct[:len(ct)-1])
	require.Equal(t, ErrNotBlockAligned, err)
}

func TestRSA(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	plaintext := []byte("nonce and device id")
	ct, err := EncryptPublic(&priv.PublicKey, plaintext)
	require.NoError(t, err)
	require.Len(t, ct, priv.Size())
	out, err := DecryptPrivate(priv, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, out)

	_, err = EncryptPublic(&priv.PublicKey, make([]byte, MaxPlaintext(&priv.PublicKey)+1))
	require.Equal(t, ErrPlaintextTooLong, err)

	digest := MAC([]byte("key"), ct)
	sig, err := Sign(priv, digest)
	require.NoError(t, err)
	require.NoError(t, Verify(&priv.PublicKey, digest, sig))
	digest[0] ^= 0xff
	require.Equal(t, ErrBadSignature, Verify(&priv.PublicKey, digest, sig))
}

func TestMAC(t *testing.T) {
	key, data := []byte("k"), []byte("data")
	mac := MAC(key, data)
	require.Len(t, mac, MACSize)
	require.Equal(t, mac, MAC(key, data))
	require.True(t, MACEqual(key, data, mac[:8]))
	require.False(t, MACEqual(key, []byte("other"), mac[:8]))
	require.False(t, MACEqual(key, data, nil))
}
