package handshake

import (
	"bytes"
	"context"
	"crypto/rsa"
	"io"
	"time"

	"github.com/robotalks/cloudlink/pkg/secure"
)

// KeyLookup resolves the public key of a device. der is the (possibly
// truncated) key the device sent in its hello.
type KeyLookup func(deviceID, der []byte) (*rsa.PublicKey, error)

// Server is the cloud side of the handshake.
type Server struct {
	Key     *rsa.PrivateKey
	Lookup  KeyLookup
	Timeout time.Duration
}

// Peer is an authenticated device.
type Peer struct {
	DeviceID  []byte
	DeviceKey *rsa.PublicKey
	Keys      *SessionKeys
}

// Run performs the handshake with one device.
func (s *Server) Run(ctx context.Context, conn Conn) (*Peer, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(secure.Rand, nonce); err != nil {
		return nil, stepErr(StepNonce, err)
	}
	if err := conn.WritePacket(nonce); err != nil {
		return nil, stepErr(StepNonce, err)
	}

	hello, err := readWithTimeout(ctx, conn, s.Timeout)
	if err != nil {
		return nil, stepErr(StepHello, err)
	}
	plaintext, err := secure.DecryptPrivate(s.Key, hello)
	if err != nil {
		return nil, stepErr(StepHello, err)
	}
	if len(plaintext) < NonceSize+DeviceIDSize {
		return nil, stepErr(StepHello, ErrBadLength)
	}
	if !bytes.Equal(plaintext[:NonceSize], nonce) {
		return nil, stepErr(StepHello, ErrNonceMismatch)
	}
	peer := &Peer{DeviceID: append([]byte(nil), plaintext[NonceSize:NonceSize+DeviceIDSize]...)}
	der := plaintext[NonceSize+DeviceIDSize:]
	if s.Lookup != nil {
		peer.DeviceKey, err = s.Lookup(peer.DeviceID, der)
	} else {
		peer.DeviceKey, err = ParsePublicKey(der)
	}
	if err != nil {
		return nil, stepErr(StepHello, err)
	}

	creds := make([]byte, CredentialsSize)
	defer wipe(creds)
	if _, err = io.ReadFull(secure.Rand, creds); err != nil {
		return nil, stepErr(StepCredentials, err)
	}
	ciphertext, err := secure.EncryptPublic(peer.DeviceKey, creds)
	if err != nil {
		return nil, stepErr(StepCredentials, err)
	}
	signature, err := secure.Sign(s.Key, ComputeMAC(ciphertext, creds))
	if err != nil {
		return nil, stepErr(StepSignature, err)
	}
	if err = conn.WritePacket(append(ciphertext, signature...)); err != nil {
		return nil, stepErr(StepCredentials, err)
	}
	if peer.Keys, err = DeriveSessionKeys(creds); err != nil {
		return nil, stepErr(StepKeys, err)
	}
	return peer, nil
}
