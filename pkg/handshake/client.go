// Package handshake authenticates a device and the cloud service and
// derives the symmetric keys of a session.
//
// The exchange, over any packet transport:
//
//	cloud  -> device  nonce (40 bytes)
//	device -> cloud   RSA(service key, nonce | device id | device public key)
//	cloud  -> device  RSA(device key, credentials) | sign(service key, HMAC)
//
// where credentials are AES key, IV and salt, and HMAC is computed over
// the encrypted credentials keyed with the credentials.
package handshake

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// DefaultTimeout bounds each blocking read of a handshake.
const DefaultTimeout = 30 * time.Second

// Conn is the packet connection a handshake runs on.
type Conn interface {
	ReadPacketContext(context.Context) ([]byte, error)
	WritePacket([]byte) error
}

// Client is the device side of the handshake.
type Client struct {
	Keys     *KeyMaterial
	DeviceID []byte
	Timeout  time.Duration
}

func readWithTimeout(ctx context.Context, conn Conn, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.ReadPacketContext(ctx)
}

// Run performs the handshake. No keys are returned unless every step
// succeeded.
func (c *Client) Run(ctx context.Context, conn Conn) (*SessionKeys, error) {
	nonce, err := readWithTimeout(ctx, conn, c.Timeout)
	if err != nil {
		return nil, stepErr(StepNonce, err)
	}
	if len(nonce) != NonceSize {
		return nil, stepErr(StepNonce, ErrBadLength)
	}

	hello, err := BuildHello(nonce, c.DeviceID, c.Keys.DevicePublicDER, c.Keys.Service)
	if err != nil {
		return nil, stepErr(StepHello, err)
	}
	if err = conn.WritePacket(hello); err != nil {
		return nil, stepErr(StepHello, err)
	}

	reply, err := readWithTimeout(ctx, conn, c.Timeout)
	if err != nil {
		return nil, stepErr(StepCredentials, err)
	}
	size := c.Keys.Device.Size()
	if len(reply) != size+c.Keys.Service.Size() {
		return nil, stepErr(StepCredentials, ErrBadLength)
	}
	ciphertext, signature := reply[:size], reply[size:]
	creds, err := DecipherSessionKey(ciphertext, c.Keys.Device)
	if err != nil {
		return nil, stepErr(StepCredentials, err)
	}
	defer wipe(creds)

	if !VerifySignature(signature, ComputeMAC(ciphertext, creds), c.Keys.Service) {
		return nil, stepErr(StepSignature, ErrBadSignature)
	}
	keys, err := DeriveSessionKeys(creds)
	if err != nil {
		return nil, stepErr(StepKeys, err)
	}
	glog.V(2).Infof("handshake complete, message id %04x", keys.MessageID)
	return keys, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
