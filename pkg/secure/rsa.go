// Package secure provides the cryptographic primitives used by the session
// protocol: RSA PKCS#1 v1.5 for the handshake, AES-128-CBC with PKCS#7
// padding for session traffic and HMAC-SHA1 for message authentication.
//
// All functions are stateless.
package secure

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
)

var (
	// ErrPlaintextTooLong indicates the plaintext doesn't fit in one RSA block.
	ErrPlaintextTooLong = errors.New("secure: plaintext too long for key")
	// ErrBadSignature indicates signature verification failed.
	ErrBadSignature = errors.New("secure: signature mismatch")
)

// Rand is the entropy source used by the primitives.
var Rand io.Reader = rand.Reader

// MaxPlaintext returns the largest plaintext EncryptPublic accepts for pub.
func MaxPlaintext(pub *rsa.PublicKey) int {
	return pub.Size() - 11
}

// EncryptPublic encrypts one block with the public key.
// The ciphertext length always equals the key size.
func EncryptPublic(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxPlaintext(pub) {
		return nil, ErrPlaintextTooLong
	}
	return rsa.EncryptPKCS1v15(Rand, pub, plaintext)
}

// DecryptPrivate decrypts one block with the private key.
func DecryptPrivate(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(Rand, priv, ciphertext)
}

// Sign signs a raw digest (no DigestInfo prefix) with the private key.
func Sign(priv *rsa.PrivateKey, digest []byte) ([]byte, error) {
	return rsa.SignPKCS1v15(Rand, priv, crypto.Hash(0), digest)
}

// Verify checks a raw-digest signature produced by Sign.
func Verify(pub *rsa.PublicKey, digest, sig []byte) error {
	if err := rsa.VerifyPKCS1v15(pub, crypto.Hash(0), digest, sig); err != nil {
		return ErrBadSignature
	}
	return nil
}
