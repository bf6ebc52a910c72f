package handshake

import (
	"crypto/rsa"

	"github.com/robotalks/cloudlink/pkg/secure"
)

// BuildHello encrypts nonce, device id and as much of the device public
// key as fits into one block of the service key.
func BuildHello(nonce, deviceID, devicePublicDER []byte, service *rsa.PublicKey) ([]byte, error) {
	if len(nonce) != NonceSize || len(deviceID) != DeviceIDSize {
		return nil, ErrBadLength
	}
	plaintext := make([]byte, 0, secure.MaxPlaintext(service))
	plaintext = append(plaintext, nonce...)
	plaintext = append(plaintext, deviceID...)
	if room := cap(plaintext) - len(plaintext); len(devicePublicDER) > room {
		devicePublicDER = devicePublicDER[:room]
	}
	plaintext = append(plaintext, devicePublicDER...)
	return secure.EncryptPublic(service, plaintext)
}

// DecipherSessionKey recovers the credentials from the block encrypted
// with the device public key.
func DecipherSessionKey(ciphertext []byte, device *rsa.PrivateKey) ([]byte, error) {
	if len(ciphertext) != device.Size() {
		return nil, ErrBadLength
	}
	creds, err := secure.DecryptPrivate(device, ciphertext)
	if err != nil {
		return nil, err
	}
	if len(creds) != CredentialsSize {
		return nil, ErrBadLength
	}
	return creds, nil
}

// ComputeMAC is the HMAC of the encrypted credentials keyed with the
// credentials themselves.
func ComputeMAC(ciphertext, credentials []byte) []byte {
	return secure.MAC(credentials, ciphertext)
}

// VerifySignature checks the service signed expectedMAC.
func VerifySignature(signature, expectedMAC []byte, service *rsa.PublicKey) bool {
	return secure.Verify(service, expectedMAC, signature) == nil
}
