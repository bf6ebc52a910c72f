package handshake

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Sizes of handshake fields.
const (
	NonceSize       = 40
	DeviceIDSize    = 12
	CredentialsSize = 40
	KeySize         = 16
	IVSize          = 16
	SaltSize        = 8
	HMACKeySize     = 32
)

// HKDF labels of the per-direction HMAC keys.
const (
	deviceMACLabel = "cloudlink device"
	cloudMACLabel  = "cloudlink cloud"
)

// KeyMaterial holds the long-lived keys of a device.
type KeyMaterial struct {
	Device          *rsa.PrivateKey
	DevicePublicDER []byte
	Service         *rsa.PublicKey
}

// LoadKeyMaterial parses the device private key and the service public
// key, each either DER or PEM.
func LoadKeyMaterial(deviceKey, serviceKey []byte) (*KeyMaterial, error) {
	priv, err := ParsePrivateKey(DecodeKey(deviceKey))
	if err != nil {
		return nil, err
	}
	pub, err := ParsePublicKey(DecodeKey(serviceKey))
	if err != nil {
		return nil, err
	}
	return NewKeyMaterial(priv, pub), nil
}

// NewKeyMaterial creates KeyMaterial from parsed keys.
func NewKeyMaterial(device *rsa.PrivateKey, service *rsa.PublicKey) *KeyMaterial {
	return &KeyMaterial{
		Device:          device,
		DevicePublicDER: MarshalPublicKey(&device.PublicKey),
		Service:         service,
	}
}

// SessionKeys are the symmetric keys of one session.
// Both sides start with the same IV; each direction then chains its own.
type SessionKeys struct {
	Key       []byte
	SendIV    []byte
	ReceiveIV []byte
	Salt      []byte
	DeviceMAC []byte
	CloudMAC  []byte
	MessageID uint16
	Token     byte
}

// DeriveSessionKeys splits the decrypted credentials into session keys.
func DeriveSessionKeys(credentials []byte) (*SessionKeys, error) {
	if len(credentials) != CredentialsSize {
		return nil, ErrBadLength
	}
	creds := make([]byte, CredentialsSize)
	copy(creds, credentials)
	salt := creds[KeySize+IVSize:]
	k := &SessionKeys{
		Key:       creds[:KeySize],
		SendIV:    append([]byte(nil), creds[KeySize:KeySize+IVSize]...),
		ReceiveIV: append([]byte(nil), creds[KeySize:KeySize+IVSize]...),
		Salt:      salt,
		MessageID: binary.BigEndian.Uint16(salt),
		Token:     salt[2],
	}
	var err error
	if k.DeviceMAC, err = deriveMACKey(creds, deviceMACLabel); err != nil {
		return nil, err
	}
	if k.CloudMAC, err = deriveMACKey(creds, cloudMACLabel); err != nil {
		return nil, err
	}
	return k, nil
}

func deriveMACKey(credentials []byte, label string) ([]byte, error) {
	key := make([]byte, HMACKeySize)
	r := hkdf.New(sha256.New, credentials, nil, []byte(label))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Zero wipes all key bytes.
func (k *SessionKeys) Zero() {
	for _, b := range [][]byte{k.Key, k.SendIV, k.ReceiveIV, k.Salt, k.DeviceMAC, k.CloudMAC} {
		for i := range b {
			b[i] = 0
		}
	}
	k.MessageID, k.Token = 0, 0
}
