// Package handshaketest provides keys for tests involving handshakes.
package handshaketest

import (
	"crypto/rand"
	"crypto/rsa"
	"sync"

	"github.com/robotalks/cloudlink/pkg/handshake"
)

// Key sizes matching deployed devices and services.
const (
	DeviceKeyBits  = 1024
	ServiceKeyBits = 2048
)

var (
	once       sync.Once
	deviceKey  *rsa.PrivateKey
	serviceKey *rsa.PrivateKey
)

func generate() {
	var err error
	if deviceKey, err = rsa.GenerateKey(rand.Reader, DeviceKeyBits); err != nil {
		panic(err)
	}
	if serviceKey, err = rsa.GenerateKey(rand.Reader, ServiceKeyBits); err != nil {
		panic(err)
	}
}

// DeviceKey returns a device key shared by all tests in the process.
func DeviceKey() *rsa.PrivateKey {
	once.Do(generate)
	return deviceKey
}

// ServiceKey returns a service key shared by all tests in the process.
func ServiceKey() *rsa.PrivateKey {
	once.Do(generate)
	return serviceKey
}

// KeyMaterial returns the device's view of the shared keys.
func KeyMaterial() *handshake.KeyMaterial {
	return handshake.NewKeyMaterial(DeviceKey(), &ServiceKey().PublicKey)
}

// DeviceID is the id used by test devices.
var DeviceID = []byte{0x54, 0xe1, 0xc8, 0x88, 0xf6, 0xd9, 0x49, 0x2b, 0xeb, 0xee, 0x1e, 0xe9}
