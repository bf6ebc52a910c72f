package protocol

import (
	"encoding/binary"

	"github.com/robotalks/cloudlink/pkg/coap"
)

// Product defaults.
const (
	DefaultPlatformID             uint16 = 6
	DefaultProductID              uint16 = DefaultPlatformID
	DefaultProductFirmwareVersion uint16 = 0xffff
)

const helloPayloadSize = 8

// Hello flags.
const (
	HelloOTAUpgradeSuccessful    byte = 0x01
	HelloDiagnosticsSupport      byte = 0x02
	HelloImmediateUpdatesSupport byte = 0x04
)

// ProductDetails identify the firmware product.
type ProductDetails struct {
	ProductID      uint16
	ProductVersion uint16
}

// DefaultProductDetails returns the build-time product details.
func DefaultProductDetails() ProductDetails {
	return ProductDetails{ProductID: DefaultProductID, ProductVersion: DefaultProductFirmwareVersion}
}

// EncodeHello writes the hello message: a NON POST h carrying product
// id, product version, a reserved byte, flags and platform id.
func EncodeHello(msg *coap.Message, id uint16, product ProductDetails, platformID uint16, flags byte) error {
	payload := make([]byte, helloPayloadSize)
	binary.BigEndian.PutUint16(payload, product.ProductID)
	binary.BigEndian.PutUint16(payload[2:], product.ProductVersion)
	payload[5] = flags
	binary.BigEndian.PutUint16(payload[6:], platformID)
	return coap.NewWriter(msg).
		Header(coap.Header{Type: coap.NonConfirmable, Code: coap.CodePost, ID: id}).
		StringOption(coap.OptionURIPath, coap.ResourceHello).
		Payload(payload).
		Finish()
}

// Hello is a decoded hello payload.
type Hello struct {
	ProductDetails
	Flags      byte
	PlatformID uint16
}

// ParseHello decodes a hello payload.
func ParseHello(payload []byte) (Hello, bool) {
	if len(payload) < helloPayloadSize {
		return Hello{}, false
	}
	return Hello{
		ProductDetails: ProductDetails{
			ProductID:      binary.BigEndian.Uint16(payload),
			ProductVersion: binary.BigEndian.Uint16(payload[2:]),
		},
		Flags:      payload[5],
		PlatformID: binary.BigEndian.Uint16(payload[6:]),
	}, true
}
