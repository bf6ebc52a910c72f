package handshake

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"math/big"
)

// DER tags read by fieldReader.
const (
	tagInteger  = 0x02
	tagSequence = 0x30
)

// ErrBadKey indicates a key container that can't be parsed.
var ErrBadKey = errors.New("handshake: malformed key")

// fieldReader walks the fields of a DER key container.
type fieldReader struct {
	data []byte
	off  int
}

// header consumes a tag and its length, returning the content length.
func (r *fieldReader) header(tag byte) (int, error) {
	if r.off+2 > len(r.data) || r.data[r.off] != tag {
		return 0, ErrBadKey
	}
	r.off++
	n := int(r.data[r.off])
	r.off++
	if n&0x80 != 0 {
		size := n & 0x7f
		if size == 0 || size > 2 || r.off+size > len(r.data) {
			return 0, ErrBadKey
		}
		n = 0
		for i := 0; i < size; i++ {
			n = n<<8 | int(r.data[r.off])
			r.off++
		}
	}
	if r.off+n > len(r.data) {
		return 0, ErrBadKey
	}
	return n, nil
}

// enterSequence consumes a SEQUENCE header so the following reads walk
// its fields.
func (r *fieldReader) enterSequence() error {
	_, err := r.header(tagSequence)
	return err
}

// readInteger returns the magnitude of the next INTEGER field. DER prefixes
// a positive integer with one 0x00 byte when its top bit is set; that byte
// is skipped here, once per field.
func (r *fieldReader) readInteger() ([]byte, error) {
	n, err := r.header(tagInteger)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrBadKey
	}
	val := r.data[r.off : r.off+n]
	r.off += n
	if len(val) > 1 && val[0] == 0 {
		val = val[1:]
	}
	return val, nil
}

func (r *fieldReader) readBigInt() (*big.Int, error) {
	val, err := r.readInteger()
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(val), nil
}

// ParsePrivateKey parses a PKCS#1 RSA private key. Bytes after the
// container, such as zero padding of a fixed-size key slot, are ignored.
func ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	r := &fieldReader{data: der}
	if err := r.enterSequence(); err != nil {
		return nil, err
	}
	version, err := r.readInteger()
	if err != nil {
		return nil, err
	}
	if len(version) != 1 || version[0] != 0 {
		return nil, ErrBadKey
	}
	var fields [8]*big.Int
	for i := range fields {
		if fields[i], err = r.readBigInt(); err != nil {
			return nil, err
		}
	}
	if !fields[1].IsInt64() {
		return nil, ErrBadKey
	}
	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: fields[0], E: int(fields[1].Int64())},
		D:         fields[2],
		Primes:    []*big.Int{fields[3], fields[4]},
	}
	if err = key.Validate(); err != nil {
		return nil, ErrBadKey
	}
	key.Precompute()
	return key, nil
}

// ParsePublicKey parses an RSA public key in PKIX or PKCS#1 form.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		if rsaPub, ok := pub.(*rsa.PublicKey); ok {
			return rsaPub, nil
		}
		return nil, ErrBadKey
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, ErrBadKey
	}
	return pub, nil
}

// MarshalPublicKey encodes a public key in PKIX form.
func MarshalPublicKey(pub *rsa.PublicKey) []byte {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		panic(err)
	}
	return der
}

// DecodeKey returns the DER bytes of a key file, which may be raw DER
// or PEM.
func DecodeKey(data []byte) []byte {
	if block, _ := pem.Decode(data); block != nil {
		return block.Bytes
	}
	return data
}
