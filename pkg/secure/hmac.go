package secure

import (
	"crypto/hmac"
	"crypto/sha1"
)

// MACSize is the size of a full HMAC-SHA1.
const MACSize = sha1.Size

// MAC computes HMAC-SHA1 of data.
func MAC(key, data []byte) []byte {
	h := hmac.New(sha1.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// MACEqual compares MACs in constant time. expected may be truncated.
func MACEqual(key, data, expected []byte) bool {
	if len(expected) == 0 || len(expected) > MACSize {
		return false
	}
	return hmac.Equal(MAC(key, data)[:len(expected)], expected)
}
