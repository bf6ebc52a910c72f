package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// BlockSize is the AES block size.
const BlockSize = aes.BlockSize

var (
	// ErrBadPadding indicates invalid PKCS#7 padding.
	ErrBadPadding = errors.New("secure: bad padding")
	// ErrNotBlockAligned indicates ciphertext isn't a multiple of BlockSize.
	ErrNotBlockAligned = errors.New("secure: ciphertext not block aligned")
)

// PaddedLen returns the length of n bytes after PKCS#7 padding.
// Padding is always added, 1 to 16 bytes.
func PaddedLen(n int) int {
	return (n &^ (BlockSize - 1)) + BlockSize
}

// Pad appends PKCS#7 padding.
func Pad(data []byte) []byte {
	pad := PaddedLen(len(data)) - len(data)
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

// Unpad strips PKCS#7 padding.
func Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%BlockSize != 0 {
		return nil, ErrBadPadding
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > BlockSize {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-pad], nil
}

// EncryptCBC pads and encrypts plaintext with AES-CBC.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := Pad(plaintext)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, out)
	return out, nil
}

// DecryptCBC decrypts AES-CBC ciphertext and strips the padding.
// The ciphertext is left untouched.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%BlockSize != 0 {
		return nil, ErrNotBlockAligned
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return Unpad(out)
}
