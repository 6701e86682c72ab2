package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// KeySize and IVSize are fixed by the protocol: AES-128-CBC throughout.
const (
	KeySize = 16
	IVSize  = 16
)

// InitialKey and InitialVector are the well-known bootstrap credentials
// every factory-fresh device accepts. Auth replaces the key; the vector is
// never rotated for the lifetime of a session.
var (
	InitialKey = []byte{
		0x09, 0x76, 0x28, 0x34, 0x3f, 0xe9, 0x9e, 0x23,
		0x76, 0x5c, 0x15, 0x13, 0xac, 0xcf, 0x8b, 0x02,
	}
	InitialVector = []byte{
		0x56, 0x2e, 0x17, 0x99, 0x6d, 0x09, 0x3d, 0x28,
		0xdd, 0xb3, 0xba, 0x69, 0x5a, 0x2e, 0x6f, 0x58,
	}
)

// Encrypt encrypts plaintext with AES-128-CBC under key/iv. The plaintext
// is padded with zero bytes to the next 16-byte boundary; the firmware has
// no padding scheme, so payload length is carried elsewhere or inferred by
// the family decoder. An already aligned plaintext gains no extra block.
func Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}

	padded := ZeroPad(plaintext)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// Decrypt decrypts ciphertext with AES-128-CBC under key/iv. The output
// length equals the ciphertext length; trailing zero padding is retained
// for the family decoder to interpret.
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of %d", len(ciphertext), aes.BlockSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

// ZeroPad returns data extended with zero bytes to the next 16-byte
// boundary. Aligned input is returned as a copy of the same length.
func ZeroPad(data []byte) []byte {
	padded := len(data)
	if rem := padded % aes.BlockSize; rem != 0 {
		padded += aes.BlockSize - rem
	}
	out := make([]byte, padded)
	copy(out, data)
	return out
}
