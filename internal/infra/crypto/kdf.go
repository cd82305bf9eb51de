package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey expands secret into length bytes with HKDF-SHA256. Salt and info
// bind the output to a context: identical inputs always produce identical
// keys, which is how decryption recomputes the workload key without it ever
// having been transmitted.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf expand: %w", err)
	}
	return key, nil
}
