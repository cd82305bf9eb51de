package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"workseald/internal/domain"
)

// streamChunkSize bounds memory for the streaming path. A multiple of the
// AES block size, so intermediate chunks never need padding.
const streamChunkSize = 8192

// Cipher encrypts byte strings and streams with AES-CBC and PKCS#7 padding.
// A fresh random IV is generated per call and prepended to the ciphertext,
// so every output is self-contained.
type Cipher struct {
	keyBytes int
}

func NewCipher(keyBits int) (*Cipher, error) {
	switch keyBits {
	case 128, 192, 256:
		return &Cipher{keyBytes: keyBits / 8}, nil
	default:
		return nil, fmt.Errorf("unsupported AES key size: %d bits", keyBits)
	}
}

func (c *Cipher) KeyBytes() int {
	return c.keyBytes
}

// GenerateKey returns a random key of the configured size.
func (c *Cipher) GenerateKey() ([]byte, error) {
	key := make([]byte, c.keyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate AES key: %w", err)
	}
	return key, nil
}

// Encrypt returns base64(IV || CBC(pad(plaintext))).
func (c *Cipher) Encrypt(plaintext, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes cipher: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate IV: %w", err)
	}
	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Malformed padding after decryption surfaces as
// ErrPaddingInvalid; that is the symmetric layer's integrity signal and
// almost always means a wrong key or corrupted ciphertext. Padding checks
// reject most corruption, not all of it.
func (c *Cipher) Decrypt(encoded string, key []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", domain.ErrPaddingInvalid, len(raw))
	}
	iv, body := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
	return unpad(plain, aes.BlockSize)
}

// EncryptStream writes the IV followed by the CBC ciphertext of src,
// processed in fixed-size chunks. Only the final chunk is padded (a whole
// pad block when the input length is already a block multiple). Returns the
// number of plaintext bytes consumed.
func (c *Cipher) EncryptStream(dst io.Writer, src io.Reader, key []byte) (int64, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return 0, fmt.Errorf("aes cipher: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return 0, fmt.Errorf("generate IV: %w", err)
	}
	if _, err := dst.Write(iv); err != nil {
		return 0, fmt.Errorf("write IV: %w", err)
	}
	enc := cipher.NewCBCEncrypter(block, iv)

	var read int64
	buf := make([]byte, streamChunkSize)
	out := make([]byte, streamChunkSize+aes.BlockSize)
	for {
		n, rerr := io.ReadFull(src, buf)
		read += int64(n)
		last := errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF)
		if rerr != nil && !last {
			return read, fmt.Errorf("read plaintext: %w", rerr)
		}
		chunk := buf[:n]
		if last {
			chunk = pad(chunk, aes.BlockSize)
		}
		enc.CryptBlocks(out[:len(chunk)], chunk)
		if _, err := dst.Write(out[:len(chunk)]); err != nil {
			return read, fmt.Errorf("write ciphertext: %w", err)
		}
		if last {
			return read, nil
		}
	}
}

// DecryptStream reverses EncryptStream, holding back the final block until
// EOF so padding can be stripped. Returns the number of plaintext bytes
// written.
func (c *Cipher) DecryptStream(dst io.Writer, src io.Reader, key []byte) (int64, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return 0, fmt.Errorf("aes cipher: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(src, iv); err != nil {
		return 0, fmt.Errorf("read IV: %w", err)
	}
	dec := cipher.NewCBCDecrypter(block, iv)

	var written int64
	var tail [aes.BlockSize]byte
	haveTail := false
	buf := make([]byte, streamChunkSize)
	for {
		n, rerr := io.ReadFull(src, buf)
		last := errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF)
		if rerr != nil && !last {
			return written, fmt.Errorf("read ciphertext: %w", rerr)
		}
		if n%aes.BlockSize != 0 {
			return written, fmt.Errorf("%w: ciphertext not block aligned", domain.ErrPaddingInvalid)
		}
		if n > 0 {
			dec.CryptBlocks(buf[:n], buf[:n])
			if haveTail {
				m, werr := dst.Write(tail[:])
				written += int64(m)
				if werr != nil {
					return written, fmt.Errorf("write plaintext: %w", werr)
				}
			}
			if n > aes.BlockSize {
				m, werr := dst.Write(buf[:n-aes.BlockSize])
				written += int64(m)
				if werr != nil {
					return written, fmt.Errorf("write plaintext: %w", werr)
				}
			}
			copy(tail[:], buf[n-aes.BlockSize:n])
			haveTail = true
		}
		if last {
			break
		}
	}
	if !haveTail {
		return written, fmt.Errorf("%w: empty ciphertext", domain.ErrPaddingInvalid)
	}
	final, err := unpad(tail[:], aes.BlockSize)
	if err != nil {
		return written, err
	}
	m, werr := dst.Write(final)
	written += int64(m)
	if werr != nil {
		return written, fmt.Errorf("write plaintext: %w", werr)
	}
	return written, nil
}

func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("%w: length %d", domain.ErrPaddingInvalid, len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("%w: pad byte %d", domain.ErrPaddingInvalid, n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: inconsistent pad bytes", domain.ErrPaddingInvalid)
		}
	}
	return data[:len(data)-n], nil
}
