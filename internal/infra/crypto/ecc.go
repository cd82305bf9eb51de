package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"workseald/internal/domain"
)

// exchangeInfo seeds the HKDF stage of the key exchange. Both parties must
// use the same tag (and salt) to converge on the same secret.
const exchangeInfo = "cloud-workload-encryption"

const pemPublicKeyType = "PUBLIC KEY"

// KeyPair is an EC key pair bound to one named curve. It is owned by
// whichever party generated it and is never mutated.
type KeyPair struct {
	Curve   domain.Curve
	Private *ecdsa.PrivateKey
}

func (kp *KeyPair) Public() *ecdsa.PublicKey {
	return &kp.Private.PublicKey
}

func ellipticCurve(c domain.Curve) elliptic.Curve {
	switch c {
	case domain.CurveP384:
		return elliptic.P384()
	case domain.CurveP521:
		return elliptic.P521()
	default:
		return elliptic.P256()
	}
}

// GenerateKeyPair creates a fresh key pair on the given curve. Failure means
// RNG exhaustion and is fatal; callers do not retry.
func GenerateKeyPair(curve domain.Curve) (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(ellipticCurve(curve), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate %s key pair: %w", curve, err)
	}
	return &KeyPair{Curve: curve, Private: priv}, nil
}

// DeriveSharedSecret runs ECDH between priv and peer, then expands the raw
// point through HKDF-SHA256 so the output length is a parameter rather than
// a property of the curve. The exchange is symmetric: swapping which side
// contributes the private key yields identical bytes, which is what lets two
// independently generated pairs converge on one key without transmitting it.
func DeriveSharedSecret(priv *ecdsa.PrivateKey, peer *ecdsa.PublicKey, salt []byte, length int) ([]byte, error) {
	xPriv, err := priv.ECDH()
	if err != nil {
		return nil, fmt.Errorf("ecdh private key: %w", err)
	}
	xPeer, err := peer.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: not an ECDH-capable key", domain.ErrMalformedKey)
	}
	shared, err := xPriv.ECDH(xPeer)
	if err != nil {
		return nil, fmt.Errorf("ecdh exchange: %w", err)
	}
	defer Zero(shared)
	return DeriveKey(shared, salt, []byte(exchangeInfo), length)
}

// MarshalPublicKey encodes pub as a PEM PUBLIC KEY block (PKIX DER).
func MarshalPublicKey(pub *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicKeyType, Bytes: der}), nil
}

// ParsePublicKey is the inverse of MarshalPublicKey. Any input that does not
// round-trip to an EC public key fails with ErrMalformedKey; it never
// silently produces a different key.
func ParsePublicKey(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemPublicKeyType {
		return nil, fmt.Errorf("%w: no PEM public key block", domain.ErrMalformedKey)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedKey, err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an EC public key", domain.ErrMalformedKey)
	}
	return pub, nil
}

// Sign returns a base64 ECDSA signature over SHA-256 of message.
func Sign(priv *ecdsa.PrivateKey, message []byte) (string, error) {
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether sig is a valid signature over message. Malformed
// input yields false rather than an error; callers treat every failure mode
// the same way.
func Verify(pub *ecdsa.PublicKey, message []byte, sig string) bool {
	if pub == nil {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(message)
	return ecdsa.VerifyASN1(pub, digest[:], raw)
}

// Zero overwrites b. Call-local secrets go through here before being
// discarded.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
