package soft

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"workseald/internal/config"
	"workseald/internal/domain"
	"workseald/internal/infra/crypto"
)

// Manager holds the service identity: one long-lived key pair, resolved at
// construction and never rotated. Key material comes from the environment
// when configured; otherwise a fresh pair is generated, which means packages
// sealed by a previous process can no longer be opened.
type Manager struct {
	pair *crypto.KeyPair
}

func NewManager(pair *crypto.KeyPair) *Manager {
	return &Manager{pair: pair}
}

func NewManagerFromConfig(cfg config.Config) (*Manager, error) {
	curve, err := domain.ParseCurve(cfg.CurveID)
	if err != nil {
		log.Printf("curve %q not supported; falling back to %s", cfg.CurveID, curve)
	}

	if cfg.ServicePrivateKeyBase64 != "" {
		pair, err := loadPair(cfg.ServicePrivateKeyBase64)
		if err != nil {
			return nil, fmt.Errorf("load service key: %w", err)
		}
		if pair.Curve != curve {
			log.Printf("service key is on %s; overriding configured curve %s", pair.Curve, curve)
		}
		return &Manager{pair: pair}, nil
	}

	pair, err := crypto.GenerateKeyPair(curve)
	if err != nil {
		return nil, fmt.Errorf("generate service key: %w", err)
	}
	return &Manager{pair: pair}, nil
}

// Pair returns the service key pair. Read-only after construction, so it is
// safe to share across concurrent seal/unseal calls.
func (m *Manager) Pair() *crypto.KeyPair {
	if m == nil {
		return nil
	}
	return m.pair
}

func loadPair(encoded string) (*crypto.KeyPair, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode key material: %w", err)
	}
	priv, err := parsePrivateKey(der)
	if err != nil {
		return nil, err
	}
	curve, err := domain.ParseCurve(priv.Curve.Params().Name)
	if err != nil {
		return nil, fmt.Errorf("service key uses %s: %w", priv.Curve.Params().Name, domain.ErrUnsupportedCurve)
	}
	return &crypto.KeyPair{Curve: curve, Private: priv}, nil
}

func parsePrivateKey(der []byte) (*ecdsa.PrivateKey, error) {
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not an EC key")
	}
	return key, nil
}
