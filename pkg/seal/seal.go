// Package seal gives package consumers signature verification and package
// identity without access to the service private key.
package seal

import (
	"crypto/sha256"
	"encoding/hex"

	"workseald/internal/domain"
	cryptoinfra "workseald/internal/infra/crypto"
)

// Verify checks a package signature against the sealing service's public
// key, provided as PEM. The signature covers the canonicalized package with
// the signature field excluded.
func Verify(servicePublicKeyPEM []byte, pkg domain.WorkloadPackage) (bool, error) {
	pub, err := cryptoinfra.ParsePublicKey(servicePublicKeyPEM)
	if err != nil {
		return false, err
	}
	if pkg.Signature == "" {
		return false, nil
	}
	canonical, err := cryptoinfra.CanonicalPackageBytes(pkg)
	if err != nil {
		return false, err
	}
	return cryptoinfra.Verify(pub, canonical, pkg.Signature), nil
}

// Fingerprint returns the sha256 hex digest of the canonicalized package.
// Two packages with the same fingerprint carry identical sealed content and
// metadata, regardless of field order in their JSON encodings.
func Fingerprint(pkg domain.WorkloadPackage) (string, error) {
	canonical, err := cryptoinfra.CanonicalPackageBytes(pkg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ManifestFingerprint is Fingerprint for the streaming path's manifest.
func ManifestFingerprint(m domain.LargeWorkloadManifest) (string, error) {
	canonical, err := cryptoinfra.CanonicalManifestBytes(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
