package usecase

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"workseald/internal/domain"
	"workseald/internal/infra/crypto"
)

// workloadKeyInfo seeds the HKDF stage that binds a workload key to its
// cloud metadata. Changing it invalidates every sealed package in existence.
const workloadKeyInfo = "hybrid-ecc-aes-cloud-workload"

// Hybrid seals and opens workload packages: ephemeral ECDH against the
// service key, metadata-salted HKDF, AES-CBC, and an ECDSA signature over
// the canonicalized package. The service pair is fixed at construction and
// read-only afterwards, so one Hybrid value is safe for concurrent use; all
// other key material is call-local and zeroed before returning.
type Hybrid struct {
	service *crypto.KeyPair
	cipher  *crypto.Cipher
	policy  PolicyEngine
	now     func() time.Time
}

func NewHybrid(service *crypto.KeyPair, cipher *crypto.Cipher) *Hybrid {
	return &Hybrid{service: service, cipher: cipher, now: time.Now}
}

// WithPolicy installs a policy gate evaluated before any sealing.
func (h *Hybrid) WithPolicy(engine PolicyEngine) *Hybrid {
	h.policy = engine
	return h
}

// EncryptWorkload seals data under the workload's cloud metadata and returns
// the signed package. The signature is computed over the canonicalized
// package and appended last; everything else either fully succeeds or fails
// with no side effects.
func (h *Hybrid) EncryptWorkload(ctx context.Context, data []byte, region, workloadType string) (*domain.WorkloadPackage, error) {
	start := h.now()
	if err := h.checkPolicy(ctx, region, workloadType); err != nil {
		return nil, err
	}

	ephemeral, err := crypto.GenerateKeyPair(h.service.Curve)
	if err != nil {
		return nil, err
	}
	key, err := h.workloadKey(ephemeral, h.service, region, workloadType)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(key)

	encrypted, err := h.cipher.Encrypt(data, key)
	if err != nil {
		return nil, err
	}
	ephemeralPEM, err := crypto.MarshalPublicKey(ephemeral.Public())
	if err != nil {
		return nil, err
	}

	now := h.now()
	pkg := &domain.WorkloadPackage{
		EncryptedData:   encrypted,
		ClientPublicKey: string(ephemeralPEM),
		CloudRegion:     region,
		WorkloadType:    workloadType,
		Timestamp:       unixSeconds(now),
		EncryptionTime:  now.Sub(start).Seconds(),
	}
	if err := h.signPackage(pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

// DecryptWorkload verifies and opens a package. Signature verification is a
// hard stop: nothing else is attempted on a package that fails it. The
// context salt is recomputed from the package's own metadata, never from
// caller input, so a package cannot be opened under mismatched context.
func (h *Hybrid) DecryptWorkload(pkg domain.WorkloadPackage) (*domain.DecryptedWorkload, error) {
	start := h.now()
	canonical, err := crypto.CanonicalPackageBytes(pkg)
	if err != nil {
		return nil, err
	}
	if pkg.Signature == "" || !crypto.Verify(h.service.Public(), canonical, pkg.Signature) {
		return nil, domain.ErrIntegrityFailure
	}

	clientPub, err := crypto.ParsePublicKey([]byte(pkg.ClientPublicKey))
	if err != nil {
		return nil, err
	}
	key, err := h.workloadKeyWithPeer(h.service.Private, clientPub, pkg.CloudRegion, pkg.WorkloadType)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(key)

	data, err := h.cipher.Decrypt(pkg.EncryptedData, key)
	if err != nil {
		if errors.Is(err, domain.ErrPaddingInvalid) {
			return nil, fmt.Errorf("%w: %v", domain.ErrDecryptionFailed, err)
		}
		return nil, err
	}
	return &domain.DecryptedWorkload{
		Data: data,
		Provenance: domain.Provenance{
			CloudRegion:    pkg.CloudRegion,
			WorkloadType:   pkg.WorkloadType,
			Timestamp:      pkg.Timestamp,
			DecryptionTime: h.now().Sub(start).Seconds(),
		},
	}, nil
}

// EncryptLargeWorkload streams src through the same key schedule, writing
// IV and ciphertext chunks to dst. The returned manifest references the
// ciphertext location instead of embedding it; payloads on this path may
// exceed practical in-memory package size.
func (h *Hybrid) EncryptLargeWorkload(ctx context.Context, dst io.Writer, src io.Reader, location, region, workloadType string) (*domain.LargeWorkloadManifest, error) {
	start := h.now()
	if err := h.checkPolicy(ctx, region, workloadType); err != nil {
		return nil, err
	}

	ephemeral, err := crypto.GenerateKeyPair(h.service.Curve)
	if err != nil {
		return nil, err
	}
	key, err := h.workloadKey(ephemeral, h.service, region, workloadType)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(key)

	size, err := h.cipher.EncryptStream(dst, src, key)
	if err != nil {
		return nil, err
	}
	ephemeralPEM, err := crypto.MarshalPublicKey(ephemeral.Public())
	if err != nil {
		return nil, err
	}

	now := h.now()
	return &domain.LargeWorkloadManifest{
		ClientPublicKey:    string(ephemeralPEM),
		CloudRegion:        region,
		WorkloadType:       workloadType,
		OriginalSize:       size,
		CiphertextLocation: location,
		Timestamp:          unixSeconds(now),
		EncryptionTime:     now.Sub(start).Seconds(),
	}, nil
}

// DecryptLargeWorkload opens a streamed ciphertext described by manifest,
// writing the plaintext to dst.
func (h *Hybrid) DecryptLargeWorkload(manifest domain.LargeWorkloadManifest, dst io.Writer, src io.Reader) (int64, error) {
	clientPub, err := crypto.ParsePublicKey([]byte(manifest.ClientPublicKey))
	if err != nil {
		return 0, err
	}
	key, err := h.workloadKeyWithPeer(h.service.Private, clientPub, manifest.CloudRegion, manifest.WorkloadType)
	if err != nil {
		return 0, err
	}
	defer crypto.Zero(key)

	written, err := h.cipher.DecryptStream(dst, src, key)
	if err != nil {
		if errors.Is(err, domain.ErrPaddingInvalid) {
			return written, fmt.Errorf("%w: %v", domain.ErrDecryptionFailed, err)
		}
		return written, err
	}
	if manifest.OriginalSize >= 0 && written != manifest.OriginalSize {
		return written, fmt.Errorf("%w: plaintext size %d does not match manifest size %d",
			domain.ErrDecryptionFailed, written, manifest.OriginalSize)
	}
	return written, nil
}

func (h *Hybrid) checkPolicy(ctx context.Context, region, workloadType string) error {
	if h.policy == nil {
		return nil
	}
	result, err := h.policy.Evaluate(ctx, domain.PolicyInput{
		CloudRegion:  region,
		WorkloadType: workloadType,
	})
	if err != nil {
		return fmt.Errorf("evaluate seal policy: %w", err)
	}
	if !result.Allow {
		return fmt.Errorf("%w: %s", domain.ErrPolicyDenied, denySummary(result.Deny))
	}
	return nil
}

// workloadKey derives the symmetric key for one seal call: ECDH between the
// ephemeral pair and the service key, expanded with the metadata salt. The
// unseal side calls workloadKeyWithPeer with the roles reversed and arrives
// at the same bytes.
func (h *Hybrid) workloadKey(ephemeral, service *crypto.KeyPair, region, workloadType string) ([]byte, error) {
	return h.workloadKeyWithPeer(ephemeral.Private, service.Public(), region, workloadType)
}

func (h *Hybrid) workloadKeyWithPeer(priv *ecdsa.PrivateKey, peer *ecdsa.PublicKey, region, workloadType string) ([]byte, error) {
	// Key length follows the cipher configuration, not the curve, so the
	// symmetric layer is decoupled from the curve choice.
	length := h.cipher.KeyBytes()
	secret, err := crypto.DeriveSharedSecret(priv, peer, nil, length)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(secret)
	salt := []byte(region + ":" + workloadType)
	return crypto.DeriveKey(secret, salt, []byte(workloadKeyInfo), length)
}

func denySummary(denies []domain.PolicyDeny) string {
	if len(denies) == 0 {
		return "no reason given"
	}
	parts := make([]string, 0, len(denies))
	for _, d := range denies {
		parts = append(parts, d.Code)
	}
	return strings.Join(parts, ", ")
}

func (h *Hybrid) signPackage(pkg *domain.WorkloadPackage) error {
	canonical, err := crypto.CanonicalPackageBytes(*pkg)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(h.service.Private, canonical)
	if err != nil {
		return err
	}
	pkg.Signature = sig
	return nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
