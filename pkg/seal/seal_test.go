package seal

import (
	"context"
	"testing"

	"workseald/internal/domain"
	cryptoinfra "workseald/internal/infra/crypto"
	"workseald/internal/usecase"
)

func sealedPackage(t *testing.T) (domain.WorkloadPackage, []byte) {
	t.Helper()
	service, err := cryptoinfra.GenerateKeyPair(domain.CurveP256)
	if err != nil {
		t.Fatalf("generate service pair: %v", err)
	}
	cipher, err := cryptoinfra.NewCipher(256)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	pkg, err := usecase.NewHybrid(service, cipher).EncryptWorkload(
		context.Background(), []byte("payload"), "us-west-2", "web-application")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	pubPEM, err := cryptoinfra.MarshalPublicKey(service.Public())
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return *pkg, pubPEM
}

func TestVerify(t *testing.T) {
	pkg, pubPEM := sealedPackage(t)

	ok, err := Verify(pubPEM, pkg)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected valid signature")
	}

	tampered := pkg
	tampered.CloudRegion = "us-east-1"
	ok, err = Verify(pubPEM, tampered)
	if err != nil {
		t.Fatalf("verify tampered: %v", err)
	}
	if ok {
		t.Fatal("tampered package verified")
	}

	unsigned := pkg
	unsigned.Signature = ""
	ok, err = Verify(pubPEM, unsigned)
	if err != nil {
		t.Fatalf("verify unsigned: %v", err)
	}
	if ok {
		t.Fatal("unsigned package verified")
	}

	if _, err := Verify([]byte("not a key"), pkg); err == nil {
		t.Fatal("expected error for malformed public key")
	}
}

func TestFingerprint(t *testing.T) {
	pkg, _ := sealedPackage(t)

	first, err := Fingerprint(pkg)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	second, err := Fingerprint(pkg)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if first != second || len(first) != 64 {
		t.Fatalf("unstable fingerprint: %q vs %q", first, second)
	}

	other := pkg
	other.WorkloadType = "database"
	changed, err := Fingerprint(other)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if changed == first {
		t.Fatal("metadata change did not change the fingerprint")
	}
}

func TestManifestFingerprint(t *testing.T) {
	manifest := domain.LargeWorkloadManifest{
		ClientPublicKey:    "-----BEGIN PUBLIC KEY-----\nMFkw\n-----END PUBLIC KEY-----\n",
		CloudRegion:        "us-west-2",
		WorkloadType:       "analytics",
		OriginalSize:       4096,
		CiphertextLocation: "s3://workloads/large-1",
		Timestamp:          1700000000.25,
		EncryptionTime:     0.125,
	}

	first, err := ManifestFingerprint(manifest)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	second, err := ManifestFingerprint(manifest)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if first != second || len(first) != 64 {
		t.Fatalf("unstable manifest fingerprint: %q vs %q", first, second)
	}

	manifest.OriginalSize++
	changed, err := ManifestFingerprint(manifest)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if changed == first {
		t.Fatal("size change did not change the fingerprint")
	}
}
