package crypto

import (
	"bytes"
	"errors"
	"testing"

	"workseald/internal/domain"
)

var testCurves = []domain.Curve{domain.CurveP256, domain.CurveP384, domain.CurveP521}

func TestDeriveSharedSecret_SymmetricAcrossCurves(t *testing.T) {
	for _, curve := range testCurves {
		t.Run(string(curve), func(t *testing.T) {
			client, err := GenerateKeyPair(curve)
			if err != nil {
				t.Fatalf("generate client pair: %v", err)
			}
			service, err := GenerateKeyPair(curve)
			if err != nil {
				t.Fatalf("generate service pair: %v", err)
			}

			salt := []byte("us-west-2:web-application")
			a, err := DeriveSharedSecret(client.Private, service.Public(), salt, 32)
			if err != nil {
				t.Fatalf("derive client side: %v", err)
			}
			b, err := DeriveSharedSecret(service.Private, client.Public(), salt, 32)
			if err != nil {
				t.Fatalf("derive service side: %v", err)
			}
			if !bytes.Equal(a, b) {
				t.Fatal("shared secrets differ between the two private/public combinations")
			}
			if len(a) != 32 {
				t.Fatalf("derived length %d, want 32", len(a))
			}
		})
	}
}

func TestDeriveSharedSecret_SaltChangesOutput(t *testing.T) {
	client, _ := GenerateKeyPair(domain.CurveP256)
	service, _ := GenerateKeyPair(domain.CurveP256)

	a, err := DeriveSharedSecret(client.Private, service.Public(), []byte("context-a"), 32)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := DeriveSharedSecret(client.Private, service.Public(), []byte("context-b"), 32)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("different salts produced identical keys")
	}
}

func TestDeriveSharedSecret_LengthIndependentOfCurve(t *testing.T) {
	for _, curve := range testCurves {
		client, err := GenerateKeyPair(curve)
		if err != nil {
			t.Fatalf("generate pair on %s: %v", curve, err)
		}
		service, err := GenerateKeyPair(curve)
		if err != nil {
			t.Fatalf("generate pair on %s: %v", curve, err)
		}
		secret, err := DeriveSharedSecret(client.Private, service.Public(), nil, 32)
		if err != nil {
			t.Fatalf("derive on %s: %v", curve, err)
		}
		if len(secret) != 32 {
			t.Fatalf("curve %s: derived length %d, want 32", curve, len(secret))
		}
	}
}

func TestPublicKeyPEMRoundTrip(t *testing.T) {
	for _, curve := range testCurves {
		t.Run(string(curve), func(t *testing.T) {
			pair, err := GenerateKeyPair(curve)
			if err != nil {
				t.Fatalf("generate pair: %v", err)
			}
			encoded, err := MarshalPublicKey(pair.Public())
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			parsed, err := ParsePublicKey(encoded)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !parsed.Equal(pair.Public()) {
				t.Fatal("round-tripped key differs from original")
			}
		})
	}
}

func TestParsePublicKey_Malformed(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("not pem at all"),
		[]byte("-----BEGIN PUBLIC KEY-----\ngarbage\n-----END PUBLIC KEY-----\n"),
		[]byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"),
	}
	for _, input := range inputs {
		if _, err := ParsePublicKey(input); !errors.Is(err, domain.ErrMalformedKey) {
			t.Fatalf("input %q: expected ErrMalformedKey, got %v", input, err)
		}
	}
}

func TestSignVerify(t *testing.T) {
	pair, err := GenerateKeyPair(domain.CurveP256)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	message := []byte("workload package payload")
	sig, err := Sign(pair.Private, message)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !Verify(pair.Public(), message, sig) {
		t.Fatal("valid signature rejected")
	}
	if Verify(pair.Public(), []byte("tampered payload"), sig) {
		t.Fatal("tampered message accepted")
	}
	if Verify(pair.Public(), message, "!!!not-base64!!!") {
		t.Fatal("malformed signature accepted")
	}
	other, _ := GenerateKeyPair(domain.CurveP256)
	if Verify(other.Public(), message, sig) {
		t.Fatal("signature accepted under wrong key")
	}
}
