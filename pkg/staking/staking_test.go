package staking

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input string
		want  Algorithm
		ok    bool
	}{
		{"ecdsa-p256", ECDSAP256, true},
		{"ED25519", ED25519, true},
		{"  rsa-2048 ", RSA2048, true},
		{"rsa-4096", RSA4096, true},
		{"", DefaultAlgorithm, true},
		{"secp256k1", "", false},
		{"rsa", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if tt.ok {
				if err != nil {
					t.Fatalf("ParseAlgorithm(%q) error = %v", tt.input, err)
				}
				if got != tt.want {
					t.Errorf("ParseAlgorithm(%q) = %v, want %v", tt.input, got, tt.want)
				}
				return
			}
			if err == nil {
				t.Fatalf("ParseAlgorithm(%q) should fail", tt.input)
			}
			if !errors.Is(err, ErrUnsupportedAlgorithm) {
				t.Errorf("ParseAlgorithm(%q) error = %v, want ErrUnsupportedAlgorithm", tt.input, err)
			}
		})
	}
}

func TestGenerateKey_AllAlgorithms(t *testing.T) {
	for _, algorithm := range Algorithms() {
		t.Run(string(algorithm), func(t *testing.T) {
			kp, err := GenerateKey(rand.Reader, algorithm)
			if err != nil {
				t.Fatalf("GenerateKey() error = %v", err)
			}
			if kp.Algorithm != algorithm {
				t.Errorf("KeyPair.Algorithm = %v, want %v", kp.Algorithm, algorithm)
			}
			if kp.Signer == nil {
				t.Fatal("KeyPair.Signer is nil")
			}

			switch algorithm {
			case ECDSAP256:
				if _, ok := kp.Signer.Public().(*ecdsa.PublicKey); !ok {
					t.Errorf("public key type = %T, want *ecdsa.PublicKey", kp.Signer.Public())
				}
			case ED25519:
				if _, ok := kp.Signer.Public().(ed25519.PublicKey); !ok {
					t.Errorf("public key type = %T, want ed25519.PublicKey", kp.Signer.Public())
				}
			case RSA2048, RSA4096:
				if _, ok := kp.Signer.Public().(*rsa.PublicKey); !ok {
					t.Errorf("public key type = %T, want *rsa.PublicKey", kp.Signer.Public())
				}
			}
		})
	}
}

func TestGenerateKey_Unsupported(t *testing.T) {
	_, err := GenerateKey(rand.Reader, Algorithm("dsa"))
	if err == nil {
		t.Fatal("GenerateKey() with unsupported algorithm should fail")
	}
	if !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("GenerateKey() error = %v, want ErrUnsupportedAlgorithm", err)
	}
}

// failingReader proves the randomness source is the one passed in, not
// ambient process state.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestGenerateKey_UsesProvidedRandomness(t *testing.T) {
	if _, err := GenerateKey(failingReader{}, ED25519); err == nil {
		t.Fatal("GenerateKey() with failing randomness source should fail")
	}
}

func TestGenerateKey_DistinctKeys(t *testing.T) {
	kp1, err := GenerateKey(rand.Reader, ED25519)
	if err != nil {
		t.Fatalf("GenerateKey() first call error = %v", err)
	}
	kp2, err := GenerateKey(rand.Reader, ED25519)
	if err != nil {
		t.Fatalf("GenerateKey() second call error = %v", err)
	}

	pub1 := kp1.Signer.Public().(ed25519.PublicKey)
	pub2 := kp2.Signer.Public().(ed25519.PublicKey)
	if pub1.Equal(pub2) {
		t.Fatal("two generated keys are identical")
	}
}

func TestNewCertificate_Defaults(t *testing.T) {
	kp, err := GenerateKey(rand.Reader, ECDSAP256)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	cert, der, err := NewCertificate(rand.Reader, kp, "", Validity{})
	if err != nil {
		t.Fatalf("NewCertificate() error = %v", err)
	}
	if len(der) == 0 {
		t.Fatal("NewCertificate() returned empty DER")
	}

	if cert.Subject.CommonName != DefaultSubject {
		t.Errorf("Subject.CommonName = %q, want %q", cert.Subject.CommonName, DefaultSubject)
	}
	if cert.Issuer.CommonName != DefaultSubject {
		t.Errorf("Issuer.CommonName = %q, want %q (self-signed)", cert.Issuer.CommonName, DefaultSubject)
	}

	want := DefaultValidity()
	if !cert.NotBefore.Equal(want.NotBefore) {
		t.Errorf("NotBefore = %v, want %v", cert.NotBefore, want.NotBefore)
	}
	if !cert.NotAfter.Equal(want.NotAfter) {
		t.Errorf("NotAfter = %v, want %v", cert.NotAfter, want.NotAfter)
	}
}

func TestNewCertificate_SelfSignatureVerifies(t *testing.T) {
	for _, algorithm := range Algorithms() {
		t.Run(string(algorithm), func(t *testing.T) {
			if algorithm == RSA4096 && testing.Short() {
				t.Skip("rsa-4096 generation is slow")
			}
			kp, err := GenerateKey(rand.Reader, algorithm)
			if err != nil {
				t.Fatalf("GenerateKey() error = %v", err)
			}
			cert, _, err := NewCertificate(rand.Reader, kp, "", Validity{})
			if err != nil {
				t.Fatalf("NewCertificate() error = %v", err)
			}
			if err := cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature); err != nil {
				t.Errorf("self-signature does not verify: %v", err)
			}
		})
	}
}

func TestNewCertificate_CustomSubject(t *testing.T) {
	kp, err := GenerateKey(rand.Reader, ED25519)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	cert, _, err := NewCertificate(rand.Reader, kp, "validator-7", Validity{})
	if err != nil {
		t.Fatalf("NewCertificate() error = %v", err)
	}
	if cert.Subject.CommonName != "validator-7" {
		t.Errorf("Subject.CommonName = %q, want validator-7", cert.Subject.CommonName)
	}
}

func TestNewCertificate_InvalidSubject(t *testing.T) {
	kp, err := GenerateKey(rand.Reader, ED25519)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	// Invalid UTF-8 cannot be represented in the certificate's name.
	_, _, err = NewCertificate(rand.Reader, kp, "node-\xff\xfe", Validity{})
	if err == nil {
		t.Fatal("NewCertificate() with invalid subject should fail")
	}
	if !errors.Is(err, ErrEncoding) {
		t.Errorf("NewCertificate() error = %v, want ErrEncoding", err)
	}
}

func TestNewCertificate_InvalidValidity(t *testing.T) {
	kp, err := GenerateKey(rand.Reader, ED25519)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	bad := Validity{
		NotBefore: DefaultValidity().NotAfter,
		NotAfter:  DefaultValidity().NotBefore,
	}
	if _, _, err := NewCertificate(rand.Reader, kp, "", bad); err == nil {
		t.Fatal("NewCertificate() with inverted validity window should fail")
	}
}

func TestNewCertificate_NilKeyPair(t *testing.T) {
	if _, _, err := NewCertificate(rand.Reader, nil, "", Validity{}); err == nil {
		t.Fatal("NewCertificate() with nil key pair should fail")
	}
}
