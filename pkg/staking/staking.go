package staking

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"
)

// Algorithm identifies a supported staking key algorithm.
type Algorithm string

const (
	ECDSAP256 Algorithm = "ecdsa-p256"
	ED25519   Algorithm = "ed25519"
	RSA2048   Algorithm = "rsa-2048"
	RSA4096   Algorithm = "rsa-4096"
)

// DefaultAlgorithm is used when no algorithm is specified.
const DefaultAlgorithm = ECDSAP256

// DefaultSubject is the common name placed in generated certificates
// when the caller does not provide one. Node identity is derived from
// the public key, not the subject, so the value is cosmetic.
const DefaultSubject = "staking-node"

var (
	// ErrUnsupportedAlgorithm is returned when a key algorithm outside
	// the supported set is requested.
	ErrUnsupportedAlgorithm = errors.New("unsupported key algorithm")

	// ErrEncoding is returned when a key or certificate structure cannot
	// be encoded in its standard binary form.
	ErrEncoding = errors.New("credential encoding failed")
)

// Algorithms returns the supported algorithm names in display order.
func Algorithms() []Algorithm {
	return []Algorithm{ECDSAP256, ED25519, RSA2048, RSA4096}
}

// ParseAlgorithm parses a user-supplied algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case ECDSAP256:
		return ECDSAP256, nil
	case ED25519:
		return ED25519, nil
	case RSA2048:
		return RSA2048, nil
	case RSA4096:
		return RSA4096, nil
	case "":
		return DefaultAlgorithm, nil
	default:
		return "", fmt.Errorf("%w: %q (use one of %v)", ErrUnsupportedAlgorithm, s, Algorithms())
	}
}

// KeyPair holds a freshly generated staking key.
type KeyPair struct {
	Algorithm Algorithm
	Signer    crypto.Signer
}

// GenerateKey generates a new key pair for the given algorithm. The
// random source is taken as a parameter so tests can substitute a
// deterministic reader; production callers pass crypto/rand.Reader.
func GenerateKey(rand io.Reader, algorithm Algorithm) (*KeyPair, error) {
	var (
		signer crypto.Signer
		err    error
	)
	switch algorithm {
	case ECDSAP256:
		signer, err = ecdsa.GenerateKey(elliptic.P256(), rand)
	case ED25519:
		_, signer, err = ed25519.GenerateKey(rand)
	case RSA2048:
		signer, err = rsa.GenerateKey(rand, 2048)
	case RSA4096:
		signer, err = rsa.GenerateKey(rand, 4096)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s key: %w", algorithm, err)
	}
	return &KeyPair{Algorithm: algorithm, Signer: signer}, nil
}

// Validity is the certificate validity window.
type Validity struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// DefaultValidity returns the fixed validity window used for staking
// certificates. The window is deliberately wide: these certificates
// authenticate a node identity, they are not audited for expiry.
func DefaultValidity() Validity {
	return Validity{
		NotBefore: time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:  time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// NewCertificate builds a minimal self-signed certificate for the key
// pair. Subject and issuer are the same identity. Returns the parsed
// certificate together with its DER encoding; the DER bytes are what
// node identity is derived from.
func NewCertificate(rand io.Reader, kp *KeyPair, subject string, validity Validity) (*x509.Certificate, []byte, error) {
	if kp == nil || kp.Signer == nil {
		return nil, nil, fmt.Errorf("no key pair")
	}
	if subject == "" {
		subject = DefaultSubject
	}
	if validity.NotBefore.IsZero() && validity.NotAfter.IsZero() {
		validity = DefaultValidity()
	}
	if !validity.NotAfter.After(validity.NotBefore) {
		return nil, nil, fmt.Errorf("invalid validity window: notAfter %v is not after notBefore %v",
			validity.NotAfter, validity.NotBefore)
	}

	serial, err := randomSerial(rand)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: subject},
		NotBefore:             validity.NotBefore,
		NotAfter:              validity.NotAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand, template, template, kp.Signer.Public(), kp.Signer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse generated certificate: %w", err)
	}
	return cert, der, nil
}

// randomSerial draws a positive serial number from the given source.
func randomSerial(rand io.Reader) (*big.Int, error) {
	var b [8]byte
	if _, err := io.ReadFull(rand, b[:]); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b[:]), nil
}
