// Package nodeid derives the compact checksummed identifier a node is
// known by on the network from its staking TLS certificate. The
// derivation matches what avalanchego computes for the same
// certificate; the two implementations share no code and are kept
// compatible by the encoding contract alone.
package nodeid

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ripemd160"
)

const (
	// Prefix starts every textual node identifier.
	Prefix = "NodeID-"

	// IDLen is the raw identifier length in bytes.
	IDLen = 20
)

var (
	// ErrMalformedCertificate is returned when certificate bytes cannot
	// be parsed.
	ErrMalformedCertificate = errors.New("malformed certificate")

	// ErrMalformedInput is returned when a textual identifier or
	// checksummed string is structurally invalid.
	ErrMalformedInput = errors.New("malformed input")

	// ErrChecksumMismatch is returned when a decoded checksum does not
	// match the payload it covers.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// ID is a raw node identifier.
type ID [IDLen]byte

// FromCertificate computes the identifier for a DER-encoded
// certificate: the ripemd160 digest of the sha256 digest of the full
// certificate encoding. Hashing the whole structure, not the bare key
// material, keeps different key types from colliding trivially. The
// function is pure; the same bytes always produce the same identifier.
func FromCertificate(der []byte) ID {
	sha := sha256.Sum256(der)
	ripe := ripemd160.New()
	ripe.Write(sha[:])

	var id ID
	copy(id[:], ripe.Sum(nil))
	return id
}

// FromCertPEM computes the identifier for a PEM-encoded certificate.
// The certificate is parsed first so corrupt input surfaces as
// ErrMalformedCertificate rather than as a silently different
// identifier.
func FromCertPEM(pemBytes []byte) (ID, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE" {
		return ID{}, fmt.Errorf("%w: no CERTIFICATE block", ErrMalformedCertificate)
	}
	if _, err := x509.ParseCertificate(block.Bytes); err != nil {
		return ID{}, fmt.Errorf("%w: %w", ErrMalformedCertificate, err)
	}
	return FromCertificate(block.Bytes), nil
}

// FromCertFile computes the identifier for the certificate stored at
// the given path.
func FromCertFile(certPath string) (ID, error) {
	data, err := os.ReadFile(certPath)
	if err != nil {
		return ID{}, fmt.Errorf("failed to read certificate file: %w", err)
	}
	id, err := FromCertPEM(data)
	if err != nil {
		return ID{}, fmt.Errorf("%s: %w", certPath, err)
	}
	return id, nil
}

// ParseID parses the textual form produced by String, validating the
// prefix, the checksum and the decoded length.
func ParseID(s string) (ID, error) {
	if !strings.HasPrefix(s, Prefix) {
		return ID{}, fmt.Errorf("%w: missing %q prefix in %q", ErrMalformedInput, Prefix, s)
	}
	raw, err := Decode(strings.TrimPrefix(s, Prefix))
	if err != nil {
		return ID{}, err
	}
	if len(raw) != IDLen {
		return ID{}, fmt.Errorf("%w: decoded %d bytes, want %d", ErrMalformedInput, len(raw), IDLen)
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

// String returns the prefixed, checksummed textual form.
func (id ID) String() string {
	return Prefix + Encode(id[:])
}

// Bytes returns a copy of the raw identifier.
func (id ID) Bytes() []byte {
	b := make([]byte, IDLen)
	copy(b, id[:])
	return b
}

// Checksum returns the 4-byte tag embedded in the textual form.
func (id ID) Checksum() []byte {
	return checksum(id[:])
}
