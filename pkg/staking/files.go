package staking

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	pemTypeCertificate = "CERTIFICATE"
	pemTypePKCS8       = "PRIVATE KEY"
	pemTypeEC          = "EC PRIVATE KEY"
	pemTypePKCS1       = "RSA PRIVATE KEY"

	keyFileMode  = 0o600
	certFileMode = 0o644
)

// WriteCredentials serializes the key pair and certificate to the two
// destination paths, PEM-encoded. Each file is staged in a temporary
// file in the destination directory, synced, then atomically renamed,
// so a concurrently starting reader can never observe a partial file.
// Existing files are never overwritten; remove them first (see
// RemoveCredentials) to regenerate.
func WriteCredentials(kp *KeyPair, certDER []byte, keyPath, certPath string) error {
	if kp == nil || kp.Signer == nil {
		return fmt.Errorf("no key pair to write")
	}
	if len(certDER) == 0 {
		return fmt.Errorf("no certificate to write")
	}
	if keyPath == certPath {
		return fmt.Errorf("key and certificate paths must differ (both are %s)", keyPath)
	}
	for _, path := range []string{keyPath, certPath} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("refusing to overwrite existing file %s", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(kp.Signer)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypePKCS8, Bytes: keyDER})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: pemTypeCertificate, Bytes: certDER})

	if err := writeFileAtomic(keyPath, keyPEM, keyFileMode); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := writeFileAtomic(certPath, certPEM, certFileMode); err != nil {
		// Do not leave a key without its certificate behind.
		os.Remove(keyPath)
		return fmt.Errorf("failed to write certificate file: %w", err)
	}
	return nil
}

// RemoveCredentials deletes the key and certificate files. Missing
// files are not an error, so it doubles as harness cleanup.
func RemoveCredentials(keyPath, certPath string) error {
	for _, path := range []string{keyPath, certPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// LoadCertificate reads a PEM certificate file and returns the parsed
// certificate along with its DER bytes.
func LoadCertificate(certPath string) (*x509.Certificate, []byte, error) {
	data, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read certificate file: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypeCertificate {
		return nil, nil, fmt.Errorf("no CERTIFICATE block in %s", certPath)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse certificate from %s: %w", certPath, err)
	}
	return cert, block.Bytes, nil
}

// LoadPrivateKey reads a PEM private key file. PKCS#8 is what
// WriteCredentials emits; SEC1 EC and PKCS#1 RSA blocks are accepted
// for keys generated by other tools.
func LoadPrivateKey(keyPath string) (crypto.Signer, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", keyPath)
	}
	switch block.Type {
	case pemTypePKCS8:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 key from %s: %w", keyPath, err)
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("key in %s is not a signing key (%T)", keyPath, key)
		}
		return signer, nil
	case pemTypeEC:
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC key from %s: %w", keyPath, err)
		}
		return key, nil
	case pemTypePKCS1:
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA key from %s: %w", keyPath, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unsupported PEM block %q in %s", block.Type, keyPath)
	}
}

// LoadOrCreate returns the certificate at the given paths, generating
// and writing a fresh credential pair only when neither file exists.
// Repeated calls therefore never change a node's identity. Exactly one
// of the two files existing is an ambiguous state and is rejected
// rather than silently repaired.
func LoadOrCreate(rand io.Reader, algorithm Algorithm, subject string, keyPath, certPath string) (cert *x509.Certificate, certDER []byte, created bool, err error) {
	keyExists, err := fileExists(keyPath)
	if err != nil {
		return nil, nil, false, err
	}
	certExists, err := fileExists(certPath)
	if err != nil {
		return nil, nil, false, err
	}

	switch {
	case keyExists && certExists:
		cert, certDER, err = LoadCertificate(certPath)
		if err != nil {
			return nil, nil, false, err
		}
		key, err := LoadPrivateKey(keyPath)
		if err != nil {
			return nil, nil, false, err
		}
		if err := verifyKeyMatchesCertificate(key, cert); err != nil {
			return nil, nil, false, err
		}
		return cert, certDER, false, nil

	case !keyExists && !certExists:
		kp, err := GenerateKey(rand, algorithm)
		if err != nil {
			return nil, nil, false, err
		}
		cert, certDER, err = NewCertificate(rand, kp, subject, Validity{})
		if err != nil {
			return nil, nil, false, err
		}
		if err := WriteCredentials(kp, certDER, keyPath, certPath); err != nil {
			return nil, nil, false, err
		}
		return cert, certDER, true, nil

	default:
		return nil, nil, false, fmt.Errorf("credential state is ambiguous: key exists=%v cert exists=%v (remove the surviving file to regenerate)",
			keyExists, certExists)
	}
}

// verifyKeyMatchesCertificate checks that the private key's public half
// is the one embedded in the certificate.
func verifyKeyMatchesCertificate(key crypto.Signer, cert *x509.Certificate) error {
	keyPub, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		return fmt.Errorf("failed to encode key's public key: %w", err)
	}
	certPub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to encode certificate's public key: %w", err)
	}
	if !bytes.Equal(keyPub, certPub) {
		return fmt.Errorf("private key does not match certificate public key")
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// writeFileAtomic stages data in a temp file next to the destination,
// syncs it, then renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
