package nodeid

import (
	"crypto/rand"
	"encoding/pem"
	"errors"
	mathrand "math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	avastaking "github.com/ava-labs/avalanchego/staking"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/mr-tron/base58"

	"github.com/ava-labs/nodeid-cli/pkg/staking"
)

func testCertDER(t *testing.T, algorithm staking.Algorithm) []byte {
	t.Helper()
	kp, err := staking.GenerateKey(rand.Reader, algorithm)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	_, der, err := staking.NewCertificate(rand.Reader, kp, "", staking.Validity{})
	if err != nil {
		t.Fatalf("NewCertificate() error = %v", err)
	}
	return der
}

func TestFromCertificate_Deterministic(t *testing.T) {
	der := testCertDER(t, staking.ED25519)

	first := FromCertificate(der)
	second := FromCertificate(der)
	if first != second {
		t.Fatalf("FromCertificate() not deterministic: %v then %v", first, second)
	}
	if first.String() != second.String() {
		t.Fatalf("textual form not deterministic: %q then %q", first.String(), second.String())
	}
}

func TestFromCertificate_DistinctInputs(t *testing.T) {
	a := FromCertificate([]byte("certificate a"))
	b := FromCertificate([]byte("certificate b"))
	if a == b {
		t.Fatal("different inputs produced the same identifier")
	}
}

func TestID_String(t *testing.T) {
	der := testCertDER(t, staking.ED25519)
	id := FromCertificate(der)

	s := id.String()
	if !strings.HasPrefix(s, Prefix) {
		t.Errorf("String() = %q, want %q prefix", s, Prefix)
	}

	parsed, err := ParseID(s)
	if err != nil {
		t.Fatalf("ParseID(%q) error = %v", s, err)
	}
	if parsed != id {
		t.Errorf("ParseID(String()) = %v, want %v", parsed, id)
	}
}

func TestParseID_Golden(t *testing.T) {
	const golden = "NodeID-7Xhw2mDxuDS44j42TCB6U5579esbSt3Lg"

	id, err := ParseID(golden)
	if err != nil {
		t.Fatalf("ParseID(%q) error = %v", golden, err)
	}
	if got := id.String(); got != golden {
		t.Errorf("String() = %q, want %q", got, golden)
	}
}

func TestParseID_Errors(t *testing.T) {
	t.Run("missing prefix", func(t *testing.T) {
		if _, err := ParseID("7Xhw2mDxuDS44j42TCB6U5579esbSt3Lg"); !errors.Is(err, ErrMalformedInput) {
			t.Fatalf("ParseID() error = %v, want ErrMalformedInput", err)
		}
	})

	t.Run("corrupted payload", func(t *testing.T) {
		var id ID
		for i := range id {
			id[i] = byte(i)
		}
		// Re-encode with a flipped payload byte but the stale checksum.
		full := appendChecksum(id[:])
		full[3] ^= 0x40
		s := Prefix + base58.Encode(full)
		if _, err := ParseID(s); !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("ParseID() error = %v, want ErrChecksumMismatch", err)
		}
	})

	t.Run("wrong length", func(t *testing.T) {
		s := Prefix + Encode([]byte{1, 2, 3, 4, 5})
		if _, err := ParseID(s); !errors.Is(err, ErrMalformedInput) {
			t.Fatalf("ParseID() error = %v, want ErrMalformedInput", err)
		}
	})
}

func TestFromCertPEM(t *testing.T) {
	der := testCertDER(t, staking.ECDSAP256)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	id, err := FromCertPEM(pemBytes)
	if err != nil {
		t.Fatalf("FromCertPEM() error = %v", err)
	}
	if id != FromCertificate(der) {
		t.Error("FromCertPEM() disagrees with FromCertificate() on the same bytes")
	}
}

func TestFromCertPEM_Malformed(t *testing.T) {
	t.Run("not pem", func(t *testing.T) {
		if _, err := FromCertPEM([]byte("junk")); !errors.Is(err, ErrMalformedCertificate) {
			t.Fatalf("FromCertPEM() error = %v, want ErrMalformedCertificate", err)
		}
	})

	t.Run("wrong block type", func(t *testing.T) {
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{1, 2, 3}})
		if _, err := FromCertPEM(pemBytes); !errors.Is(err, ErrMalformedCertificate) {
			t.Fatalf("FromCertPEM() error = %v, want ErrMalformedCertificate", err)
		}
	})

	t.Run("junk der", func(t *testing.T) {
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{0x30, 0x03, 0x01, 0x01, 0xff}})
		if _, err := FromCertPEM(pemBytes); !errors.Is(err, ErrMalformedCertificate) {
			t.Fatalf("FromCertPEM() error = %v, want ErrMalformedCertificate", err)
		}
	})
}

func TestFromCertFile(t *testing.T) {
	der := testCertDER(t, staking.ED25519)
	path := filepath.Join(t.TempDir(), "staker.crt")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, pemBytes, 0644); err != nil {
		t.Fatalf("failed to write certificate: %v", err)
	}

	id, err := FromCertFile(path)
	if err != nil {
		t.Fatalf("FromCertFile() error = %v", err)
	}
	if id != FromCertificate(der) {
		t.Error("FromCertFile() disagrees with FromCertificate()")
	}
}

func TestFromCertFile_Missing(t *testing.T) {
	if _, err := FromCertFile(filepath.Join(t.TempDir(), "absent.crt")); err == nil {
		t.Fatal("FromCertFile() on missing file should fail")
	}
}

// TestAgreesWithAvalanchego pins the whole derivation against the
// consumer that defines it. A failure here means nodes would report a
// different identity than this tool prints.
func TestAgreesWithAvalanchego(t *testing.T) {
	for _, algorithm := range []staking.Algorithm{staking.ECDSAP256, staking.ED25519, staking.RSA2048} {
		t.Run(string(algorithm), func(t *testing.T) {
			der := testCertDER(t, algorithm)
			ours := FromCertificate(der).String()

			shortID, err := ids.ToShortID(hashing.PubkeyBytesToAddress(der))
			if err != nil {
				t.Fatalf("ToShortID() error = %v", err)
			}
			if theirs := shortID.PrefixedString(ids.NodeIDPrefix); ours != theirs {
				t.Fatalf("identifier mismatch: ours %q, avalanchego %q", ours, theirs)
			}
		})
	}
}

// TestAgreesWithAvalanchegoStakingParser repeats the comparison through
// avalanchego's strict staking certificate parser, which only admits
// the algorithms peers are allowed to use.
func TestAgreesWithAvalanchegoStakingParser(t *testing.T) {
	for _, algorithm := range []staking.Algorithm{staking.ECDSAP256, staking.RSA2048} {
		t.Run(string(algorithm), func(t *testing.T) {
			der := testCertDER(t, algorithm)
			ours := FromCertificate(der).String()

			cert, err := avastaking.ParseCertificate(der)
			if err != nil {
				t.Fatalf("staking.ParseCertificate() error = %v", err)
			}
			if theirs := ids.NodeIDFromCert(cert).String(); ours != theirs {
				t.Fatalf("identifier mismatch: ours %q, avalanchego %q", ours, theirs)
			}
		})
	}
}

// TestAvalancheProperty flips single bits of the certificate encoding
// and confirms the identifier never survives the corruption.
func TestAvalancheProperty(t *testing.T) {
	der := testCertDER(t, staking.ED25519)
	original := FromCertificate(der)

	rng := mathrand.New(mathrand.NewSource(1))
	mutated := make([]byte, len(der))
	for i := 0; i < 500; i++ {
		copy(mutated, der)
		mutated[rng.Intn(len(mutated))] ^= 1 << rng.Intn(8)
		if FromCertificate(mutated) == original {
			t.Fatalf("bit flip at iteration %d left the identifier unchanged", i)
		}
	}
}
