package cmd

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ava-labs/nodeid-cli/pkg/nodeid"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and
// returns what it printed.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe() error = %v", err)
	}
	os.Stdout = w

	runErr := fn()

	_ = w.Close()
	os.Stdout = origStdout
	out, _ := io.ReadAll(r)
	_ = r.Close()

	return string(out), runErr
}

// resetGenerateFlags restores the generate flag vars after a test.
func resetGenerateFlags(t *testing.T) {
	t.Helper()
	origAlgorithm := genAlgorithm
	origSubject := genSubject
	origForce := genForce
	origSkip := genSkipExisting
	t.Cleanup(func() {
		genAlgorithm = origAlgorithm
		genSubject = origSubject
		genForce = origForce
		genSkipExisting = origSkip
	})
	genAlgorithm = ""
	genSubject = ""
	genForce = false
	genSkipExisting = false
}

func TestGenerateThenDerive(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "staker.key")
	certPath := filepath.Join(dir, "staker.crt")

	resetGenerateFlags(t)

	genOut, err := captureStdout(t, func() error {
		return generateCmd.RunE(generateCmd, []string{keyPath, certPath})
	})
	if err != nil {
		t.Fatalf("generate run error = %v", err)
	}
	if !strings.Contains(genOut, nodeid.Prefix) {
		t.Fatalf("generate output = %q, want a node ID", genOut)
	}

	origFormat := deriveFormat
	defer func() { deriveFormat = origFormat }()
	deriveFormat = formatID

	deriveOut, err := captureStdout(t, func() error {
		return deriveCmd.RunE(deriveCmd, []string{certPath})
	})
	if err != nil {
		t.Fatalf("derive run error = %v", err)
	}

	derived := strings.TrimSpace(deriveOut)
	if _, err := nodeid.ParseID(derived); err != nil {
		t.Fatalf("derive output %q is not a valid node ID: %v", derived, err)
	}
	if !strings.Contains(genOut, derived) {
		t.Fatalf("generate output %q does not mention derived id %q", genOut, derived)
	}
}

func TestGenerate_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "staker.key")
	certPath := filepath.Join(dir, "staker.crt")

	resetGenerateFlags(t)

	if _, err := captureStdout(t, func() error {
		return generateCmd.RunE(generateCmd, []string{keyPath, certPath})
	}); err != nil {
		t.Fatalf("first generate run error = %v", err)
	}

	if _, err := captureStdout(t, func() error {
		return generateCmd.RunE(generateCmd, []string{keyPath, certPath})
	}); err == nil {
		t.Fatal("second generate run expected overwrite error")
	}
}

func TestGenerate_SkipExisting(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "staker.key")
	certPath := filepath.Join(dir, "staker.crt")

	resetGenerateFlags(t)

	firstOut, err := captureStdout(t, func() error {
		return generateCmd.RunE(generateCmd, []string{keyPath, certPath})
	})
	if err != nil {
		t.Fatalf("first generate run error = %v", err)
	}

	genSkipExisting = true
	secondOut, err := captureStdout(t, func() error {
		return generateCmd.RunE(generateCmd, []string{keyPath, certPath})
	})
	if err != nil {
		t.Fatalf("skip-existing generate run error = %v", err)
	}

	firstID := extractNodeID(t, firstOut)
	secondID := extractNodeID(t, secondOut)
	if firstID != secondID {
		t.Fatalf("skip-existing derived %q, first run derived %q", secondID, firstID)
	}
	if !strings.Contains(secondOut, "Reusing") {
		t.Fatalf("skip-existing output = %q, want reuse notice", secondOut)
	}
}

func TestGenerate_ForceReplaces(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "staker.key")
	certPath := filepath.Join(dir, "staker.crt")

	resetGenerateFlags(t)

	firstOut, err := captureStdout(t, func() error {
		return generateCmd.RunE(generateCmd, []string{keyPath, certPath})
	})
	if err != nil {
		t.Fatalf("first generate run error = %v", err)
	}

	genForce = true
	secondOut, err := captureStdout(t, func() error {
		return generateCmd.RunE(generateCmd, []string{keyPath, certPath})
	})
	if err != nil {
		t.Fatalf("force generate run error = %v", err)
	}

	if extractNodeID(t, firstOut) == extractNodeID(t, secondOut) {
		t.Fatal("force run reused the old key, want fresh credentials")
	}
}

func TestGenerate_ForceAndSkipExclusive(t *testing.T) {
	resetGenerateFlags(t)
	genForce = true
	genSkipExisting = true

	if _, err := captureStdout(t, func() error {
		return generateCmd.RunE(generateCmd, []string{"a.key", "a.crt"})
	}); err == nil {
		t.Fatal("generate run expected flag conflict error")
	}
}

func TestGenerate_UnsupportedAlgorithm(t *testing.T) {
	resetGenerateFlags(t)
	genAlgorithm = "dsa"

	if _, err := captureStdout(t, func() error {
		return generateCmd.RunE(generateCmd, []string{"a.key", "a.crt"})
	}); err == nil {
		t.Fatal("generate run expected unsupported algorithm error")
	}
}

func TestDerive_MissingCert(t *testing.T) {
	origFormat := deriveFormat
	defer func() { deriveFormat = origFormat }()
	deriveFormat = formatID

	if _, err := captureStdout(t, func() error {
		return deriveCmd.RunE(deriveCmd, []string{filepath.Join(t.TempDir(), "absent.crt")})
	}); err == nil {
		t.Fatal("derive run expected error for missing certificate")
	}
}

// extractNodeID pulls the first NodeID-... token out of command output.
func extractNodeID(t *testing.T, out string) string {
	t.Helper()
	idx := strings.Index(out, nodeid.Prefix)
	if idx < 0 {
		t.Fatalf("output %q contains no node ID", out)
	}
	rest := out[idx:]
	if end := strings.IndexAny(rest, " \t\n"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
