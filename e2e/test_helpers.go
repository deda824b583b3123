package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

var (
	cliBinaryPath   string
	checkBinaryPath string
)

// buildBinariesForE2E builds fresh nodeid and nodeid-check binaries for
// this test run.
func buildBinariesForE2E() (string, string, func(), error) {
	tempDir, err := os.MkdirTemp("", "nodeid-cli-e2e-*")
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() {
		_ = os.RemoveAll(tempDir)
	}

	cliPath := filepath.Join(tempDir, "nodeid")
	if err := goBuild(cliPath, "."); err != nil {
		cleanup()
		return "", "", nil, err
	}

	checkPath := filepath.Join(tempDir, "nodeid-check")
	if err := goBuild(checkPath, "./derive/nodeid-check"); err != nil {
		cleanup()
		return "", "", nil, err
	}

	return cliPath, checkPath, cleanup, nil
}

func goBuild(outPath, pkg string) error {
	cmd := exec.Command("go", "build", "-o", outPath, pkg)
	cmd.Dir = ".."
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to build %s: %w\n%s", pkg, err, out)
	}
	return nil
}
