package compat

import (
	"bytes"
	"context"
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ava-labs/avalanchego/ids"
	avastaking "github.com/ava-labs/avalanchego/staking"

	"github.com/ava-labs/nodeid-cli/pkg/nodeid"
)

// Deriver computes the textual node identifier for a certificate file.
// The harness always compares two of them.
type Deriver interface {
	Name() string
	Derive(ctx context.Context, certPath string) (string, error)
}

// LocalDeriver derives through this repository's own implementation.
type LocalDeriver struct{}

// Name implements Deriver.
func (LocalDeriver) Name() string { return "local" }

// Derive implements Deriver.
func (LocalDeriver) Derive(_ context.Context, certPath string) (string, error) {
	id, err := nodeid.FromCertFile(certPath)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ReferenceDeriver derives through avalanchego's staking certificate
// parser and node ID computation, sharing no code with LocalDeriver.
// The strict parser only admits algorithms peers may stake with, so
// it rejects certificates (such as ed25519 ones) that the local
// implementation can still hash.
type ReferenceDeriver struct{}

// Name implements Deriver.
func (ReferenceDeriver) Name() string { return "avalanchego" }

// Derive implements Deriver.
func (ReferenceDeriver) Derive(_ context.Context, certPath string) (string, error) {
	data, err := os.ReadFile(certPath)
	if err != nil {
		return "", fmt.Errorf("failed to read certificate file: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return "", fmt.Errorf("no CERTIFICATE block in %s", certPath)
	}
	cert, err := avastaking.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse staking certificate: %w", err)
	}
	return ids.NodeIDFromCert(cert).String(), nil
}

// CommandDeriver shells out to an independently built derivation tool,
// appending the certificate path to the configured arguments and
// reading the identifier from stdout.
type CommandDeriver struct {
	Command string
	Args    []string
}

// Name implements Deriver.
func (d CommandDeriver) Name() string { return filepath.Base(d.Command) }

// Derive implements Deriver.
func (d CommandDeriver) Derive(ctx context.Context, certPath string) (string, error) {
	args := make([]string, 0, len(d.Args)+1)
	args = append(args, d.Args...)
	args = append(args, certPath)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.Command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s failed: %w (stderr: %s)",
			d.Command, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("%s printed no identifier", d.Command)
	}
	return out, nil
}

// secondDeriver picks the deriver to compare against per the spec.
func secondDeriver(spec *RunSpec) Deriver {
	if spec.Check.Command != "" {
		return CommandDeriver{Command: spec.Check.Command, Args: spec.Check.Args}
	}
	return ReferenceDeriver{}
}
