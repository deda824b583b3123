// Command nodeid-check derives an avalanchego node ID from staking
// credentials using avalanchego's own code paths. It shares no
// derivation code with the nodeid CLI, which makes it a meaningful
// second opinion in compatibility runs.
package main

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/staking"
	"github.com/ava-labs/avalanchego/utils/hashing"
)

const usage = `usage:
  nodeid-check <cert-path>             derive from a certificate
  nodeid-check <key-path> <cert-path>  validate the pair, then derive`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "nodeid-check:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var der []byte
	switch len(args) {
	case 1:
		b, err := certDERFromPEMFile(args[0])
		if err != nil {
			return err
		}
		der = b
	case 2:
		// ref. avalanchego config/config.go "getStakingTLSCertFromFile"
		cert, err := staking.LoadTLSCertFromFiles(args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to load staking key pair: %w", err)
		}
		der = cert.Leaf.Raw
	default:
		return fmt.Errorf("expected 1 or 2 arguments, got %d\n%s", len(args), usage)
	}

	nodeID, err := ids.ToShortID(hashing.PubkeyBytesToAddress(der))
	if err != nil {
		return fmt.Errorf("failed to build node id: %w", err)
	}

	fmt.Println(nodeID.PrefixedString(ids.NodeIDPrefix))
	return nil
}

func certDERFromPEMFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%s does not contain a PEM certificate", path)
	}
	if _, err := x509.ParseCertificate(block.Bytes); err != nil {
		return nil, fmt.Errorf("invalid certificate in %s: %w", path, err)
	}
	return block.Bytes, nil
}
