package compat

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ava-labs/nodeid-cli/pkg/nodeid"
	"github.com/ava-labs/nodeid-cli/pkg/staking"
)

// RunSpec describes one compatibility run: which credentials to
// generate (or reuse), which second deriver to compare against, and
// how to clean up afterwards. It is stored as YAML so runs are
// reviewable and repeatable.
type RunSpec struct {
	RunID     string `yaml:"run_id"`
	KeyPath   string `yaml:"key_path"`
	CertPath  string `yaml:"cert_path"`
	Algorithm string `yaml:"algorithm"`
	Subject   string `yaml:"subject,omitempty"`

	// ReuseExisting loads credentials already present at the paths
	// instead of failing; generation still happens when both files are
	// absent.
	ReuseExisting bool `yaml:"reuse_existing"`

	// Cleanup removes the credential files once the run finishes, so a
	// later run cannot silently compare against stale files.
	Cleanup bool `yaml:"cleanup"`

	// Expect optionally pins the textual identifier the run must
	// produce, on top of cross-implementation agreement.
	Expect string `yaml:"expect,omitempty"`

	Check CheckSpec  `yaml:"check"`
	Cloud *CloudSpec `yaml:"cloud,omitempty"`
}

// CheckSpec names the external derivation tool to compare against. The
// certificate path is appended to Args. An empty Command selects the
// built-in avalanchego-backed deriver.
type CheckSpec struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
}

// CloudSpec enables the cloud client preflight before the run.
type CloudSpec struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region,omitempty"`
}

// DefaultRunSpec returns a runnable spec with generated paths under the
// system temp directory.
func DefaultRunSpec() *RunSpec {
	runID := NewRunID()
	return &RunSpec{
		RunID:     runID,
		KeyPath:   filepath.Join(os.TempDir(), runID+".key"),
		CertPath:  filepath.Join(os.TempDir(), runID+".crt"),
		Algorithm: string(staking.DefaultAlgorithm),
		Cleanup:   true,
	}
}

// NewRunID generates a fresh run identifier of the form
// run-20260102-1a2b3c4d, date first so listings sort chronologically.
func NewRunID() string {
	return fmt.Sprintf("run-%s-%s", time.Now().UTC().Format("20060102"), uuid.NewString()[:8])
}

// LoadRunSpec reads and validates a YAML run spec. Unknown fields are
// rejected so a typo in a hand-written spec cannot silently disable a
// check.
func LoadRunSpec(path string) (*RunSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run spec: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	spec := &RunSpec{}
	if err := dec.Decode(spec); err != nil {
		return nil, fmt.Errorf("failed to parse run spec %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run spec %s: %w", path, err)
	}
	return spec, nil
}

// Save writes the spec as YAML, headed by a short usage comment.
func (s *RunSpec) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal run spec: %w", err)
	}
	header := fmt.Sprintf("# Compatibility run %s.\n# Execute with: nodeid compat run --spec %s\n", s.RunID, path)
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write run spec: %w", err)
	}
	return nil
}

// Validate checks the spec for contradictions before anything touches
// the filesystem.
func (s *RunSpec) Validate() error {
	if s.RunID == "" {
		return fmt.Errorf("run_id is required")
	}
	if s.KeyPath == "" {
		return fmt.Errorf("key_path is required")
	}
	if s.CertPath == "" {
		return fmt.Errorf("cert_path is required")
	}
	if s.KeyPath == s.CertPath {
		return fmt.Errorf("key_path and cert_path must differ (both are %s)", s.KeyPath)
	}
	if _, err := staking.ParseAlgorithm(s.Algorithm); err != nil {
		return err
	}
	if s.Expect != "" {
		if _, err := nodeid.ParseID(s.Expect); err != nil {
			return fmt.Errorf("invalid expect value: %w", err)
		}
	}
	if s.Check.Command == "" && len(s.Check.Args) > 0 {
		return fmt.Errorf("check.args given without check.command")
	}
	return nil
}
