package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ava-labs/nodeid-cli/pkg/cloud"
	"github.com/ava-labs/nodeid-cli/pkg/compat"
)

var compatCmd = &cobra.Command{
	Use:   "compat",
	Short: "Cross-implementation compatibility runs",
	Long: `Verify that this tool and an independent implementation derive the
same node ID from the same certificate.

A run is described by a YAML spec: create one with 'compat default-spec',
review it, then execute it with 'compat run'.

Subcommands:
  default-spec  Write a runnable spec with sensible defaults
  run           Execute a spec`,
}

var (
	// default-spec flags
	specPath         string
	specRunID        string
	specKeyPath      string
	specCertPath     string
	specAlgorithm    string
	specSubject      string
	specCheckCommand string
	specCheckArgs    []string
	specExpect       string
	specKeep         bool
	specReuse        bool
	specCloud        bool
	specCloudRegion  string
)

var compatDefaultSpecCmd = &cobra.Command{
	Use:   "default-spec",
	Short: "Write a default run spec",
	Long: `Write a compatibility run spec with generated run ID and credential
paths under the system temp directory. Flags override individual fields.

Without --check-command the run compares against the built-in
avalanchego-backed deriver. With it, the named program is executed with
the certificate path as its last argument and must print the node ID.

Examples:
  nodeid compat default-spec
  nodeid compat default-spec --spec-path run.yaml --algorithm rsa-2048
  nodeid compat default-spec --check-command ./nodeid-check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := compat.DefaultRunSpec()
		if specRunID != "" {
			spec.RunID = specRunID
			spec.KeyPath = filepath.Join(os.TempDir(), specRunID+".key")
			spec.CertPath = filepath.Join(os.TempDir(), specRunID+".crt")
		}
		if specKeyPath != "" {
			spec.KeyPath = specKeyPath
		}
		if specCertPath != "" {
			spec.CertPath = specCertPath
		}
		if specAlgorithm != "" {
			spec.Algorithm = specAlgorithm
		}
		spec.Subject = specSubject
		spec.Expect = specExpect
		spec.ReuseExisting = specReuse
		spec.Cleanup = !specKeep
		spec.Check = compat.CheckSpec{Command: specCheckCommand, Args: specCheckArgs}
		if specCloud {
			spec.Cloud = &compat.CloudSpec{Enabled: true, Region: specCloudRegion}
		}

		if err := spec.Validate(); err != nil {
			return err
		}

		outPath := specPath
		if outPath == "" {
			outPath = spec.RunID + ".yaml"
		}
		if err := spec.Save(outPath); err != nil {
			return err
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			return fmt.Errorf("failed to read back run spec: %w", err)
		}
		fmt.Printf("Wrote run spec to %s\n\n%s", outPath, data)
		return nil
	},
}

var (
	// run flags
	runSpecPath string
	runKeep     bool
	runReuse    bool
)

var compatRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a compatibility run",
	Long: `Execute a compatibility run: generate (or reuse) staking
credentials, derive the node ID twice through independent
implementations, and fail unless both agree.

Examples:
  nodeid compat run --spec run.yaml
  nodeid compat run --spec run.yaml --keep`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runSpecPath == "" {
			return fmt.Errorf("--spec is required")
		}

		ctx, cancel := getOperationContext()
		defer cancel()

		spec, err := compat.LoadRunSpec(runSpecPath)
		if err != nil {
			return err
		}
		if runKeep {
			spec.Cleanup = false
		}
		if runReuse {
			spec.ReuseExisting = true
		}

		log, err := newLogger()
		if err != nil {
			return err
		}

		runner := &compat.Runner{Spec: spec, Log: log}
		if spec.Cloud != nil && spec.Cloud.Enabled {
			region := spec.Cloud.Region
			runner.CloudCheck = func(ctx context.Context) error {
				clients, err := cloud.New(ctx, region)
				if err != nil {
					return err
				}
				return clients.Preflight(ctx)
			}
		}

		result, err := runner.Run(ctx)
		if err != nil {
			return err
		}

		fmt.Println("Compatibility check passed!")
		fmt.Printf("  Run ID:    %s\n", result.RunID)
		fmt.Printf("  Node ID:   %s\n", result.ID)
		fmt.Printf("  Second:    %s\n", result.SecondName)
		if result.Created {
			fmt.Printf("  Cert:      %s (generated)\n", result.CertPath)
		} else {
			fmt.Printf("  Cert:      %s (reused)\n", result.CertPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compatCmd)
	compatCmd.AddCommand(compatDefaultSpecCmd)
	compatCmd.AddCommand(compatRunCmd)

	// default-spec flags
	compatDefaultSpecCmd.Flags().StringVar(&specPath, "spec-path", "", "Where to write the spec (default <run-id>.yaml)")
	compatDefaultSpecCmd.Flags().StringVar(&specRunID, "run-id", "", "Run identifier (default generated)")
	compatDefaultSpecCmd.Flags().StringVar(&specKeyPath, "key-path", "", "Staking key path (default under the temp directory)")
	compatDefaultSpecCmd.Flags().StringVar(&specCertPath, "cert-path", "", "Staking certificate path (default under the temp directory)")
	compatDefaultSpecCmd.Flags().StringVar(&specAlgorithm, "algorithm", "", "Key algorithm (default ecdsa-p256)")
	compatDefaultSpecCmd.Flags().StringVar(&specSubject, "subject", "", "Certificate subject common name")
	compatDefaultSpecCmd.Flags().StringVar(&specCheckCommand, "check-command", "", "External deriver command (default built-in avalanchego deriver)")
	compatDefaultSpecCmd.Flags().StringArrayVar(&specCheckArgs, "check-arg", nil, "Extra argument for --check-command (repeatable)")
	compatDefaultSpecCmd.Flags().StringVar(&specExpect, "expect", "", "Pin the node ID the run must produce")
	compatDefaultSpecCmd.Flags().BoolVar(&specKeep, "keep", false, "Keep credential files after the run")
	compatDefaultSpecCmd.Flags().BoolVar(&specReuse, "reuse-existing", false, "Reuse credential files already on disk")
	compatDefaultSpecCmd.Flags().BoolVar(&specCloud, "cloud", false, "Run the AWS preflight before the run")
	compatDefaultSpecCmd.Flags().StringVar(&specCloudRegion, "region", "", "AWS region for the preflight")

	// run flags
	compatRunCmd.Flags().StringVar(&runSpecPath, "spec", "", "Run spec to execute (required)")
	compatRunCmd.Flags().BoolVar(&runKeep, "keep", false, "Keep credential files after the run")
	compatRunCmd.Flags().BoolVar(&runReuse, "reuse-existing", false, "Reuse credential files already on disk")
}
