package cmd

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ava-labs/nodeid-cli/pkg/nodeid"
	"github.com/ava-labs/nodeid-cli/pkg/staking"
)

var (
	// generate flags
	genAlgorithm    string
	genSubject      string
	genForce        bool
	genSkipExisting bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <key-output-path> <cert-output-path>",
	Short: "Generate staking credentials",
	Long: `Generate a staking key and self-signed certificate, then print the
node ID the certificate commits to.

Existing files are never overwritten unless --force is set. With
--skip-existing, credentials already on disk are loaded and their node
ID printed instead of failing.

Examples:
  nodeid generate staker.key staker.crt
  nodeid generate --algorithm rsa-2048 staker.key staker.crt
  nodeid generate --skip-existing staker.key staker.crt`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyPath, certPath := args[0], args[1]

		if genForce && genSkipExisting {
			return fmt.Errorf("--force and --skip-existing are mutually exclusive")
		}
		algorithm, err := staking.ParseAlgorithm(genAlgorithm)
		if err != nil {
			return err
		}

		if genForce {
			if err := staking.RemoveCredentials(keyPath, certPath); err != nil {
				return fmt.Errorf("failed to remove existing credentials: %w", err)
			}
		}

		var (
			certDER []byte
			created bool
		)
		if genSkipExisting {
			_, certDER, created, err = staking.LoadOrCreate(rand.Reader, algorithm, genSubject, keyPath, certPath)
			if err != nil {
				return err
			}
		} else {
			kp, err := staking.GenerateKey(rand.Reader, algorithm)
			if err != nil {
				return err
			}
			_, der, err := staking.NewCertificate(rand.Reader, kp, genSubject, staking.DefaultValidity())
			if err != nil {
				return err
			}
			if err := staking.WriteCredentials(kp, der, keyPath, certPath); err != nil {
				return err
			}
			certDER = der
			created = true
		}

		id := nodeid.FromCertificate(certDER)

		if created {
			fmt.Println("Generated staking credentials!")
			fmt.Printf("  Algorithm:  %s\n", algorithm)
		} else {
			fmt.Println("Reusing existing staking credentials.")
		}
		fmt.Printf("  Key:        %s\n", keyPath)
		fmt.Printf("  Cert:       %s\n", certPath)
		fmt.Printf("  Node ID:    %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&genAlgorithm, "algorithm", "", "Key algorithm: ecdsa-p256, ed25519, rsa-2048, or rsa-4096 (default ecdsa-p256)")
	generateCmd.Flags().StringVar(&genSubject, "subject", "", "Certificate subject common name (default staking-node)")
	generateCmd.Flags().BoolVar(&genForce, "force", false, "Replace credential files that already exist")
	generateCmd.Flags().BoolVar(&genSkipExisting, "skip-existing", false, "Reuse credential files that already exist")
}
