package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ava-labs/nodeid-cli/pkg/nodeid"
)

var (
	// derive flags
	deriveFormat string
)

var deriveCmd = &cobra.Command{
	Use:   "derive <cert-input-path>",
	Short: "Derive the node ID from a certificate",
	Long: `Derive the node ID a staking certificate commits to and print it on
a single line, making the command easy to compose in scripts.

Examples:
  nodeid derive staker.crt
  nodeid derive --format hex staker.crt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := nodeid.FromCertFile(args[0])
		if err != nil {
			return err
		}

		out, err := formatNodeID(id, deriveFormat)
		if err != nil {
			return err
		}

		fmt.Println(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deriveCmd)

	deriveCmd.Flags().StringVar(&deriveFormat, "format", formatID, "Output format: id (NodeID-... form), cb58, or hex")
}
