package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ava-labs/nodeid-cli/pkg/node"
)

var (
	// node-info flags
	nodeURI           string
	nodeURIs          string
	allowInsecureHTTP bool
)

var nodeInfoCmd = &cobra.Command{
	Use:   "node-info",
	Short: "Query a running node for its identity",
	Long: `Query a running avalanchego node's info API for its node ID,
version, and BLS public key.

With --uris, query several nodes and print one node ID per line in
input order.

Examples:
  nodeid node-info --uri 127.0.0.1
  nodeid node-info --uri https://mynode.example.com:9650
  nodeid node-info --uris 10.0.0.1,10.0.0.2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (nodeURI == "") == (nodeURIs == "") {
			return fmt.Errorf("exactly one of --uri and --uris is required")
		}

		ctx, cancel := getOperationContext()
		defer cancel()

		if nodeURIs != "" {
			uris := parseCommaSeparated(nodeURIs)
			if len(uris) == 0 {
				return fmt.Errorf("--uris is empty")
			}
			nodeIDs, err := node.GetNodeIDs(ctx, uris)
			if err != nil {
				return fmt.Errorf("failed to get node ids: %w", err)
			}
			for _, id := range nodeIDs {
				fmt.Println(id)
			}
			return nil
		}

		info, err := node.GetNodeInfoWithInsecureHTTP(ctx, nodeURI, allowInsecureHTTP)
		if err != nil {
			return fmt.Errorf("failed to get node info: %w", err)
		}

		fmt.Printf("Node ID:        %s\n", info.NodeID)
		fmt.Printf("Version:        %s\n", info.Version)
		if info.BLSPublicKey != "" {
			fmt.Printf("BLS Public Key: %s\n", info.BLSPublicKey)
			fmt.Printf("BLS PoP:        %s\n", info.BLSProofOfPossession)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nodeInfoCmd)

	nodeInfoCmd.Flags().StringVar(&nodeURI, "uri", "", "Node address (IP, host:port, or full URI)")
	nodeInfoCmd.Flags().StringVar(&nodeURIs, "uris", "", "Comma-separated node addresses")
	nodeInfoCmd.Flags().BoolVar(&allowInsecureHTTP, "allow-insecure-http", false, "Allow plain HTTP to non-local nodes (unsafe; use only on trusted networks)")
}
