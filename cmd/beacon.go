package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ava-labs/nodeid-cli/pkg/bootstrap"
	"github.com/ava-labs/nodeid-cli/pkg/nodeid"
)

var beaconCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Beacon node descriptions",
	Long: `Write and aggregate beacon node YAML descriptions.

Each description names one seed node by IP and node ID. A directory of
them becomes the --bootstrap-ips and --bootstrap-ids values new nodes
need to join the network.

Subcommands:
  write  Write one beacon description
  flags  Render a directory as bootstrap flag values`,
}

var (
	// beacon write flags
	beaconIP     string
	beaconNodeID string
	beaconCert   string
	beaconOut    string
)

var beaconWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write one beacon description",
	Long: `Write a beacon node YAML description.

The node ID comes from --node-id, or is derived from the certificate
named by --cert.

Examples:
  nodeid beacon write --ip 198.51.100.7 --cert staker.crt --out beacons/node-a.yaml
  nodeid beacon write --ip 198.51.100.7 --node-id NodeID-... --out beacons/node-a.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if beaconIP == "" {
			return fmt.Errorf("--ip is required")
		}
		if beaconOut == "" {
			return fmt.Errorf("--out is required")
		}
		if (beaconNodeID == "") == (beaconCert == "") {
			return fmt.Errorf("exactly one of --node-id and --cert is required")
		}

		nodeID := beaconNodeID
		if beaconCert != "" {
			id, err := nodeid.FromCertFile(beaconCert)
			if err != nil {
				return err
			}
			nodeID = id.String()
		}

		b := bootstrap.BeaconNode{IP: beaconIP, ID: nodeID}
		if err := b.Save(beaconOut); err != nil {
			return err
		}

		fmt.Printf("Wrote beacon description to %s\n", beaconOut)
		fmt.Printf("  IP:       %s\n", b.IP)
		fmt.Printf("  Node ID:  %s\n", b.ID)
		return nil
	},
}

var (
	// beacon flags flags
	beaconDir  string
	beaconPort uint16
)

var beaconFlagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Render a directory as bootstrap flag values",
	Long: `Read every beacon description in a directory and print the
--bootstrap-ips and --bootstrap-ids values they add up to. Files are
read in name order, so the two lists stay index-aligned.

Example:
  nodeid beacon flags --dir beacon-nodes/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if beaconDir == "" {
			return fmt.Errorf("--dir is required")
		}

		nodes, err := bootstrap.LoadDir(beaconDir)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			return fmt.Errorf("no beacon descriptions found in %s", beaconDir)
		}

		ips, ids := bootstrap.JoinFlags(nodes, beaconPort)
		fmt.Printf("--bootstrap-ips=%s\n", ips)
		fmt.Printf("--bootstrap-ids=%s\n", ids)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(beaconCmd)
	beaconCmd.AddCommand(beaconWriteCmd)
	beaconCmd.AddCommand(beaconFlagsCmd)

	// write flags
	beaconWriteCmd.Flags().StringVar(&beaconIP, "ip", "", "Beacon node IP address (required)")
	beaconWriteCmd.Flags().StringVar(&beaconNodeID, "node-id", "", "Beacon node ID")
	beaconWriteCmd.Flags().StringVar(&beaconCert, "cert", "", "Derive the node ID from this certificate")
	beaconWriteCmd.Flags().StringVar(&beaconOut, "out", "", "Output file (required)")

	// flags flags
	beaconFlagsCmd.Flags().StringVar(&beaconDir, "dir", "", "Directory of beacon descriptions (required)")
	beaconFlagsCmd.Flags().Uint16Var(&beaconPort, "port", bootstrap.DefaultStakingPort, "Staking port appended to each IP")
}
