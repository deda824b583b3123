package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ava-labs/nodeid-cli/pkg/cloud"
)

var (
	// cloud flags
	awsRegion string
)

var cloudCmd = &cobra.Command{
	Use:   "cloud",
	Short: "AWS helpers for run artifacts",
	Long: `Inspect the AWS account behind the default credential chain and back
up staking credentials to S3.

Credentials come from the standard chain (environment, shared config,
instance role). Private keys are always KMS-encrypted before upload.

Subcommands:
  whoami   Show the caller identity
  keys     List KMS keys
  buckets  List S3 buckets
  stacks   List live CloudFormation stacks
  backup   Encrypt and upload staking credentials`,
}

var cloudWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the caller identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := getOperationContext()
		defer cancel()

		clients, err := cloud.New(ctx, awsRegion)
		if err != nil {
			return err
		}
		identity, err := clients.Whoami(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Account:  %s\n", identity.Account)
		fmt.Printf("ARN:      %s\n", identity.ARN)
		fmt.Printf("User ID:  %s\n", identity.UserID)
		fmt.Printf("Region:   %s\n", clients.Region)
		return nil
	},
}

var cloudKeysLimit int32

var cloudKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List KMS keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := getOperationContext()
		defer cancel()

		clients, err := cloud.New(ctx, awsRegion)
		if err != nil {
			return err
		}
		arns, err := clients.ListKeys(ctx, cloudKeysLimit)
		if err != nil {
			return err
		}

		if len(arns) == 0 {
			fmt.Println("No KMS keys found.")
			return nil
		}
		for _, arn := range arns {
			fmt.Println(arn)
		}
		return nil
	},
}

var cloudBucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List S3 buckets",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := getOperationContext()
		defer cancel()

		clients, err := cloud.New(ctx, awsRegion)
		if err != nil {
			return err
		}
		names, err := clients.ListBuckets(ctx)
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No buckets found.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var cloudStacksCmd = &cobra.Command{
	Use:   "stacks",
	Short: "List live CloudFormation stacks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := getOperationContext()
		defer cancel()

		clients, err := cloud.New(ctx, awsRegion)
		if err != nil {
			return err
		}
		stacks, err := clients.ListStacks(ctx)
		if err != nil {
			return err
		}

		if len(stacks) == 0 {
			fmt.Println("No live stacks found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATUS")
		for _, s := range stacks {
			fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Status)
		}
		w.Flush()
		return nil
	},
}

var (
	// backup flags
	backupBucket   string
	backupKMSKeyID string
	backupRunID    string
	backupName     string
)

var cloudBackupCmd = &cobra.Command{
	Use:   "backup <key-path> <cert-path>",
	Short: "Encrypt and upload staking credentials",
	Long: `Encrypt the staking key with KMS and upload ciphertext and
certificate under the run's bucket layout:

  <run-id>/pki/<name>.key.encrypted
  <run-id>/pki/<name>.crt

The key never leaves the machine in plaintext.

Example:
  nodeid cloud backup --bucket ops --kms-key-id alias/staking \
    --run-id run-20260102-1a2b3c4d --name node-a staker.key staker.crt`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := getOperationContext()
		defer cancel()

		clients, err := cloud.New(ctx, awsRegion)
		if err != nil {
			return err
		}
		clients.Log, err = newLogger()
		if err != nil {
			return err
		}

		keyObject, certObject, err := clients.Backup(ctx, cloud.BackupInput{
			Bucket:   backupBucket,
			KMSKeyID: backupKMSKeyID,
			RunID:    backupRunID,
			Name:     backupName,
			KeyPath:  args[0],
			CertPath: args[1],
		})
		if err != nil {
			return err
		}

		fmt.Println("Backup complete!")
		fmt.Printf("  Key:   s3://%s/%s\n", backupBucket, keyObject)
		fmt.Printf("  Cert:  s3://%s/%s\n", backupBucket, certObject)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cloudCmd)
	cloudCmd.AddCommand(cloudWhoamiCmd)
	cloudCmd.AddCommand(cloudKeysCmd)
	cloudCmd.AddCommand(cloudBucketsCmd)
	cloudCmd.AddCommand(cloudStacksCmd)
	cloudCmd.AddCommand(cloudBackupCmd)

	cloudCmd.PersistentFlags().StringVar(&awsRegion, "region", "", "AWS region (default from the credential chain)")

	// keys flags
	cloudKeysCmd.Flags().Int32Var(&cloudKeysLimit, "limit", 5, "Maximum number of keys to list")

	// backup flags
	cloudBackupCmd.Flags().StringVar(&backupBucket, "bucket", "", "Destination S3 bucket (required)")
	cloudBackupCmd.Flags().StringVar(&backupKMSKeyID, "kms-key-id", "", "KMS key for encrypting the staking key (required)")
	cloudBackupCmd.Flags().StringVar(&backupRunID, "run-id", "", "Run the artifacts belong to (required)")
	cloudBackupCmd.Flags().StringVar(&backupName, "name", "", "Logical node name used in object keys (required)")
}
