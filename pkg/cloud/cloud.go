// Package cloud provides thin AWS clients for publishing run
// artifacts. Certificates travel in the clear, private keys only as
// KMS ciphertext.
package cloud

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Clients bundles the AWS service clients the CLI uses, all built from
// one shared credential chain.
type Clients struct {
	Region string

	// Log receives progress from multi-step flows; nil means
	// slog.Default.
	Log *slog.Logger

	STS *sts.Client
	KMS *kms.Client
	S3  *s3.Client
	CFN *cloudformation.Client
}

func (c *Clients) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// New resolves the default AWS credential chain and constructs the
// service clients. An empty region keeps whatever the chain resolves.
func New(ctx context.Context, region string) (*Clients, error) {
	var optFns []func(*config.LoadOptions) error
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return &Clients{
		Region: cfg.Region,
		STS:    sts.NewFromConfig(cfg),
		KMS:    kms.NewFromConfig(cfg),
		S3:     s3.NewFromConfig(cfg),
		CFN:    cloudformation.NewFromConfig(cfg),
	}, nil
}

// Identity describes the caller the credential chain resolves to.
type Identity struct {
	Account string
	ARN     string
	UserID  string
}

// Whoami returns the caller identity behind the resolved credentials.
func (c *Clients) Whoami(ctx context.Context) (*Identity, error) {
	out, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get caller identity: %w", err)
	}
	return &Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}

// Preflight verifies the credential chain works before any run relies
// on it.
func (c *Clients) Preflight(ctx context.Context) error {
	if _, err := c.Whoami(ctx); err != nil {
		return fmt.Errorf("aws preflight failed: %w", err)
	}
	return nil
}

// ListKeys returns up to limit KMS key ARNs.
func (c *Clients) ListKeys(ctx context.Context, limit int32) ([]string, error) {
	out, err := c.KMS.ListKeys(ctx, &kms.ListKeysInput{Limit: aws.Int32(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to list kms keys: %w", err)
	}

	arns := make([]string, 0, len(out.Keys))
	for _, k := range out.Keys {
		arns = append(arns, aws.ToString(k.KeyArn))
	}
	return arns, nil
}

// ListBuckets returns the account's S3 bucket names.
func (c *Clients) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := c.S3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list s3 buckets: %w", err)
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

// Stack is one live CloudFormation stack.
type Stack struct {
	Name   string
	Status string
}

// ListStacks returns CloudFormation stacks in a settled, live status.
func (c *Clients) ListStacks(ctx context.Context) ([]Stack, error) {
	out, err := c.CFN.ListStacks(ctx, &cloudformation.ListStacksInput{
		StackStatusFilter: []cfntypes.StackStatus{
			cfntypes.StackStatusCreateComplete,
			cfntypes.StackStatusUpdateComplete,
			cfntypes.StackStatusUpdateRollbackComplete,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cloudformation stacks: %w", err)
	}

	stacks := make([]Stack, 0, len(out.StackSummaries))
	for _, s := range out.StackSummaries {
		stacks = append(stacks, Stack{
			Name:   aws.ToString(s.StackName),
			Status: string(s.StackStatus),
		})
	}
	return stacks, nil
}
