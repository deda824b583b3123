package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// maxDirectEncrypt is the KMS Encrypt plaintext ceiling in bytes.
// Staking key PEMs sit far below it, so no envelope scheme is needed.
const maxDirectEncrypt = 4096

// BackupInput names the credential files and destination of one
// backup.
type BackupInput struct {
	Bucket   string
	KMSKeyID string
	RunID    string
	Name     string
	KeyPath  string
	CertPath string
}

// Validate checks every field is set.
func (in BackupInput) Validate() error {
	switch {
	case in.Bucket == "":
		return errors.New("bucket is required")
	case in.KMSKeyID == "":
		return errors.New("kms key id is required")
	case in.RunID == "":
		return errors.New("run id is required")
	case in.Name == "":
		return errors.New("name is required")
	case in.KeyPath == "":
		return errors.New("key path is required")
	case in.CertPath == "":
		return errors.New("cert path is required")
	}
	return nil
}

// Backup encrypts the staking key with KMS and uploads ciphertext and
// certificate under the run's bucket layout. The key never reaches the
// bucket in plaintext. Returns the two object keys written.
func (c *Clients) Backup(ctx context.Context, in BackupInput) (keyObject, certObject string, err error) {
	if err := in.Validate(); err != nil {
		return "", "", err
	}

	keyPEM, err := os.ReadFile(in.KeyPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read key file: %w", err)
	}
	if len(keyPEM) > maxDirectEncrypt {
		return "", "", fmt.Errorf("key file %s is %d bytes, above the %d byte kms direct-encrypt limit", in.KeyPath, len(keyPEM), maxDirectEncrypt)
	}
	certPEM, err := os.ReadFile(in.CertPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read cert file: %w", err)
	}

	log := c.logger().With("run_id", in.RunID, "name", in.Name)

	encOut, err := c.KMS.Encrypt(ctx, &kms.EncryptInput{
		KeyId:     aws.String(in.KMSKeyID),
		Plaintext: keyPEM,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to encrypt key with kms: %w", err)
	}
	log.Info("encrypted staking key", "kms_key_id", in.KMSKeyID, "ciphertext_bytes", len(encOut.CiphertextBlob))

	keyObject = KeyObjectKey(in.RunID, in.Name)
	if _, err := c.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(in.Bucket),
		Key:    aws.String(keyObject),
		Body:   bytes.NewReader(encOut.CiphertextBlob),
	}); err != nil {
		return "", "", fmt.Errorf("failed to upload encrypted key: %w", err)
	}
	log.Info("uploaded encrypted key", "bucket", in.Bucket, "object", keyObject)

	certObject = CertObjectKey(in.RunID, in.Name)
	if _, err := c.S3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(in.Bucket),
		Key:    aws.String(certObject),
		Body:   bytes.NewReader(certPEM),
	}); err != nil {
		return "", "", fmt.Errorf("failed to upload certificate: %w", err)
	}
	log.Info("uploaded certificate", "bucket", in.Bucket, "object", certObject)

	return keyObject, certObject, nil
}
