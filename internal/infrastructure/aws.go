package infrastructure

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/architeacher/svc-visa-processing/internal/config"
)

// AWSClients groups the SDK clients the workers talk to.
type AWSClients struct {
	S3  *s3.Client
	SES *ses.Client
	SNS *sns.Client
}

func NewAWSClients(ctx context.Context, storage config.DocumentStorageConfig, notifications config.NotificationsConfig) (*AWSClients, error) {
	base, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(notifications.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	storageCfg, err := awsconfig.LoadDefaultConfig(ctx, storageOptions(storage)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load document storage config: %w", err)
	}

	return &AWSClients{
		// Supabase storage speaks S3 only with path-style addressing.
		S3: s3.NewFromConfig(storageCfg, func(o *s3.Options) {
			o.UsePathStyle = true
			if storage.Endpoint != "" {
				o.BaseEndpoint = aws.String(storage.Endpoint)
			}
		}),
		SES: ses.NewFromConfig(base),
		SNS: sns.NewFromConfig(base),
	}, nil
}

func storageOptions(cfg config.DocumentStorageConfig) []func(*awsconfig.LoadOptions) error {
	options := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" {
		options = append(options, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	return options
}
