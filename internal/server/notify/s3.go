package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// S3Config locates the outbox bucket on an S3-compatible store.
type S3Config struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Notifier drops each message as a JSON object into an outbox bucket
// where a mail relay picks it up.
type S3Notifier struct {
	client *s3.Client
	bucket string
	logger logging.Logger
}

func NewS3Notifier(ctx context.Context, cfg S3Config, l logging.Logger) (*S3Notifier, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Notifier{client: client, bucket: cfg.Bucket, logger: l.With("module", "s3_notifier")}, nil
}

// ObjectKey returns the outbox key for msg, partitioned by kind and day.
func ObjectKey(msg Message) string {
	d := msg.CreatedAt.UTC()
	return fmt.Sprintf("outbox/%s/%04d/%02d/%02d/%s.json", msg.Kind, d.Year(), d.Month(), d.Day(), msg.ID)
}

func (n *S3Notifier) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := ObjectKey(msg)
	_, err = putObject(n.client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(n.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put error: %w", err)
	}

	n.logger.Info(ctx, "Notification stored", "kind", msg.Kind, "key", key)
	return nil
}
