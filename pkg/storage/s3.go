package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
)

// S3API is the subset of the S3 client used for offloaded media.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage serves media offloaded to a bucket, keyed by prefix + relative path.
type S3Storage struct {
	client     S3API
	bucket     string
	keyPrefix  string
	extensions extensionSet
}

// NewS3Storage builds an S3 client from cfg. Static credentials are used when
// both keys are set, otherwise the default credential chain applies.
func NewS3Storage(ctx context.Context, cfg config.StorageS3Config, allowedExtensions []string) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 storage: region is required")
	}

	var configOptions []func(*awsConfig.LoadOptions) error
	configOptions = append(configOptions, awsConfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// MinIO and friends need path-style addressing.
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StorageWithClient(client, cfg.Bucket, cfg.KeyPrefix, allowedExtensions), nil
}

func NewS3StorageWithClient(client S3API, bucket, keyPrefix string, allowedExtensions []string) *S3Storage {
	return &S3Storage{
		client:     client,
		bucket:     bucket,
		keyPrefix:  strings.Trim(keyPrefix, "/"),
		extensions: newExtensionSet(allowedExtensions),
	}
}

func (s *S3Storage) Type() string {
	return "s3"
}

func (s *S3Storage) key(rel string) (string, error) {
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}

	clean := path.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%s: %w", rel, ErrOutsideRoot)
	}

	if s.keyPrefix == "" {
		return clean, nil
	}
	return s.keyPrefix + "/" + clean, nil
}

func (s *S3Storage) Exists(ctx context.Context, rel string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key, err := s.key(rel)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

func (s *S3Storage) Delete(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := s.key(rel)
	if err != nil {
		return err
	}
	if !s.extensions.allows(key) {
		return fmt.Errorf("%s: %w", rel, ErrExtensionRejected)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}
