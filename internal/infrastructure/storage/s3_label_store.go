// Package storage archives shipping label PDFs in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/storefront/fulfillment/internal/application/webhook"
	"github.com/storefront/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ webhook.LabelArchiver = (*S3LabelStore)(nil)

const (
	// LabelKeyPrefix is the object key prefix for archived labels
	LabelKeyPrefix = "labels"

	labelContentType = "application/pdf"

	// Longest lifetime SigV4 allows for a presigned URL.
	maxPresignExpiration = 7 * 24 * time.Hour
)

// ErrEmptyLabel is returned when there is no PDF content to store.
var ErrEmptyLabel = errors.New("label is empty")

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// S3LabelStore writes shipping labels to a bucket and returns a URL for each.
// With a public base URL the link is permanent; otherwise it is a presigned GET.
type S3LabelStore struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	bucket            string
	publicBaseURL     string
	presignExpiration time.Duration
	logger            *zap.Logger
}

// S3LabelStoreOption configures an S3LabelStore
type S3LabelStoreOption func(*S3LabelStore)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) S3LabelStoreOption {
	return func(s *S3LabelStore) {
		s.logger = logger
	}
}

// WithPresignExpiration sets the lifetime of presigned label links
func WithPresignExpiration(d time.Duration) S3LabelStoreOption {
	return func(s *S3LabelStore) {
		s.presignExpiration = d
	}
}

// NewS3LabelStore creates a label store from the storage configuration.
// Any S3-compatible backend works when Endpoint is set.
func NewS3LabelStore(ctx context.Context, cfg config.StorageConfig, opts ...S3LabelStoreOption) (*S3LabelStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("storage access key id and secret access key must be set together")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint string
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid storage endpoint %q", cfg.Endpoint)
		}
		endpoint = strings.TrimRight(cfg.Endpoint, "/")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3LabelStore{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		bucket:            cfg.Bucket,
		publicBaseURL:     strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignExpiration: maxPresignExpiration,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.presignExpiration <= 0 || store.presignExpiration > maxPresignExpiration {
		store.presignExpiration = maxPresignExpiration
	}

	return store, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *S3LabelStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating label bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// LabelKey returns the object key for a label.
func LabelKey(orderNumber, trackingNumber string) string {
	return fmt.Sprintf("%s/%s/%s.pdf", LabelKeyPrefix, sanitizeKeyPart(orderNumber), sanitizeKeyPart(trackingNumber))
}

func sanitizeKeyPart(part string) string {
	part = unsafeKeyChars.ReplaceAllString(strings.TrimSpace(part), "_")
	part = strings.Trim(part, "._")
	if part == "" {
		return "unknown"
	}
	return part
}

// StoreLabel uploads the PDF and returns its link. Storing the same
// order and tracking number again overwrites the object.
func (s *S3LabelStore) StoreLabel(ctx context.Context, orderNumber, trackingNumber string, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", ErrEmptyLabel
	}
	key := LabelKey(orderNumber, trackingNumber)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(pdf),
		ContentType:   aws.String(labelContentType),
		ContentLength: aws.Int64(int64(len(pdf))),
		Metadata: map[string]string{
			"order-number":    orderNumber,
			"tracking-number": trackingNumber,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload label %s: %w", key, err)
	}

	link, err := s.labelURL(ctx, key)
	if err != nil {
		return "", err
	}

	s.logger.Info("Shipping label archived",
		zap.String("order_number", orderNumber),
		zap.String("tracking_number", trackingNumber),
		zap.String("key", key),
		zap.Int("bytes", len(pdf)),
	)
	return link, nil
}

func (s *S3LabelStore) labelURL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign label %s: %w", key, err)
	}
	return req.URL, nil
}

// Bucket returns the bucket name
func (s *S3LabelStore) Bucket() string {
	return s.bucket
}
