package s3

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"minerva/internal/adapters/config"
	"minerva/pkg/errors"
)

// Client wraps the small slice of S3 this service needs: put an object and
// hand out a time-limited download link.
type Client struct {
	bucket    string
	urlExpiry time.Duration
	api       *awss3.Client
	presign   *awss3.PresignClient
}

// NewClient creates an S3 client from the default AWS credential chain.
func NewClient(ctx context.Context, cfg config.StorageConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.Wrap(errors.ErrNoCredentials, "S3 bucket not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Wrap(errors.ErrNoCredentials, err.Error())
	}

	api := awss3.NewFromConfig(awsCfg)

	return &Client{
		bucket:    cfg.Bucket,
		urlExpiry: cfg.URLExpiry,
		api:       api,
		presign:   awss3.NewPresignClient(api),
	}, nil
}

// Upload stores an object under key.
func (c *Client) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := c.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrapf(classify(err), "upload s3://%s/%s", c.bucket, key)
	}
	return nil
}

// PresignGet returns a time-limited GET URL for a stored object.
func (c *Client) PresignGet(ctx context.Context, key string) (string, time.Time, error) {
	req, err := c.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(c.urlExpiry))
	if err != nil {
		return "", time.Time{}, errors.Wrapf(classify(err), "presign s3://%s/%s", c.bucket, key)
	}

	return req.URL, time.Now().UTC().Add(c.urlExpiry), nil
}

// classify maps AWS errors to our sentinels so the publisher can decide
// whether the run degrades or the failure is worth alerting on.
func classify(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoCredentialProviders"),
		strings.Contains(msg, "no EC2 IMDS role found"),
		strings.Contains(msg, "failed to retrieve credentials"),
		strings.Contains(msg, "AccessDenied"):
		return errors.ErrNoCredentials
	case strings.Contains(msg, "NoSuchBucket"), strings.Contains(msg, "NoSuchKey"):
		return errors.ErrArtifactMissing
	default:
		return errors.ErrPublicationFailed
	}
}
