package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	appconfig "vacuumvp-service/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Client wraps the S3 operations the service needs: uploading report
// attachments and machine datasheets, presigning download URLs, and
// deleting objects.
type Client struct {
	api     *s3.Client
	presign *s3.PresignClient
	bucket  string
	region  string
	expiry  time.Duration
}

var client *Client

// Init creates the global storage client. Credentials come from the
// default AWS provider chain.
func Init(ctx context.Context, cfg *appconfig.StorageConfig) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	api := s3.NewFromConfig(awsCfg)
	client = &Client{
		api:     api,
		presign: s3.NewPresignClient(api),
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		expiry:  cfg.PresignExpiry,
	}
	return nil
}

// GetClient returns the global storage client, or nil when storage was
// never initialized (e.g. in tests).
func GetClient() *Client {
	return client
}

// SetClient replaces the global storage client. Used by tests.
func SetClient(c *Client) {
	client = c
}

// Upload stores the object under a generated key inside folder, keeping
// the original file extension, and returns the key.
func (c *Client) Upload(ctx context.Context, folder, fileName, contentType string, body io.Reader) (string, error) {
	key := path.Join(folder, uuid.New().String()+path.Ext(fileName))

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.api.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// PresignedURL returns a time-limited GET URL for the given key.
func (c *Client) PresignedURL(ctx context.Context, key string) (string, error) {
	out, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return out.URL, nil
}

// ObjectURL returns the direct (unsigned) URL for the given key. Fallback
// for when presigning fails.
func (c *Client) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

// Delete removes the object under key.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
