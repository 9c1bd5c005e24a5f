// Package r2 uploads rendered videos to a Cloudflare R2 bucket through
// the S3-compatible API.
package r2

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"reelsmith/internal/config"
)

// objectPutter is the slice of the S3 client the uploader needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client uploads objects to a single bucket.
type Client struct {
	api           objectPutter
	bucket        string
	uploadFolder  string
	publicBaseURL string
}

// UploadResult describes a stored object.
type UploadResult struct {
	Key       string
	PublicURL string
}

// New builds a Client from the storage section of the configuration. R2 uses
// the region "auto" and a per-account endpoint instead of AWS regions.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.StorageConfigured() {
		return nil, errors.New("storage is not configured")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage credentials: %w", err)
	}

	endpoint := cfg.StorageEndpoint()
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &Client{
		api:           api,
		bucket:        cfg.Storage.Bucket,
		uploadFolder:  cfg.Storage.UploadFolder,
		publicBaseURL: cfg.Storage.PublicBaseURL,
	}, nil
}

// NewWithAPI builds a Client around an existing S3 API implementation.
// Used in tests.
func NewWithAPI(api objectPutter, bucket, uploadFolder, publicBaseURL string) *Client {
	return &Client{
		api:           api,
		bucket:        bucket,
		uploadFolder:  strings.Trim(uploadFolder, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// ObjectKey returns the bucket key for a video identifier.
func (c *Client) ObjectKey(videoID string) string {
	key := strings.TrimSpace(videoID) + ".mp4"
	if c.uploadFolder != "" {
		key = c.uploadFolder + "/" + key
	}
	return key
}

// PublicURL returns the public address for a stored key, or empty when no
// public base URL is configured.
func (c *Client) PublicURL(key string) string {
	if c.publicBaseURL == "" {
		return ""
	}
	return c.publicBaseURL + "/" + key
}

// UploadVideo stores the file at localPath under the key derived from
// videoID and returns the key and public URL.
func (c *Client) UploadVideo(ctx context.Context, localPath, videoID string) (UploadResult, error) {
	if c == nil || c.api == nil {
		return UploadResult{}, errors.New("storage client not initialized")
	}
	if strings.TrimSpace(videoID) == "" {
		return UploadResult{}, errors.New("empty video id")
	}

	file, err := os.Open(localPath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat video: %w", err)
	}

	key := c.ObjectKey(videoID)
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String("video/mp4"),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("put object %q: %w", key, err)
	}

	return UploadResult{Key: key, PublicURL: c.PublicURL(key)}, nil
}
