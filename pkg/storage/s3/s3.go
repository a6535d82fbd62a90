// Package s3 provides the object storage used for s3:// inputs and export uploads.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds S3 client configuration.
type Config struct {
	// Region is the AWS region (e.g., "us-east-1")
	Region string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	DownloadTimeout time.Duration
	UploadTimeout   time.Duration
}

// DefaultConfig returns sensible defaults for S3 configuration.
func DefaultConfig(region string) Config {
	return Config{
		Region:          region,
		DownloadTimeout: 5 * time.Minute,
		UploadTimeout:   5 * time.Minute,
	}
}

// Location is a parsed s3://bucket/key URI.
type Location struct {
	Bucket string
	Key    string
}

// String renders the location as an s3:// URI.
func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// Join returns a location for name under l's key prefix.
func (l Location) Join(name string) Location {
	return Location{Bucket: l.Bucket, Key: strings.TrimPrefix(path.Join(l.Key, name), "/")}
}

// IsURI reports whether s looks like an s3:// URI.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "s3://")
}

// ParseURI parses an s3://bucket/key URI. The key may be empty for a bucket root.
func ParseURI(s string) (Location, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Location{}, fmt.Errorf("invalid s3 uri %q: %w", s, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return Location{}, fmt.Errorf("invalid s3 uri %q: want s3://bucket/key", s)
	}
	return Location{Bucket: u.Host, Key: strings.TrimPrefix(u.Path, "/")}, nil
}

// objectAPI is the subset of the S3 client used here.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client provides S3 operations.
type Client struct {
	cfg    Config
	client objectAPI
}

// NewClient creates a new S3 client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return newWithAPI(cfg, s3.NewFromConfig(awsCfg, s3Opts...)), nil
}

func newWithAPI(cfg Config, api objectAPI) *Client {
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 5 * time.Minute
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 5 * time.Minute
	}
	return &Client{cfg: cfg, client: api}
}

// Open returns a reader for the object at loc. Closing the reader releases
// the download deadline.
func (c *Client) Open(ctx context.Context, loc Location) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)

	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to get object %s: %w", loc, err)
	}

	return &cancelOnCloseReader{ReadCloser: out.Body, cancel: cancel}, nil
}

// cancelOnCloseReader cancels the request context when closed.
type cancelOnCloseReader struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnCloseReader) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}

// UploadFile uploads a local file to loc.
func (c *Client) UploadFile(ctx context.Context, localPath string, loc Location) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.UploadTimeout)
	defer cancel()

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", loc, err)
	}
	return nil
}

// contentType guesses a MIME type from the export file extension.
func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
