// Package publish uploads converted collections to S3-compatible storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/haasonsaas/nqbench/internal/observability"
)

// ErrObjectExists is returned when an upload would replace an existing
// object and overwriting is disabled.
var ErrObjectExists = errors.New("object already exists")

// Config configures an S3-compatible destination.
type Config struct {
	Bucket          string `yaml:"bucket" json:"bucket"`
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Prefix          string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
	UsePathStyle    bool   `yaml:"use_path_style,omitempty" json:"use_path_style,omitempty"`
	Overwrite       bool   `yaml:"overwrite,omitempty" json:"overwrite,omitempty"`
}

// ParseURL fills Bucket and Prefix from an s3://bucket/prefix URL,
// keeping the remaining fields of base.
func ParseURL(raw string, base Config) (Config, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Config{}, fmt.Errorf("parse publish url: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return Config{}, fmt.Errorf("publish url must look like s3://bucket/prefix, got %q", raw)
	}
	base.Bucket = u.Host
	base.Prefix = strings.Trim(u.Path, "/")
	return base, nil
}

// ObjectAPI is the subset of the S3 client used for publishing.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Publisher uploads collection files under <prefix>/<collection>/.
type Publisher struct {
	client    ObjectAPI
	bucket    string
	prefix    string
	overwrite bool
	logger    *observability.Logger
}

// New creates a publisher backed by an S3 client built from cfg.
func New(ctx context.Context, cfg Config, logger *observability.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOptions := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient creates a publisher over an existing client.
func NewWithClient(client ObjectAPI, cfg Config, logger *observability.Logger) *Publisher {
	if logger == nil {
		logger = observability.Discard()
	}
	logger = logger.WithFields("component", "publish", "bucket", cfg.Bucket)
	return &Publisher{
		client:    client,
		bucket:    strings.TrimSpace(cfg.Bucket),
		prefix:    strings.Trim(cfg.Prefix, "/"),
		overwrite: cfg.Overwrite,
		logger:    logger,
	}
}

// Publish uploads every file to <prefix>/<collection>/<base name> and
// returns the s3:// URLs in input order. The first failure stops the upload.
func (p *Publisher) Publish(ctx context.Context, collection string, files []string) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, file := range files {
		u, err := p.upload(ctx, collection, file)
		if err != nil {
			return urls, err
		}
		urls = append(urls, u)
	}
	p.logger.Info(observability.AddCollection(ctx, collection), "collection published",
		"bucket", p.bucket,
		"objects", len(urls),
	)
	return urls, nil
}

func (p *Publisher) upload(ctx context.Context, collection, file string) (string, error) {
	key := p.objectKey(collection, filepath.Base(file))
	if !p.overwrite {
		exists, err := p.exists(ctx, key)
		if err != nil {
			return "", err
		}
		if exists {
			return "", fmt.Errorf("%w: s3://%s/%s", ErrObjectExists, p.bucket, key)
		}
	}

	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket:      &p.bucket,
		Key:         &key,
		Body:        f,
		ContentType: aws.String("application/json"),
	}
	if info, err := f.Stat(); err == nil {
		input.ContentLength = aws.Int64(info.Size())
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3 put object %s: %w", key, err)
	}
	p.logger.Debug(ctx, "uploaded", "key", key)
	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}

func (p *Publisher) exists(ctx context.Context, key string) (bool, error) {
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &p.bucket,
		Key:    &key,
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && strings.EqualFold(apiErr.ErrorCode(), "NotFound") {
		return false, nil
	}
	return false, fmt.Errorf("s3 head object %s: %w", key, err)
}

func (p *Publisher) objectKey(collection, name string) string {
	return path.Join(p.prefix, collection, name)
}
