package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// S3Config locates the history dataset in S3 or an S3-compatible store.
// Credentials always come from the AWS default chain.
type S3Config struct {
	Bucket       string
	Prefix       string // key prefix inside Bucket
	Region       string // empty uses the default chain
	Endpoint     string // custom endpoint, e.g. MinIO
	UsePathStyle bool
}

// ParseS3Path splits "bucket/some/prefix" into bucket and prefix.
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(strings.TrimPrefix(path, "s3://"), "/")
	return bucket, strings.TrimSuffix(prefix, "/")
}

func (c S3Config) clientOptions(o *s3.Options) {
	if c.Endpoint != "" {
		endpoint := c.Endpoint
		o.BaseEndpoint = &endpoint
	}
	o.UsePathStyle = c.UsePathStyle
}

// NewS3Factory loads AWS configuration once and returns a Lode factory
// whose stores share one S3 client.
func NewS3Factory(ctx context.Context, cfg S3Config) (lode.StoreFactory, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("history: S3 bucket is required")
	}

	var load []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		load = append(load, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, storageErr(OpInit, "s3://"+cfg.Bucket, fmt.Errorf("load AWS config: %w", err))
	}
	client := s3.NewFromConfig(awsCfg, cfg.clientOptions)

	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
	}, nil
}
