// Package s3 implements filestore.Store on Amazon S3 or an S3-compatible
// object store (MinIO, Localstack, Cubbit DS3).
//
// Object keys mirror the storage-relative asset paths under an optional key
// prefix, so the bucket layout matches the local uploads directory:
//
//	RelativePath: "users/7/cover.png"
//	Key Prefix:   "media/"
//	S3 Key:       "media/users/7/cover.png"
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/filestore"
)

// S3 allows at most 1000 keys per DeleteObjects request.
const maxDeleteBatch = 1000

// Client is the subset of *s3.Client the store uses.
type Client interface {
	s3.ListObjectsV2APIClient
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config configures an S3 file store.
type Config struct {
	// Client is the configured S3 client.
	Client Client

	// Bucket is the bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is prepended to every object key.
	KeyPrefix string

	// Metrics is optional; nil disables request metrics.
	Metrics Metrics
}

// Store is an S3-backed file store. Safe for concurrent use.
type Store struct {
	client    Client
	bucket    string
	keyPrefix string
	metrics   Metrics
}

// NewStore creates an S3 file store and verifies bucket access.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	if _, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	return &Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		metrics:   m,
	}, nil
}

// ClientConfig holds the connection settings for NewClient.
type ClientConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	MaxRetries      int
}

// NewClient builds an *s3.Client. Static credentials are used when both keys
// are set, otherwise the default AWS credential chain applies. A custom
// endpoint implies path-style addressing.
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	var opts []func(*awsConfig.LoadOptions) error

	opts = append(opts, awsConfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	opts = append(opts, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	logger.Debug("S3 client created: region=%s endpoint=%s", cfg.Region, cfg.Endpoint)

	return client, nil
}

func (s *Store) objectKey(path string) (string, error) {
	rel := asset.CleanPath(path)
	if rel == "" {
		return "", fmt.Errorf("%w: %q", filestore.ErrInvalidPath, path)
	}
	return s.keyPrefix + rel, nil
}

func (s *Store) pathFromKey(key string) string {
	return strings.TrimPrefix(key, s.keyPrefix)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// Exists reports whether an object exists for path.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, err := s.objectKey(path)
	if err != nil {
		return false, err
	}

	start := time.Now()
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		s.metrics.ObserveOperation("HeadObject", time.Since(start), nil)
	} else {
		s.metrics.ObserveOperation("HeadObject", time.Since(start), err)
	}
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// Delete removes the object for path. S3 deletes are idempotent, so a missing
// object is reported as success.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := s.objectKey(path)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	s.metrics.ObserveOperation("DeleteObject", time.Since(start), err)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("file %s: %w", path, filestore.ErrFileNotFound)
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// DeleteBatch removes objects with DeleteObjects, chunked at 1000 keys.
func (s *Store) DeleteBatch(ctx context.Context, paths []string) (map[string]error, error) {
	failures := make(map[string]error)

	for i := 0; i < len(paths); i += maxDeleteBatch {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(paths); j++ {
				failures[paths[j]] = err
			}
			return failures, err
		}

		end := min(i+maxDeleteBatch, len(paths))
		batch := paths[i:end]

		// Object keys map back to the caller's path spelling.
		byKey := make(map[string]string, len(batch))
		objects := make([]types.ObjectIdentifier, 0, len(batch))
		for _, p := range batch {
			key, err := s.objectKey(p)
			if err != nil {
				failures[p] = err
				continue
			}
			byKey[key] = p
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}
		if len(objects) == 0 {
			continue
		}

		start := time.Now()
		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		s.metrics.ObserveOperation("DeleteObjects", time.Since(start), err)
		if err != nil {
			for _, p := range byKey {
				failures[p] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}
			p, ok := byKey[*deleteErr.Key]
			if !ok {
				p = s.pathFromKey(*deleteErr.Key)
			}
			failures[p] = fmt.Errorf("%s: %s", aws.ToString(deleteErr.Code), aws.ToString(deleteErr.Message))
		}
		s.metrics.RecordObjects("DeleteObjects", len(objects)-len(result.Errors))
	}

	return failures, nil
}

// List returns every object under the key prefix. Directory marker objects
// (keys ending in "/") are skipped.
func (s *Store) List(ctx context.Context) ([]filestore.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var files []filestore.FileInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		page, err := paginator.NextPage(ctx)
		s.metrics.ObserveOperation("ListObjectsV2", time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			files = append(files, filestore.FileInfo{
				Path:    s.pathFromKey(*obj.Key),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
		s.metrics.RecordObjects("ListObjectsV2", len(page.Contents))
	}

	return files, nil
}

// Write uploads data as the object for path.
func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := s.objectKey(path)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	s.metrics.ObserveOperation("PutObject", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}
