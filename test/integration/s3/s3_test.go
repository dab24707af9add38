//go:build integration

package s3_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/mediagc/pkg/asset"
	assetSqlite "github.com/marmos91/mediagc/pkg/asset/sqlite"
	"github.com/marmos91/mediagc/pkg/catalog"
	"github.com/marmos91/mediagc/pkg/filestore"
	filestoreS3 "github.com/marmos91/mediagc/pkg/filestore/s3"
	"github.com/marmos91/mediagc/pkg/filestore/storetest"
	"github.com/marmos91/mediagc/pkg/gc"
	"github.com/marmos91/mediagc/pkg/lease"
	leaseMemory "github.com/marmos91/mediagc/pkg/lease/memory"
	"github.com/marmos91/mediagc/pkg/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestS3 creates a client and a bucket on Localstack (or another
// S3-compatible endpoint). The bucket is emptied and removed on cleanup.
//
// Prerequisites:
//
//	docker run --rm -p 4566:4566 localstack/localstack
//	go test -tags=integration ./test/integration/s3/...
func setupTestS3(t *testing.T) (*s3.Client, string) {
	t.Helper()
	ctx := context.Background()

	endpoint := os.Getenv("LOCALSTACK_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	client, err := filestoreS3.NewClient(ctx, filestoreS3.ClientConfig{
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		MaxRetries:      3,
	})
	require.NoError(t, err)

	bucket := fmt.Sprintf("mediagc-test-%d", time.Now().UnixNano())
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err, "is Localstack running at %s?", endpoint)

	t.Cleanup(func() {
		paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				break
			}
			for _, obj := range page.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: obj.Key})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	})

	return client, bucket
}

func TestS3FileStore_Integration(t *testing.T) {
	client, bucket := setupTestS3(t)

	var n int
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) filestore.WritableStore {
			// A fresh prefix per subtest keeps listings independent.
			n++
			store, err := filestoreS3.NewStore(context.Background(), filestoreS3.Config{
				Client:    client,
				Bucket:    bucket,
				KeyPrefix: fmt.Sprintf("suite-%d/", n),
			})
			require.NoError(t, err)
			return store
		},
		IdempotentDelete: true,
	}
	suite.Run(t)
}

// TestSweep_S3 runs a full sweep against S3: the orphan's object and row are
// removed, the referenced asset and its object stay.
func TestSweep_S3(t *testing.T) {
	ctx := context.Background()
	client, bucket := setupTestS3(t)

	files, err := filestoreS3.NewStore(ctx, filestoreS3.Config{Client: client, Bucket: bucket, KeyPrefix: "media/"})
	require.NoError(t, err)

	db, err := catalog.Open(ctx, catalog.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)
	defer db.Close()

	assets := assetSqlite.NewStore(db.SQL())
	kept, err := assets.CreateAsset(ctx, asset.Asset{StoredName: "kept.png", RelativePath: "uploads/kept.png", SizeBytes: 4})
	require.NoError(t, err)
	orphan, err := assets.CreateAsset(ctx, asset.Asset{StoredName: "orphan.png", RelativePath: "uploads/orphan.png", SizeBytes: 6})
	require.NoError(t, err)
	require.NoError(t, files.Write(ctx, kept.RelativePath, []byte("kept")))
	require.NoError(t, files.Write(ctx, orphan.RelativePath, []byte("orphan")))

	_, err = db.SQL().ExecContext(ctx, `INSERT INTO projects (name, cover_image_id) VALUES ('p', ?)`, int64(kept.ID))
	require.NoError(t, err)

	scanner, err := reference.NewScanner(db.SQL(), reference.DefaultSources())
	require.NoError(t, err)
	leases := lease.NewManager(leaseMemory.NewStore(), lease.Config{})

	collector, err := gc.NewCollector(scanner, assets, files, leases, gc.Config{}, nil)
	require.NoError(t, err)

	result, err := collector.RunSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, []asset.ID{orphan.ID}, result.DeletedIDs)
	assert.Equal(t, int64(6), result.FreedBytes)
	assert.Empty(t, result.Failures)

	exists, err := files.Exists(ctx, orphan.RelativePath)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = files.Exists(ctx, kept.RelativePath)
	require.NoError(t, err)
	assert.True(t, exists)
}
