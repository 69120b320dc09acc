// Package testdeps starts the external services behind the remote catalog, and
// hands tests ready-to-use stores connected to them.
package testdeps

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/adammck/sstprops/pkg/impl/blobstore/s3"
	"github.com/adammck/sstprops/pkg/metadata"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/testcontainers/testcontainers-go"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
)

const (
	accessKey = "minioadmin"
	secretKey = "minioadmin"
	bucket    = "sstables"
	region    = "us-east-1"
)

// Env holds the containers started for one test. They're terminated when the
// test finishes.
type Env struct {
	t   *testing.T
	ctx context.Context

	mongoURL string
	s3URL    string
}

type Option func(*Env)

// WithMongo starts a single-node Mongo replset, for MetaStore.
func WithMongo() Option {
	return func(e *Env) {
		e.mongoURL = startMongo(e.ctx, e.t)
	}
}

// WithMinio starts minio with an empty bucket, for BlobStore.
func WithMinio() Option {
	return func(e *Env) {
		e.s3URL = startMinio(e.ctx, e.t)
	}
}

func New(ctx context.Context, t *testing.T, opts ...Option) *Env {
	t.Helper()

	if testing.Short() || os.Getenv("SSTPROPS_SKIP_INTEGRATION") == "1" {
		t.Skip("skipping integration test")
	}

	env := &Env{
		t:   t,
		ctx: ctx,
	}

	for _, opt := range opts {
		opt(env)
	}

	return env
}

// BlobStore returns an S3 blobstore pointed at the minio container. It fails
// the test if minio isn't running; use WithMinio.
func (e *Env) BlobStore() *s3.BlobStore {
	e.t.Helper()

	if e.s3URL == "" {
		e.t.Fatalf("minio is not enabled; use WithMinio to enable it")
	}

	bs := s3.New(bucket,
		s3.WithEndpoint(e.s3URL),
		s3.WithRegion(region),
		s3.WithStaticCredentials(accessKey, secretKey))

	if err := bs.Ping(e.ctx); err != nil {
		e.t.Fatalf("BlobStore.Ping: %v", err)
	}

	return bs
}

// MetaStore returns an initialized metadata store in the Mongo container,
// closed when the test finishes. It fails the test if Mongo isn't running;
// use WithMongo.
func (e *Env) MetaStore() *metadata.Store {
	e.t.Helper()

	ms := e.newMetaStore()
	if err := ms.Init(e.ctx); err != nil {
		e.t.Fatalf("MetaStore.Init: %v", err)
	}

	return ms
}

// UninitializedMetaStore is like MetaStore, but doesn't call Init.
func (e *Env) UninitializedMetaStore() *metadata.Store {
	e.t.Helper()
	return e.newMetaStore()
}

func (e *Env) newMetaStore() *metadata.Store {
	if e.mongoURL == "" {
		e.t.Fatalf("mongo is not enabled; use WithMongo to enable it")
	}

	ms := metadata.New(e.mongoURL)
	e.t.Cleanup(func() {
		ms.Close(e.ctx)
	})

	return ms
}

func startMongo(ctx context.Context, t *testing.T) string {
	c, err := tcmongo.Run(ctx, "mongo:6", tcmongo.WithReplicaSet("rs"))
	if err != nil {
		t.Fatalf("tcmongo.Run: %v", err)
	}
	terminateOnCleanup(ctx, t, c)

	cs, err := c.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("ConnectionString: %v", err)
	}

	// single-node replset, so connect directly. ConnectionString leaves this
	// out even when WithReplicaSet is used.
	return fmt.Sprintf("%s/?connect=direct", cs)
}

func startMinio(ctx context.Context, t *testing.T) string {
	c, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername(accessKey),
		tcminio.WithPassword(secretKey))
	if err != nil {
		t.Fatalf("tcminio.Run: %v", err)
	}
	terminateOnCleanup(ctx, t, c)

	hostPort, err := c.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("ConnectionString: %v", err)
	}

	mc, err := minio.New(hostPort, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Fatalf("minio.New: %v", err)
	}

	err = mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
	if err != nil {
		t.Fatalf("MakeBucket: %v", err)
	}

	return "http://" + hostPort
}

func terminateOnCleanup(ctx context.Context, t *testing.T, c testcontainers.Container) {
	t.Cleanup(func() {
		if err := c.Terminate(ctx); err != nil {
			t.Logf("Terminate: %v", err)
		}
	})
}
