package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/adammck/sstprops/pkg/api"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type BlobStore struct {
	bucket string

	// Zero values defer to the default AWS config (env vars, shared files).
	endpoint string
	region   string
	creds    aws.CredentialsProvider

	mu sync.Mutex
	s3 *s3.Client
}

var _ api.BlobStore = (*BlobStore)(nil)

type Option func(*BlobStore)

// WithEndpoint sends requests to an S3-compatible server, e.g. minio.
func WithEndpoint(url string) Option {
	return func(bs *BlobStore) {
		bs.endpoint = url
	}
}

func WithRegion(region string) Option {
	return func(bs *BlobStore) {
		bs.region = region
	}
}

func WithStaticCredentials(key, secret string) Option {
	return func(bs *BlobStore) {
		bs.creds = credentials.NewStaticCredentialsProvider(key, secret, "")
	}
}

func New(bucket string, opts ...Option) *BlobStore {
	bs := &BlobStore{
		bucket: bucket,
	}

	for _, opt := range opts {
		opt(bs)
	}

	return bs
}

func (bs *BlobStore) Ping(ctx context.Context) error {
	s3c, err := bs.getS3(ctx)
	if err != nil {
		return err
	}

	_, err = s3c.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: &bs.bucket,
	})
	if err != nil {
		return fmt.Errorf("HeadBucket: %w", err)
	}

	return nil
}

func (bs *BlobStore) Put(ctx context.Context, key string, r io.ReadSeeker) error {
	s3c, err := bs.getS3(ctx)
	if err != nil {
		return fmt.Errorf("getS3: %w", err)
	}

	_, err = s3c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bs.bucket,
		Key:         &key,
		Body:        r,
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		return fmt.Errorf("PutObject: %w", err)
	}

	return nil
}

func (bs *BlobStore) Open(ctx context.Context, key string) (api.Blob, error) {
	s3c, err := bs.getS3(ctx)
	if err != nil {
		return nil, fmt.Errorf("getS3: %w", err)
	}

	out, err := s3c.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bs.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("HeadObject: %w", mapErr(key, err))
	}

	return &object{
		ctx:    ctx,
		s3:     s3c,
		bucket: bs.bucket,
		key:    key,
		size:   aws.ToInt64(out.ContentLength),
	}, nil
}

func (bs *BlobStore) Delete(ctx context.Context, key string) error {
	s3c, err := bs.getS3(ctx)
	if err != nil {
		return err
	}

	_, err = s3c.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &bs.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("DeleteObject: %w", mapErr(key, err))
	}

	return nil
}

func (bs *BlobStore) List(ctx context.Context) ([]string, error) {
	s3c, err := bs.getS3(ctx)
	if err != nil {
		return nil, err
	}

	var keys []string
	p := s3.NewListObjectsV2Paginator(s3c, &s3.ListObjectsV2Input{
		Bucket: &bs.bucket,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ListObjectsV2: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	// S3 already returns keys in lexical order.
	return keys, nil
}

func (bs *BlobStore) getS3(ctx context.Context) (*s3.Client, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.s3 != nil {
		return bs.s3, nil
	}

	s, err := bs.connectToS3(ctx)
	if err != nil {
		return nil, err
	}

	bs.s3 = s
	return s, nil
}

func (bs *BlobStore) connectToS3(ctx context.Context) (*s3.Client, error) {
	var lo []func(*config.LoadOptions) error
	if bs.region != "" {
		lo = append(lo, config.WithRegion(bs.region))
	}
	if bs.creds != nil {
		lo = append(lo, config.WithCredentialsProvider(bs.creds))
	}

	cfg, err := config.LoadDefaultConfig(ctx, lo...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if bs.endpoint != "" {
			o.BaseEndpoint = aws.String(bs.endpoint)
		}
	}), nil
}

// mapErr converts the various ways S3 reports a missing key into NotFound.
func mapErr(key string, err error) error {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return &api.NotFound{Key: key}
	}
	return err
}

// object reads an S3 object with one ranged GET per ReadAt.
type object struct {
	ctx    context.Context
	s3     *s3.Client
	bucket string
	key    string
	size   int64
}

func (o *object) Size() int64 {
	return o.size
}

func (o *object) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("ReadAt: negative offset: %d", off)
	}
	if off >= o.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	last := off + int64(len(p)) - 1
	if last >= o.size {
		last = o.size - 1
	}

	out, err := o.s3.GetObject(o.ctx, &s3.GetObjectInput{
		Bucket: &o.bucket,
		Key:    &o.key,
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, last)),
	})
	if err != nil {
		return 0, fmt.Errorf("GetObject: %w", mapErr(o.key, err))
	}
	defer out.Body.Close()

	n, err := io.ReadFull(out.Body, p[:last-off+1])
	if err != nil {
		return n, fmt.Errorf("ReadFull: %w", err)
	}

	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}
