package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-review/internal/resilience"
)

// MinioConfig configures a MinioStore.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicBaseURL, when set, is prefixed to object keys to build URLs
	// for a publicly readable bucket. Otherwise URLs are presigned.
	PublicBaseURL string
	PresignExpiry time.Duration
	Retry         resilience.RetryConfig
}

// MinioStore keeps PDFs in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	cfg    MinioConfig
}

// NewMinio creates a MinIO client from cfg.
func NewMinio(cfg MinioConfig) (*MinioStore, error) {
	if cfg.Bucket == "" {
		return nil, eris.New("blob: minio bucket is required")
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = 7 * 24 * time.Hour
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = retryableS3
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("blob", "put_object")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "blob: init minio")
	}
	return &MinioStore{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return eris.Wrapf(err, "blob: check bucket %s", s.cfg.Bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return eris.Wrapf(err, "blob: make bucket %s", s.cfg.Bucket)
	}
	zap.L().Info("blob: bucket created", zap.String("bucket", s.cfg.Bucket))
	return nil
}

// UploadPDF puts data into the bucket, retrying transient failures.
func (s *MinioStore) UploadPDF(ctx context.Context, data []byte, key string) (Object, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}

	_, err = resilience.DoVal(ctx, s.cfg.Retry, func(ctx context.Context) (minio.UploadInfo, error) {
		return s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: ContentTypePDF})
	})
	if err != nil {
		return Object{}, eris.Wrapf(err, "blob: put %s", key)
	}

	u, err := s.URL(ctx, key)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: u}, nil
}

// URL returns the public or presigned URL of key.
func (s *MinioStore) URL(ctx context.Context, key string) (string, error) {
	if s.cfg.PublicBaseURL != "" {
		u, err := url.JoinPath(s.cfg.PublicBaseURL, key)
		return u, eris.Wrap(err, "blob: build url")
	}
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, s.cfg.PresignExpiry, url.Values{})
	if err != nil {
		return "", eris.Wrapf(err, "blob: presign %s", key)
	}
	return u.String(), nil
}

func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "blob: get %s", key)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close() //nolint:errcheck
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "blob: stat %s", key)
	}
	return obj, nil
}

// retryableS3 retries throttling and server-side failures.
func retryableS3(err error) bool {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode != 0 {
		return resilience.IsTransientHTTPStatus(resp.StatusCode) ||
			strings.EqualFold(resp.Code, "SlowDown") ||
			resp.StatusCode == http.StatusRequestTimeout
	}
	return resilience.IsTransient(err)
}
