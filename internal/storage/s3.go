package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"media-deriver/internal/logging"
	"media-deriver/internal/mediatypes"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"
)

// S3Config holds connection settings for an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// S3 is an ObjectStore backed by an S3-compatible bucket.
type S3 struct {
	client   *s3.Client
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
}

// NewS3 loads AWS configuration and builds an S3 store. Static credentials in
// cfg take precedence over the default credential chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3FromConfig(awsCfg, cfg), nil
}

// NewS3FromConfig builds an S3 store from an already-loaded aws.Config.
func NewS3FromConfig(awsCfg aws.Config, cfg S3Config) *S3 {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return &S3{
		client:   client,
		presign:  s3.NewPresignClient(client),
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
	}
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// Exists reports whether key is present.
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head %s: %w", key, err)
}

// Stat returns metadata for key.
func (s *S3) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectInfo{}, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return ObjectInfo{}, fmt.Errorf("head %s: %w", key, err)
	}
	return ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// Get opens key for reading.
func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out.Body, nil
}

// Put streams body to key using the multipart upload manager. Cancelling ctx
// aborts any in-progress multipart upload.
func (s *S3) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// SignedURL presigns a GET or PUT request for key.
func (s *S3) SignedURL(ctx context.Context, key, method string, ttl time.Duration) (string, error) {
	expires := s3.WithPresignExpires(ttl)
	switch strings.ToUpper(method) {
	case MethodGet, "":
		req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}, expires)
		if err != nil {
			return "", fmt.Errorf("presign get %s: %w", key, err)
		}
		return req.URL, nil
	case MethodPut:
		req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}, expires)
		if err != nil {
			return "", fmt.Errorf("presign put %s: %w", key, err)
		}
		return req.URL, nil
	default:
		return "", fmt.Errorf("unsupported signed url method %q", method)
	}
}

// List pages through objects under folder. Non-recursive listings use "/" as
// delimiter and report common prefixes as marker-style keys.
func (s *S3) List(ctx context.Context, folder string, recursive bool) ([]ObjectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if prefix := folderPrefix(folder); prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var out []ObjectInfo
	p := s3.NewListObjectsV2Paginator(s.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", folder, err)
		}
		for _, obj := range page.Contents {
			out = append(out, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		for _, cp := range page.CommonPrefixes {
			out = append(out, ObjectInfo{Key: aws.ToString(cp.Prefix)})
		}
	}
	s.fillContentTypes(ctx, out)
	return out, nil
}

// listHeadConcurrency bounds the HEAD requests List issues.
const listHeadConcurrency = 8

// fillContentTypes looks up the stored content type of listed objects whose
// key alone does not classify them. ListObjectsV2 carries no content type.
// Lookup failures leave the field empty.
func (s *S3) fillContentTypes(ctx context.Context, objects []ObjectInfo) {
	var g errgroup.Group
	g.SetLimit(listHeadConcurrency)
	for i := range objects {
		key := objects[i].Key
		if strings.HasSuffix(key, "/") || mediatypes.Classify("", key) != mediatypes.ClassUnknown {
			continue
		}
		g.Go(func() error {
			info, err := s.Stat(ctx, key)
			if err != nil {
				logging.Debug("No content type for %s: %v", key, err)
				return nil
			}
			objects[i].ContentType = info.ContentType
			return nil
		})
	}
	_ = g.Wait()
}
