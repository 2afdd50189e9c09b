package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client used by the S3 backend.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Uploader streams a payload of unknown length into a bucket.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 stores kind/name as <prefix><kind>/<name> in a single bucket.
type S3 struct {
	api      S3API
	uploader Uploader
	bucket   string
	prefix   string
}

// NewS3 builds the backend from a configured client.
func NewS3(client *s3.Client, bucket, prefix string) *S3 {
	return NewS3WithAPI(client, manager.NewUploader(client), bucket, prefix)
}

func NewS3WithAPI(api S3API, uploader Uploader, bucket, prefix string) *S3 {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{api: api, uploader: uploader, bucket: bucket, prefix: prefix}
}

func (s *S3) kindPrefix(kind Kind) string {
	return s.prefix + string(kind) + "/"
}

func (s *S3) key(kind Kind, name string) (string, error) {
	if err := validate(kind, name); err != nil {
		return "", err
	}
	return s.kindPrefix(kind) + name, nil
}

func (s *S3) location(key string) string {
	return "s3://" + path.Join(s.bucket, key)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *S3) Put(ctx context.Context, kind Kind, name string, r io.Reader) (*Info, error) {
	key, err := s.key(kind, name)
	if err != nil {
		return nil, err
	}

	body := &countingReader{r: r}
	if _, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	return &Info{
		Name:     name,
		Kind:     kind,
		Location: s.location(key),
		Size:     body.n,
		ModTime:  time.Now(),
	}, nil
}

func (s *S3) Open(ctx context.Context, kind Kind, name string) (*Object, error) {
	key, err := s.key(kind, name)
	if err != nil {
		return nil, err
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	return &Object{
		Info: Info{
			Name:     name,
			Kind:     kind,
			Location: s.location(key),
			Size:     aws.ToInt64(out.ContentLength),
			ModTime:  aws.ToTime(out.LastModified),
		},
		ReadCloser: out.Body,
	}, nil
}

func (s *S3) Exists(ctx context.Context, kind Kind, name string) (bool, error) {
	key, err := s.key(kind, name)
	if err != nil {
		return false, err
	}

	_, err = s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", key, err)
	}
	return true, nil
}

func (s *S3) List(ctx context.Context, kind Kind) ([]string, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	prefix := s.kindPrefix(kind)
	names := []string{}
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	return names, nil
}

// Delete checks presence first because DeleteObject succeeds for absent keys.
func (s *S3) Delete(ctx context.Context, kind Kind, name string) error {
	ok, err := s.Exists(ctx, kind, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
	}

	key, _ := s.key(kind, name)
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
