package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 keeps objects in a map keyed by bucket/key.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	deletes int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func newFakeS3Backend() *S3 {
	f := newFakeS3()
	return NewS3WithAPI(f, f, "bucket", "files")
}

func noSuchKey() error {
	return &smithy.GenericAPIError{Code: "NoSuchKey", Message: "The specified key does not exist."}
}

func (f *fakeS3) Upload(ctx context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	f.mu.Unlock()
	return &manager.UploadOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, noSuchKey()
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		LastModified:  aws.Time(time.Now()),
	}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	f.deletes++
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	bucket := aws.ToString(in.Bucket) + "/"
	prefix := aws.ToString(in.Prefix)

	f.mu.Lock()
	var keys []string
	for k := range f.objects {
		if !strings.HasPrefix(k, bucket) {
			continue
		}
		key := strings.TrimPrefix(k, bucket)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	f.mu.Unlock()
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestS3_KeyLayout(t *testing.T) {
	f := newFakeS3()
	b := NewS3WithAPI(f, f, "bucket", "/tenant/files/")

	info, err := b.Put(context.Background(), KindImage, "1-cat.png", strings.NewReader("meow"))
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/tenant/files/images/1-cat.png", info.Location)
	assert.Equal(t, int64(4), info.Size)
	_, ok := f.objects["bucket/tenant/files/images/1-cat.png"]
	assert.True(t, ok)
}

func TestS3_NoPrefix(t *testing.T) {
	f := newFakeS3()
	b := NewS3WithAPI(f, f, "bucket", "")

	_, err := b.Put(context.Background(), KindUpload, "doc.txt", strings.NewReader("x"))
	require.NoError(t, err)
	_, ok := f.objects["bucket/uploads/doc.txt"]
	assert.True(t, ok)
}

func TestS3_ListSkipsNestedKeys(t *testing.T) {
	f := newFakeS3()
	f.objects["bucket/files/uploads/nested/deep.txt"] = []byte("x")
	f.objects["bucket/files/uploads/top.txt"] = []byte("y")
	b := NewS3WithAPI(f, f, "bucket", "files")

	names, err := b.List(context.Background(), KindUpload)
	require.NoError(t, err)
	assert.Equal(t, []string{"top.txt"}, names)
}

func TestS3_DeleteAbsentDoesNotCallDelete(t *testing.T) {
	f := newFakeS3()
	b := NewS3WithAPI(f, f, "bucket", "files")

	err := b.Delete(context.Background(), KindUpload, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.deletes)
}

func TestIsS3NotFound(t *testing.T) {
	assert.True(t, isS3NotFound(noSuchKey()))
	assert.True(t, isS3NotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isS3NotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isS3NotFound(errors.New("boom")))
}
