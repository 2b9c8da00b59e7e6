package storage

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailforge/config"
)

type fakeS3Presign struct {
	putInput *s3.PutObjectInput
	getInput *s3.GetObjectInput
	expires  time.Duration
	err      error
}

func (f *fakeS3Presign) PresignPutObject(_ context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.putInput = in
	f.expires = expiresOf(optFns)
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3.example.com/" + *in.Key + "?sig=put", Method: "PUT"}, nil
}

func (f *fakeS3Presign) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.getInput = in
	f.expires = expiresOf(optFns)
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3.example.com/" + *in.Key + "?sig=get", Method: "GET"}, nil
}

func expiresOf(optFns []func(*s3.PresignOptions)) time.Duration {
	var o s3.PresignOptions
	for _, fn := range optFns {
		fn(&o)
	}
	return o.Expires
}

func TestS3_PresignPut(t *testing.T) {
	t.Parallel()

	fake := &fakeS3Presign{}
	s := &S3{bucket: "images", presign: fake}

	u, err := s.PresignPut(context.Background(), "users/1/a.png", "image/png", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3.example.com/users/1/a.png?sig=put", u)
	assert.Equal(t, "images", *fake.putInput.Bucket)
	assert.Equal(t, "image/png", *fake.putInput.ContentType)
	assert.Equal(t, 15*time.Minute, fake.expires)
}

func TestS3_PresignGet(t *testing.T) {
	t.Parallel()

	fake := &fakeS3Presign{}
	s := &S3{bucket: "images", presign: fake}

	u, err := s.PresignGet(context.Background(), "users/1/a.png", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, u, "sig=get")
	assert.Equal(t, "users/1/a.png", *fake.getInput.Key)
	assert.Equal(t, time.Hour, fake.expires)

	fake.err = errors.New("boom")
	_, err = s.PresignGet(context.Background(), "k", time.Hour)
	assert.EqualError(t, err, "boom")
}

type fakeMinIO struct {
	bucket, object string
	err            error
}

func (f *fakeMinIO) PresignedPutObject(_ context.Context, bucket, object string, _ time.Duration) (*url.URL, error) {
	f.bucket, f.object = bucket, object
	if f.err != nil {
		return nil, f.err
	}
	return url.Parse("http://localhost:9000/" + bucket + "/" + object + "?X-Amz-Signature=abc")
}

func (f *fakeMinIO) PresignedGetObject(_ context.Context, bucket, object string, _ time.Duration, _ url.Values) (*url.URL, error) {
	f.bucket, f.object = bucket, object
	if f.err != nil {
		return nil, f.err
	}
	return url.Parse("http://localhost:9000/" + bucket + "/" + object)
}

func TestMinIO_Presign(t *testing.T) {
	t.Parallel()

	fake := &fakeMinIO{}
	m := &MinIO{bucket: "images", client: fake}

	u, err := m.PresignPut(context.Background(), "users/2/b.jpg", "image/jpeg", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/images/users/2/b.jpg?X-Amz-Signature=abc", u)
	assert.Equal(t, "images", fake.bucket)

	u, err = m.PresignGet(context.Background(), "users/2/b.jpg", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/images/users/2/b.jpg", u)

	fake.err = errors.New("denied")
	_, err = m.PresignPut(context.Background(), "x", "", time.Minute)
	assert.Error(t, err)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.Storage{Driver: "s3"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(context.Background(), config.Storage{Driver: "gcs", Bucket: "b"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(context.Background(), config.Storage{Driver: "minio", Bucket: "b"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_MinIO(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background(), config.Storage{Driver: "minio", Bucket: "b", Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.IsType(t, &MinIO{}, p)
}
