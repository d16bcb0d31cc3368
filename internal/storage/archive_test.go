package storage

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voteflow-backend/internal/config"
)

type fakeS3 struct {
	puts    map[string][]byte
	listErr error
	objects []types.Object
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &s3.ListObjectsV2Output{Contents: f.objects}, nil
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "imports/2026/03/04/s1/members.csv", ObjectKey(now, "s1", "members.csv"))
	assert.Equal(t, "imports/2026/03/04/s1/members.csv", ObjectKey(now, "s1", `C:\Users\ada\members.csv`))
	assert.Equal(t, "imports/2026/03/04/s1/upload.csv", ObjectKey(now, "s1", ""))
}

func TestArchiveStoresBytes(t *testing.T) {
	fake := &fakeS3{}
	a := New(fake, "bucket")
	require.NoError(t, a.Archive(context.Background(), "s1", "members.csv", []byte("name,email,role\n")))
	require.NoError(t, a.ArchiveReport(context.Background(), "s1", []byte("%PDF")))
	require.Len(t, fake.puts, 2)
	for k, v := range fake.puts {
		if assert.Contains(t, k, "/s1/") && k[len(k)-3:] == "csv" {
			assert.Equal(t, "name,email,role\n", string(v))
		}
	}
}

func TestRecentAndStatus(t *testing.T) {
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	fake := &fakeS3{objects: []types.Object{
		{Key: aws.String("imports/a.csv"), Size: aws.Int64(10), LastModified: &older},
		{Key: aws.String("imports/b.csv"), Size: aws.Int64(5), LastModified: &newer},
	}}
	a := New(fake, "bucket")

	objs, err := a.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "imports/b.csv", objs[0].Key)

	st := a.Status(context.Background())
	assert.Equal(t, true, st["connected"])
	assert.Equal(t, 2, st["objects"])
	assert.Equal(t, int64(15), st["totalBytes"])
	assert.Equal(t, "imports/b.csv", st["latest"])

	fake.listErr = errors.New("denied")
	st = a.Status(context.Background())
	assert.Equal(t, false, st["connected"])
}

func TestNewFromConfigRequiresBucket(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &config.Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
