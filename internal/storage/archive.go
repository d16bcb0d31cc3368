// Package storage archives accepted import files to an S3-compatible bucket
// (R2, MinIO, S3).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"voteflow-backend/internal/config"
	"voteflow-backend/internal/logger"
	"voteflow-backend/internal/timeutil"
)

const importPrefix = "imports/"

// ErrNotConfigured is returned by NewFromConfig when no bucket is set.
var ErrNotConfigured = errors.New("storage not configured")

// API is the subset of the S3 client the archive uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Archive struct {
	client API
	bucket string
}

func New(client API, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// NewFromConfig builds an S3 client with static credentials and a custom
// endpoint.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Archive, error) {
	sc := cfg.Storage
	if sc.Bucket == "" || sc.AccessKey == "" {
		return nil, ErrNotConfigured
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(sc.AccessKey, sc.SecretKey, "")),
		awsconfig.WithRegion(sc.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure s3 client: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if sc.Endpoint != "" {
			o.BaseEndpoint = aws.String(sc.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, sc.Bucket), nil
}

// ObjectKey is where an upload for sessionID lands.
func ObjectKey(now time.Time, sessionID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.csv"
	}
	return fmt.Sprintf("%s%s/%s/%s", importPrefix, now.Format("2006/01/02"), sessionID, name)
}

// Archive uploads a copy of an accepted CSV.
func (a *Archive) Archive(ctx context.Context, sessionID, fileName string, data []byte) error {
	return a.put(ctx, ObjectKey(timeutil.Now(), sessionID, fileName), data, "text/csv")
}

// ArchiveReport stores the PDF summary next to its upload.
func (a *Archive) ArchiveReport(ctx context.Context, sessionID string, pdf []byte) error {
	return a.put(ctx, ObjectKey(timeutil.Now(), sessionID, "report.pdf"), pdf, "application/pdf")
}

func (a *Archive) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	logger.For("storage").WithField("key", key).WithField("bytes", len(data)).Info("[Archive] Stored")
	return nil
}

type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Recent lists archived import objects, newest first.
func (a *Archive) Recent(ctx context.Context, limit int) ([]Object, error) {
	out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(importPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	objs := make([]Object, 0, len(out.Contents))
	for _, o := range out.Contents {
		obj := Object{Key: aws.ToString(o.Key)}
		if o.Size != nil {
			obj.Size = *o.Size
		}
		if o.LastModified != nil {
			obj.LastModified = *o.LastModified
		}
		objs = append(objs, obj)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].LastModified.After(objs[j].LastModified) })
	if limit > 0 && len(objs) > limit {
		objs = objs[:limit]
	}
	return objs, nil
}

// Status summarises the bucket for the status page.
func (a *Archive) Status(ctx context.Context) map[string]interface{} {
	result := map[string]interface{}{"bucket": a.bucket}
	objs, err := a.Recent(ctx, 0)
	if err != nil {
		result["connected"] = false
		result["error"] = err.Error()
		return result
	}
	var total int64
	for _, o := range objs {
		total += o.Size
	}
	result["connected"] = true
	result["objects"] = len(objs)
	result["totalBytes"] = total
	if len(objs) > 0 {
		result["latest"] = objs[0].Key
	}
	return result
}
