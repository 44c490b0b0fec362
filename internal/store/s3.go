package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/rosahcp/internal/graph"
)

const jobKeyPrefix = "jobs/"

// S3Store persists jobs in an S3-compatible object store, one object per job
// under jobs/<id>.json.
type S3Store struct {
	s3     *s3.Client
	bucket string
}

// NewS3Store creates a store over the given bucket. A non-empty endpoint
// points the client at an S3-compatible service instead of AWS.
func NewS3Store(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{s3: client, bucket: bucket}, nil
}

func jobKey(id string) string { return jobKeyPrefix + id + ".json" }

// SaveJob implements Store.
func (s *S3Store) SaveJob(ctx context.Context, job *graph.Job) error {
	data, err := encodeJob(job)
	if err != nil {
		return err
	}

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(jobKey(job.ID)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put job %s in bucket %s: %w", job.ID, s.bucket, err)
	}
	return nil
}

// LoadJob implements Store.
func (s *S3Store) LoadJob(ctx context.Context, id string) (*graph.Job, error) {
	result, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(jobKey(id)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job %s from bucket %s: %w", id, s.bucket, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("failed to read job body: %w", err)
	}
	return decodeJob(buf.Bytes())
}

// ListJobIDs implements Store.
func (s *S3Store) ListJobIDs(ctx context.Context) ([]string, error) {
	var ids []string
	paginator := s3.NewListObjectsV2Paginator(s.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(jobKeyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list jobs in bucket %s: %w", s.bucket, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			key := strings.TrimPrefix(*obj.Key, jobKeyPrefix)
			ids = append(ids, strings.TrimSuffix(key, ".json"))
		}
	}
	return ids, nil
}

// DeleteJob implements Store.
func (s *S3Store) DeleteJob(ctx context.Context, id string) error {
	_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(jobKey(id)),
	})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("failed to delete job %s from bucket %s: %w", id, s.bucket, err)
	}
	return nil
}

// isNoSuchKey checks typed S3 errors first, then falls back to API error
// codes for S3-compatible services that don't return the exact SDK types.
func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}
	return false
}
