package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/baechuer/taskflow/internal/application/execution"
	"github.com/baechuer/taskflow/internal/config"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive stores execution transcripts as JSON objects in an S3-compatible
// bucket (AWS, MinIO, R2).
type S3Archive struct {
	client putObjectAPI
	bucket string
	prefix string
}

func NewS3Archive(ctx context.Context, cfg config.ArchiveConfig) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Archive(client, cfg.Bucket), nil
}

func newS3Archive(client putObjectAPI, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: "transcripts/"}
}

// Key is transcripts/<yyyy>/<mm>/<dd>/<user>/<id>.json.
func (a *S3Archive) Key(t execution.Transcript) string {
	return fmt.Sprintf("%s%s/%s/%s.json", a.prefix, t.StartedAt.UTC().Format("2006/01/02"), t.UserID, t.ID)
}

func (a *S3Archive) Archive(ctx context.Context, t execution.Transcript) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(a.Key(t)),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("put transcript %s: %w", t.ID, err)
	}
	return nil
}
