package storage

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"qingmo/pkg/common/config"
)

// PutObjectAPI s3.Client 中用到的部分
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// 便于测试替换
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// S3 兼容 MinIO 等 S3 协议的对象存储
type S3 struct {
	api        PutObjectAPI
	bucket     string
	publicBase string
	layout     Layout
}

func NewS3(ctx context.Context, cfg config.S3Config, layout Layout) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	publicBase := cfg.PublicBaseURL
	if publicBase == "" && cfg.BaseEndpoint != "" {
		publicBase = strings.TrimRight(cfg.BaseEndpoint, "/") + "/" + cfg.Bucket
	}
	return NewS3WithAPI(client, cfg.Bucket, publicBase, layout), nil
}

func NewS3WithAPI(api PutObjectAPI, bucket, publicBase string, layout Layout) *S3 {
	return &S3{
		api:        api,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		layout:     layout,
	}
}

func (s *S3) Save(ctx context.Context, category Category, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	dir, err := s.layout.Dir(category)
	if err != nil {
		return "", err
	}

	key := path.Join(dir, name)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.publicBase + "/" + key, nil
}
