package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/viper"
)

// Config holds S3-compatible storage settings.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// DefaultConfig reads archive settings from viper.
func DefaultConfig() Config {
	return Config{
		Bucket:    viper.GetString("archive.bucket"),
		Region:    viper.GetString("archive.region"),
		Endpoint:  viper.GetString("archive.endpoint"),
		AccessKey: viper.GetString("archive.access_key"),
		SecretKey: viper.GetString("archive.secret_key"),
		Prefix:    viper.GetString("archive.prefix"),
	}
}

// Putter is the subset of the S3 client used for uploads.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client. Static credentials are used when an access
// key is configured; otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Uploader copies submission folders to a bucket.
type Uploader struct {
	client Putter
	cfg    Config
}

// NewUploader returns an Uploader for the configured bucket.
func NewUploader(client Putter, cfg Config) *Uploader {
	return &Uploader{client: client, cfg: cfg}
}

// Key returns the object key for file inside a submission folder.
func (u *Uploader) Key(folder, file string) string {
	parts := []string{}
	if p := strings.Trim(u.cfg.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, filepath.Base(folder), filepath.ToSlash(file))
	return path.Join(parts...)
}

// UploadSubmission uploads every regular file under dir and returns the keys
// written, in lexical order.
func (u *Uploader) UploadSubmission(ctx context.Context, dir string) ([]string, error) {
	if u.cfg.Bucket == "" {
		return nil, errors.New("archive.bucket is not configured")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("submission folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("submission folder: %s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk submission: %w", err)
	}
	sort.Strings(files)

	var keys []string
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			return keys, fmt.Errorf("read %s: %w", rel, err)
		}
		key := u.Key(dir, rel)
		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.cfg.Bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType(rel)),
		})
		if err != nil {
			return keys, fmt.Errorf("upload %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
