// Package upload copies the reports directory to S3-compatible storage.
package upload

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

// DefaultPrefix is the key prefix if none is configured.
const DefaultPrefix = "goldsuite"

// DefaultConcurrency is the number of parallel uploads.
const DefaultConcurrency = 4

// Options configures an S3Uploader.
type Options struct {
	Bucket string
	// Prefix is prepended to every key.
	// Default: DefaultPrefix
	Prefix string
	// Region defaults to us-east-1.
	Region string
	// EndpointURL selects an S3-compatible service instead of AWS.
	EndpointURL    string
	ForcePathStyle bool
	// AccessKeyID and SecretAccessKey select static credentials. Requests are
	// anonymous without them.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Concurrency limits parallel uploads.
	// Default: DefaultConcurrency
	Concurrency int
	// Logger receives upload progress.
	// Default: slog.Default()
	Logger *slog.Logger
}

// S3Uploader uploads local report files to a bucket.
type S3Uploader struct {
	options Options
	client  *s3.Client
	logger  *slog.Logger
}

// NewS3Uploader creates an uploader.
func NewS3Uploader(options Options) (*S3Uploader, error) {
	if options.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := s3.New(s3.Options{}, func(o *s3.Options) {
		if options.Region != "" {
			o.Region = options.Region
		} else {
			o.Region = "us-east-1"
		}

		if options.EndpointURL != "" {
			o.BaseEndpoint = aws.String(options.EndpointURL)
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}

		if options.ForcePathStyle {
			o.UsePathStyle = true
		}

		if options.AccessKeyID != "" && options.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(
				options.AccessKeyID, options.SecretAccessKey, options.SessionToken,
			)
		}
	})

	return &S3Uploader{
		options: options,
		client:  client,
		logger:  logger.With("component", "s3-uploader", "bucket", options.Bucket),
	}, nil
}

// UploadDir uploads every file below dir. Keys are the configured prefix joined with
// the slash-separated path relative to dir. It returns the number of uploaded files.
func (u *S3Uploader) UploadDir(ctx context.Context, dir string) (int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking directory %s: %w", dir, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.options.Concurrency)

	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return 0, fmt.Errorf("computing relative path: %w", err)
		}
		key := u.Key(rel)
		g.Go(func() error {
			if err := u.uploadFile(gctx, path, key); err != nil {
				return fmt.Errorf("uploading %s: %w", rel, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	u.logger.InfoContext(ctx, "Upload completed", "files", len(files), "prefix", u.prefix())

	return len(files), nil
}

// Key returns the object key for a path relative to the uploaded directory.
func (u *S3Uploader) Key(rel string) string {
	return u.prefix() + "/" + filepath.ToSlash(rel)
}

func (u *S3Uploader) prefix() string {
	prefix := strings.Trim(u.options.Prefix, "/")
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}

func (u *S3Uploader) uploadFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer func() { _ = f.Close() }()

	u.logger.DebugContext(ctx, "Uploading file", "key", key)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.options.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(detectContentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("PutObject: %w", err)
	}

	return nil
}

// detectContentType returns a MIME type based on file extension.
func detectContentType(path string) string {
	switch filepath.Ext(path) {
	case ".jsonl":
		return "application/x-ndjson"
	case "":
		return "application/octet-stream"
	}

	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
