package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/luminahr/formpipe"
	"go.uber.org/zap"
)

// S3SourceConfig describes where an uploaded spreadsheet object lives and
// where its local copy may be staged.
type S3SourceConfig struct {
	Bucket  string
	Key     string
	TempDir string
}

// ParseS3URL splits an s3://bucket/key URL into its parts.
func ParseS3URL(raw string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(raw, "s3://")
	if trimmed == raw {
		return "", "", fmt.Errorf("not an s3 url: %s", raw)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed s3 url: %s", raw)
	}
	return parts[0], parts[1], nil
}

// OpenS3Source downloads the object to a temp file and serves it through
// the csv or duckdb source picked by file extension. The temp file is
// removed when the returned source is closed.
func OpenS3Source(ctx context.Context, client manager.DownloadAPIClient, cfg S3SourceConfig) (formpipe.TabularSource, error) {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	ext := filepath.Ext(cfg.Key)
	if ext == "" {
		ext = ".csv"
	}

	file, err := os.CreateTemp(tempDir, "formpipe-import-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	downloader := manager.NewDownloader(client)
	bytes, err := downloader.Download(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(cfg.Key),
	})
	if err != nil {
		file.Close()
		os.Remove(file.Name())
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, fmt.Errorf("spreadsheet object s3://%s/%s does not exist: %w", cfg.Bucket, cfg.Key, err)
		}
		return nil, fmt.Errorf("download s3://%s/%s: %w", cfg.Bucket, cfg.Key, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return nil, fmt.Errorf("flush temp file: %w", err)
	}
	zap.S().Debugw("downloaded spreadsheet from s3",
		"bucket", cfg.Bucket, "key", cfg.Key, "bytes", bytes, "tempFile", file.Name())

	inner, err := openFileSource(file.Name())
	if err != nil {
		os.Remove(file.Name())
		return nil, err
	}
	return &tempFileSource{TabularSource: inner, path: file.Name()}, nil
}

// openFileSource picks a tabular source implementation by file extension.
func openFileSource(path string) (formpipe.TabularSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return NewDuckDBSource(path)
	default:
		return NewCSVFileSource(path)
	}
}

// tempFileSource deletes its backing file once the wrapped source closes.
type tempFileSource struct {
	formpipe.TabularSource
	path string
}

func (s *tempFileSource) Close() error {
	err := s.TabularSource.Close()
	if removeErr := os.Remove(s.path); removeErr != nil && err == nil {
		err = removeErr
	}
	return err
}
