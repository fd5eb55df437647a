// Package s3downl downloads corpus objects from S3 https URLs.
package s3downl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
)

// ObjectGetter is the part of *s3.Client the downloader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Downloader struct {
	client ObjectGetter
	logger *slog.Logger
}

// New creates a downloader using the default AWS credential chain.
func New(ctx context.Context, region string, logger *slog.Logger) (*Downloader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), logger), nil
}

func NewWithClient(client ObjectGetter, logger *slog.Logger) *Downloader {
	return &Downloader{client: client, logger: logger}
}

// ParseURL splits a https://bucket.s3.region.amazonaws.com/key URL.
func ParseURL(s3Url string) (bucket string, key string, err error) {
	u, err := url.Parse(s3Url)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse s3 url %s: %w", s3Url, err)
	}
	if u.Scheme != "https" {
		return "", "", fmt.Errorf("invalid s3 url scheme: %s", u.Scheme)
	}
	hostParts := strings.Split(u.Host, ".")
	if len(hostParts) < 3 || hostParts[1] != "s3" {
		return "", "", fmt.Errorf("invalid s3 url host format: %s", u.Host)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 url %s has no object key", s3Url)
	}
	return hostParts[0], key, nil
}

// Download stores the object at s3Url in path, decompressing zstd objects.
func (d *Downloader) Download(ctx context.Context, s3Url string, path string) error {
	bucket, key, err := ParseURL(s3Url)
	if err != nil {
		return err
	}

	d.logger.Info("Downloading file from s3...", "url", s3Url)
	obj, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get object %s: %w", s3Url, err)
	}
	defer obj.Body.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer out.Close()

	var src io.Reader = obj.Body
	if aws.ToString(obj.ContentType) == "application/zstd" || filepath.Ext(key) == ".zst" {
		zr, err := zstd.NewReader(obj.Body)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		src = zr
	}
	n, err := io.Copy(out, src)
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	d.logger.Info("Downloaded file from s3", "url", s3Url, "bytes", n)
	return out.Close()
}
