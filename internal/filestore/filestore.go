// Package filestore caches remote data files on local disk.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/puzpuzpuz/xsync/v3"
)

// DownloadFunc stores the object at url in path.
type DownloadFunc func(ctx context.Context, url string, path string) error

type download struct {
	done chan struct{}
	err  error
}

type FileStore struct {
	fileDirectory string
	tmpDirectory  string
	downloadFunc  DownloadFunc
	downloads     *xsync.MapOf[string, *download]
	logger        *slog.Logger
}

// New creates a file store under dir, downloading missing files with
// downloadFunc.
func New(dir string, downloadFunc DownloadFunc, logger *slog.Logger) (*FileStore, error) {
	fs := &FileStore{
		fileDirectory: filepath.Join(dir, "files"),
		tmpDirectory:  filepath.Join(dir, "tmp"),
		downloadFunc:  downloadFunc,
		downloads:     xsync.NewMapOf[string, *download](),
		logger:        logger,
	}
	if err := os.MkdirAll(fs.fileDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create file store directory: %w", err)
	}
	if err := os.MkdirAll(fs.tmpDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tmp directory: %w", err)
	}
	return fs, nil
}

// Key is the content key a url is stored under.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (fs *FileStore) path(url string) string {
	return filepath.Join(fs.fileDirectory, Key(url))
}

// Prefetch starts downloading urls in the background.
func (fs *FileStore) Prefetch(urls ...string) {
	for _, u := range urls {
		if _, err := os.Stat(fs.path(u)); err == nil {
			continue
		}
		fs.schedule(u)
	}
}

// Fetch returns the local path of url, waiting for its download if needed.
// Concurrent callers share one download.
func (fs *FileStore) Fetch(ctx context.Context, url string) (string, error) {
	path := fs.path(url)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	d := fs.schedule(url)
	select {
	case <-d.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if d.err != nil {
		return "", d.err
	}
	return path, nil
}

func (fs *FileStore) schedule(url string) *download {
	d, loaded := fs.downloads.LoadOrCompute(Key(url), func() *download {
		return &download{done: make(chan struct{})}
	})
	if !loaded {
		go fs.run(url, d)
	}
	return d
}

func (fs *FileStore) run(url string, d *download) {
	key := Key(url)
	defer close(d.done)
	d.err = fs.downloadIfDoesNotExist(key, url)
	if d.err != nil {
		fs.logger.Warn("failed to download data file", "url", url, "error", d.err)
		// a failed download may be retried by a later Fetch
		fs.downloads.Delete(key)
	}
}

func (fs *FileStore) downloadIfDoesNotExist(key, url string) error {
	filePath := filepath.Join(fs.fileDirectory, key)
	if _, err := os.Stat(filePath); err == nil {
		return nil
	}

	tmp, err := os.CreateTemp(fs.tmpDirectory, key+"-*")
	if err != nil {
		return fmt.Errorf("failed to create tmp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := fs.downloadFunc(context.Background(), url, tmpPath); err != nil {
		return fmt.Errorf("failed to download file %s: %w", url, err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to move file %s to file store: %w", key, err)
	}
	return nil
}
