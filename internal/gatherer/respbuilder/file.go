package respbuilder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/programme-lv/strbench/api"
)

const (
	reportExt     = ".json"
	compressedExt = ".json.zst"
)

// FileName is the report file name for a run started at started.
func FileName(r api.RunReport, started time.Time, compress bool) string {
	ext := reportExt
	if compress {
		ext = compressedExt
	}
	return started.UTC().Format("20060102T150405Z") + "-" + r.RunUuid + ext
}

// WriteFile stores the report in dir and returns the file path. The file
// is written next to its final name and renamed into place.
func (b *Builder) WriteFile(dir string, compress bool) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	path := filepath.Join(dir, FileName(b.report, b.started, compress))

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, b.report, compress); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temporary report file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to rename report file: %w", err)
	}
	return path, nil
}

func encode(w io.Writer, r api.RunReport, compress bool) error {
	if compress {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		if err := encodeJSON(enc, r); err != nil {
			enc.Close()
			return err
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to finish zstd stream: %w", err)
		}
		return nil
	}
	return encodeJSON(w, r)
}

func encodeJSON(w io.Writer, r api.RunReport) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	if err := e.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// ReadFile loads a report written by WriteFile.
func ReadFile(path string) (api.RunReport, error) {
	var r api.RunReport
	f, err := os.Open(path)
	if err != nil {
		return r, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		d, err := zstd.NewReader(f)
		if err != nil {
			return r, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer d.Close()
		src = d
	}
	if err := json.NewDecoder(src).Decode(&r); err != nil {
		return r, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return r, nil
}
