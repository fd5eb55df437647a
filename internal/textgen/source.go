package textgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

type SourceKind int

const (
	FromFiles SourceKind = iota
	FromRandom
	FromInline
)

func (k SourceKind) String() string {
	switch k {
	case FromFiles:
		return "files"
	case FromRandom:
		return "random"
	case FromInline:
		return "inline"
	}
	return "unknown"
}

// Source selects where the text comes from.
type Source struct {
	Kind  SourceKind
	Paths []string // FromFiles: files, directories or https URLs
	Sigma int      // FromRandom: alphabet cardinality, 1..256
	Data  []byte   // FromInline
	Seed  uint64   // FromRandom
}

func (s Source) String() string {
	switch s.Kind {
	case FromFiles:
		return "files " + strings.Join(s.Paths, ", ")
	case FromRandom:
		return fmt.Sprintf("random sigma=%d seed=%d", s.Sigma, s.Seed)
	case FromInline:
		return fmt.Sprintf("inline %d bytes", len(s.Data))
	}
	return s.Kind.String()
}

// Fetcher resolves a remote data location to a local file.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

var ErrNoData = errors.New("no text data could be loaded")

type Builder struct {
	dataPaths []string
	fetcher   Fetcher
	logger    *slog.Logger
}

// NewBuilder creates a text builder. Relative file names are resolved against
// dataPaths; fetcher may be nil when remote sources are not needed.
func NewBuilder(dataPaths []string, fetcher Fetcher, logger *slog.Logger) *Builder {
	return &Builder{dataPaths: dataPaths, fetcher: fetcher, logger: logger}
}

// Build produces a padded text of at most maxSize bytes. With fill set,
// loaded data shorter than maxSize is repeated until the buffer is full.
func (b *Builder) Build(ctx context.Context, src Source, maxSize int, fill bool, maxPatternLen int) (Buffer, error) {
	if maxSize < 1 {
		return Buffer{}, fmt.Errorf("text size must be positive, got %d", maxSize)
	}
	buf := NewBuffer(maxSize, maxPatternLen)
	var n int
	switch src.Kind {
	case FromFiles:
		var err error
		n, err = b.loadFiles(ctx, src.Paths, buf.data[:maxSize])
		if err != nil {
			return Buffer{}, err
		}
	case FromRandom:
		if src.Sigma < 1 || src.Sigma > 256 {
			return Buffer{}, fmt.Errorf("alphabet size must be in 1..256, got %d", src.Sigma)
		}
		fillRandom(buf.data[:maxSize], src.Sigma, src.Seed)
		n = maxSize
	case FromInline:
		if len(src.Data) == 0 {
			return Buffer{}, fmt.Errorf("inline text is empty")
		}
		n = copy(buf.data[:maxSize], src.Data)
	default:
		return Buffer{}, fmt.Errorf("unknown text source %d", src.Kind)
	}
	if fill {
		n = selfCopy(buf.data[:maxSize], n)
	}
	buf.n = n
	return buf, nil
}

func fillRandom(dst []byte, sigma int, seed uint64) {
	if sigma == 1 {
		clear(dst)
		return
	}
	rng := NewRand(seed)
	for i := range dst {
		dst[i] = byte(rng.IntN(sigma))
	}
}

// selfCopy doubles the first n bytes of dst until it is full.
func selfCopy(dst []byte, n int) int {
	if n == 0 {
		return 0
	}
	for n < len(dst) {
		n += copy(dst[n:], dst[:n])
	}
	return n
}

func (b *Builder) loadFiles(ctx context.Context, paths []string, dst []byte) (int, error) {
	n := 0
	for _, p := range paths {
		if n == len(dst) {
			break
		}
		files, err := b.expand(ctx, p)
		if err != nil {
			b.logger.Warn("skipping data source", "path", p, "error", err)
			continue
		}
		for _, f := range files {
			if n == len(dst) {
				break
			}
			read, err := readInto(dst[n:], f)
			if err != nil {
				b.logger.Warn("skipping data file", "path", f, "error", err)
				continue
			}
			b.logger.Debug("loaded data file", "path", f, "bytes", read)
			n += read
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w from %s", ErrNoData, strings.Join(paths, ", "))
	}
	return n, nil
}

// expand turns one data location into the regular files it names.
func (b *Builder) expand(ctx context.Context, p string) ([]string, error) {
	if strings.HasPrefix(p, "https://") || strings.HasPrefix(p, "http://") {
		if b.fetcher == nil {
			return nil, fmt.Errorf("remote data is not configured")
		}
		local, err := b.fetcher.Fetch(ctx, p)
		if err != nil {
			return nil, err
		}
		return []string{local}, nil
	}
	resolved, err := b.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{resolved}, nil
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(resolved, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (b *Builder) resolve(p string) (string, error) {
	if _, err := os.Stat(p); err == nil || filepath.IsAbs(p) {
		return p, nil
	}
	for _, dir := range b.dataPaths {
		candidate := filepath.Join(dir, p)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%s not found in data paths", p)
}

// readInto reads at most len(dst) bytes of a file, decompressing .zst files.
func readInto(dst []byte, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		d, err := zstd.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer d.Close()
		r = d
	}
	n, err := io.ReadFull(r, dst)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return n, err
}
