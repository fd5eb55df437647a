// Package records persists which algorithm builds passed the correctness
// harness and which algorithms are selected for benchmarking.
package records

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/programme-lv/strbench/internal/algo"
)

// TestRecords is the append-only store of NAME<TAB>hash lines.
type TestRecords struct {
	path    string
	entries mapset.Set[string]
}

func recordKey(name, hash string) string {
	return strings.ToUpper(strings.TrimSpace(name)) + "\t" + strings.TrimSpace(hash)
}

// LoadTestRecords reads the store at path. A missing file is an empty store.
func LoadTestRecords(path string) (*TestRecords, error) {
	r := &TestRecords{path: path, entries: mapset.NewThreadUnsafeSet[string]()}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open test records: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		name, hash, ok := strings.Cut(text, "\t")
		if !ok {
			return nil, fmt.Errorf("malformed test record at %s:%d", path, line)
		}
		r.entries.Add(recordKey(name, hash))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read test records: %w", err)
	}
	return r, nil
}

func (r *TestRecords) Path() string { return r.path }

func (r *TestRecords) Len() int { return r.entries.Cardinality() }

// Has reports whether name passed with this exact content hash.
func (r *TestRecords) Has(name, hash string) bool {
	if hash == "" {
		return false
	}
	return r.entries.Contains(recordKey(name, hash))
}

// Apply sets the Tested flag of every algorithm in the set.
func (r *TestRecords) Apply(set *algo.Set) {
	for _, a := range set.All() {
		a.Tested = r.Has(a.RecordKey(), a.Hash)
	}
}

// Append records passes that are not yet stored. They are remembered only
// once the file write succeeded.
func (r *TestRecords) Append(algs ...*algo.Algorithm) error {
	pending := mapset.NewThreadUnsafeSet[string]()
	var lines []string
	for _, a := range algs {
		key := recordKey(a.RecordKey(), a.Hash)
		if a.Hash == "" || r.entries.Contains(key) || !pending.Add(key) {
			continue
		}
		lines = append(lines, key)
	}
	if len(lines) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create records directory: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open test records: %w", err)
	}
	_, err = f.WriteString(strings.Join(lines, "\n") + "\n")
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to append test records: %w", err)
	}
	r.entries.Append(lines...)
	return nil
}
