package records

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/programme-lv/strbench/internal/algo"
)

// LoadSelected reads the selected-algorithm list. A missing file yields an
// empty set.
func LoadSelected(path string) (*algo.Set, error) {
	set := algo.NewSet()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open selection: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		if _, err := set.AddName(name); err != nil {
			return nil, fmt.Errorf("failed to load selection %s: %w", path, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}
	return set, nil
}

// SaveSelected writes the names of set, one lowercase name per line, to a
// temporary file and renames it over path.
func SaveSelected(path string, set *algo.Set) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create selection directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temporary selection: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, name := range set.Names() {
		fmt.Fprintln(w, name)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write selection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write selection: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move selection into place: %w", err)
	}
	return nil
}
