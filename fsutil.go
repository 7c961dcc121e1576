package deker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// writeFileAtomic writes buf to path via a temp file in the same directory
// followed by a rename, so that no reader ever observes a partially
// written file.
func writeFileAtomic(path string, buf []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

// pathExists reports whether path exists on disk, collapsing "not exist"
// into false and surfacing any other stat error.
func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func mustMkdirAll(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func parentDir(path string) string {
	return filepath.Dir(path)
}

// relTarget computes the relative symlink target from link to dest, so the
// collection tree stays relocatable as a whole.
func relTarget(link, dest string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(link), dest)
	if err != nil {
		return "", err
	}
	return rel, nil
}

func isMetaFile(name string) bool {
	return filepath.Ext(name) == manifestExt
}

func stemOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
