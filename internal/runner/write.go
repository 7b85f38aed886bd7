package runner

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteWithBackup copies the current content of path to path.bak and then
// replaces path with updated. Both writes go through a temporary file and
// a rename, so neither file is ever seen half-written.
func WriteWithBackup(path, current, updated string) (string, error) {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	backup := path + ".bak"
	if err := writeAtomic(backup, current, perm); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", backup, err)
	}
	if err := writeAtomic(path, updated, perm); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return backup, nil
}

func writeAtomic(path, content string, perm os.FileMode) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
