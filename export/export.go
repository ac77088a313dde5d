// Package export writes output files so that a failed or interrupted
// conversion never leaves a partial file at the destination.
package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile streams fn's output into a temporary file next to path and
// renames it over path only when fn, the flush and the sync all succeed.
func WriteFile(ctx context.Context, path string, fn func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = fn(bw); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// OutputPath returns the PDF path for input name inside dir. An empty dir
// places the PDF next to the input.
func OutputPath(name, dir string) string {
	base := filepath.Base(name)
	base = base[:len(base)-len(filepath.Ext(base))] + ".pdf"
	if dir == "" {
		return filepath.Join(filepath.Dir(name), base)
	}
	return filepath.Join(dir, base)
}
