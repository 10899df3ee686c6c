// Package archive relocates successfully imported snapshot files into an
// additive-only archive tree under the live data root. The top-level
// category folder is preserved so provenance stays inspectable; nothing
// under the archive tree is ever deleted or overwritten by this
// subsystem.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the archive tree's folder name under the data root.
const DirName = "archive"

// Archiver moves imported files into <root>/archive/<category>/.
type Archiver struct {
	root string
}

// New creates an archiver rooted at the live data root.
func New(dataRoot string) *Archiver {
	return &Archiver{root: dataRoot}
}

// Root returns the archive tree's path.
func (a *Archiver) Root() string {
	return filepath.Join(a.root, DirName)
}

// Move relocates path into the archive tree under category. A file that
// is already inside the archive tree is a no-op success. The destination
// keeps the source's base name; an existing destination gets a numeric
// suffix rather than being clobbered.
func (a *Archiver) Move(path, category string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("archive: resolve %s: %w", path, err)
	}
	archRoot, err := filepath.Abs(a.Root())
	if err != nil {
		return fmt.Errorf("archive: resolve root: %w", err)
	}
	if strings.HasPrefix(abs, archRoot+string(filepath.Separator)) {
		return nil
	}

	destDir := filepath.Join(archRoot, category)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("archive: create %s: %w", destDir, err)
	}

	dest := filepath.Join(destDir, filepath.Base(path))
	for i := 1; ; i++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(destDir, fmt.Sprintf("%s.%d", filepath.Base(path), i))
	}

	if err := os.Rename(path, dest); err == nil {
		return nil
	}
	// Rename fails across filesystems (legacy roots may live on another
	// mount); fall back to copy then remove.
	if err := copyFile(path, dest); err != nil {
		return fmt.Errorf("archive: copy %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("archive: remove source %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
