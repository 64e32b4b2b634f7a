package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore publishes to the local filesystem. Outputs are staged next to the
// destination and swapped in with rename, so readers never see a partial directory.
type LocalStore struct{}

func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func (s *LocalStore) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	f, err := os.Open(localPath(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return f, nil
}

func (s *LocalStore) PutFile(ctx context.Context, src, uri string) error {
	dest := localPath(uri)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}
	tmp := dest + ".tmp-" + uuid.NewString()
	if err := copyFile(src, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}

func (s *LocalStore) ReplaceDir(ctx context.Context, src, uri string) error {
	dest := filepath.Clean(localPath(uri))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create parent of %s: %w", dest, err)
	}

	id := uuid.NewString()
	tmp := dest + ".tmp-" + id
	if err := copyDir(src, tmp); err != nil {
		os.RemoveAll(tmp)
		return err
	}

	old := dest + ".old-" + id
	hadOld := true
	if err := os.Rename(dest, old); err != nil {
		if !os.IsNotExist(err) {
			os.RemoveAll(tmp)
			return fmt.Errorf("failed to move aside %s: %w", dest, err)
		}
		hadOld = false
	}
	if err := os.Rename(tmp, dest); err != nil {
		if hadOld {
			os.Rename(old, dest)
		}
		os.RemoveAll(tmp)
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	if hadOld {
		return os.RemoveAll(old)
	}
	return nil
}

func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
