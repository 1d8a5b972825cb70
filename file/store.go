package file

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pilosa/lake"
	"github.com/pkg/errors"
)

// Store is a lake.Store for the local filesystem.
type Store struct {
	log lake.Logger
}

// NewStore returns a Store. A nil logger discards output.
func NewStore(log lake.Logger) *Store {
	if log == nil {
		log = lake.NopLogger{}
	}
	return &Store{log: log}
}

// Replace removes dest entirely and copies the tree under dir to it.
func (s *Store) Replace(ctx context.Context, dest, dir string) error {
	if err := os.RemoveAll(dest); err != nil {
		return errors.Wrapf(err, "removing %s", dest)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return errors.Wrapf(err, "making %s", dest)
	}
	n := 0
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		n++
		return copyFile(p, target)
	})
	if err != nil {
		return errors.Wrapf(err, "copying %s to %s", dir, dest)
	}
	s.log.Debugf("published %d files to %s", n, dest)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
