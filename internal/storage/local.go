package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const maxNameLen = 64

// LocalStore keeps uploads as files under a directory that is served
// publicly at publicPath.
type LocalStore struct {
	fs         afero.Fs
	publicPath string
	now        func() time.Time
}

// NewLocalStore creates a store writing to the root of fsys. Use
// NewDirStore to target a directory on the host filesystem.
func NewLocalStore(fsys afero.Fs, publicPath string) *LocalStore {
	return &LocalStore{
		fs:         fsys,
		publicPath: "/" + strings.Trim(publicPath, "/"),
		now:        time.Now,
	}
}

// NewDirStore creates dir if needed and returns a LocalStore confined to it.
func NewDirStore(dir, publicPath string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return NewLocalStore(afero.NewBasePathFs(afero.NewOsFs(), dir), publicPath), nil
}

// Put writes the payload to a new, uniquely named file.
func (s *LocalStore) Put(ctx context.Context, up Upload) (string, error) {
	name := s.fileName(up.Filename, up.ContentType)
	fsPath := "/" + name

	f, err := s.fs.OpenFile(fsPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, ctxReader{ctx: ctx, r: up.Reader}); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(fsPath)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(fsPath)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return path.Join(s.publicPath, name), nil
}

// Delete removes the file behind ref. Unknown or foreign references are a no-op.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	name, ok := strings.CutPrefix(ref, s.publicPath+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == ".." {
		return nil
	}
	if err := s.fs.Remove("/" + name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// fileName builds "<unix millis>-<random>-<sanitised original name>".
func (s *LocalStore) fileName(original, contentType string) string {
	base := sanitizeName(filepath.Base(original))
	ext := extensionFor(contentType)
	if base == "" || base == "." {
		base = "upload" + ext
	} else if filepath.Ext(base) == "" {
		base += ext
	}
	return fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), uuid.NewString()[:8], base)
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), ".-")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	return out
}
