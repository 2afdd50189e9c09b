package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	DefaultUploadDir = "uploads"
	DefaultImageDir  = "public/images"
)

// Disk stores each kind in its own directory. Directories are created on
// first write, so a fresh Disk touches nothing until something is uploaded.
type Disk struct {
	dirs     map[Kind]string
	dirMode  os.FileMode
	fileMode os.FileMode
}

func NewDisk(uploadDir, imageDir string) *Disk {
	if uploadDir == "" {
		uploadDir = DefaultUploadDir
	}
	if imageDir == "" {
		imageDir = DefaultImageDir
	}
	return &Disk{
		dirs: map[Kind]string{
			KindUpload: filepath.Clean(uploadDir),
			KindImage:  filepath.Clean(imageDir),
		},
		dirMode:  0755,
		fileMode: 0644,
	}
}

// Dir returns the directory backing kind.
func (d *Disk) Dir(kind Kind) string {
	return d.dirs[kind]
}

func (d *Disk) path(kind Kind, name string) (string, error) {
	if err := validate(kind, name); err != nil {
		return "", err
	}
	return filepath.Join(d.dirs[kind], name), nil
}

func (d *Disk) Put(ctx context.Context, kind Kind, name string, r io.Reader) (*Info, error) {
	path, err := d.path(kind, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.dirs[kind], d.dirMode); err != nil {
		return nil, fmt.Errorf("create %s directory: %w", kind, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, d.fileMode)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close file: %w", err)
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	return &Info{
		Name:     name,
		Kind:     kind,
		Location: path,
		Size:     n,
		ModTime:  st.ModTime(),
	}, nil
}

func (d *Disk) Open(ctx context.Context, kind Kind, name string) (*Object, error) {
	path, err := d.path(kind, name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s/%s: %w", kind, name, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s/%s: %w", kind, name, err)
	}
	if !st.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
	}

	return &Object{
		Info: Info{
			Name:     name,
			Kind:     kind,
			Location: path,
			Size:     st.Size(),
			ModTime:  st.ModTime(),
		},
		ReadCloser: f,
	}, nil
}

func (d *Disk) Exists(ctx context.Context, kind Kind, name string) (bool, error) {
	path, err := d.path(kind, name)
	if err != nil {
		return false, err
	}

	st, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return st.Mode().IsRegular(), nil
}

func (d *Disk) List(ctx context.Context, kind Kind) ([]string, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}

	names := []string{}
	entries, err := os.ReadDir(d.dirs[kind])
	if errors.Is(err, os.ErrNotExist) {
		return names, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s directory: %w", kind, err)
	}

	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *Disk) Delete(ctx context.Context, kind Kind, name string) error {
	path, err := d.path(kind, name)
	if err != nil {
		return err
	}

	st, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && st.IsDir()) {
		return fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("stat %s/%s: %w", kind, name, err)
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
		}
		return fmt.Errorf("delete %s/%s: %w", kind, name, err)
	}
	return nil
}
