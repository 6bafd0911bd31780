// Package storage keeps uploaded receipts (comprobantes) on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxReceiptSize bounds a single uploaded file.
const MaxReceiptSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("tipo de archivo no permitido")
	ErrTooLarge        = errors.New("el archivo excede el tamaño máximo")
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// ReceiptStore persists uploaded receipts and returns their relative path.
type ReceiptStore interface {
	Save(ctx context.Context, kind, filename string, r io.Reader) (string, error)
	Remove(path string) error
}

// LocalStore writes receipts under Dir/<kind>/<yyyy>/<mm>/<uuid><ext>.
type LocalStore struct {
	Dir string
	now func() time.Time
}

// NewLocalStore creates the root directory when missing.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipts dir: %w", err)
	}
	return &LocalStore{Dir: dir, now: time.Now}, nil
}

// Save stores the file and returns its path relative to Dir.
func (s *LocalStore) Save(ctx context.Context, kind, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedType
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := s.now()
	rel := filepath.Join(kind, now.Format("2006"), now.Format("01"), uuid.New().String()+ext)
	full := filepath.Join(s.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create receipt: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, MaxReceiptSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > MaxReceiptSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Remove deletes a receipt previously returned by Save. Missing files are
// not an error.
func (s *LocalStore) Remove(rel string) error {
	full := filepath.Join(s.Dir, filepath.FromSlash(rel))
	if !strings.HasPrefix(full, filepath.Clean(s.Dir)+string(os.PathSeparator)) {
		return fmt.Errorf("receipt path outside store: %s", rel)
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
