package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedImage = errors.New("unsupported image type, use jpg, png, webp or gif")

// ImageStore persists uploaded images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// NewImageKey builds a unique object key under prefix for an uploaded file
// name and returns it with the content type implied by its extension.
func NewImageKey(prefix, filename string) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := imageTypes[ext]
	if !ok {
		return "", "", ErrUnsupportedImage
	}
	return path.Join(prefix, uuid.NewString()+ext), contentType, nil
}

// LocalStore writes images below Dir and serves them from BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Save(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	clean := path.Clean("/" + key)[1:]
	target := filepath.Join(s.Dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("write %s: %w", clean, err)
	}
	return fmt.Sprintf("%s/uploads/%s", s.BaseURL, clean), nil
}
