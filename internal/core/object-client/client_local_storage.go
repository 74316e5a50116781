package objectclient

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/markdave123-py/Lumen/internal/core"
)

var _ core.ObjectClient = (*LocalClient)(nil)

// LocalClient keeps objects on disk under basePath/bucket/key.
type LocalClient struct {
	basePath string
}

func NewLocalClient(basePath string) (*LocalClient, error) {
	if basePath == "" {
		basePath = "./data/uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalClient{basePath: basePath}, nil
}

func (c *LocalClient) UploadFile(_ context.Context, bucket, key string, data io.Reader, _ string) (string, error) {
	path, err := c.resolve(bucket, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return path, nil
}

func (c *LocalClient) DeleteFile(_ context.Context, bucket, key string) error {
	path, err := c.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (c *LocalClient) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	path, err := c.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// resolve keeps every object inside basePath.
func (c *LocalClient) resolve(bucket, key string) (string, error) {
	root := filepath.Clean(c.basePath)
	path := filepath.Join(root, bucket, filepath.FromSlash(key))
	if path != root && !strings.HasPrefix(path, root+string(filepath.Separator)) {
		return "", fmt.Errorf("object key %q escapes storage root", key)
	}
	return path, nil
}
