// Package storage archives generated report files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smallbiznis/greenledger/internal/config"
	"go.uber.org/zap"
)

const (
	KindLocal = "local"
	KindS3    = "s3"
)

var ErrNotFound = errors.New("report_object_not_found")

// Store keeps report bytes under a caller-chosen key.
type Store interface {
	Kind() string
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// NewStore selects the backend from config.
func NewStore(cfg config.Config, log *zap.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Reports.Storage)) {
	case KindS3:
		if strings.TrimSpace(cfg.Reports.S3Bucket) == "" {
			return nil, errors.New("REPORT_S3_BUCKET is required for s3 report storage")
		}
		log.Info("report storage backend", zap.String("kind", KindS3), zap.String("bucket", cfg.Reports.S3Bucket))
		return NewS3Store(context.Background(), S3Config{
			Bucket:   cfg.Reports.S3Bucket,
			Region:   cfg.Reports.S3Region,
			Endpoint: cfg.Reports.S3Endpoint,
			Prefix:   cfg.Reports.S3Prefix,
		})
	default:
		log.Info("report storage backend", zap.String("kind", KindLocal), zap.String("dir", cfg.Reports.LocalDir))
		return NewLocalStore(cfg.Reports.LocalDir)
	}
}

type LocalStore struct {
	baseDir string
}

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		baseDir = "./data/reports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure report dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) Kind() string { return KindLocal }

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// path keeps keys inside baseDir.
func (s *LocalStore) path(key string) (string, error) {
	cleaned := filepath.Clean("/" + strings.TrimSpace(key))
	if cleaned == "/" {
		return "", fmt.Errorf("invalid report key %q", key)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleaned)), nil
}
