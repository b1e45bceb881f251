package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hilthontt/civicreport/internal/domain"
)

// LocalStorage writes attachments under a directory served by the API
// at /media. Meant for development and single-node setups.
type LocalStorage struct {
	basePath  string
	publicURL string
}

func NewLocalStorage(basePath, publicURL string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./uploads"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &LocalStorage{basePath: basePath, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *LocalStorage) Dir() string {
	return s.basePath
}

func (s *LocalStorage) Upload(ctx context.Context, m domain.Media) (string, error) {
	if err := Check(m); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := objectName(m)
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(fullPath, m.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return s.publicURL + "/media/" + name, nil
}
