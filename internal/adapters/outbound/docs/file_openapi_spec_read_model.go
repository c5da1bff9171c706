package docs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	portsout "paymasterhub/internal/application/ports/out"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

type FileOpenAPISpecReadModel struct {
	path string
}

var _ portsout.OpenAPISpecReadModel = (*FileOpenAPISpecReadModel)(nil)

func NewFileOpenAPISpecReadModel(path string) *FileOpenAPISpecReadModel {
	return &FileOpenAPISpecReadModel{
		path: path,
	}
}

func (r *FileOpenAPISpecReadModel) Read(_ context.Context) ([]byte, string, *apperrors.AppError) {
	content, err := os.ReadFile(r.path)
	if err != nil {
		return nil, "", apperrors.NewInternal(
			"openapi_file_read_failed",
			"failed to read OpenAPI spec file",
			map[string]any{"path": r.path},
		)
	}

	if strings.EqualFold(filepath.Ext(r.path), ".json") {
		return content, "application/json; charset=utf-8", nil
	}
	return content, "application/yaml; charset=utf-8", nil
}
