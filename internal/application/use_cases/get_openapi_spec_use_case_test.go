//go:build !integration

package use_cases

import (
	"context"
	"sync"
	"testing"

	"paymasterhub/internal/application/dto"
	apperrors "paymasterhub/internal/shared_kernel/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSpecReadModel struct {
	mu    sync.Mutex
	reads int
	err   *apperrors.AppError
}

func (m *countingSpecReadModel) Read(context.Context) ([]byte, string, *apperrors.AppError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, "", m.err
	}
	return []byte("openapi: 3.0.3"), "application/yaml", nil
}

func TestGetOpenAPISpecUseCaseCachesFirstRead(t *testing.T) {
	readModel := &countingSpecReadModel{}
	useCase := NewGetOpenAPISpecUseCase(readModel)

	for i := 0; i < 3; i++ {
		output, appErr := useCase.Execute(context.Background(), dto.GetOpenAPISpecQuery{})
		require.Nil(t, appErr)
		assert.Equal(t, "application/yaml", output.ContentType)
		assert.Equal(t, "openapi: 3.0.3", string(output.Content))
	}
	assert.Equal(t, 1, readModel.reads)
}

func TestGetOpenAPISpecUseCaseRetriesAfterFailure(t *testing.T) {
	readModel := &countingSpecReadModel{err: apperrors.NewInternal("openapi_file_read_failed", "read failed", nil)}
	useCase := NewGetOpenAPISpecUseCase(readModel)

	_, appErr := useCase.Execute(context.Background(), dto.GetOpenAPISpecQuery{})
	require.NotNil(t, appErr)

	readModel.mu.Lock()
	readModel.err = nil
	readModel.mu.Unlock()

	_, appErr = useCase.Execute(context.Background(), dto.GetOpenAPISpecQuery{})
	require.Nil(t, appErr)
	assert.Equal(t, 2, readModel.reads)
}
