package use_cases

import (
	"context"
	"sync"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
	portsout "paymasterhub/internal/application/ports/out"
	apperrors "paymasterhub/internal/shared_kernel/errors"
)

// getOpenAPISpecUseCase keeps the first successful read; the document ships
// with the binary and does not change while the process runs.
type getOpenAPISpecUseCase struct {
	readModel portsout.OpenAPISpecReadModel

	mu     sync.Mutex
	cached *dto.OpenAPISpecOutput
}

func NewGetOpenAPISpecUseCase(readModel portsout.OpenAPISpecReadModel) portsin.GetOpenAPISpecUseCase {
	return &getOpenAPISpecUseCase{
		readModel: readModel,
	}
}

func (u *getOpenAPISpecUseCase) Execute(ctx context.Context, _ dto.GetOpenAPISpecQuery) (dto.OpenAPISpecOutput, *apperrors.AppError) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.cached != nil {
		return *u.cached, nil
	}

	content, contentType, appErr := u.readModel.Read(ctx)
	if appErr != nil {
		return dto.OpenAPISpecOutput{}, appErr
	}

	output := dto.OpenAPISpecOutput{
		Content:     content,
		ContentType: contentType,
	}
	u.cached = &output
	return output, nil
}
