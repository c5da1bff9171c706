package controllers

import (
	"log"
	"net/http"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
)

type HealthController struct {
	useCase        portsin.GetHealthUseCase
	summaryUseCase portsin.GetDeploymentHealthSummaryUseCase
	logger         *log.Logger
}

func NewHealthController(
	useCase portsin.GetHealthUseCase,
	summaryUseCase portsin.GetDeploymentHealthSummaryUseCase,
	logger *log.Logger,
) *HealthController {
	return &HealthController{
		useCase:        useCase,
		summaryUseCase: summaryUseCase,
		logger:         logger,
	}
}

func (c *HealthController) GetHealth(w http.ResponseWriter, r *http.Request) {
	output, appErr := c.useCase.Execute(r.Context(), dto.GetHealthCommand{})
	if appErr != nil {
		c.logger.Printf("request error path=/healthz method=%s code=%s message=%s", r.Method, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

func (c *HealthController) GetDeploymentHealth(w http.ResponseWriter, r *http.Request) {
	output, appErr := c.summaryUseCase.Execute(r.Context(), dto.GetDeploymentHealthSummaryQuery{})
	if appErr != nil {
		c.logger.Printf("request error path=/v1/paymasters/health method=%s code=%s message=%s", r.Method, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}
