package controllers

import (
	"log"
	"net/http"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
)

type BalancesController struct {
	getUseCase     portsin.GetPaymasterBalancesUseCase
	refreshUseCase portsin.RefreshPaymasterBalancesUseCase
	fundUseCase    portsin.FundPaymasterUseCase
	logger         *log.Logger
}

type fundPayload struct {
	Chain  string `json:"chain" validate:"required"`
	Amount string `json:"amount" validate:"omitempty,numeric"`
}

func NewBalancesController(
	getUseCase portsin.GetPaymasterBalancesUseCase,
	refreshUseCase portsin.RefreshPaymasterBalancesUseCase,
	fundUseCase portsin.FundPaymasterUseCase,
	logger *log.Logger,
) *BalancesController {
	return &BalancesController{
		getUseCase:     getUseCase,
		refreshUseCase: refreshUseCase,
		fundUseCase:    fundUseCase,
		logger:         logger,
	}
}

func (c *BalancesController) GetBalances(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.getUseCase.Execute(r.Context(), dto.GetBalancesQuery{ProjectID: projectID})
	if appErr != nil {
		c.logf("request error path=/v1/projects/{projectId}/paymasters/balances method=%s project_id=%s code=%s message=%s", r.Method, projectID, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

func (c *BalancesController) RefreshBalances(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.refreshUseCase.Execute(r.Context(), dto.RefreshBalancesCommand{ProjectID: projectID})
	if appErr != nil {
		c.logf("request error path=/v1/projects/{projectId}/paymasters/balances/refresh method=%s project_id=%s code=%s message=%s", r.Method, projectID, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

func (c *BalancesController) FundPaymaster(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		writeAppError(w, appErr)
		return
	}
	payload := fundPayload{}
	if appErr := decodePayload(r.Body, &payload); appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.fundUseCase.Execute(r.Context(), dto.FundPaymasterCommand{
		ProjectID: projectID,
		Chain:     payload.Chain,
		Amount:    payload.Amount,
	})
	if appErr != nil {
		c.logf("request error path=/v1/projects/{projectId}/paymasters/fund method=%s project_id=%s chain=%s code=%s message=%s", r.Method, projectID, payload.Chain, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

func (c *BalancesController) logf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}
