package controllers

import (
	"log"
	"net/http"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"
)

type PaymastersController struct {
	createUseCase    portsin.CreatePaymastersUseCase
	addChainsUseCase portsin.AddChainSupportUseCase
	addressesUseCase portsin.GetPaymasterAddressesUseCase
	retryUseCase     portsin.RetryFailedDeploymentsUseCase
	cleanupUseCase   portsin.CleanupProjectUseCase
	setActiveUseCase portsin.SetPaymasterActiveUseCase
	logger           *log.Logger
}

type PaymastersControllerDependencies struct {
	CreateUseCase    portsin.CreatePaymastersUseCase
	AddChainsUseCase portsin.AddChainSupportUseCase
	AddressesUseCase portsin.GetPaymasterAddressesUseCase
	RetryUseCase     portsin.RetryFailedDeploymentsUseCase
	CleanupUseCase   portsin.CleanupProjectUseCase
	SetActiveUseCase portsin.SetPaymasterActiveUseCase
}

type chainsPayload struct {
	Chains []string `json:"chains" validate:"required,min=1,dive,required"`
}

type setActivePayload struct {
	Active *bool `json:"active" validate:"required"`
}

func NewPaymastersController(deps PaymastersControllerDependencies, logger *log.Logger) *PaymastersController {
	return &PaymastersController{
		createUseCase:    deps.CreateUseCase,
		addChainsUseCase: deps.AddChainsUseCase,
		addressesUseCase: deps.AddressesUseCase,
		retryUseCase:     deps.RetryUseCase,
		cleanupUseCase:   deps.CleanupUseCase,
		setActiveUseCase: deps.SetActiveUseCase,
		logger:           logger,
	}
}

func (c *PaymastersController) CreatePaymasters(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		writeAppError(w, appErr)
		return
	}
	payload := chainsPayload{}
	if appErr := decodePayload(r.Body, &payload); appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.createUseCase.Execute(r.Context(), dto.ProvisionPaymastersCommand{
		ProjectID: projectID,
		Chains:    payload.Chains,
	})
	if appErr != nil {
		c.logf("request error path=/v1/projects/{projectId}/paymasters method=%s project_id=%s code=%s message=%s", r.Method, projectID, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusCreated, output)
}

func (c *PaymastersController) AddChainSupport(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		writeAppError(w, appErr)
		return
	}
	payload := chainsPayload{}
	if appErr := decodePayload(r.Body, &payload); appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.addChainsUseCase.Execute(r.Context(), dto.ProvisionPaymastersCommand{
		ProjectID: projectID,
		Chains:    payload.Chains,
	})
	if appErr != nil {
		c.logf("request error path=/v1/projects/{projectId}/paymasters/chains method=%s project_id=%s code=%s message=%s", r.Method, projectID, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

func (c *PaymastersController) GetAddresses(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.addressesUseCase.Execute(r.Context(), dto.GetAddressesQuery{ProjectID: projectID})
	if appErr != nil {
		c.logf("request error path=/v1/projects/{projectId}/paymasters/addresses method=%s project_id=%s code=%s message=%s", r.Method, projectID, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

func (c *PaymastersController) RetryFailedDeployments(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.retryUseCase.Execute(r.Context(), dto.RetryFailedDeploymentsCommand{ProjectID: projectID})
	if appErr != nil {
		c.logf("request error path=/v1/projects/{projectId}/paymasters/retry method=%s project_id=%s code=%s message=%s", r.Method, projectID, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

func (c *PaymastersController) CleanupProject(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.cleanupUseCase.Execute(r.Context(), dto.CleanupProjectCommand{ProjectID: projectID})
	if appErr != nil {
		c.logf("request error path=/v1/projects/{projectId}/paymasters method=%s project_id=%s code=%s message=%s", r.Method, projectID, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

func (c *PaymastersController) SetActive(w http.ResponseWriter, r *http.Request) {
	projectID, appErr := projectIDFromPath(r)
	if appErr != nil {
		writeAppError(w, appErr)
		return
	}
	payload := setActivePayload{}
	if appErr := decodePayload(r.Body, &payload); appErr != nil {
		writeAppError(w, appErr)
		return
	}

	output, appErr := c.setActiveUseCase.Execute(r.Context(), dto.SetPaymasterActiveCommand{
		ProjectID: projectID,
		Category:  r.PathValue("category"),
		Active:    *payload.Active,
	})
	if appErr != nil {
		c.logf("request error path=/v1/projects/{projectId}/paymasters/{category}/active method=%s project_id=%s code=%s message=%s", r.Method, projectID, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	writeJSON(w, http.StatusOK, output)
}

func (c *PaymastersController) logf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}
