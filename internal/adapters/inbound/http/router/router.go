package router

import (
	"net/http"

	"paymasterhub/internal/adapters/inbound/http/controllers"
)

type Dependencies struct {
	HealthController     *controllers.HealthController
	SwaggerController    *controllers.SwaggerController
	PaymastersController *controllers.PaymastersController
	BalancesController   *controllers.BalancesController
}

func New(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", deps.HealthController.GetHealth)
	mux.HandleFunc("GET /swagger", deps.SwaggerController.RedirectToIndex)
	mux.HandleFunc("GET /swagger/openapi.yaml", deps.SwaggerController.GetOpenAPISpec)
	mux.HandleFunc("GET /swagger/", deps.SwaggerController.ServeUI)

	mux.HandleFunc("GET /v1/paymasters/health", deps.HealthController.GetDeploymentHealth)
	mux.HandleFunc("POST /v1/projects/{projectId}/paymasters", deps.PaymastersController.CreatePaymasters)
	mux.HandleFunc("DELETE /v1/projects/{projectId}/paymasters", deps.PaymastersController.CleanupProject)
	mux.HandleFunc("POST /v1/projects/{projectId}/paymasters/chains", deps.PaymastersController.AddChainSupport)
	mux.HandleFunc("GET /v1/projects/{projectId}/paymasters/addresses", deps.PaymastersController.GetAddresses)
	mux.HandleFunc("POST /v1/projects/{projectId}/paymasters/retry", deps.PaymastersController.RetryFailedDeployments)
	mux.HandleFunc("PUT /v1/projects/{projectId}/paymasters/{category}/active", deps.PaymastersController.SetActive)
	mux.HandleFunc("GET /v1/projects/{projectId}/paymasters/balances", deps.BalancesController.GetBalances)
	mux.HandleFunc("POST /v1/projects/{projectId}/paymasters/balances/refresh", deps.BalancesController.RefreshBalances)
	mux.HandleFunc("POST /v1/projects/{projectId}/paymasters/fund", deps.BalancesController.FundPaymaster)

	return mux
}
