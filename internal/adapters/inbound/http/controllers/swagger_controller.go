package controllers

import (
	"log"
	"net/http"

	"paymasterhub/internal/application/dto"
	portsin "paymasterhub/internal/application/ports/in"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const (
	swaggerIndexPath = "/swagger/index.html"
	openAPISpecPath  = "/swagger/openapi.yaml"
)

type SwaggerController struct {
	useCase         portsin.GetOpenAPISpecUseCase
	logger          *log.Logger
	swaggerUIHandle http.Handler
}

func NewSwaggerController(useCase portsin.GetOpenAPISpecUseCase, logger *log.Logger) *SwaggerController {
	return &SwaggerController{
		useCase: useCase,
		logger:  logger,
		swaggerUIHandle: httpSwagger.Handler(
			httpSwagger.URL(openAPISpecPath),
			httpSwagger.DocExpansion("list"),
			httpSwagger.DeepLinking(true),
		),
	}
}

func (c *SwaggerController) RedirectToIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, swaggerIndexPath, http.StatusTemporaryRedirect)
}

func (c *SwaggerController) ServeUI(w http.ResponseWriter, r *http.Request) {
	c.swaggerUIHandle.ServeHTTP(w, r)
}

func (c *SwaggerController) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	output, appErr := c.useCase.Execute(r.Context(), dto.GetOpenAPISpecQuery{})
	if appErr != nil {
		c.logf("request error path=%s method=%s code=%s message=%s", openAPISpecPath, r.Method, appErr.Code, appErr.Message)
		writeAppError(w, appErr)
		return
	}

	w.Header().Set("Content-Type", output.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(output.Content); err != nil {
		c.logf("response write error path=%s method=%s error=%v", openAPISpecPath, r.Method, err)
	}
}

func (c *SwaggerController) logf(format string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Printf(format, args...)
}
