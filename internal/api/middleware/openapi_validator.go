package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kv-shepherd.io/vmwizard/internal/api/openapi"
	apperrors "kv-shepherd.io/vmwizard/internal/pkg/errors"
	"kv-shepherd.io/vmwizard/internal/pkg/logger"
)

// MustOpenAPIValidator is NewOpenAPIValidator that panics on setup failure.
func MustOpenAPIValidator(basePath string) gin.HandlerFunc {
	mw, err := NewOpenAPIValidator(basePath)
	if err != nil {
		panic(fmt.Sprintf("init openapi validator: %v", err))
	}
	return mw
}

// NewOpenAPIValidator checks request bodies and path parameters against the embedded
// OpenAPI document. Paths under basePath that the document does not describe pass
// through. Violations abort with INVALID_REQUEST, or INVALID_REQUEST_FIELD for a bad
// path parameter.
func NewOpenAPIValidator(basePath string) (gin.HandlerFunc, error) {
	doc, err := openapi.Load(context.Background())
	if err != nil {
		return nil, err
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create openapi router: %w", err)
	}
	basePath = normalizeBasePath(basePath)

	return func(c *gin.Context) {
		route, pathParams, err := findRoute(router, c, basePath)
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			logger.From(c.Request.Context()).Debug("request rejected by openapi document",
				zap.String("operation", route.Operation.OperationID),
				zap.Error(err),
			)
			_ = c.Error(requestError(err))
			c.Abort()
			return
		}
		c.Next()
	}, nil
}

// requestError turns a validation failure into the AppError the client sees.
func requestError(err error) *apperrors.AppError {
	var reqErr *openapi3filter.RequestError
	if !errors.As(err, &reqErr) {
		return apperrors.InvalidRequest(err.Error())
	}
	if reqErr.Parameter != nil {
		return apperrors.ErrInvalidRequestFieldf(reqErr.Parameter.Name)
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(reqErr.Err, &schemaErr) {
		field := strings.Join(schemaErr.JSONPointer(), ".")
		if field == "" {
			field = "body"
		}
		return apperrors.InvalidRequest("request body does not match the API schema", apperrors.FieldError{
			Field:   field,
			Code:    apperrors.CodeInvalidRequestField,
			Message: schemaErr.Reason,
		})
	}
	return apperrors.InvalidRequest(reqErr.Error())
}

func normalizeBasePath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" || basePath == "/" {
		return ""
	}
	return "/" + strings.Trim(basePath, "/")
}

// findRoute matches the request with basePath stripped, since document paths are
// relative to it. The request URL is restored before returning.
func findRoute(router routers.Router, c *gin.Context, basePath string) (*routers.Route, map[string]string, error) {
	u := c.Request.URL
	origPath, origRawPath := u.Path, u.RawPath
	defer func() { u.Path, u.RawPath = origPath, origRawPath }()

	u.Path = stripBasePath(basePath, origPath)
	if origRawPath != "" {
		u.RawPath = stripBasePath(basePath, origRawPath)
	}
	return router.FindRoute(c.Request)
}

func stripBasePath(basePath, path string) string {
	switch {
	case basePath == "":
		return path
	case path == basePath:
		return "/"
	case strings.HasPrefix(path, basePath+"/"):
		return strings.TrimPrefix(path, basePath)
	}
	return path
}
