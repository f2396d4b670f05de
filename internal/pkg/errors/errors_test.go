package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  ErrStorageNotFoundf(3),
			want: "STORAGE_NOT_FOUND: storage not found",
		},
		{
			name: "with cause",
			err:  ErrCatalogLoadf(fmt.Errorf("open catalog.yaml: no such file")),
			want: "CATALOG_LOAD_FAILED: reference data could not be loaded: open catalog.yaml: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_UnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("readiness: %w", ErrClusterUnhealthyf(cause))

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cluster error")
	}
	appErr, ok := IsAppError(err)
	if !ok {
		t.Fatal("IsAppError should find the wrapped AppError")
	}
	if appErr.Code != CodeClusterUnhealthy || appErr.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("got %s/%d", appErr.Code, appErr.HTTPStatus)
	}
	if _, ok := IsAppError(cause); ok {
		t.Error("plain errors are not AppErrors")
	}
}

func TestConstructors_Status(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"SessionNotFound", ErrSessionNotFoundf("s1"), CodeSessionNotFound, http.StatusNotFound},
		{"SessionLimit", ErrSessionLimitf(10), CodeSessionLimit, http.StatusTooManyRequests},
		{"StorageNotFound", ErrStorageNotFoundf(2), CodeStorageNotFound, http.StatusNotFound},
		{"StoragePolicy", ErrStoragePolicyf("size is fixed", nil), CodeStoragePolicyViolation, http.StatusConflict},
		{"CatalogLoad", ErrCatalogLoadf(errors.New("eof")), CodeCatalogLoadFailed, http.StatusBadGateway},
		{"InvalidField", ErrInvalidRequestFieldf("storageID"), CodeInvalidRequestField, http.StatusBadRequest},
		{"InvalidRequest", InvalidRequest("body is not JSON"), CodeInvalidRequest, http.StatusBadRequest},
		{"Unprocessable", UnprocessableEntity(CodeInvalidRequestField, "bad vm"), CodeInvalidRequestField, http.StatusUnprocessableEntity},
		{"Internal", Internal("INTERNAL_ERROR", "uuid"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
		})
	}
}

func TestParamsAndFieldErrors(t *testing.T) {
	if got := ErrSessionNotFoundf("0192f5c2").Params["session_id"]; got != "0192f5c2" {
		t.Errorf("session_id = %v", got)
	}
	if got := ErrInvalidRequestFieldf("storageID").Params["field"]; got != "storageID" {
		t.Errorf("field = %v", got)
	}

	policy := ErrStoragePolicyf("size is fixed", nil)
	if policy.Params != nil {
		t.Errorf("Params = %v, want nil without params", policy.Params)
	}
	policy = ErrStoragePolicyf("bus is fixed", map[string]interface{}{"source": "attach-disk"})
	if policy.Params["source"] != "attach-disk" {
		t.Errorf("Params = %v", policy.Params)
	}

	err := InvalidRequest("schema",
		FieldError{Field: "namespace", Code: CodeFieldRequired},
		FieldError{Field: "patches", Code: CodeFieldRequired},
	)
	if len(err.FieldErrors) != 2 || err.FieldErrors[1].Field != "patches" {
		t.Errorf("FieldErrors = %v", err.FieldErrors)
	}
	if len(InvalidRequest("no fields").FieldErrors) != 0 {
		t.Error("InvalidRequest without fields should carry none")
	}
}
