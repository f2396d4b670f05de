package errors

import "net/http"

// Error code constants.
// Errors contain code + params only, no hardcoded messages.
// Frontend handles i18n translation. Backend logs always in English.

// Wizard session error codes.
const (
	CodeSessionNotFound = "WIZARD_SESSION_NOT_FOUND"
	CodeSessionLimit    = "WIZARD_SESSION_LIMIT_REACHED"
)

// Storage error codes.
const (
	CodeStoragePolicyViolation = "STORAGE_POLICY_VIOLATION"
	CodeStorageNotFound        = "STORAGE_NOT_FOUND"
)

// Catalog and cluster error codes.
const (
	CodeCatalogLoadFailed = "CATALOG_LOAD_FAILED"
	CodeClusterUnhealthy  = "CLUSTER_UNHEALTHY"
)

// Validation error codes.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidRequestField = "INVALID_REQUEST_FIELD"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeNameInvalid         = "NAME_INVALID"
)

// Field error codes carried by wizard validation results.
const (
	CodeFieldRequired      = "FIELD_REQUIRED"
	CodeNameDuplicate      = "NAME_DUPLICATE"
	CodeSizeInvalid        = "SIZE_INVALID"
	CodeURLInvalid         = "URL_INVALID"
	CodeImageInvalid       = "IMAGE_INVALID"
	CodeClaimNotFound      = "CLAIM_NOT_FOUND"
	CodeDataVolumeNotFound = "DATA_VOLUME_NOT_FOUND"
	CodeBusNotAllowed      = "BUS_NOT_ALLOWED"
	CodeSourceNotAllowed   = "SOURCE_NOT_ALLOWED"
	CodeBootSourceInvalid  = "BOOT_SOURCE_INVALID"
	CodeMemoryOutOfRange   = "MEMORY_OUT_OF_RANGE"
)

// Convenience constructors using predefined codes.

// ErrSessionNotFoundf creates a wizard session not found error.
func ErrSessionNotFoundf(sessionID string) *AppError {
	return New(CodeSessionNotFound, "wizard session not found", http.StatusNotFound).
		With("session_id", sessionID)
}

// ErrSessionLimitf creates the error returned when no more sessions can be opened.
func ErrSessionLimitf(limit int) *AppError {
	return New(CodeSessionLimit, "too many open wizard sessions", http.StatusTooManyRequests).
		With("limit", limit)
}

// ErrCatalogLoadf creates an error for reference data that could not be loaded.
func ErrCatalogLoadf(err error) *AppError {
	return Wrap(err, CodeCatalogLoadFailed, "reference data could not be loaded", http.StatusBadGateway)
}

// ErrStorageNotFoundf creates a storage row not found error.
func ErrStorageNotFoundf(storageID int) *AppError {
	return New(CodeStorageNotFound, "storage not found", http.StatusNotFound).
		With("storage_id", storageID)
}

// ErrStoragePolicyf creates a 409 for an edit the storage source forbids.
func ErrStoragePolicyf(reason string, params map[string]interface{}) *AppError {
	e := New(CodeStoragePolicyViolation, reason, http.StatusConflict)
	for k, v := range params {
		e.With(k, v)
	}
	return e
}

// ErrClusterUnhealthyf creates a cluster unhealthy error.
func ErrClusterUnhealthyf(err error) *AppError {
	return Wrap(err, CodeClusterUnhealthy, "target cluster is unavailable", http.StatusServiceUnavailable)
}

// ErrInvalidRequestFieldf creates a bad request error for an unusable field.
func ErrInvalidRequestFieldf(fieldName string) *AppError {
	return BadRequest(CodeInvalidRequestField, "request contains invalid field: "+fieldName).
		With("field", fieldName)
}
