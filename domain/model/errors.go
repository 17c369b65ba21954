package model

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is the error type surfaced to HTTP handlers. Code is a stable
// machine-readable string, Status the HTTP status the handler should use.
type AppError struct {
	Code     string      `json:"code"`
	Status   int         `json:"-"`
	Message  string      `json:"error"`
	Details  interface{} `json:"details,omitempty"`
	Required []string    `json:"required,omitempty"`
}

func (e *AppError) Error() string { return e.Message }

func NewMissingParamError(fields ...string) *AppError {
	return &AppError{
		Code:     "missing_parameter",
		Status:   http.StatusBadRequest,
		Message:  fmt.Sprintf("missing required parameter: %s", strings.Join(fields, ", ")),
		Required: fields,
	}
}

func NewTokenExtractionError(surl string) *AppError {
	return &AppError{
		Code:    "token_extraction_failed",
		Status:  http.StatusForbidden,
		Message: "unable to extract access token from share page",
		Details: map[string]string{"surl": surl},
	}
}

func NewUpstreamError(msg string, details interface{}) *AppError {
	return &AppError{
		Code:    "upstream_failed",
		Status:  http.StatusBadGateway,
		Message: msg,
		Details: details,
	}
}

func NewEmptyUpstreamError(surl string) *AppError {
	return &AppError{
		Code:    "upstream_empty_list",
		Status:  http.StatusBadGateway,
		Message: "upstream returned an empty file list",
		Details: map[string]string{"surl": surl},
	}
}

func NewNotFoundError(what string) *AppError {
	return &AppError{
		Code:    "not_found",
		Status:  http.StatusNotFound,
		Message: what + " not found",
	}
}

func NewIncompleteMetadataError(missing []string) *AppError {
	return &AppError{
		Code:    "incomplete_metadata",
		Status:  http.StatusInternalServerError,
		Message: "cached record is missing fields required for streaming",
		Details: map[string]interface{}{"missing": missing},
	}
}

func NewInvalidSegmentURLError(host string) *AppError {
	return &AppError{
		Code:    "invalid_segment_url",
		Status:  http.StatusForbidden,
		Message: "segment URL host is not an allowed upstream domain",
		Details: map[string]string{"host": host},
	}
}

func NewCollaboratorUnavailableError(name string) *AppError {
	return &AppError{
		Code:    "collaborator_unavailable",
		Status:  http.StatusServiceUnavailable,
		Message: name + " is not configured",
	}
}

func NewInternalError(msg string) *AppError {
	return &AppError{
		Code:    "internal_error",
		Status:  http.StatusInternalServerError,
		Message: msg,
	}
}
