package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/directorstracker/tracker-server/internal/errors"
)

const codeRateLimited = "RATE_LIMITED"

// statusCodes names the error code reported for a bare HTTP status.
var statusCodes = map[int]string{
	http.StatusBadRequest:          string(domainerrors.CodeValidation),
	http.StatusUnprocessableEntity: string(domainerrors.CodeValidation),
	http.StatusNotFound:            string(domainerrors.CodeNotFound),
	http.StatusConflict:            string(domainerrors.CodeConflict),
	http.StatusTooManyRequests:     codeRateLimited,
}

// APIError is the error body of every failed response. It satisfies
// huma.StatusError so operations can return it directly.
type APIError struct { //nolint:revive // reads better than api.Error at call sites
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

func newAPIError(status int, message string) *APIError {
	return &APIError{status: status, Code: statusToCode(status), Message: message}
}

func (e *APIError) Error() string             { return e.Message }
func (e *APIError) GetStatus() int            { return e.status }
func (e *APIError) ContentType(string) string { return "application/json" }

// RegisterErrorHandler routes huma's error construction through the domain
// error codes. It must run before any operation is registered.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		var details []string
		for _, err := range errs {
			if err == nil {
				continue
			}
			if apiErr := fromDomain(err); apiErr != nil {
				return apiErr
			}
			details = append(details, err.Error())
		}

		apiErr := newAPIError(status, message)
		if len(details) > 0 && status < http.StatusInternalServerError {
			apiErr.Details = details
		}
		return apiErr
	}
}

// fromDomain converts a domain error, or returns nil if err is not one.
func fromDomain(err error) *APIError {
	var domainErr *domainerrors.Error
	if !errors.As(err, &domainErr) {
		return nil
	}
	return &APIError{
		status:  domainErr.HTTPStatus(),
		Code:    string(domainErr.Code),
		Message: domainErr.Message,
		Details: domainErr.Details,
	}
}

func statusToCode(status int) string {
	if code, ok := statusCodes[status]; ok {
		return code
	}
	return string(domainerrors.CodeInternal)
}

// writeError writes err in the response envelope for handlers outside huma.
func writeError(w http.ResponseWriter, err error, logger *slog.Logger) {
	apiErr := fromDomain(err)
	if apiErr == nil {
		if logger != nil {
			logger.Error("unhandled error", "error", err)
		}
		apiErr = newAPIError(http.StatusInternalServerError, "internal server error")
	}
	writeEnvelope(w, apiErr.status, newErrorEnvelope(apiErr), logger)
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("envelope encode failed", "error", err)
	}
}
