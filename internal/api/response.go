package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"networth/pkg/networth"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeSuccess writes a successful response with data.
func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Code: 0,
		Data: data,
	})
}

// writeSuccessWithMessage writes a successful response with data and message.
func writeSuccessWithMessage(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// writeErrorResponse writes err with the HTTP status its error code maps to.
// Errors without a code are reported with fallbackStatus.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, fallbackStatus int, err error) {
	response := ErrorResponse{
		Code:      fallbackStatus,
		Message:   err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	}

	var nwErr *networth.Error
	if errors.As(err, &nwErr) {
		response.ErrorCode = string(nwErr.Code)
		response.Code = mapErrorCodeToHTTPStatus(nwErr.Code)
	}

	noteError(w, response.ErrorCode, response.Message)
	writeJSON(w, response.Code, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code networth.ErrorCode) int {
	switch code {
	case networth.ErrCodeInvalidInput, networth.ErrCodeValidation, networth.ErrCodeMalformedRow,
		networth.ErrCodeUnknownCurrency:
		return http.StatusBadRequest
	case networth.ErrCodeNotFound, networth.ErrCodeRateNotFound, networth.ErrCodePriceNotFound:
		return http.StatusNotFound
	case networth.ErrCodeDatabase, networth.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
