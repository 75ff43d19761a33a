package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-marketplace/internal/apperrors"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, errMsg string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteError maps a typed error kind to an HTTP status. Status mapping lives
// here so the services never deal in HTTP.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	resp := APIResponse{
		Success:   false,
		Message:   err.Error(),
		Error:     err.Error(),
		ErrorKind: string(kind),
		Timestamp: time.Now(),
	}
	WriteJSON(w, statusForKind(kind), resp)
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation, apperrors.KindPaymentNotCompleted:
		return http.StatusBadRequest
	case apperrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.KindForbidden, apperrors.KindVendorSuspended:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInvalidTransition, apperrors.KindInsufficientStock,
		apperrors.KindSlotLimitExceeded, apperrors.KindAlreadyPaid,
		apperrors.KindNotApproved, apperrors.KindNotAccepted,
		apperrors.KindDeparturePassed:
		return http.StatusConflict
	case apperrors.KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
