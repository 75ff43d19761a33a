package payment_api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/payment"
	"ms-marketplace/internal/utils"
)

type Handler struct {
	PaymentService *payment.Service
	Logger         *logger.Logger
}

// CreateCheckout opens a checkout session for an accepted booking and
// returns the provider URL the customer should be sent to.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingId")
	caller := auth.CallerEmail(r.Context())
	h.Logger.Info("API", fmt.Sprintf("CreateCheckout: bookingId=%s caller=%s", bookingID, caller))

	url, err := h.PaymentService.CreateCheckout(r.Context(), caller, bookingID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateCheckout: %v", err))
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("checkout session created", map[string]string{"url": url}))
}

// PaymentSuccess is the provider's success redirect target. Verification is
// idempotent, so a refreshed redirect page cannot double-finalize.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		utils.WriteError(w, apperrors.New(apperrors.KindValidation, "session_id query parameter is required"))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("PaymentSuccess: session=%s", sessionID))

	if err := h.PaymentService.VerifySession(r.Context(), sessionID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PaymentSuccess: verification failed: %v", err))
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("payment confirmed", nil))
}

// PaymentCancel is the provider's cancel redirect target.
func (h *Handler) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		utils.WriteError(w, apperrors.New(apperrors.KindValidation, "session_id query parameter is required"))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("PaymentCancel: session=%s", sessionID))

	if err := h.PaymentService.CancelSession(r.Context(), sessionID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("PaymentCancel: %v", err))
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("checkout cancelled", nil))
}

// StripeWebhook receives signed provider events.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.PaymentService.HandleStripeWebhook(r); err != nil {
		var webhookErr *payment.WebhookError
		if errors.As(err, &webhookErr) {
			http.Error(w, webhookErr.PublicError, webhookErr.StatusCode)
			return
		}
		http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
