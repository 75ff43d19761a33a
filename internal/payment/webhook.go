package payment

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookError represents an error that occurred during webhook processing
type WebhookError struct {
	Category      string // "configuration", "validation", "processing"
	StatusCode    int    // HTTP status code
	PublicError   string // Safe to expose to clients
	InternalError string // Detailed error for logs only
	OriginalErr   error  // Underlying error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

// HandleStripeWebhook verifies and processes Stripe webhook deliveries.
// checkout.session.completed runs the same verification path as the success
// redirect; checkout.session.expired cancels the booking. Both paths are
// idempotent, so Stripe's at-least-once delivery is harmless.
func (s *Service) HandleStripeWebhook(r *http.Request) error {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if webhookSecret == "" {
		s.Logger.Error("WEBHOOK", "Stripe webhook secret is not configured")
		return &WebhookError{
			Category:      "configuration",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to read webhook payload: %v", err))
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("Failed to read webhook payload: %v", err),
			OriginalErr:   err,
		}
	}

	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), webhookSecret, opts)
	if err != nil {
		s.Logger.Error("WEBHOOK", fmt.Sprintf("Webhook signature verification failed: %v", err))
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook signature",
			InternalError: fmt.Sprintf("Webhook signature verification failed: %v", err),
			OriginalErr:   err,
		}
	}

	s.Logger.Info("WEBHOOK", fmt.Sprintf("Processing Stripe webhook event: %s", event.Type))

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			s.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to unmarshal checkout session: %v", err))
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid event data",
				InternalError: fmt.Sprintf("Failed to unmarshal checkout session: %v", err),
				OriginalErr:   err,
			}
		}

		if err := s.VerifySession(r.Context(), sess.ID); err != nil {
			s.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to verify session %s: %v", sess.ID, err))
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Failed to process payment",
				InternalError: fmt.Sprintf("Failed to verify session %s: %v", sess.ID, err),
				OriginalErr:   err,
			}
		}
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Successfully processed payment for session %s", sess.ID))

	case "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			s.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to unmarshal checkout session: %v", err))
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid event data",
				InternalError: fmt.Sprintf("Failed to unmarshal checkout session: %v", err),
				OriginalErr:   err,
			}
		}

		bookingID := sess.Metadata[metadataBookingKey]
		if bookingID == "" {
			s.Logger.Error("WEBHOOK", "Expired session has no booking_id in metadata")
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid session data",
				InternalError: "Expired session has no booking_id in metadata",
			}
		}

		if err := s.Bookings.Cancel(r.Context(), bookingID); err != nil {
			s.Logger.Error("WEBHOOK", fmt.Sprintf("Failed to cancel booking %s after session expiry: %v", bookingID, err))
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Failed to cancel booking after session expiry",
				InternalError: fmt.Sprintf("Failed to cancel booking %s after session expiry: %v", bookingID, err),
				OriginalErr:   err,
			}
		}
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Cancelled booking %s after session expiry", bookingID))

	default:
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Unhandled event type: %s", event.Type))
	}

	return nil
}
