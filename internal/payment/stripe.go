package payment

import (
	"context"
	"fmt"
	"os"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
)

// InitStripe initializes the Stripe API with the secret key
func InitStripe() {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
}

// metadataBookingKey is the correlation token slot: the booking id travels to
// Stripe in session metadata and comes back on every webhook and retrieval.
const metadataBookingKey = "booking_id"

// StripeProvider implements CheckoutProvider on Stripe Checkout sessions.
type StripeProvider struct{}

func (StripeProvider) CreateSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Title),
					},
					UnitAmount: stripe.Int64(req.UnitAmount),
				},
				Quantity: stripe.Int64(int64(req.Quantity)),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataBookingKey, req.BookingID)

	sess, err := session.New(params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, "failed to create checkout session", err)
	}
	return fromStripeSession(sess), nil
}

func (StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnavailable, fmt.Sprintf("failed to retrieve checkout session %s", sessionID), err)
	}
	return fromStripeSession(sess), nil
}

func fromStripeSession(sess *stripe.CheckoutSession) *models.CheckoutSession {
	// The payment intent id is the external transaction reference. Sessions
	// that never reached payment carry no intent; fall back to the session id
	// so the uniqueness invariant still holds per external transaction.
	transactionID := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		transactionID = sess.PaymentIntent.ID
	}
	return &models.CheckoutSession{
		SessionID:     sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		TransactionID: transactionID,
		Metadata:      sess.Metadata,
	}
}
