package models

// CheckoutRequest is the provider-neutral input for creating an external
// checkout session. UnitAmount is in minor currency units (cents).
type CheckoutRequest struct {
	BookingID  string
	Title      string
	Currency   string
	UnitAmount int64
	Quantity   int
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the provider-neutral view of an external session.
// Metadata carries the booking id back as the correlation token.
type CheckoutSession struct {
	SessionID     string
	URL           string
	PaymentStatus string
	AmountTotal   int64
	Currency      string
	TransactionID string
	Metadata      map[string]string
}

// Completed reports whether the provider considers the session paid.
func (s *CheckoutSession) Completed() bool {
	return s.PaymentStatus == "paid"
}
