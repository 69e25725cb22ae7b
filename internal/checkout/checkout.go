// Package checkout decides how a counselling session can be paid for.
package checkout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-health/heron/internal/domain"
)

// Payment methods offered to the client.
const (
	MethodSubscription = "subscription"
	MethodPayment      = "payment"
)

// ErrInvalidRequest is returned for a checkout request that cannot be priced.
var ErrInvalidRequest = errors.New("invalid checkout request")

// Request describes the session being booked.
type Request struct {
	Service        string  `json:"service"`
	PractitionerID string  `json:"practitionerId,omitempty"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
}

// Option is one way to pay.
type Option struct {
	Method    string  `json:"method"`
	Label     string  `json:"label"`
	Available bool    `json:"available"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reason    string  `json:"reason,omitempty"`
}

// Decision lists the payment options and the one the client should
// preselect.
type Decision struct {
	Options           []Option `json:"options"`
	Recommended       string   `json:"recommended"`
	SubscriptionID    string   `json:"subscriptionId,omitempty"`
	SessionsRemaining int      `json:"sessionsRemaining"`
}

// Validate checks a request and fills the default currency.
func (r *Request) Validate() error {
	r.Service = strings.TrimSpace(r.Service)
	if r.Service == "" {
		return fmt.Errorf("%w: service is required", ErrInvalidRequest)
	}
	if r.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	if r.Currency == "" {
		r.Currency = "INR"
	}
	r.Currency = strings.ToUpper(r.Currency)
	return nil
}

// Decide offers the subscription when it can cover the session and direct
// payment always. sub may be nil.
func Decide(sub *domain.Subscription, req Request, now time.Time) (*Decision, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	subOpt := Option{
		Method:   MethodSubscription,
		Label:    "Use a prepaid session",
		Currency: req.Currency,
	}
	d := &Decision{Recommended: MethodPayment}

	switch {
	case sub == nil:
		subOpt.Reason = "no active subscription"
	case !now.Before(sub.ExpiresAt):
		subOpt.Reason = "subscription expired"
	case sub.SessionsRemaining <= 0:
		subOpt.Reason = "no sessions remaining"
	default:
		subOpt.Available = true
		subOpt.Label = fmt.Sprintf("Use a prepaid session (%d left on %s)", sub.SessionsRemaining, sub.Plan)
		d.Recommended = MethodSubscription
		d.SubscriptionID = sub.ID
		d.SessionsRemaining = sub.SessionsRemaining
	}

	d.Options = []Option{
		subOpt,
		{
			Method:    MethodPayment,
			Label:     fmt.Sprintf("Pay %.2f %s", req.Amount, req.Currency),
			Available: true,
			Amount:    req.Amount,
			Currency:  req.Currency,
		},
	}
	return d, nil
}
