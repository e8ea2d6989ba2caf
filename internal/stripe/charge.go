package stripe

import (
	"context"
	"sort"

	"github.com/cassiomorais/stripewrapper/internal/classify"
	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
	"github.com/cassiomorais/stripewrapper/internal/formenc"
)

// MinimumChargeAmount is the smallest charge the provider accepts, in minor units.
const MinimumChargeAmount = 50

// DefaultCurrency is used when a charge does not name one.
const DefaultCurrency = "USD"

// Billing holds optional cardholder details. Empty fields are not sent.
type Billing struct {
	Address1   string
	City       string
	State      string
	Zip        string
	CVV        string
	NameOnCard string
}

// ChargeRequest describes a captured card charge.
type ChargeRequest struct {
	// Metadata entries with an empty key or value are dropped.
	Metadata map[string]string `form:"metadata"`
	// Amount is in minor units: $5.00 is 500.
	Amount      int64  `form:"amount" validate:"gte=50"`
	Currency    string `form:"currency"`
	ExpMonth    int    `form:"exp_month" validate:"gte=1,lte=12"`
	ExpYear     int    `form:"exp_year"`
	CardNumber  string `form:"number" validate:"required"`
	Billing     Billing
	Description string `form:"description"`
}

// ChargeResult is a completed charge.
type ChargeResult struct {
	CardID   string
	ChargeID string
	// Body is the full response object.
	Body classify.Body
}

// Fields renders the request in the provider's form layout. Currency is
// defaulted here, not on r.
func (r *ChargeRequest) Fields() *formenc.Fields {
	f := &formenc.Fields{}

	keys := make([]string, 0, len(r.Metadata))
	for k := range r.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "" || r.Metadata[k] == "" {
			continue
		}
		f.Add("metadata["+k+"]", r.Metadata[k])
	}

	currency := r.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	f.Add("amount", r.Amount).
		Add("currency", currency).
		Add("capture", "true").
		Add("source[object]", "card").
		Add("source[exp_month]", r.ExpMonth).
		Add("source[exp_year]", r.ExpYear).
		Add("source[number]", r.CardNumber).
		AddIf("source[address_line1]", r.Billing.Address1).
		AddIf("source[address_city]", r.Billing.City).
		AddIf("source[address_state]", r.Billing.State).
		AddIf("source[address_zip]", r.Billing.Zip).
		AddIf("source[cvc]", r.Billing.CVV).
		AddIf("source[name]", r.Billing.NameOnCard).
		AddIf("description", r.Description)

	return f
}

// Charge captures a card payment.
//
// Invalid input returns a *errors.ValidationError before anything is sent.
// A failed call returns a *Failure. A 200/201 response whose body is not JSON
// returns an error matching errors.ErrMalformedBody, and one lacking id or
// source.id returns an error matching errors.ErrProtocolViolation.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	ctx, done := c.begin(ctx, ResourceCharges)

	if err := validateStruct(&req); err != nil {
		done(outcomeInvalidRequest, err)
		return nil, err
	}

	res, err := c.post(ctx, ResourceCharges, req.Fields())
	if err != nil {
		done(errorOutcome(err), err)
		return nil, err
	}
	if !res.Succeeded() {
		f := failureFromResult(ResourceCharges, res)
		done(failureOutcome(f), f)
		return nil, f
	}

	cardID := res.Body.String("source", "id")
	chargeID := res.Body.String("id")
	if cardID == "" || chargeID == "" {
		err := domainErrors.NewDomainError(
			"protocol_violation",
			"charge response missing id or source.id",
			domainErrors.ErrProtocolViolation,
		)
		done(outcomeProtocolViolation, err)
		return nil, err
	}

	c.logger.Info().
		Str("charge_id", chargeID).
		Str("card_id", cardID).
		Int64("amount", req.Amount).
		Msg("Charge succeeded")

	done(outcomeSuccess, nil)
	return &ChargeResult{
		CardID:   cardID,
		ChargeID: chargeID,
		Body:     res.Body,
	}, nil
}
