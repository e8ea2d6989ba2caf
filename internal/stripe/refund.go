package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cassiomorais/stripewrapper/internal/classify"
	"github.com/cassiomorais/stripewrapper/internal/formenc"
)

// RefundStatusSucceeded is the only refund status treated as complete.
// Pending, failed and any other status are reported as a business failure.
const RefundStatusSucceeded = "succeeded"

type refundRequest struct {
	ChargeID string `form:"charge" validate:"required"`
}

// RefundResult is a completed refund.
type RefundResult struct {
	RefundID string
	Status   string
	Body     classify.Body
}

// Refund returns the full amount of a previous charge.
//
// A 200/201 response only counts when its status is "succeeded"
// (case-insensitive) and it carries a refund id; otherwise the result is a
// *Failure of kind FailureBusiness holding the response body.
func (c *Client) Refund(ctx context.Context, chargeID string) (*RefundResult, error) {
	ctx, done := c.begin(ctx, ResourceRefunds)

	req := refundRequest{ChargeID: chargeID}
	if err := validateStruct(&req); err != nil {
		done(outcomeInvalidRequest, err)
		return nil, err
	}

	fields := &formenc.Fields{}
	fields.Add("charge", req.ChargeID)

	res, err := c.post(ctx, ResourceRefunds, fields)
	if err != nil {
		done(errorOutcome(err), err)
		return nil, err
	}
	if !res.Succeeded() {
		f := failureFromResult(ResourceRefunds, res)
		done(failureOutcome(f), f)
		return nil, f
	}

	status := res.Body.String("status")
	refundID := res.Body.String("id")
	if reason := refundShortfall(status, refundID); reason != "" {
		f := &Failure{
			Kind:       FailureBusiness,
			Resource:   ResourceRefunds,
			StatusCode: res.StatusCode,
			Body:       res.Body,
			Raw:        res.Raw,
			Err:        errors.New(reason),
		}
		c.logger.Warn().
			Str("charge_id", chargeID).
			Str("refund_id", refundID).
			Str("status", status).
			Msg("Refund not completed")
		done(outcomeBusinessFailure, f)
		return nil, f
	}

	c.logger.Info().
		Str("charge_id", chargeID).
		Str("refund_id", refundID).
		Msg("Refund succeeded")

	done(outcomeSuccess, nil)
	return &RefundResult{
		RefundID: refundID,
		Status:   status,
		Body:     res.Body,
	}, nil
}

func refundShortfall(status, refundID string) string {
	switch {
	case status == "":
		return "refund status missing"
	case strings.ToLower(status) != RefundStatusSucceeded:
		return fmt.Sprintf("refund status %q", status)
	case refundID == "":
		return "refund id missing"
	default:
		return ""
	}
}
