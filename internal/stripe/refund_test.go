package stripe_test

import (
	"context"
	"net/http"
	"testing"

	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
	"github.com/cassiomorais/stripewrapper/internal/stripe"
	"github.com/cassiomorais/stripewrapper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefund_MissingChargeID(t *testing.T) {
	spy := testutil.Respond(http.StatusOK, `{}`)
	c := newClient(t, spy)

	res, err := c.Refund(context.Background(), "")

	assert.Nil(t, res)
	assert.ErrorIs(t, err, domainErrors.ErrMissingChargeID)
	assert.True(t, domainErrors.IsValidation(err))
	assert.Zero(t, spy.Calls())
}

func TestRefund_RequestLayout(t *testing.T) {
	spy := testutil.Respond(http.StatusOK, `{"status":"succeeded","id":"re_1"}`)
	c := newClient(t, spy)

	_, err := c.Refund(context.Background(), "ch_1")
	require.NoError(t, err)

	sent := spy.Last()
	assert.Equal(t, "https://api.stripe.com/v1/refunds", sent.URL)
	assert.Equal(t, http.MethodPost, sent.Method)
	assert.Equal(t, "application/x-www-form-urlencoded", sent.ContentType)
	assert.Equal(t, "charge=ch_1", string(sent.Body))
}

func TestRefund_Success(t *testing.T) {
	c := newClient(t, testutil.Respond(http.StatusOK, `{"status":"succeeded","id":"re_2"}`))

	res, err := c.Refund(context.Background(), "ch_1")

	require.NoError(t, err)
	assert.Equal(t, "re_2", res.RefundID)
	assert.Equal(t, "succeeded", res.Status)
	assert.Equal(t, "re_2", res.Body.String("id"))
}

func TestRefund_StatusIsCaseInsensitive(t *testing.T) {
	c := newClient(t, testutil.Respond(http.StatusCreated, `{"status":"SUCCEEDED","id":"re_3"}`))

	res, err := c.Refund(context.Background(), "ch_1")

	require.NoError(t, err)
	assert.Equal(t, "re_3", res.RefundID)
}

func TestRefund_BusinessFailures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"pending", `{"status":"pending","id":"re_1"}`, `refund status "pending"`},
		{"failed", `{"status":"failed","id":"re_1"}`, `refund status "failed"`},
		{"near miss", `{"status":"succeeded ","id":"re_1"}`, `refund status "succeeded "`},
		{"missing status", `{"id":"re_1"}`, "refund status missing"},
		{"empty status", `{"status":"","id":"re_1"}`, "refund status missing"},
		{"missing id", `{"status":"succeeded"}`, "refund id missing"},
		{"empty body", ``, "refund status missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, testutil.Respond(http.StatusOK, tt.body))

			res, err := c.Refund(context.Background(), "ch_1")

			assert.Nil(t, res)
			var f *stripe.Failure
			require.ErrorAs(t, err, &f)
			assert.Equal(t, stripe.FailureBusiness, f.Kind)
			assert.Equal(t, http.StatusOK, f.StatusCode)
			assert.ErrorIs(t, err, domainErrors.ErrRefundNotSucceeded)
			assert.NotErrorIs(t, err, domainErrors.ErrTransport)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestRefund_PendingKeepsBody(t *testing.T) {
	c := newClient(t, testutil.Respond(http.StatusOK, `{"status":"pending","id":"re_1"}`))

	_, err := c.Refund(context.Background(), "ch_1")

	var f *stripe.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "pending", f.Body.String("status"))
	assert.Equal(t, "re_1", f.Body.String("id"))
}

func TestRefund_Rejected(t *testing.T) {
	c := newClient(t, testutil.Respond(http.StatusNotFound, `{"error":{"message":"No such charge: ch_x"}}`))

	_, err := c.Refund(context.Background(), "ch_x")

	var f *stripe.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, stripe.FailureRejected, f.Kind)
	assert.Equal(t, http.StatusNotFound, f.StatusCode)
	assert.Equal(t, "No such charge: ch_x", f.Body.String("error", "message"))
}

func TestRefund_TransportFailure(t *testing.T) {
	c := newClient(t, testutil.Refuse())

	res, err := c.Refund(context.Background(), "ch_1")

	assert.Nil(t, res)
	var f *stripe.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, stripe.FailureTransport, f.Kind)
	assert.Nil(t, f.Body)
	assert.ErrorIs(t, err, domainErrors.ErrTransport)
}

func TestRefund_MalformedSuccessBody(t *testing.T) {
	c := newClient(t, testutil.Respond(http.StatusOK, `{"status":`))

	_, err := c.Refund(context.Background(), "ch_1")

	assert.ErrorIs(t, err, domainErrors.ErrMalformedBody)
}
