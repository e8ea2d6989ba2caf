package stripe_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	domainErrors "github.com/cassiomorais/stripewrapper/internal/domain/errors"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/observability"
	"github.com/cassiomorais/stripewrapper/internal/infrastructure/transport"
	"github.com/cassiomorais/stripewrapper/internal/stripe"
	"github.com/cassiomorais/stripewrapper/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)

	ok := newClient(t, testutil.Respond(http.StatusOK, `{"id":"ch_1","source":{"id":"card_1"}}`), stripe.WithMetrics(m))
	_, err := ok.Charge(context.Background(), validCharge())
	require.NoError(t, err)

	pending := newClient(t, testutil.Respond(http.StatusOK, `{"status":"pending","id":"re_1"}`), stripe.WithMetrics(m))
	_, err = pending.Refund(context.Background(), "ch_1")
	require.Error(t, err)

	refused := newClient(t, testutil.Refuse(), stripe.WithMetrics(m))
	_, err = refused.Refund(context.Background(), "ch_1")
	require.Error(t, err)

	_, err = ok.Refund(context.Background(), "")
	require.Error(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.CallsTotal.WithLabelValues("charges", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CallsTotal.WithLabelValues("refunds", "business_failure")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CallsTotal.WithLabelValues("refunds", "transport_error")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CallsTotal.WithLabelValues("refunds", "invalid_request")))
}

func TestClient_LogsMaskedKey(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.InitLogger("debug", &buf, false)
	c := newClient(t, testutil.Respond(http.StatusOK, `{"status":"succeeded","id":"re_1"}`), stripe.WithLogger(logger))

	_, err := c.Refund(context.Background(), "ch_1")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "https://api.stripe.com/v1/refunds")
	assert.Contains(t, out, observability.MaskSecret(testKey))
	assert.NotContains(t, out, testKey)
}

func TestClient_LogsOutcomeWithDuration(t *testing.T) {
	tests := []struct {
		name  string
		spy   *testutil.SpyTransport
		level string
	}{
		{"success", testutil.Respond(http.StatusOK, `{"status":"succeeded","id":"re_1"}`), `"level":"info"`},
		{"rejected", testutil.Respond(http.StatusNotFound, `{}`), `"level":"warn"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := observability.InitLogger("info", &buf, false)
			c := newClient(t, tt.spy, stripe.WithLogger(logger))

			_, _ = c.Refund(context.Background(), "ch_1")

			var line string
			for _, l := range strings.Split(buf.String(), "\n") {
				if strings.Contains(l, "Provider response classified") {
					line = l
				}
			}
			require.NotEmpty(t, line)
			assert.Contains(t, line, tt.level)
			assert.Contains(t, line, `"resource":"refunds"`)
			assert.Contains(t, line, `"duration":`)
			assert.Contains(t, line, `"status":`)
		})
	}
}

func TestClient_ConcurrentCalls(t *testing.T) {
	spy := &testutil.SpyTransport{
		SendFunc: func(_ context.Context, req *transport.Request) (*transport.Response, error) {
			if bytes.HasPrefix(req.Body, []byte("charge=")) {
				return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"status":"succeeded","id":"re_1"}`)}, nil
			}
			return &transport.Response{StatusCode: http.StatusOK, Body: []byte(`{"id":"ch_1","source":{"id":"card_1"}}`)}, nil
		},
	}
	c := newClient(t, spy)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := c.Charge(context.Background(), validCharge())
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := c.Refund(context.Background(), "ch_1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 20, spy.Calls())
}

func TestClient_AgainstFakeProvider(t *testing.T) {
	engines := map[string]transport.Sender{
		transport.EngineNetHTTP:  transport.NewHTTPSender(5*time.Second, false),
		transport.EngineFastHTTP: transport.NewFastSender(5*time.Second, false),
	}

	for name, sender := range engines {
		t.Run(name, func(t *testing.T) {
			p := testutil.NewFakeProvider(testKey)
			t.Cleanup(p.Close)

			c, err := stripe.NewClient(stripe.ClientConfig{APIKey: testKey, Endpoint: p.Endpoint()}, sender)
			require.NoError(t, err)
			ctx := context.Background()

			req := validCharge()
			req.Metadata = map[string]string{"order id": "A&B"}
			req.Billing.NameOnCard = "SOME PERSON"
			charge, err := c.Charge(ctx, req)
			require.NoError(t, err)
			assert.NotEmpty(t, charge.ChargeID)
			assert.NotEmpty(t, charge.CardID)
			assert.Equal(t, "4242", charge.Body.String("source", "last4"))

			form := p.LastForm()
			assert.Equal(t, "A&B", form["metadata[order id]"])
			assert.Equal(t, "SOME PERSON", form["source[name]"])
			assert.Equal(t, "true", form["capture"])

			refund, err := c.Refund(ctx, charge.ChargeID)
			require.NoError(t, err)
			assert.NotEmpty(t, refund.RefundID)
			assert.Equal(t, charge.ChargeID, refund.Body.String("charge"))

			p.SetRefundStatus("pending")
			_, err = c.Refund(ctx, charge.ChargeID)
			assert.ErrorIs(t, err, domainErrors.ErrRefundNotSucceeded)

			declined := validCharge()
			declined.CardNumber = testutil.DeclinedCard
			_, err = c.Charge(ctx, declined)
			var f *stripe.Failure
			require.ErrorAs(t, err, &f)
			assert.Equal(t, http.StatusPaymentRequired, f.StatusCode)
			assert.Equal(t, "Your card was declined.", f.Body.String("error", "message"))

			_, err = c.Refund(ctx, "ch_unknown")
			require.ErrorAs(t, err, &f)
			assert.Equal(t, http.StatusNotFound, f.StatusCode)
		})
	}
}

func TestClient_WrongKeyIsRejected(t *testing.T) {
	p := testutil.NewFakeProvider(testKey)
	t.Cleanup(p.Close)

	c, err := stripe.NewClient(
		stripe.ClientConfig{APIKey: "sk_test_wrong", Endpoint: p.Endpoint()},
		transport.NewHTTPSender(5*time.Second, false),
	)
	require.NoError(t, err)

	_, err = c.Charge(context.Background(), validCharge())

	var f *stripe.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, stripe.FailureRejected, f.Kind)
	assert.Equal(t, http.StatusUnauthorized, f.StatusCode)
	assert.Contains(t, f.Error(), "Invalid API Key provided")
}
