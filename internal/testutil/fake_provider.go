package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DeclinedCard is a card number the fake provider always declines.
const DeclinedCard = "4000000000000002"

// FakeProvider is an in-process stand-in for the provider's charges and
// refunds endpoints, served under /v1.
type FakeProvider struct {
	*httptest.Server

	APIKey string

	mu           sync.Mutex
	charges      map[string]map[string]any
	refundStatus string
	lastForm     map[string]string
}

// NewFakeProvider starts a server that accepts apiKey as its only credential.
// Close it with t.Cleanup(p.Close).
func NewFakeProvider(apiKey string) *FakeProvider {
	p := &FakeProvider{
		APIKey:       apiKey,
		charges:      make(map[string]map[string]any),
		refundStatus: "succeeded",
	}

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Use(p.authenticate)
		r.Post("/charges", p.createCharge)
		r.Post("/refunds", p.createRefund)
	})

	p.Server = httptest.NewServer(r)
	return p
}

// Endpoint is the API base clients should use.
func (p *FakeProvider) Endpoint() string {
	return p.URL + "/v1/"
}

// SetRefundStatus changes the status reported for new refunds.
func (p *FakeProvider) SetRefundStatus(status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refundStatus = status
}

// LastForm returns the decoded form of the most recent accepted request.
func (p *FakeProvider) LastForm() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastForm
}

func (p *FakeProvider) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user != p.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid_request_error", "Invalid API Key provided")
			return
		}
		if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			writeError(w, http.StatusBadRequest, "invalid_request_error", "unsupported content type")
			return
		}
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
			return
		}

		form := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		p.mu.Lock()
		p.lastForm = form
		p.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (p *FakeProvider) createCharge(w http.ResponseWriter, r *http.Request) {
	number := r.PostForm.Get("source[number]")
	if number == DeclinedCard {
		writeError(w, http.StatusPaymentRequired, "card_error", "Your card was declined.")
		return
	}
	amount, err := strconv.ParseInt(r.PostForm.Get("amount"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "Invalid integer: amount")
		return
	}

	last4 := number
	if len(number) > 4 {
		last4 = number[len(number)-4:]
	}
	charge := map[string]any{
		"id":          "ch_" + shortID(),
		"object":      "charge",
		"amount":      amount,
		"currency":    r.PostForm.Get("currency"),
		"captured":    r.PostForm.Get("capture") == "true",
		"description": r.PostForm.Get("description"),
		"status":      "succeeded",
		"source": map[string]any{
			"id":     "card_" + shortID(),
			"object": "card",
			"last4":  last4,
			"name":   r.PostForm.Get("source[name]"),
		},
	}

	p.mu.Lock()
	p.charges[charge["id"].(string)] = charge
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, charge)
}

func (p *FakeProvider) createRefund(w http.ResponseWriter, r *http.Request) {
	chargeID := r.PostForm.Get("charge")

	p.mu.Lock()
	charge, ok := p.charges[chargeID]
	status := p.refundStatus
	p.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "invalid_request_error", "No such charge: "+chargeID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     "re_" + shortID(),
		"object": "refund",
		"amount": charge["amount"],
		"charge": chargeID,
		"status": status,
	})
}

func shortID() string {
	return uuid.NewString()[:8]
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"type": kind, "message": message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigStd.NewEncoder(w).Encode(v)
}
