package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worklane/worklane-backend/internal/settlement"
	midtranswebhook "github.com/worklane/worklane-backend/internal/webhooks/midtrans"
	pkgerrors "github.com/worklane/worklane-backend/pkg/errors"
	"github.com/worklane/worklane-backend/pkg/logger"
)

type fakeMidtransService struct {
	outcome *settlement.Outcome
	err     error
	got     midtranswebhook.Notification
}

func (f *fakeMidtransService) HandleNotification(_ context.Context, n midtranswebhook.Notification) (*settlement.Outcome, error) {
	f.got = n
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func postMidtrans(t *testing.T, svc MidtransWebhookService, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/midtrans", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	MidtransWebhook(svc, logger.New(logger.Options{ServiceName: "test"}))(rec, req)
	return rec
}

func TestMidtransWebhookAcknowledgesSettledNotification(t *testing.T) {
	svc := &fakeMidtransService{outcome: &settlement.Outcome{OrderID: "ORD-1", Applied: true}}

	rec := postMidtrans(t, svc, map[string]string{
		"order_id":           "ORD-1",
		"status_code":        "200",
		"gross_amount":       "150000.00",
		"signature_key":      "sig",
		"transaction_status": "settlement",
		"payment_type":       "bank_transfer",
		"extra_field":        "providers add fields without notice",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "ok", envelope.Data["status"])
	assert.Equal(t, true, envelope.Data["applied"])
	assert.Equal(t, "ORD-1", svc.got.OrderID)
}

func TestMidtransWebhookRejectsBadSignature(t *testing.T) {
	svc := &fakeMidtransService{err: pkgerrors.New(pkgerrors.CodeForbidden, "invalid notification signature")}

	rec := postMidtrans(t, svc, map[string]string{
		"order_id":           "ORD-1",
		"status_code":        "200",
		"gross_amount":       "150000.00",
		"signature_key":      "bad",
		"transaction_status": "settlement",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMidtransWebhookRejectsIncompletePayload(t *testing.T) {
	svc := &fakeMidtransService{outcome: &settlement.Outcome{}}

	rec := postMidtrans(t, svc, map[string]string{"order_id": "ORD-1"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.got.OrderID)
}
