package gateway_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alovak/cardflow-gateway/gateway"
	"github.com/alovak/cardflow-gateway/gateway/models"
	"github.com/alovak/cardflow-gateway/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, bankStatus int, bankBody string, metrics *telemetry.Metrics) (chi.Router, *countingStore) {
	t.Helper()

	srv := bankServer(t, bankStatus, bankBody)
	store := newCountingStore()
	processor := gateway.NewProcessor(discardLogger(), newTestAuthorizer(t, srv.URL), store, nil, metrics)
	validator := gateway.NewValidator(discardLogger(), func() time.Time { return fixedNow })

	router := chi.NewRouter()
	gateway.NewAPI(discardLogger(), validator, processor, metrics).AppendRoutes(router)
	return router, store
}

func postPayment(router http.Handler, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/payments", bytes.NewBuffer(body))
	router.ServeHTTP(w, req)
	return w
}

func validRequestJSON(t *testing.T) []byte {
	t.Helper()

	b, err := json.Marshal(validRequest())
	require.NoError(t, err)
	return b
}

func TestAPI(t *testing.T) {
	router, store := newTestRouter(t, http.StatusOK, `{"authorized":true,"authorization_code":"abc"}`, nil)

	var created models.Payment

	t.Run("create payment", func(t *testing.T) {
		w := postPayment(router, validRequestJSON(t))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))

		err := json.Unmarshal(w.Body.Bytes(), &created)
		require.NoError(t, err)

		require.Equal(t, models.PaymentStatusAuthorized, created.Status)
		require.Equal(t, 8877, created.CardNumberLastFour)
		require.Equal(t, "gbp", created.Currency)
		_, err = uuid.Parse(created.ID)
		require.NoError(t, err)
		require.Equal(t, 1, store.adds)
	})

	t.Run("response never carries the card number or cvv", func(t *testing.T) {
		w := postPayment(router, validRequestJSON(t))
		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), "2222405343248877")
		require.NotContains(t, w.Body.String(), "cvv")
	})

	t.Run("get payment", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/payments/"+created.ID, nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		got := models.Payment{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Equal(t, created, got)
	})

	t.Run("get payment by any uuid spelling", func(t *testing.T) {
		spellings := []string{
			strings.ToUpper(created.ID),
			strings.ReplaceAll(created.ID, "-", ""),
			"{" + created.ID + "}",
		}
		for _, id := range spellings {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/api/payments/"+id, nil)
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code, id)

			got := models.Payment{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			require.Equal(t, created, got)
		}
	})

	t.Run("unknown payment", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/payments/"+uuid.New().String(), nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("payment id must be a uuid", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/payments/not-a-uuid", nil)
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAPI_Rejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(reg)
	require.NoError(t, err)

	router, store := newTestRouter(t, http.StatusOK, `{"authorized":true}`, metrics)

	t.Run("validation errors", func(t *testing.T) {
		body := []byte(`{"card_number":"123","expiry_month":13,"expiry_year":2030,"currency":"","amount":10,"cvv":123}`)
		w := postPayment(router, body)
		require.Equal(t, http.StatusBadRequest, w.Code)

		rejected := models.RejectedPayment{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejected))
		require.Equal(t, models.PaymentStatusRejected, rejected.Status)
		require.Equal(t, gateway.MsgValidationFailed, rejected.Message)
		require.Equal(t, []string{
			gateway.MsgCardNumberLength,
			gateway.MsgExpiryMonthRange,
			gateway.MsgCurrencyRequired,
		}, rejected.Errors)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := postPayment(router, []byte(`{"card_number":`))
		require.Equal(t, http.StatusBadRequest, w.Code)

		rejected := models.RejectedPayment{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejected))
		require.Equal(t, models.PaymentStatusRejected, rejected.Status)
		require.NotEmpty(t, rejected.Errors)
	})

	require.Equal(t, 0, store.adds)
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.PaymentsCounter().WithLabelValues("Rejected")))
}

func TestAPI_BankFailures(t *testing.T) {
	tests := []struct {
		name       string
		bankStatus int
		bankBody   string
		wantStatus int
		wantMsg    string
	}{
		{"bank unavailable", http.StatusServiceUnavailable, "", http.StatusServiceUnavailable, gateway.MsgProcessorUnavailable},
		{"bank error", http.StatusInternalServerError, "secret upstream detail", http.StatusBadGateway, gateway.MsgProcessorHavingIssues},
		{"bank malformed body", http.StatusOK, "<html>", http.StatusBadGateway, gateway.MsgProcessorHavingIssues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, store := newTestRouter(t, tt.bankStatus, tt.bankBody, nil)

			w := postPayment(router, validRequestJSON(t))
			require.Equal(t, tt.wantStatus, w.Code)

			var body struct {
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.Equal(t, tt.wantMsg, body.Message)
			require.NotContains(t, w.Body.String(), "secret")
			require.Equal(t, 0, store.adds)
		})
	}
}
