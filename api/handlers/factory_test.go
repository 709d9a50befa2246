package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/issuance-factory/api"
	"github.com/ruteri/issuance-factory/dispatch"
	"github.com/ruteri/issuance-factory/factory"
	"github.com/ruteri/issuance-factory/host"
	"github.com/ruteri/issuance-factory/interfaces"
	"github.com/ruteri/issuance-factory/storage"
)

const (
	ownerHex    = "0101010101010101010101010101010101010101"
	currencyHex = "cccccccccccccccccccccccccccccccccccccccc"
	payerHex    = "0202020202020202020202020202020202020202"
	selfHex     = "fafafafafafafafafafafafafafafafafafafafa"
)

var testRegistry = interfaces.Address{0x44, 0x44}

const initBody = `{
	"owner": "` + ownerHex + `",
	"payment_currency_address": "` + currencyHex + `",
	"unit_price": "1000",
	"max_items": 2,
	"name": "Drops",
	"symbol": "DRP",
	"item_uri": "ipfs://item",
	"item_extension": {"edition": "first"},
	"template_id": 7
}`

type testServer struct {
	mux        *chi.Mux
	dispatcher *dispatch.MockDispatcher
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	self, err := interfaces.NewAddressFromHex(selfHex)
	require.NoError(t, err)

	dispatcher := new(dispatch.MockDispatcher)
	h := host.New(host.Config{
		Backend:    storage.NewMemoryBackend("handlers"),
		Dispatcher: dispatcher,
		Self:       self,
		Log:        logger,
	})

	mux := chi.NewRouter()
	NewHandler(h, logger).RegisterRoutes(mux)
	return &testServer{mux: mux, dispatcher: dispatcher}
}

func (s *testServer) do(method, path, body string) *http.Response {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)
	return w.Result()
}

func completionBody(t *testing.T, token uint64, data []byte, errText string) string {
	t.Helper()
	body, err := json.Marshal(interfaces.CompletionNotification{
		CorrelationToken: token,
		Result:           interfaces.CreationResult{Data: data, Error: errText},
	})
	require.NoError(t, err)
	return string(body)
}

func paymentBody(amount, medium string) string {
	return `{"sender":"` + payerHex + `","amount":"` + amount + `","medium":"` + medium + `"}`
}

func decodeError(t *testing.T, resp *http.Response) api.ErrorResponse {
	t.Helper()
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var errResp api.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	return errResp
}

// linkedServer returns a server that has been initialized and linked.
func linkedServer(t *testing.T) *testServer {
	t.Helper()
	s := setupTestServer(t)
	s.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	resp := s.do(http.MethodPost, "/api/v1/factory/initialize", initBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/factory/reply",
		completionBody(t, factory.RegistryCreationToken, factory.EncodeCreationResult(testRegistry, nil), ""))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return s
}

func TestHandleInitialize_Success(t *testing.T) {
	s := setupTestServer(t)
	s.dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(msg interfaces.Message) bool {
		return msg.Kind == interfaces.CreateRegistryMessage
	})).Return(nil).Once()

	resp := s.do(http.MethodPost, "/api/v1/factory/initialize", initBody)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed api.InitializeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.Equal(t, uint64(7), parsed.CreationRequest.TemplateID)
	assert.Equal(t, factory.RegistryCreationToken, parsed.CreationRequest.CorrelationToken)
	assert.Equal(t, interfaces.NotifyOnSuccess, parsed.CreationRequest.NotifyOn)

	var payload interfaces.RegistryInitPayload
	require.NoError(t, json.Unmarshal(parsed.CreationRequest.InitPayload, &payload))
	assert.Equal(t, "Drops", payload.Name)
	assert.Equal(t, selfHex, payload.Minter.String())

	s.dispatcher.AssertExpectations(t)
}

func TestHandleInitialize_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		status   int
		code     string
		setupDup bool
	}{
		{
			name:   "malformed json",
			body:   `{"owner":`,
			status: http.StatusBadRequest,
			code:   "malformed_request",
		},
		{
			name:   "bad amount",
			body:   `{"owner":"` + ownerHex + `","unit_price":"ten","max_items":1}`,
			status: http.StatusBadRequest,
			code:   "malformed_request",
		},
		{
			name:   "zero price",
			body:   `{"owner":"` + ownerHex + `","payment_currency_address":"` + currencyHex + `","unit_price":"0","max_items":1}`,
			status: http.StatusBadRequest,
			code:   "invalid_unit_price",
		},
		{
			name:   "zero max items",
			body:   `{"owner":"` + ownerHex + `","payment_currency_address":"` + currencyHex + `","unit_price":"5","max_items":0}`,
			status: http.StatusBadRequest,
			code:   "invalid_max_tokens",
		},
		{
			name:     "initialized twice",
			body:     initBody,
			status:   http.StatusConflict,
			code:     "already_initialized",
			setupDup: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := setupTestServer(t)
			s.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
			if tc.setupDup {
				resp := s.do(http.MethodPost, "/api/v1/factory/initialize", initBody)
				require.Equal(t, http.StatusOK, resp.StatusCode)
			}

			resp := s.do(http.MethodPost, "/api/v1/factory/initialize", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decodeError(t, resp).Error)
		})
	}
}

func TestHandleInitialize_DispatchFailure(t *testing.T) {
	s := setupTestServer(t)
	s.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	resp := s.do(http.MethodPost, "/api/v1/factory/initialize", initBody)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "dispatch_failed", decodeError(t, resp).Error)

	// The failed initialization left nothing behind.
	resp = s.do(http.MethodGet, "/api/v1/factory/config", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_initialized", decodeError(t, resp).Error)
}

func TestHandleReceive_BeforeLink(t *testing.T) {
	s := setupTestServer(t)
	s.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	resp := s.do(http.MethodPost, "/api/v1/factory/initialize", initBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(http.MethodPost, "/api/v1/factory/receive", paymentBody("1000", currencyHex))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "registry_not_linked", decodeError(t, resp).Error)
}

func TestHandleReceive_IssuesUntilExhausted(t *testing.T) {
	s := linkedServer(t)

	for _, expectedID := range []string{"0", "1"} {
		resp := s.do(http.MethodPost, "/api/v1/factory/receive", paymentBody("1000", currencyHex))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var parsed api.ReceiveResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
		resp.Body.Close()

		assert.Equal(t, expectedID, parsed.CreateItem.ItemID)
		assert.Equal(t, testRegistry, parsed.CreateItem.Registry)
		assert.Equal(t, payerHex, parsed.CreateItem.Recipient.String())
		assert.Equal(t, "ipfs://item", parsed.CreateItem.ItemURI)
		assert.JSONEq(t, `{"edition":"first"}`, string(parsed.CreateItem.Extension))
	}

	resp := s.do(http.MethodPost, "/api/v1/factory/receive", paymentBody("1000", currencyHex))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "supply_exhausted", decodeError(t, resp).Error)
}

func TestHandleReceive_Rejections(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"wrong medium", paymentBody("1000", payerHex), http.StatusForbidden, "unauthorized_payment_medium"},
		{"underpayment", paymentBody("999", currencyHex), http.StatusPaymentRequired, "wrong_payment_amount"},
		{"overpayment", paymentBody("1001", currencyHex), http.StatusPaymentRequired, "wrong_payment_amount"},
		{"malformed", `{"sender":"zz"}`, http.StatusBadRequest, "malformed_request"},
	}

	s := linkedServer(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := s.do(http.MethodPost, "/api/v1/factory/receive", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decodeError(t, resp).Error)
		})
	}

	resp := s.do(http.MethodGet, "/api/v1/factory/config", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg interfaces.ConfigResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, uint32(0), cfg.NextItemID)
}

func TestHandleReply(t *testing.T) {
	t.Run("links once", func(t *testing.T) {
		s := linkedServer(t)

		resp := s.do(http.MethodPost, "/api/v1/factory/reply",
			completionBody(t, factory.RegistryCreationToken, factory.EncodeCreationResult(interfaces.Address{0x55}, nil), ""))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "already_linked", decodeError(t, resp).Error)

		resp = s.do(http.MethodGet, "/api/v1/factory/config", "")
		var cfg interfaces.ConfigResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
		addr, linked := cfg.Registry.Address()
		require.True(t, linked)
		assert.Equal(t, testRegistry, addr)
	})

	testCases := []struct {
		name   string
		body   func(t *testing.T) string
		status int
		code   string
	}{
		{
			name: "unknown token",
			body: func(t *testing.T) string {
				return completionBody(t, 2, factory.EncodeCreationResult(testRegistry, nil), "")
			},
			status: http.StatusUnprocessableEntity,
			code:   "unexpected_correlation_token",
		},
		{
			name: "garbage payload",
			body: func(t *testing.T) string {
				return completionBody(t, factory.RegistryCreationToken, []byte{0xff, 0xff, 0xff}, "")
			},
			status: http.StatusUnprocessableEntity,
			code:   "decode_failure",
		},
		{
			name: "creation failed",
			body: func(t *testing.T) string {
				return completionBody(t, factory.RegistryCreationToken, nil, "out of gas")
			},
			status: http.StatusUnprocessableEntity,
			code:   "creation_failed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := setupTestServer(t)
			s.dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
			resp := s.do(http.MethodPost, "/api/v1/factory/initialize", initBody)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			resp = s.do(http.MethodPost, "/api/v1/factory/reply", tc.body(t))
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decodeError(t, resp).Error)
		})
	}
}

func TestHandleConfigAndContractInfo(t *testing.T) {
	s := linkedServer(t)

	resp := s.do(http.MethodGet, "/api/v1/factory/config", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, "1000", raw["unit_price"])
	assert.Equal(t, ownerHex, raw["owner"])
	assert.Equal(t, testRegistry.String(), raw["registry_address"])
	assert.EqualValues(t, 2, raw["max_items"])

	resp = s.do(http.MethodGet, "/api/v1/factory/contract_info", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info interfaces.ContractInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, factory.ContractName, info.Contract)
}

func TestHandleMigrate(t *testing.T) {
	s := linkedServer(t)

	resp := s.do(http.MethodPost, "/api/v1/factory/migrate", `{"variant":"v2"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decodeError(t, resp)
	assert.Equal(t, "unsupported_migration", errResp.Error)
	assert.Contains(t, errResp.Message, "v2")
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusCode(errors.New("disk on fire")))
	assert.Equal(t, http.StatusBadGateway, statusCode(errors.Join(host.ErrDispatchFailed, errors.New("x"))))
	assert.Equal(t, http.StatusConflict, statusCode(factory.ErrSupplyExhausted))
}
