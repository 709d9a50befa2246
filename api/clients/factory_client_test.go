package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/issuance-factory/api/handlers"
	"github.com/ruteri/issuance-factory/factory"
	"github.com/ruteri/issuance-factory/interfaces"
)

func setupClient(t *testing.T) (*FactoryClient, *MockFactoryOperations) {
	t.Helper()

	ops := new(MockFactoryOperations)
	mux := chi.NewRouter()
	handlers.NewHandler(ops, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewFactoryClient(srv.URL + "/"), ops
}

func TestFactoryClient_Initialize(t *testing.T) {
	client, ops := setupClient(t)
	ctx := context.Background()

	params := interfaces.InstantiateParams{
		Owner:           interfaces.Address{0x01},
		PaymentCurrency: interfaces.Address{0xcc},
		UnitPrice:       interfaces.NewAmount(5),
		MaxItems:        3,
		Name:            "Drops",
		Symbol:          "DRP",
		ItemExtension:   []byte(`{"a":1}`),
	}
	expected := &interfaces.CreationRequest{
		TemplateID:       9,
		InitPayload:      []byte(`{"name":"Drops"}`),
		Funds:            []interfaces.Amount{},
		Label:            "Drops",
		CorrelationToken: factory.RegistryCreationToken,
		NotifyOn:         interfaces.NotifyOnSuccess,
	}
	ops.On("Initialize", mock.Anything, mock.MatchedBy(func(p interfaces.InstantiateParams) bool {
		return p.UnitPrice.Equal(params.UnitPrice) && p.MaxItems == 3 && p.Owner == params.Owner
	})).Return(expected, nil)

	request, err := client.Initialize(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, expected.TemplateID, request.TemplateID)
	assert.Equal(t, expected.CorrelationToken, request.CorrelationToken)
	assert.JSONEq(t, `{"name":"Drops"}`, string(request.InitPayload))

	ops.AssertExpectations(t)
}

func TestFactoryClient_AcceptPayment(t *testing.T) {
	client, ops := setupClient(t)
	ctx := context.Background()

	payment := interfaces.PaymentNotification{
		Sender: interfaces.Address{0x02},
		Amount: interfaces.NewAmount(5),
		Medium: interfaces.Address{0xcc},
	}
	command := &interfaces.CreateItemCommand{
		Registry:  interfaces.Address{0x44},
		ItemID:    "0",
		Recipient: payment.Sender,
		ItemURI:   "ipfs://item",
		Extension: []byte("null"),
	}
	ops.On("AcceptPayment", mock.Anything, mock.Anything).Return(command, nil).Once()
	ops.On("AcceptPayment", mock.Anything, mock.Anything).Return(nil, factory.ErrSupplyExhausted).Once()

	issued, err := client.AcceptPayment(ctx, payment)
	require.NoError(t, err)
	assert.Equal(t, command.Registry, issued.Registry)
	assert.Equal(t, "0", issued.ItemID)

	_, err = client.AcceptPayment(ctx, payment)
	require.Error(t, err)
	assert.ErrorIs(t, err, factory.ErrSupplyExhausted)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusConflict, remote.StatusCode)
	assert.Equal(t, "supply_exhausted", remote.Code)
}

func TestFactoryClient_CompletionAndReads(t *testing.T) {
	client, ops := setupClient(t)
	ctx := context.Background()

	registry := interfaces.Address{0x44}
	ops.On("HandleDeferredCompletion", mock.Anything, mock.MatchedBy(func(n interfaces.CompletionNotification) bool {
		return n.CorrelationToken == factory.RegistryCreationToken
	})).Return(registry, nil)
	ops.On("ReadConfiguration", mock.Anything).Return(&interfaces.ConfigResponse{
		Registry:  interfaces.LinkedTo(registry),
		UnitPrice: interfaces.NewAmount(5),
		MaxItems:  3,
	}, nil)
	ops.On("ReadContractInfo", mock.Anything).Return(nil, factory.ErrNotInitialized)

	addr, err := client.HandleDeferredCompletion(ctx, interfaces.CompletionNotification{
		CorrelationToken: factory.RegistryCreationToken,
		Result:           interfaces.CreationResult{Data: factory.EncodeCreationResult(registry, nil)},
	})
	require.NoError(t, err)
	assert.Equal(t, registry, addr)

	cfg, err := client.ReadConfiguration(ctx)
	require.NoError(t, err)
	linked, ok := cfg.Registry.Address()
	require.True(t, ok)
	assert.Equal(t, registry, linked)
	assert.Equal(t, "5", cfg.UnitPrice.String())

	_, err = client.ReadContractInfo(ctx)
	assert.ErrorIs(t, err, factory.ErrNotInitialized)
}

func TestFactoryClient_Migrate(t *testing.T) {
	client, ops := setupClient(t)
	ops.On("Migrate", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: %q", factory.ErrUnsupportedMigration, "v2"))

	err := client.Migrate(context.Background(), interfaces.MigrateRequest{Variant: "v2"})
	assert.ErrorIs(t, err, factory.ErrUnsupportedMigration)
}

func TestFactoryClient_NonFactoryErrors(t *testing.T) {
	client, ops := setupClient(t)
	ops.On("ReadConfiguration", mock.Anything).Return(nil, errors.New("disk on fire"))

	_, err := client.ReadConfiguration(context.Background())
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusInternalServerError, remote.StatusCode)
	assert.Equal(t, "internal", remote.Code)
	assert.Nil(t, errors.Unwrap(err))

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer plain.Close()

	_, err = NewFactoryClient(plain.URL).ReadContractInfo(context.Background())
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "unknown", remote.Code)
}
