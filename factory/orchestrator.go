package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ruteri/issuance-factory/common"
	"github.com/ruteri/issuance-factory/interfaces"
)

// ContractName identifies this implementation in the contract info record.
const ContractName = "issuance-factory"

// Orchestrator implements the factory operations against one state backend.
// Each operation loads the records it needs, validates, and writes at most once
// at the very end, so a failed operation never leaves partial writes behind.
type Orchestrator struct {
	store       *Store
	coordinator *Coordinator
	log         *slog.Logger
}

// NewOrchestrator creates an orchestrator for the factory reachable at self.
func NewOrchestrator(backend interfaces.StateBackend, self interfaces.Address, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		store:       NewStore(backend),
		coordinator: NewCoordinator(self),
		log:         log,
	}
}

// Initialize validates the parameters, persists the unlinked config and returns
// the request that creates the item registry.
func (o *Orchestrator) Initialize(ctx context.Context, params interfaces.InstantiateParams) (*interfaces.CreationRequest, error) {
	if params.UnitPrice.IsZero() {
		return nil, ErrInvalidUnitPrice
	}
	if params.MaxItems == 0 {
		return nil, ErrInvalidMaxItems
	}

	extension := params.ItemExtension
	if len(extension) == 0 {
		extension = json.RawMessage("null")
	}
	if !json.Valid(extension) {
		return nil, ErrInvalidItemExtension
	}

	initialized, err := o.store.Initialized(ctx)
	if err != nil {
		return nil, err
	}
	if initialized {
		return nil, ErrAlreadyInitialized
	}

	request, err := o.coordinator.RequestCreation(params)
	if err != nil {
		return nil, err
	}

	cfg := &interfaces.Config{
		Owner:           params.Owner,
		PaymentCurrency: params.PaymentCurrency,
		Registry:        interfaces.Unlinked(),
		UnitPrice:       params.UnitPrice,
		MaxItems:        params.MaxItems,
		NextItemID:      0,
		Name:            params.Name,
		Symbol:          params.Symbol,
		ItemURI:         params.ItemURI,
		ItemExtension:   extension,
	}
	info := &interfaces.ContractInfo{Contract: ContractName, Version: common.Version}

	if err := o.store.SaveInitialState(ctx, cfg, info); err != nil {
		return nil, err
	}

	o.log.Info("Factory initialized",
		"owner", cfg.Owner.String(),
		"currency", cfg.PaymentCurrency.String(),
		"unitPrice", cfg.UnitPrice.String(),
		"maxItems", cfg.MaxItems,
		"templateID", params.TemplateID)

	return request, nil
}

// AcceptPayment turns a valid payment into a command creating the next item in
// the linked registry.
func (o *Orchestrator) AcceptPayment(ctx context.Context, notification interfaces.PaymentNotification) (*interfaces.CreateItemCommand, error) {
	cfg, err := o.store.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	registry, err := AuthorizePayment(notification, cfg)
	if err != nil {
		o.log.Debug("Payment rejected", "err", err, "sender", notification.Sender.String(), "amount", notification.Amount.String())
		return nil, err
	}

	itemID, updated := NextItemID(*cfg)
	if err := o.store.SaveConfig(ctx, &updated); err != nil {
		return nil, err
	}

	o.log.Info("Item issued", "itemID", itemID, "recipient", notification.Sender.String(), "registry", registry.String())

	return &interfaces.CreateItemCommand{
		Registry:  registry,
		ItemID:    itemID,
		Recipient: notification.Sender,
		ItemURI:   cfg.ItemURI,
		Extension: cfg.ItemExtension,
	}, nil
}

// HandleDeferredCompletion links the factory to the registry reported by a
// successful creation result.
func (o *Orchestrator) HandleDeferredCompletion(ctx context.Context, notification interfaces.CompletionNotification) (interfaces.Address, error) {
	cfg, err := o.store.LoadConfig(ctx)
	if err != nil {
		return interfaces.Address{}, err
	}

	registry, err := o.coordinator.CompleteCreation(notification, cfg)
	if err != nil {
		o.log.Warn("Creation result rejected", "err", err, "correlationToken", notification.CorrelationToken)
		return interfaces.Address{}, err
	}

	cfg.Registry = interfaces.LinkedTo(registry)
	if err := o.store.SaveConfig(ctx, cfg); err != nil {
		return interfaces.Address{}, err
	}

	o.log.Info("Item registry linked", "registry", registry.String())
	return registry, nil
}

// ReadConfiguration returns the external projection of the config record.
func (o *Orchestrator) ReadConfiguration(ctx context.Context) (*interfaces.ConfigResponse, error) {
	cfg, err := o.store.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	return &interfaces.ConfigResponse{
		Owner:           cfg.Owner,
		PaymentCurrency: cfg.PaymentCurrency,
		Registry:        cfg.Registry,
		UnitPrice:       cfg.UnitPrice,
		MaxItems:        cfg.MaxItems,
		NextItemID:      cfg.NextItemID,
		Name:            cfg.Name,
		Symbol:          cfg.Symbol,
		ItemURI:         cfg.ItemURI,
		ItemExtension:   cfg.ItemExtension,
	}, nil
}

// ReadContractInfo returns the contract info written at initialization.
func (o *Orchestrator) ReadContractInfo(ctx context.Context) (*interfaces.ContractInfo, error) {
	return o.store.LoadContractInfo(ctx)
}

// Migrate rejects every request: no migrations are defined.
func (o *Orchestrator) Migrate(ctx context.Context, req interfaces.MigrateRequest) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedMigration, req.Variant)
}
