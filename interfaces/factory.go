package interfaces

import (
	"context"
	"encoding/json"
)

// Config is the single durable record owned by the factory.
type Config struct {
	Owner           Address         `json:"owner"`
	PaymentCurrency Address         `json:"payment_currency_address"`
	Registry        RegistryLink    `json:"registry_address"`
	UnitPrice       Amount          `json:"unit_price"`
	MaxItems        uint32          `json:"max_items"`
	NextItemID      uint32          `json:"next_item_id"`
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	ItemURI         string          `json:"item_uri"`
	ItemExtension   json.RawMessage `json:"item_extension"`
}

// ConfigResponse is the external read shape of Config.
type ConfigResponse struct {
	Owner           Address         `json:"owner"`
	PaymentCurrency Address         `json:"payment_currency_address"`
	Registry        RegistryLink    `json:"registry_address"`
	UnitPrice       Amount          `json:"unit_price"`
	MaxItems        uint32          `json:"max_items"`
	NextItemID      uint32          `json:"next_item_id"`
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	ItemURI         string          `json:"item_uri"`
	ItemExtension   json.RawMessage `json:"item_extension"`
}

// ContractInfo records which factory implementation initialized the state.
type ContractInfo struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

// InstantiateParams are the inputs of the Initialize operation.
type InstantiateParams struct {
	Owner           Address         `json:"owner"`
	PaymentCurrency Address         `json:"payment_currency_address"`
	UnitPrice       Amount          `json:"unit_price"`
	MaxItems        uint32          `json:"max_items"`
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	ItemURI         string          `json:"item_uri"`
	ItemExtension   json.RawMessage `json:"item_extension,omitempty"`
	TemplateID      uint64          `json:"template_id"`
}

// NotifyPolicy selects which outcomes of a deferred creation are reported back.
type NotifyPolicy string

const (
	NotifyOnSuccess NotifyPolicy = "success"
	NotifyOnError   NotifyPolicy = "error"
	NotifyAlways    NotifyPolicy = "always"
)

// RegistryInitPayload is the initialization message of a new item registry.
type RegistryInitPayload struct {
	Name   string  `json:"name"`
	Symbol string  `json:"symbol"`
	Minter Address `json:"minter"`
}

// CreationRequest asks the environment to create a subordinate registry from a
// template. The result is reported back tagged with CorrelationToken.
type CreationRequest struct {
	TemplateID       uint64          `json:"template_id"`
	InitPayload      json.RawMessage `json:"init_payload"`
	Funds            []Amount        `json:"funds"`
	Label            string          `json:"label"`
	CorrelationToken uint64          `json:"correlation_token"`
	NotifyOn         NotifyPolicy    `json:"notify_on"`
}

// CreateItemCommand instructs the linked registry to create one item.
type CreateItemCommand struct {
	Registry  Address         `json:"registry"`
	ItemID    string          `json:"token_id"`
	Recipient Address         `json:"owner"`
	ItemURI   string          `json:"token_uri"`
	Extension json.RawMessage `json:"extension"`
}

// PaymentNotification is delivered by a payment medium after funds were sent to
// the factory. Payload is opaque and not interpreted.
type PaymentNotification struct {
	Sender  Address `json:"sender"`
	Amount  Amount  `json:"amount"`
	Medium  Address `json:"medium"`
	Payload []byte  `json:"msg,omitempty"`
}

// CreationResult carries the outcome of a deferred creation. Exactly one of Data
// and Error is meaningful; Error is non-empty on failure.
type CreationResult struct {
	Data  []byte `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// CompletionNotification reports the result of a deferred creation.
type CompletionNotification struct {
	CorrelationToken uint64         `json:"correlation_token"`
	Result           CreationResult `json:"result"`
}

// MigrateRequest is the input of the migration hook. No variants are defined.
type MigrateRequest struct {
	Variant string          `json:"variant"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MessageKind tags an outbound message.
type MessageKind string

const (
	CreateRegistryMessage MessageKind = "create_registry"
	CreateItemMessage     MessageKind = "create_item"
)

// Message is an effect emitted by a factory operation, delivered by a Dispatcher.
// Exactly one of the payload fields is set, matching Kind.
type Message struct {
	Kind           MessageKind        `json:"kind"`
	CreateRegistry *CreationRequest   `json:"create_registry,omitempty"`
	CreateItem     *CreateItemCommand `json:"create_item,omitempty"`
}

// Dispatcher delivers emitted messages to the environment hosting the registry.
type Dispatcher interface {
	// Dispatch forwards the message. A returned error means it was not delivered.
	Dispatch(ctx context.Context, msg Message) error

	// Name returns identifier for logging.
	Name() string
}

// FactoryOperations is the externally visible surface of one factory instance.
type FactoryOperations interface {
	Initialize(ctx context.Context, params InstantiateParams) (*CreationRequest, error)
	AcceptPayment(ctx context.Context, notification PaymentNotification) (*CreateItemCommand, error)
	HandleDeferredCompletion(ctx context.Context, notification CompletionNotification) (Address, error)
	ReadConfiguration(ctx context.Context) (*ConfigResponse, error)
	ReadContractInfo(ctx context.Context) (*ContractInfo, error)
	Migrate(ctx context.Context, req MigrateRequest) error
}
