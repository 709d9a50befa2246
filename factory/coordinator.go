package factory

import (
	"encoding/json"
	"fmt"

	"github.com/ruteri/issuance-factory/interfaces"
)

// RegistryCreationToken correlates the registry creation request with its result.
const RegistryCreationToken uint64 = 1

const registryCreationLabel = "Instantiate fixed price item registry"

// pendingCreation describes a deferred creation the coordinator knows how to complete.
type pendingCreation struct {
	label  string
	decode func(data []byte) (interfaces.Address, error)
}

// Coordinator issues deferred creation requests and consumes their correlated
// completions. It holds no mutable state: whether a completion is still
// expected is derived from the config record.
type Coordinator struct {
	self    interfaces.Address
	pending map[uint64]pendingCreation
}

// NewCoordinator creates a coordinator for a factory reachable at self. The
// factory's own address becomes the minter of the created registry.
func NewCoordinator(self interfaces.Address) *Coordinator {
	return &Coordinator{
		self: self,
		pending: map[uint64]pendingCreation{
			RegistryCreationToken: {
				label:  registryCreationLabel,
				decode: DecodeCreationResult,
			},
		},
	}
}

// RequestCreation builds the request that creates the item registry.
func (c *Coordinator) RequestCreation(params interfaces.InstantiateParams) (*interfaces.CreationRequest, error) {
	pending := c.pending[RegistryCreationToken]

	initPayload, err := json.Marshal(interfaces.RegistryInitPayload{
		Name:   params.Name,
		Symbol: params.Symbol,
		Minter: c.self,
	})
	if err != nil {
		return nil, fmt.Errorf("encode registry init payload: %w", err)
	}

	return &interfaces.CreationRequest{
		TemplateID:       params.TemplateID,
		InitPayload:      initPayload,
		Funds:            []interfaces.Amount{},
		Label:            pending.label,
		CorrelationToken: RegistryCreationToken,
		NotifyOn:         interfaces.NotifyOnSuccess,
	}, nil
}

// CompleteCreation validates a completion against cfg and returns the address
// of the created registry. cfg is not modified.
func (c *Coordinator) CompleteCreation(notification interfaces.CompletionNotification, cfg *interfaces.Config) (interfaces.Address, error) {
	pending, ok := c.pending[notification.CorrelationToken]
	if !ok {
		return interfaces.Address{}, fmt.Errorf("%w: %d", ErrUnexpectedCorrelationToken, notification.CorrelationToken)
	}

	if cfg.Registry.IsLinked() {
		return interfaces.Address{}, ErrAlreadyLinked
	}

	if notification.Result.Error != "" {
		return interfaces.Address{}, fmt.Errorf("%w: %s", ErrCreationFailed, notification.Result.Error)
	}

	return pending.decode(notification.Result.Data)
}
