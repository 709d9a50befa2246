package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/issuance-factory/factory"
	"github.com/ruteri/issuance-factory/interfaces"
)

var (
	// ErrUnknownRegistry is returned when an item is created in a registry
	// the host never created.
	ErrUnknownRegistry = errors.New("unknown registry")

	// ErrDuplicateItem is returned when an item id is created twice in one registry.
	ErrDuplicateItem = errors.New("item already exists")

	// ErrNoSink is returned when a registry is requested before a sink was attached.
	ErrNoSink = errors.New("no completion sink attached")
)

// CompletionSink receives deferred creation results.
type CompletionSink interface {
	DeliverCompletion(ctx context.Context, notification interfaces.CompletionNotification) error
}

// LocalItem is an item created in a simulated registry.
type LocalItem struct {
	ID        string
	Owner     interfaces.Address
	URI       string
	Extension json.RawMessage
}

// LocalRegistryState is a registry created by the simulator.
type LocalRegistryState struct {
	Address interfaces.Address
	Init    interfaces.RegistryInitPayload
	Items   map[string]LocalItem
}

// LocalRegistry is an in-process registry host. Registry creation completes
// asynchronously: the result is delivered to the sink from a separate
// goroutine, after Dispatch has returned.
type LocalRegistry struct {
	mu         sync.Mutex
	deployer   interfaces.Address
	nonce      uint64
	sink       CompletionSink
	registries map[interfaces.Address]*LocalRegistryState
	failWith   string
	pending    sync.WaitGroup
	log        *slog.Logger
}

// NewLocalRegistry creates a simulator. Registry addresses are derived from
// deployer and a creation nonce.
func NewLocalRegistry(deployer interfaces.Address, log *slog.Logger) *LocalRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &LocalRegistry{
		deployer:   deployer,
		registries: make(map[interfaces.Address]*LocalRegistryState),
		log:        log,
	}
}

// SetSink attaches the receiver of creation results.
func (r *LocalRegistry) SetSink(sink CompletionSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// FailCreations makes every following registry creation fail with reason.
// An empty reason restores normal behaviour.
func (r *LocalRegistry) FailCreations(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = reason
}

func (r *LocalRegistry) Name() string {
	return "local-registry"
}

func (r *LocalRegistry) Dispatch(ctx context.Context, msg interfaces.Message) error {
	switch msg.Kind {
	case interfaces.CreateRegistryMessage:
		if msg.CreateRegistry == nil {
			return fmt.Errorf("%s message without payload", msg.Kind)
		}
		return r.createRegistry(*msg.CreateRegistry)
	case interfaces.CreateItemMessage:
		if msg.CreateItem == nil {
			return fmt.Errorf("%s message without payload", msg.Kind)
		}
		return r.createItem(*msg.CreateItem)
	default:
		return fmt.Errorf("unsupported message kind %q", msg.Kind)
	}
}

func (r *LocalRegistry) createRegistry(request interfaces.CreationRequest) error {
	var init interfaces.RegistryInitPayload
	if err := json.Unmarshal(request.InitPayload, &init); err != nil {
		return fmt.Errorf("decode registry init payload: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sink == nil {
		return ErrNoSink
	}

	notification := interfaces.CompletionNotification{CorrelationToken: request.CorrelationToken}
	if r.failWith != "" {
		notification.Result.Error = r.failWith
		if request.NotifyOn == interfaces.NotifyOnSuccess {
			r.log.Info("Registry creation failed, not reported", "reason", r.failWith, "label", request.Label)
			return nil
		}
	} else {
		addr := interfaces.Address(crypto.CreateAddress(r.deployer.Common(), r.nonce))
		r.nonce++
		r.registries[addr] = &LocalRegistryState{
			Address: addr,
			Init:    init,
			Items:   make(map[string]LocalItem),
		}
		notification.Result.Data = factory.EncodeCreationResult(addr, nil)

		r.log.Info("Registry created",
			"registry", addr.String(),
			"name", init.Name,
			"symbol", init.Symbol,
			"minter", init.Minter.String(),
			"templateID", request.TemplateID)

		if request.NotifyOn == interfaces.NotifyOnError {
			return nil
		}
	}

	sink := r.sink
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		if err := sink.DeliverCompletion(context.Background(), notification); err != nil {
			r.log.Warn("Completion rejected", "err", err, "correlationToken", notification.CorrelationToken)
		}
	}()

	return nil
}

func (r *LocalRegistry) createItem(command interfaces.CreateItemCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	registry, ok := r.registries[command.Registry]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRegistry, command.Registry.String())
	}
	if _, exists := registry.Items[command.ItemID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateItem, command.ItemID)
	}

	registry.Items[command.ItemID] = LocalItem{
		ID:        command.ItemID,
		Owner:     command.Recipient,
		URI:       command.ItemURI,
		Extension: command.Extension,
	}

	r.log.Info("Item created", "registry", command.Registry.String(), "itemID", command.ItemID, "owner", command.Recipient.String())
	return nil
}

// Registry returns a copy of a simulated registry.
func (r *LocalRegistry) Registry(addr interfaces.Address) (LocalRegistryState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	registry, ok := r.registries[addr]
	if !ok {
		return LocalRegistryState{}, false
	}

	state := LocalRegistryState{
		Address: registry.Address,
		Init:    registry.Init,
		Items:   make(map[string]LocalItem, len(registry.Items)),
	}
	for id, item := range registry.Items {
		state.Items[id] = item
	}
	return state, true
}

// Wait blocks until every scheduled completion has been delivered.
func (r *LocalRegistry) Wait() {
	r.pending.Wait()
}
