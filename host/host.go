// Package host runs factory operations one at a time against durable state.
//
// Every operation executes on a staged overlay of the durable backend. When the
// operation succeeds its writes are committed in one unit and the message it
// produced is handed to the dispatcher. If the dispatcher fails, the previous
// values are written back and the operation fails, so an operation either
// takes full effect or none.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ruteri/issuance-factory/factory"
	"github.com/ruteri/issuance-factory/interfaces"
	"github.com/ruteri/issuance-factory/metrics"
	"github.com/ruteri/issuance-factory/storage"
)

// ErrDispatchFailed is returned when the message produced by an operation
// could not be delivered. The operation's state changes were reverted.
var ErrDispatchFailed = errors.New("message dispatch failed")

// Operation names used in metrics and spans.
const (
	OpInitialize         = "initialize"
	OpAcceptPayment      = "accept_payment"
	OpDeferredCompletion = "deferred_completion"
	OpReadConfiguration  = "read_configuration"
	OpReadContractInfo   = "read_contract_info"
	OpMigrate            = "migrate"
)

// Config configures a Host.
type Config struct {
	// Backend holds the durable state.
	Backend interfaces.StateBackend

	// Dispatcher delivers emitted messages. Required.
	Dispatcher interfaces.Dispatcher

	// Self is the address the factory is reachable at.
	Self interfaces.Address

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Tracer is optional; a no-op tracer is used when nil.
	Tracer trace.Tracer

	Log *slog.Logger
}

// Host executes factory operations for one factory instance.
type Host struct {
	mu         sync.Mutex
	durable    interfaces.StateBackend
	dispatcher interfaces.Dispatcher
	self       interfaces.Address
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	log        *slog.Logger
}

// New creates a host.
func New(cfg Config) *Host {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("host")
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Host{
		durable:    cfg.Backend,
		dispatcher: cfg.Dispatcher,
		self:       cfg.Self,
		metrics:    cfg.Metrics,
		tracer:     tracer,
		log:        log,
	}
}

// Initialize creates the factory state and requests creation of the item registry.
func (h *Host) Initialize(ctx context.Context, params interfaces.InstantiateParams) (*interfaces.CreationRequest, error) {
	return run(ctx, h, OpInitialize, func(ctx context.Context, o *factory.Orchestrator) (*interfaces.CreationRequest, *interfaces.Message, error) {
		request, err := o.Initialize(ctx, params)
		if err != nil {
			return nil, nil, err
		}
		return request, &interfaces.Message{Kind: interfaces.CreateRegistryMessage, CreateRegistry: request}, nil
	})
}

// AcceptPayment issues one item for a valid payment.
func (h *Host) AcceptPayment(ctx context.Context, notification interfaces.PaymentNotification) (*interfaces.CreateItemCommand, error) {
	command, err := run(ctx, h, OpAcceptPayment, func(ctx context.Context, o *factory.Orchestrator) (*interfaces.CreateItemCommand, *interfaces.Message, error) {
		command, err := o.AcceptPayment(ctx, notification)
		if err != nil {
			return nil, nil, err
		}
		return command, &interfaces.Message{Kind: interfaces.CreateItemMessage, CreateItem: command}, nil
	})

	if h.metrics != nil {
		if err != nil {
			h.metrics.IncrementPaymentsRejected(outcomeOf(err))
		} else {
			h.metrics.IncrementItemsIssued()
		}
	}
	return command, err
}

// HandleDeferredCompletion links the factory to the created registry.
func (h *Host) HandleDeferredCompletion(ctx context.Context, notification interfaces.CompletionNotification) (interfaces.Address, error) {
	return run(ctx, h, OpDeferredCompletion, func(ctx context.Context, o *factory.Orchestrator) (interfaces.Address, *interfaces.Message, error) {
		addr, err := o.HandleDeferredCompletion(ctx, notification)
		return addr, nil, err
	})
}

// DeliverCompletion lets a registry host report creation results directly.
func (h *Host) DeliverCompletion(ctx context.Context, notification interfaces.CompletionNotification) error {
	_, err := h.HandleDeferredCompletion(ctx, notification)
	return err
}

func (h *Host) ReadConfiguration(ctx context.Context) (*interfaces.ConfigResponse, error) {
	return run(ctx, h, OpReadConfiguration, func(ctx context.Context, o *factory.Orchestrator) (*interfaces.ConfigResponse, *interfaces.Message, error) {
		cfg, err := o.ReadConfiguration(ctx)
		return cfg, nil, err
	})
}

func (h *Host) ReadContractInfo(ctx context.Context) (*interfaces.ContractInfo, error) {
	return run(ctx, h, OpReadContractInfo, func(ctx context.Context, o *factory.Orchestrator) (*interfaces.ContractInfo, *interfaces.Message, error) {
		info, err := o.ReadContractInfo(ctx)
		return info, nil, err
	})
}

func (h *Host) Migrate(ctx context.Context, req interfaces.MigrateRequest) error {
	_, err := run(ctx, h, OpMigrate, func(ctx context.Context, o *factory.Orchestrator) (struct{}, *interfaces.Message, error) {
		return struct{}{}, nil, o.Migrate(ctx, req)
	})
	return err
}

// run executes one operation under the host lock.
func run[T any](ctx context.Context, h *Host, operation string, fn func(context.Context, *factory.Orchestrator) (T, *interfaces.Message, error)) (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "factory."+operation, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(attribute.String("factory.operation", operation))

	staged := storage.NewStagedBackend(h.durable)
	orchestrator := factory.NewOrchestrator(staged, h.self, h.log)

	result, msg, err := fn(ctx, orchestrator)
	if err == nil {
		err = h.commit(ctx, span, staged, msg)
	}

	outcome := outcomeOf(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero T
		result = zero
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(attribute.String("factory.outcome", outcome))

	if h.metrics != nil {
		h.metrics.ObserveOperation(operation, outcome, time.Since(start))
	}

	return result, err
}

// commit flushes the staged writes and dispatches msg, reverting the writes
// if msg cannot be delivered.
func (h *Host) commit(ctx context.Context, span trace.Span, staged *storage.StagedBackend, msg *interfaces.Message) error {
	revert, err := staged.Flush(ctx)
	if err != nil {
		return fmt.Errorf("commit state: %w", err)
	}

	if msg == nil {
		return nil
	}

	span.AddEvent("dispatch", trace.WithAttributes(
		attribute.String("message.kind", string(msg.Kind)),
		attribute.String("dispatcher", h.dispatcher.Name()),
	))

	dispatchErr := h.dispatcher.Dispatch(ctx, *msg)
	if dispatchErr == nil {
		return nil
	}

	if h.metrics != nil {
		h.metrics.IncrementDispatchFailures(h.dispatcher.Name())
	}

	// The operation context may be what failed the dispatch; the revert must
	// still run.
	if err := h.durable.Commit(context.WithoutCancel(ctx), revert); err != nil {
		h.log.Error("Failed to revert state after dispatch failure",
			"err", err,
			"dispatchErr", dispatchErr,
			"kind", msg.Kind)
		return fmt.Errorf("%w: %s: %w (revert failed: %v)", ErrDispatchFailed, h.dispatcher.Name(), dispatchErr, err)
	}

	h.log.Warn("Dispatch failed, state reverted", "err", dispatchErr, "kind", msg.Kind, "dispatcher", h.dispatcher.Name())
	return fmt.Errorf("%w: %s: %w", ErrDispatchFailed, h.dispatcher.Name(), dispatchErr)
}

// outcomeOf labels an operation result for metrics and spans.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrDispatchFailed):
		return "dispatch_failed"
	default:
		return factory.ErrorCode(err)
	}
}
