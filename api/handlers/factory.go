package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/issuance-factory/api"
	"github.com/ruteri/issuance-factory/factory"
	"github.com/ruteri/issuance-factory/host"
	"github.com/ruteri/issuance-factory/interfaces"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// errMalformedRequest marks bodies that could not be decoded.
var errMalformedRequest = errors.New("malformed request")

// Handler serves the operations of one factory instance over HTTP.
type Handler struct {
	ops interfaces.FactoryOperations
	log *slog.Logger
}

// NewHandler creates a handler for ops.
func NewHandler(ops interfaces.FactoryOperations, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		ops: ops,
		log: log,
	}
}

// RegisterRoutes registers the factory routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/factory", func(r chi.Router) {
		r.Post("/initialize", h.HandleInitialize)
		r.Post("/receive", h.HandleReceive)
		r.Post("/reply", h.HandleReply)
		r.Get("/config", h.HandleConfig)
		r.Get("/contract_info", h.HandleContractInfo)
		r.Post("/migrate", h.HandleMigrate)
	})
}

// HandleInitialize creates the factory state and returns the registry creation
// request that was dispatched.
//
// URL format: POST /api/v1/factory/initialize
//
// Request body: JSON, see interfaces.InstantiateParams
//
// Response: JSON, see api.InitializeResponse
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	var params interfaces.InstantiateParams
	if err := decodeBody(r, &params); err != nil {
		h.writeError(w, err)
		return
	}

	request, err := h.ops.Initialize(r.Context(), params)
	if err != nil {
		h.log.Error("Initialize failed", "err", err, "owner", params.Owner.String())
		h.writeError(w, requestError(err))
		return
	}

	h.log.Info("Factory initialized", "owner", params.Owner.String(), "maxItems", params.MaxItems)
	h.writeJSON(w, http.StatusOK, api.InitializeResponse{CreationRequest: *request})
}

// HandleReceive accepts a payment notification and issues one item.
//
// URL format: POST /api/v1/factory/receive
//
// Request body: JSON, see interfaces.PaymentNotification
//
// Response: JSON, see api.ReceiveResponse
//
// Status codes:
//   - 402 Payment Required: the amount does not equal the unit price
//   - 403 Forbidden: the payment arrived through an unaccepted medium
//   - 409 Conflict: the registry is not linked yet or the supply is exhausted
func (h *Handler) HandleReceive(w http.ResponseWriter, r *http.Request) {
	var notification interfaces.PaymentNotification
	if err := decodeBody(r, &notification); err != nil {
		h.writeError(w, err)
		return
	}

	command, err := h.ops.AcceptPayment(r.Context(), notification)
	if err != nil {
		h.log.Warn("Payment rejected", "err", err,
			"sender", notification.Sender.String(),
			"medium", notification.Medium.String(),
			"amount", notification.Amount.String())
		h.writeError(w, requestError(err))
		return
	}

	h.log.Info("Item issued", "tokenID", command.ItemID, "owner", command.Recipient.String())
	h.writeJSON(w, http.StatusOK, api.ReceiveResponse{CreateItem: *command})
}

// HandleReply delivers the result of the deferred registry creation.
//
// URL format: POST /api/v1/factory/reply
//
// Request body: JSON, see interfaces.CompletionNotification
//
// Response: JSON, see api.ReplyResponse
func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	var notification interfaces.CompletionNotification
	if err := decodeBody(r, &notification); err != nil {
		h.writeError(w, err)
		return
	}

	addr, err := h.ops.HandleDeferredCompletion(r.Context(), notification)
	if err != nil {
		h.log.Error("Completion rejected", "err", err, "correlationToken", notification.CorrelationToken)
		h.writeError(w, requestError(err))
		return
	}

	h.log.Info("Registry linked", "registry", addr.String())
	h.writeJSON(w, http.StatusOK, api.ReplyResponse{RegistryAddress: addr})
}

// HandleConfig returns the current configuration.
//
// URL format: GET /api/v1/factory/config
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.ops.ReadConfiguration(r.Context())
	if err != nil {
		h.writeError(w, requestError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, cfg)
}

// HandleContractInfo returns the implementation name and version recorded at
// initialization.
//
// URL format: GET /api/v1/factory/contract_info
func (h *Handler) HandleContractInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.ops.ReadContractInfo(r.Context())
	if err != nil {
		h.writeError(w, requestError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// HandleMigrate runs the migration hook. No migrations exist, so a well-formed
// request is answered with 400 and the unsupported_migration code.
//
// URL format: POST /api/v1/factory/migrate
func (h *Handler) HandleMigrate(w http.ResponseWriter, r *http.Request) {
	var req interfaces.MigrateRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.ops.Migrate(r.Context(), req); err != nil {
		h.writeError(w, requestError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(r *http.Request, v any) *RequestError {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("%w: %v", errMalformedRequest, err)}
	}
	if len(body) > maxBodySize {
		return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: fmt.Errorf("%w: body exceeds %d bytes", errMalformedRequest, maxBodySize)}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("%w: %v", errMalformedRequest, err)}
	}
	return nil
}

// requestError attaches the HTTP status that corresponds to err.
func requestError(err error) *RequestError {
	return &RequestError{StatusCode: statusCode(err), Err: err}
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, host.ErrDispatchFailed):
		return http.StatusBadGateway
	case errors.Is(err, factory.ErrInvalidUnitPrice),
		errors.Is(err, factory.ErrInvalidMaxItems),
		errors.Is(err, factory.ErrInvalidItemExtension),
		errors.Is(err, factory.ErrUnsupportedMigration):
		return http.StatusBadRequest
	case errors.Is(err, factory.ErrUnauthorizedPaymentMedium):
		return http.StatusForbidden
	case errors.Is(err, factory.ErrNotInitialized):
		return http.StatusNotFound
	case errors.Is(err, factory.ErrRegistryNotLinked),
		errors.Is(err, factory.ErrAlreadyLinked),
		errors.Is(err, factory.ErrAlreadyInitialized),
		errors.Is(err, factory.ErrSupplyExhausted):
		return http.StatusConflict
	case errors.Is(err, factory.ErrWrongPaymentAmount):
		return http.StatusPaymentRequired
	case errors.Is(err, factory.ErrUnexpectedCorrelationToken),
		errors.Is(err, factory.ErrDecodeFailure),
		errors.Is(err, factory.ErrCreationFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, reqErr *RequestError) {
	code := factory.ErrorCode(reqErr.Err)
	switch {
	case errors.Is(reqErr.Err, errMalformedRequest):
		code = "malformed_request"
	case errors.Is(reqErr.Err, host.ErrDispatchFailed):
		code = "dispatch_failed"
	}

	message := reqErr.Error()
	if reqErr.StatusCode == http.StatusInternalServerError {
		message = "internal error"
	}

	h.writeJSON(w, reqErr.StatusCode, api.ErrorResponse{Error: code, Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
