package api

import (
	"github.com/ruteri/issuance-factory/interfaces"
)

// InitializeResponse is returned by POST /api/v1/factory/initialize.
type InitializeResponse struct {
	// CreationRequest is the registry creation request handed to the dispatcher.
	CreationRequest interfaces.CreationRequest `json:"creation_request"`
}

// ReceiveResponse is returned by POST /api/v1/factory/receive.
type ReceiveResponse struct {
	// CreateItem is the command issued to the linked registry.
	CreateItem interfaces.CreateItemCommand `json:"create_item"`
}

// ReplyResponse is returned by POST /api/v1/factory/reply.
type ReplyResponse struct {
	RegistryAddress interfaces.Address `json:"registry_address"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the machine-readable code, see factory.ErrorCode.
	Error string `json:"error"`

	// Message is the human-readable error text.
	Message string `json:"message"`
}
