package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// StateChange is a single staged write. Delete removes Key and ignores Value.
type StateChange struct {
	Key    string
	Value  []byte
	Delete bool
}

// StateBackendLocation represents URI for a state backend.
type StateBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStateBackendLocation creates a new backend location from a URI string with validation.
func NewStateBackendLocation(uri string) (StateBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StateBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := parsed.Scheme
	switch scheme {
	case "memory", "file", "bolt", "sqlite", "redis", "s3", "vault", "ipfs":
	default:
		return StateBackendLocation{}, fmt.Errorf("%w: unsupported state scheme %q", ErrInvalidLocationURI, scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StateBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StateBackendLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StateBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StateBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrStateNotFound is returned when a key has never been written.
	ErrStateNotFound = errors.New("state key not found")

	// ErrBackendUnavailable is returned when a state backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("state backend unavailable")

	// ErrInvalidLocationURI is returned when a state location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid state location URI")
)

// StateBackend provides durable key-addressed storage for factory state.
type StateBackend interface {
	// Fetch retrieves the value stored under key, or ErrStateNotFound.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Commit applies all changes as one unit: either every change is visible
	// afterwards or none is.
	Commit(ctx context.Context, changes []StateChange) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StateBackendFactory creates state backends.
type StateBackendFactory interface {
	// StateBackendFor creates backend from URI.
	// Supports memory://, file://, bolt://, sqlite://, redis://, s3://, vault://, ipfs://
	StateBackendFor(ctx context.Context, location StateBackendLocation) (StateBackend, error)

	// CreateMultiBackend creates a replicated state backend.
	CreateMultiBackend(ctx context.Context, locations []StateBackendLocation) (StateBackend, error)
}
