package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/issuance-factory/api"
	"github.com/ruteri/issuance-factory/factory"
	"github.com/ruteri/issuance-factory/interfaces"
)

// RemoteError is a non-2xx response of the factory API.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("factory API returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap returns the factory error matching Code, if any.
func (e *RemoteError) Unwrap() error {
	return factory.ErrorForCode(e.Code)
}

// FactoryClient talks to a factory served by api/handlers.
type FactoryClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ interfaces.FactoryOperations = (*FactoryClient)(nil)

// NewFactoryClient creates a client for the factory API at baseURL
// (e.g., "http://localhost:8080"). The request timeout defaults to 30 seconds.
func NewFactoryClient(baseURL string, timeout ...time.Duration) *FactoryClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &FactoryClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

func (c *FactoryClient) Initialize(ctx context.Context, params interfaces.InstantiateParams) (*interfaces.CreationRequest, error) {
	var resp api.InitializeResponse
	if err := c.do(ctx, http.MethodPost, "/initialize", params, &resp); err != nil {
		return nil, err
	}
	return &resp.CreationRequest, nil
}

func (c *FactoryClient) AcceptPayment(ctx context.Context, notification interfaces.PaymentNotification) (*interfaces.CreateItemCommand, error) {
	var resp api.ReceiveResponse
	if err := c.do(ctx, http.MethodPost, "/receive", notification, &resp); err != nil {
		return nil, err
	}
	return &resp.CreateItem, nil
}

func (c *FactoryClient) HandleDeferredCompletion(ctx context.Context, notification interfaces.CompletionNotification) (interfaces.Address, error) {
	var resp api.ReplyResponse
	if err := c.do(ctx, http.MethodPost, "/reply", notification, &resp); err != nil {
		return interfaces.Address{}, err
	}
	return resp.RegistryAddress, nil
}

func (c *FactoryClient) ReadConfiguration(ctx context.Context) (*interfaces.ConfigResponse, error) {
	var resp interfaces.ConfigResponse
	if err := c.do(ctx, http.MethodGet, "/config", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *FactoryClient) ReadContractInfo(ctx context.Context) (*interfaces.ContractInfo, error) {
	var resp interfaces.ContractInfo
	if err := c.do(ctx, http.MethodGet, "/contract_info", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *FactoryClient) Migrate(ctx context.Context, req interfaces.MigrateRequest) error {
	return c.do(ctx, http.MethodPost, "/migrate", req, nil)
}

// do sends body as JSON to the factory route and decodes the response into out.
func (c *FactoryClient) do(ctx context.Context, method, route string, body, out any) error {
	url := c.baseURL + "/api/v1/factory" + route

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeRemoteError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse %s response: %w", route, err)
	}
	return nil
}

func decodeRemoteError(resp *http.Response) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{StatusCode: resp.StatusCode, Code: "unknown", Message: err.Error()}
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(bodyBytes, &errResp); err != nil || errResp.Error == "" {
		return &RemoteError{StatusCode: resp.StatusCode, Code: "unknown", Message: string(bodyBytes)}
	}
	return &RemoteError{StatusCode: resp.StatusCode, Code: errResp.Error, Message: errResp.Message}
}
