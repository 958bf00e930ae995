package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/cfgseed/internal/model"
	"github.com/alfredjeanlab/cfgseed/internal/policy"
)

// HTTPClient implements Client using the cfgseed HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func accountPath(id string) string {
	return "/v1/accounts/" + url.PathEscape(id)
}

// --- Accounts ---

func (c *HTTPClient) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResponse, error) {
	var resp CreateAccountResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/accounts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var acct model.Account
	if err := c.doJSON(ctx, http.MethodGet, accountPath(id), nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// --- Default configs ---

func (c *HTTPClient) InitializeDefaultConfigs(ctx context.Context, accountID string) error {
	return c.doJSON(ctx, http.MethodPost, accountPath(accountID)+"/default-configs", nil, nil)
}

func (c *HTTPClient) ListConfigs(ctx context.Context, accountID string) ([]*model.ModelConfig, error) {
	var resp struct {
		Configs []*model.ModelConfig `json:"configs"`
	}
	if err := c.doJSON(ctx, http.MethodGet, accountPath(accountID)+"/configs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Configs, nil
}

// --- Events ---

func (c *HTTPClient) GetEvents(ctx context.Context, accountID string) ([]*model.Event, error) {
	var resp struct {
		Events []*model.Event `json:"events"`
	}
	if err := c.doJSON(ctx, http.MethodGet, accountPath(accountID)+"/events", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// --- Policy ---

func (c *HTTPClient) GetPolicy(ctx context.Context) (*policy.Policy, error) {
	var p policy.Policy
	if err := c.doJSON(ctx, http.MethodGet, "/v1/policy", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
