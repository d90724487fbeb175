package mstodo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teemow/tasksync/internal/provider"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// client is a thin Microsoft Graph HTTP client covering the To Do surface
// the adapter needs. It attaches the access token per request and maps
// non-2xx responses to *provider.Error.
type client struct {
	httpClient *http.Client
	baseURL    string
}

func newClient(httpClient *http.Client, baseURL string) *client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// graphError is the error envelope Graph returns on failures.
type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do issues one Graph request. path may be a resource path relative to the
// base URL or an absolute URL (continuation links come back absolute). When
// out is non-nil the response body is decoded into it.
func (c *client) do(ctx context.Context, op, method, path, accessToken string, body, out any) error {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.baseURL + path
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &provider.Error{Provider: provider.MicrosoftTodo, Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return &provider.Error{Provider: provider.MicrosoftTodo, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &provider.Error{Provider: provider.MicrosoftTodo, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gerr graphError
		msg := resp.Status
		if decodeErr := json.NewDecoder(resp.Body).Decode(&gerr); decodeErr == nil && gerr.Error.Message != "" {
			msg = fmt.Sprintf("%s: %s", gerr.Error.Code, gerr.Error.Message)
		}
		return &provider.Error{
			Provider:   provider.MicrosoftTodo,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", msg),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &provider.Error{Provider: provider.MicrosoftTodo, Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
	}

	return nil
}
