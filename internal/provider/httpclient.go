package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultCallTimeout bounds a single provider HTTP call. A timed-out call is
// treated like any other transport failure: logged, not cached, tier moves on.
const DefaultCallTimeout = 8 * time.Second

// apiClient is the thin HTTP layer shared by the provider adapters.
type apiClient struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

func newAPIClient(baseURL string, client *http.Client, headers map[string]string) *apiClient {
	if client == nil {
		client = &http.Client{Timeout: DefaultCallTimeout}
	}
	return &apiClient{baseURL: baseURL, client: client, headers: headers}
}

// getJSON performs one GET and decodes the body into out. Non-2xx responses
// return a *StatusError so callers can distinguish a confirmed miss from a
// transport failure.
func (a *apiClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// Pointer helpers for the response adapters.

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func floatPtr(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
