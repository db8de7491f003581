// Package httpclient provides generic JSON request helpers shared by the
// API clients.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// ErrMalformed marks a response body that could not be decoded. Callers
// treat it as a transient network failure for display purposes.
var ErrMalformed = errors.New("malformed response")

// StatusError is returned when the server answers with a status code
// outside the allowed set.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// GetResource performs a GET against baseURL+endpoint and decodes the JSON
// body into T. The request is bound to ctx for cancellation.
func GetResource[T any](ctx context.Context, client *http.Client, baseURL, endpoint string, allowedStatuses []int) (T, error) {
	var zero T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+endpoint, nil)
	if err != nil {
		return zero, fmt.Errorf("couldn't build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return doJSON[T](client, req, allowedStatuses)
}

// PostResource performs a POST with a JSON-encoded body and decodes the JSON
// response into T.
func PostResource[T any](ctx context.Context, client *http.Client, baseURL, endpoint string, body any, allowedStatuses []int) (T, error) {
	var zero T

	encoded, err := json.Marshal(body)
	if err != nil {
		return zero, fmt.Errorf("couldn't encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+endpoint, bytes.NewReader(encoded))
	if err != nil {
		return zero, fmt.Errorf("couldn't build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	return doJSON[T](client, req, allowedStatuses)
}

func doJSON[T any](client *http.Client, req *http.Request, allowedStatuses []int) (T, error) {
	var zero T

	resp, err := client.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if !slices.Contains(allowedStatuses, resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return zero, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}
