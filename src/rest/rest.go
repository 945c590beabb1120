// Package rest issues one-shot HTTP calls against the platform API. It is
// a collaborator of the gateway: REST failures are returned to the caller
// and never touch gateway session state.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const defaultBaseURL = "https://discord.com/api/v10"

var (
	ErrPermission  = errors.New("permission denied")
	ErrRateLimited = errors.New("rate limited")
	ErrNotFound    = errors.New("resource not found")
)

// APIError is the structured error body the platform returns on non-2xx
// responses.
type APIError struct {
	Status  int    `json:"-"`
	Code    uint   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (code %d): %s", e.Status, e.Code, e.Message)
}

// Unwrap maps well-known statuses onto sentinel errors so callers can use
// errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

type REST struct {
	httpClient *http.Client
	baseURL    string
	botToken   string

	// MaxRateLimitRetries bounds how often a 429 is waited out before
	// the error is surfaced.
	MaxRateLimitRetries int
}

func NewREST(botToken string) *REST {
	return &REST{
		httpClient:          http.DefaultClient,
		baseURL:             defaultBaseURL,
		botToken:            botToken,
		MaxRateLimitRetries: 1,
	}
}

// NewRESTWithBaseURL is used by tests to point at a local server.
func NewRESTWithBaseURL(botToken string, baseURL string) *REST {
	r := NewREST(botToken)
	r.baseURL = baseURL
	return r
}

// Request performs one call and decodes the response body. A 429 is waited
// out once per Retry-After before surfacing; success is never assumed.
func (r *REST) Request(ctx context.Context, method string, path string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}
	for attempt := 0; ; attempt++ {
		raw, retryAfter, err := r.do(ctx, method, path, payload)
		if err == nil {
			return raw, nil
		}
		if !errors.Is(err, ErrRateLimited) || attempt >= r.MaxRateLimitRetries {
			return nil, err
		}
		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *REST) do(ctx context.Context, method string, path string, payload []byte) (json.RawMessage, time.Duration, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Authorization", fmt.Sprintf("Bot %s", r.botToken))

	res, err := r.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, err
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return raw, 0, nil
	}
	apiErr := &APIError{Status: res.StatusCode}
	if err := json.Unmarshal(raw, apiErr); err != nil {
		apiErr.Message = http.StatusText(res.StatusCode)
	}
	apiErr.Status = res.StatusCode
	retryAfter := time.Second
	if v := res.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			retryAfter = time.Duration(secs * float64(time.Second))
		}
	}
	return nil, retryAfter, fmt.Errorf("request failed: %w", apiErr)
}

func (r *REST) Get(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodGet, path, body)
}

func (r *REST) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodPost, path, body)
}

func (r *REST) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodPut, path, body)
}

func (r *REST) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodPatch, path, body)
}

func (r *REST) Delete(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return r.Request(ctx, http.MethodDelete, path, body)
}
