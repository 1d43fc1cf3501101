package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"telecom-relay/internal/encryption"
	"telecom-relay/internal/util"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	fluxMaxRetries = 3
	fluxRetryDelay = time.Second
)

var (
	ErrUpstreamHTTP    = errors.New("upstream returned error status")
	ErrUpstreamNetwork = errors.New("upstream request failed")
	ErrLoginRejected   = errors.New("carrier rejected login")
)

// Client speaks the carrier's JSON-over-HTTP protocol: encrypted
// credentials in the envelope, bearer token on the data endpoints.
type Client struct {
	apiBase    string
	httpClient *http.Client
	builder    *requestBuilder
	logger     *zap.Logger

	// retry backoff base, overridable in tests
	retryDelay time.Duration
}

func NewClient(apiBase string, encryptor *encryption.CredentialEncryptor, logger *zap.Logger) *Client {
	return &Client{
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		builder:    &requestBuilder{encryptor: encryptor},
		logger:     logger,
		retryDelay: fluxRetryDelay,
	}
}

// Login verifies credentials against the carrier. It confirms the
// account only; session tokens are issued by this relay, not the
// carrier.
func (c *Client) Login(ctx context.Context, phone, password string) error {
	body, err := c.builder.loginBody(phone, password)
	if err != nil {
		return err
	}

	respBody, err := c.post(ctx, "/login", body, "")
	if err != nil {
		return err
	}

	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if !result.Success {
		if result.Message != "" {
			return fmt.Errorf("%w: %s", ErrLoginRejected, result.Message)
		}
		return ErrLoginRejected
	}

	c.logger.Info("carrier login verified", util.Phonenum(phone))
	return nil
}

// Summary fetches the account overview. No retries: a summary failure
// fails the whole query immediately.
func (c *Client) Summary(ctx context.Context, phone, token string) (*Summary, error) {
	body, err := c.builder.queryBody(phone, token)
	if err != nil {
		return nil, err
	}

	respBody, err := c.post(ctx, "/summary", body, token)
	if err != nil {
		return nil, err
	}

	var summary Summary
	if err := unwrapInto(respBody, summaryStrategies, &summary); err != nil {
		return nil, fmt.Errorf("unwrap summary: %w", err)
	}
	return &summary, nil
}

// FluxPackage fetches the flow package breakdown. This endpoint
// rate-limits aggressively, so transient failures (HTTP 400, 5xx, or
// network errors) are retried up to fluxMaxRetries times with a
// linearly increasing delay. Auth failures are never retried.
func (c *Client) FluxPackage(ctx context.Context, phone, token string) (*FluxPackage, error) {
	var lastErr error

	for attempt := 0; attempt <= fluxMaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying flux package fetch",
				util.Int("attempt", attempt),
				util.ErrorField(lastErr))
			select {
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		// Fresh body each attempt so timestamps stay current.
		body, err := c.builder.queryBody(phone, token)
		if err != nil {
			return nil, err
		}

		respBody, err := c.post(ctx, "/userFluxPackage", body, token)
		if err != nil {
			if !retryable(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		var pkg FluxPackage
		if err := unwrapInto(respBody, dataStrategies, &pkg); err != nil {
			return nil, fmt.Errorf("unwrap flux package: %w", err)
		}
		return &pkg, nil
	}

	return nil, fmt.Errorf("flux package fetch exhausted retries: %w", lastErr)
}

// ImportantData fetches membership and balance details. Best-effort;
// callers treat a failure as missing data.
func (c *Client) ImportantData(ctx context.Context, phone, token string) (*ImportantData, error) {
	body, err := c.builder.queryBody(phone, token)
	if err != nil {
		return nil, err
	}

	respBody, err := c.post(ctx, "/qryImportantData", body, token)
	if err != nil {
		return nil, err
	}

	var data ImportantData
	if err := unwrapInto(respBody, dataStrategies, &data); err != nil {
		return nil, fmt.Errorf("unwrap important data: %w", err)
	}
	return &data, nil
}

// ShareUsage fetches shared plan usage. Best-effort like ImportantData.
func (c *Client) ShareUsage(ctx context.Context, phone, token string) (*ShareUsage, error) {
	body, err := c.builder.queryBody(phone, token)
	if err != nil {
		return nil, err
	}

	respBody, err := c.post(ctx, "/qryShareUsage", body, token)
	if err != nil {
		return nil, err
	}

	var usage ShareUsage
	if err := unwrapInto(respBody, dataStrategies, &usage); err != nil {
		return nil, fmt.Errorf("unwrap share usage: %w", err)
	}
	return &usage, nil
}

// Ping probes the carrier's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/health", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamNetwork, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return StatusError(resp.StatusCode)
	}
	return nil
}

// ProbeEndpoints exercises each data endpoint with live credentials
// and reports which ones answered.
func (c *Client) ProbeEndpoints(ctx context.Context, phone, token string) *EndpointHealth {
	health := &EndpointHealth{}

	if _, err := c.Summary(ctx, phone, token); err == nil {
		health.Summary = true
	}
	if _, err := c.FluxPackage(ctx, phone, token); err == nil {
		health.FluxPackage = true
	}
	if _, err := c.ImportantData(ctx, phone, token); err == nil {
		health.ImportantData = true
	}
	if _, err := c.ShareUsage(ctx, phone, token); err == nil {
		health.ShareUsage = true
	}

	health.Overall = health.Summary && health.FluxPackage
	return health
}

func (c *Client) post(ctx context.Context, path string, body []byte, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, StatusError(resp.StatusCode)
	}
	return respBody, nil
}

// httpStatusError keeps the status code available for retry decisions
// and handler mapping.
type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("upstream returned error status %d", e.status)
}

func (e *httpStatusError) Is(target error) bool {
	return target == ErrUpstreamHTTP
}

// StatusError wraps an HTTP status as an upstream error.
func StatusError(status int) error {
	return &httpStatusError{status: status}
}

// StatusCode extracts the HTTP status from an upstream error, or 0.
func StatusCode(err error) int {
	var se *httpStatusError
	if errors.As(err, &se) {
		return se.status
	}
	return 0
}

// retryable reports whether an error warrants another flux package
// attempt: network failures, HTTP 400 (rate limiting shows up as 400
// on this endpoint) and server errors. Hard auth failures (401, 403,
// 404) are final.
func retryable(err error) bool {
	if errors.Is(err, ErrUpstreamNetwork) {
		return true
	}
	if status := StatusCode(err); status == http.StatusBadRequest || status >= 500 {
		return true
	}
	return false
}
