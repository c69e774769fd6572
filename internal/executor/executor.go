// Package executor defines the contract for task executors ("crew runs"):
// black-box LLM agent invocations reached over the crew service's HTTP API.
// The routing engine never sees prompts or models, only named executors that
// take a payload and return a raw string plus an optional structured object.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/studyhall-ai/orchestrator/internal/circuitbreaker"
)

// Result is the outcome of one executor run. Callers read Raw or decode
// Structured into their call site's schema depending on whether they need a
// typed result.
type Result struct {
	Raw        string          `json:"raw"`
	Structured json.RawMessage `json:"structured,omitempty"`
}

// Executor is a single named task executor.
type Executor interface {
	Name() string
	Run(ctx context.Context, payload map[string]interface{}) (*Result, error)
}

// Registry resolves executors by name. The crew-service client implements it;
// tests substitute fakes.
type Registry interface {
	Executor(name string) Executor
}

// Client talks to the crew service. One Client is constructed at process
// startup and injected into the flows; it owns the transport timeout.
type Client struct {
	baseURL string
	http    *circuitbreaker.HTTPWrapper
	logger  *zap.Logger
}

// NewClient creates a crew-service client with a circuit-breaker-wrapped
// transport.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	wrapper := circuitbreaker.NewHTTPWrapper(httpClient, "crew", "crew-service", circuitbreaker.DefaultConfig(), logger)
	return &Client{baseURL: baseURL, http: wrapper, logger: logger}
}

// Executor returns the named executor backed by this client.
func (c *Client) Executor(name string) Executor {
	return &remoteExecutor{client: c, name: name}
}

type remoteExecutor struct {
	client *Client
	name   string
}

func (e *remoteExecutor) Name() string { return e.name }

type runRequest struct {
	Crew   string                 `json:"crew"`
	Inputs map[string]interface{} `json:"inputs"`
}

func (e *remoteExecutor) Run(ctx context.Context, payload map[string]interface{}) (*Result, error) {
	body, err := json.Marshal(runRequest{Crew: e.name, Inputs: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal executor payload: %w", err)
	}

	url := e.client.baseURL + "/crew/run"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build executor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executor %s: %w", e.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a little of the body for diagnostics; the caller only needs
		// the failure, not the content.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("executor %s: crew service returned %d: %s", e.name, resp.StatusCode, snippet)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("executor %s: decode result: %w", e.name, err)
	}
	return &result, nil
}
