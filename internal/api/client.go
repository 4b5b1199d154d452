// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/ragchat/internal/model"
)

const (
	// DefaultBaseURL is the public service origin used when nothing is configured.
	DefaultBaseURL = "https://api.yeotaeho.kr"

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent is sent with every request.
	UserAgent = "ragchat/0.1.0"
)

// =============================================================================
// BACKEND SELECTION
// =============================================================================

// Backend selects which chat endpoint serves conversation turns.
type Backend string

const (
	BackendRAG   Backend = "rag"
	BackendQLoRA Backend = "qlora"
)

// ChatPath returns the endpoint path for the backend.
func (b Backend) ChatPath() string {
	if b == BackendQLoRA {
		return "/api/qlora/chat"
	}
	return "/api/chat"
}

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	return b == BackendRAG || b == BackendQLoRA
}

const (
	trainPath  = "/api/qlora/train"
	healthPath = "/api/health"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the client.
type ClientConfig struct {
	// BaseURL is the service origin (default: DefaultBaseURL).
	BaseURL string

	// Timeout for each request. Zero means no client-side timeout; a hung
	// call then stays outstanding until the server or the network gives up.
	Timeout time.Duration

	// Backend selects the chat endpoint (default: BackendRAG).
	Backend Backend
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: DefaultBaseURL,
		Backend: BackendRAG,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the remote chat and training service.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        *logrus.Entry
}

// NewClient creates a client. A nil config uses DefaultConfig; a nil logger
// discards log output.
func NewClient(config *ClientConfig, logger *logrus.Entry) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config

	// Fill in defaults for any zero values
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Backend == "" {
		cfg.Backend = BackendRAG
	}

	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = logrus.NewEntry(l)
	}

	return &Client{
		config:     &cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.WithField("component", "api"),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the resolved service origin.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Backend returns the chat backend in use.
func (c *Client) Backend() Backend {
	return c.config.Backend
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Chat sends one conversation turn and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.History == nil {
		req.History = []model.Turn{}
	}

	body, err := c.do(ctx, http.MethodPost, c.config.Backend.ChatPath(), req)
	if err != nil {
		return nil, err
	}

	var env chatEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ClientError{Type: ErrTypePayload, Message: "failed to decode chat response", Cause: err}
	}
	if env.Response == nil {
		return nil, &ClientError{Type: ErrTypePayload, Message: "chat response missing \"response\" field"}
	}

	return &ChatResponse{Response: *env.Response}, nil
}

// Train submits a fine-tuning batch. The service starts training in the
// background and answers immediately.
func (c *Client) Train(ctx context.Context, req TrainingRequest) (*TrainingResponse, error) {
	body, err := c.do(ctx, http.MethodPost, trainPath, req)
	if err != nil {
		return nil, err
	}

	var env trainingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ClientError{Type: ErrTypePayload, Message: "failed to decode training response", Cause: err}
	}
	if env.Message == nil {
		return nil, &ClientError{Type: ErrTypePayload, Message: "training response missing \"message\" field"}
	}

	return &TrainingResponse{
		Status:    env.Status,
		Message:   *env.Message,
		OutputDir: env.OutputDir,
	}, nil
}

// Health queries the service health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	body, err := c.do(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return nil, err
	}

	var result HealthResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ClientError{Type: ErrTypePayload, Message: "failed to decode health response", Cause: err}
	}
	return &result, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do performs one JSON round trip and returns the body of a 2xx response.
// Request and response bodies are never logged.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeTransport, Message: "failed to create request", Cause: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	entry := c.log.WithFields(logrus.Fields{"method": method, "path": path})
	entry.Debug("api request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		entry.WithError(err).WithField("duration", time.Since(start)).Warn("api request failed")
		return nil, &ClientError{Type: ErrTypeTransport, Message: "request to " + path + " failed", Cause: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	entry = entry.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		entry.Warn("api response not ok")
		cerr := &ClientError{
			Type:    ErrTypeHTTPStatus,
			Status:  resp.StatusCode,
			Message: method + " " + path + " failed",
		}
		if readErr == nil {
			cerr.Detail = parseDetail(body)
		}
		return nil, cerr
	}

	if readErr != nil {
		entry.WithError(readErr).Warn("api response body unreadable")
		return nil, &ClientError{Type: ErrTypePayload, Status: resp.StatusCode, Message: "failed to read response", Cause: readErr}
	}

	entry.Debug("api response")
	return body, nil
}
