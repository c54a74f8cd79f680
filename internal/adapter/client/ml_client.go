package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ressKim-io/stance-classifier/internal/domain/service"
)

// LoadModelRequest asks the ML service to load weights onto a device
type LoadModelRequest struct {
	Model     string `json:"model"`
	Device    string `json:"device"`
	BatchSize int    `json:"batch_size"`
}

// LoadModelResponse describes the model the ML service bound
type LoadModelResponse struct {
	Success           bool   `json:"success"`
	Model             string `json:"model"`
	ModelVersion      string `json:"model_version"`
	Device            string `json:"device"`
	MaxSequenceLength int    `json:"max_sequence_length"`
}

// ZeroShotRequest represents a zero-shot request to the ML service
type ZeroShotRequest struct {
	RequestID          string   `json:"request_id,omitempty"`
	Model              string   `json:"model"`
	Sequences          []string `json:"sequences"`
	CandidateLabels    []string `json:"candidate_labels"`
	HypothesisTemplate string   `json:"hypothesis_template"`
	MultiLabel         bool     `json:"multi_label"`
	Truncation         bool     `json:"truncation"`
}

// ZeroShotResult represents the ranked labels for one sequence
type ZeroShotResult struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// ZeroShotResponse represents the response from the ML service
type ZeroShotResponse struct {
	Success      bool             `json:"success"`
	Results      []ZeroShotResult `json:"results"`
	ModelVersion string           `json:"model_version"`
	RequestID    string           `json:"request_id,omitempty"`
}

// ErrorResponse is the error envelope returned by the ML service
type ErrorResponse struct {
	Success bool       `json:"success"`
	Error   *ErrorInfo `json:"error"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelVersion string `json:"model_version"`
	Device       string `json:"device"`
}

// error codes the ML service reports, mapped to domain errors
var errorCodes = map[string]error{
	"DEVICE_UNAVAILABLE": service.ErrDeviceUnavailable,
	"OUT_OF_MEMORY":      service.ErrOutOfMemory,
	"TEXT_TOO_LONG":      service.ErrTextTooLong,
	"MODEL_LOAD_FAILED":  service.ErrModelLoad,
}

// MLClient is an HTTP client for the ML service
type MLClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMLClient creates a new ML service client
func NewMLClient(baseURL string, timeout time.Duration) *MLClient {
	return &MLClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// LoadModel loads the model weights and binds the device and batch size
func (c *MLClient) LoadModel(ctx context.Context, reqBody *LoadModelRequest) (*LoadModelResponse, error) {
	var result LoadModelResponse
	if err := c.post(ctx, "/models/load", reqBody, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ZeroShot sends a batch of sequences for zero-shot classification
func (c *MLClient) ZeroShot(ctx context.Context, reqBody *ZeroShotRequest) (*ZeroShotResponse, error) {
	var result ZeroShotResponse
	if err := c.post(ctx, "/zero-shot", reqBody, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks the ML service health
func (c *MLClient) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ML service returned status %d", resp.StatusCode)
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// Ready checks if the ML service is ready
func (c *MLClient) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ready", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ML service not ready: status %d", resp.StatusCode)
	}

	return nil
}

func (c *MLClient) post(ctx context.Context, path string, reqBody, out interface{}) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ML service returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, respBody)
	}

	// A 200 can still carry an error envelope
	var envelope ErrorResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.Success {
		return statusError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// statusError maps a non-200 response to an error, keeping domain
// sentinels reachable through errors.Is when the service sends a known code
func statusError(status int, body []byte) error {
	var envelope ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		if sentinel, ok := errorCodes[envelope.Error.Code]; ok {
			return fmt.Errorf("%w: ML service returned status %d: %s", sentinel, status, envelope.Error.Message)
		}
		return fmt.Errorf("ML service returned status %d: %s: %s", status, envelope.Error.Code, envelope.Error.Message)
	}
	return fmt.Errorf("ML service returned status %d: %s", status, string(body))
}
