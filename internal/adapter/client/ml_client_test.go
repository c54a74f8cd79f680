package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ressKim-io/stance-classifier/internal/domain/service"
)

func TestMLClient_LoadModel(t *testing.T) {
	t.Run("successful load", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models/load", r.URL.Path)
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req LoadModelRequest
			err := json.NewDecoder(r.Body).Decode(&req)
			require.NoError(t, err)
			assert.Equal(t, "deberta", req.Model)
			assert.Equal(t, "auto", req.Device)
			assert.Equal(t, 32, req.BatchSize)

			resp := LoadModelResponse{
				Success:           true,
				Model:             "deberta",
				ModelVersion:      "v2.0",
				Device:            "cpu",
				MaxSequenceLength: 512,
			}
			w.Header().Set("Content-Type", "application/json")
			err = json.NewEncoder(w).Encode(resp)
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		result, err := client.LoadModel(context.Background(), &LoadModelRequest{Model: "deberta", Device: "auto", BatchSize: 32})

		require.NoError(t, err)
		assert.Equal(t, "cpu", result.Device)
		assert.Equal(t, 512, result.MaxSequenceLength)
	})

	t.Run("device unavailable maps to domain error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			err := json.NewEncoder(w).Encode(ErrorResponse{
				Error: &ErrorInfo{Code: "DEVICE_UNAVAILABLE", Message: "no mps device"},
			})
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		_, err := client.LoadModel(context.Background(), &LoadModelRequest{Model: "m", Device: "mps", BatchSize: 1})

		assert.ErrorIs(t, err, service.ErrDeviceUnavailable)
		assert.Contains(t, err.Error(), "503")
		assert.Contains(t, err.Error(), "no mps device")
	})

	t.Run("error envelope with status 200 is still an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			err := json.NewEncoder(w).Encode(ErrorResponse{
				Success: false,
				Error:   &ErrorInfo{Code: "DEVICE_UNAVAILABLE", Message: "no accelerator"},
			})
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		result, err := client.LoadModel(context.Background(), &LoadModelRequest{Model: "m", Device: "auto", BatchSize: 1})

		assert.Nil(t, result)
		assert.ErrorIs(t, err, service.ErrDeviceUnavailable)
		assert.Contains(t, err.Error(), "no accelerator")
	})
}

func TestMLClient_ZeroShot(t *testing.T) {
	t.Run("successful classification", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/zero-shot", r.URL.Path)

			var req ZeroShotRequest
			err := json.NewDecoder(r.Body).Decode(&req)
			require.NoError(t, err)
			assert.Len(t, req.Sequences, 2)
			assert.Equal(t, service.StanceLabels, req.CandidateLabels)
			assert.Equal(t, service.StanceHypothesisTemplate, req.HypothesisTemplate)
			assert.False(t, req.MultiLabel)
			assert.Equal(t, "req-123", req.RequestID)

			resp := ZeroShotResponse{
				Success: true,
				Results: []ZeroShotResult{
					{Sequence: "text1", Labels: []string{service.LabelTakesPosition, service.LabelNoPosition}, Scores: []float64{0.9, 0.1}},
					{Sequence: "text2", Labels: []string{service.LabelNoPosition, service.LabelTakesPosition}, Scores: []float64{0.8, 0.2}},
				},
				ModelVersion: "mock-v1.0.0",
				RequestID:    "req-123",
			}
			w.Header().Set("Content-Type", "application/json")
			err = json.NewEncoder(w).Encode(resp)
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		result, err := client.ZeroShot(context.Background(), &ZeroShotRequest{
			RequestID:          "req-123",
			Model:              "deberta",
			Sequences:          []string{"text1", "text2"},
			CandidateLabels:    service.StanceLabels,
			HypothesisTemplate: service.StanceHypothesisTemplate,
		})

		require.NoError(t, err)
		assert.True(t, result.Success)
		require.Len(t, result.Results, 2)
		assert.Equal(t, service.LabelNoPosition, result.Results[1].Labels[0])
		assert.Equal(t, "mock-v1.0.0", result.ModelVersion)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, err := w.Write([]byte("internal error"))
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		_, err := client.ZeroShot(context.Background(), &ZeroShotRequest{Sequences: []string{"test"}})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), "internal error")
	})

	t.Run("out of memory maps to domain error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInsufficientStorage)
			err := json.NewEncoder(w).Encode(ErrorResponse{
				Error: &ErrorInfo{Code: "OUT_OF_MEMORY", Message: "CUDA out of memory"},
			})
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		_, err := client.ZeroShot(context.Background(), &ZeroShotRequest{Sequences: []string{"test"}})

		assert.ErrorIs(t, err, service.ErrOutOfMemory)
	})

	t.Run("unsuccessful response with status 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			err := json.NewEncoder(w).Encode(ErrorResponse{
				Error: &ErrorInfo{Code: "BAD_REQUEST", Message: "empty sequences"},
			})
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		result, err := client.ZeroShot(context.Background(), &ZeroShotRequest{Sequences: []string{"test"}})

		assert.Nil(t, result)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BAD_REQUEST")
		assert.Contains(t, err.Error(), "empty sequences")
	})

	t.Run("connection error", func(t *testing.T) {
		client := NewMLClient("http://localhost:99999", 1*time.Second)
		_, err := client.ZeroShot(context.Background(), &ZeroShotRequest{Sequences: []string{"test"}})

		assert.Error(t, err)
	})
}

func TestMLClient_Health(t *testing.T) {
	t.Run("healthy service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			assert.Equal(t, "GET", r.Method)

			resp := HealthResponse{
				Status:       "healthy",
				ModelLoaded:  true,
				ModelVersion: "mock-v1.0.0",
				Device:       "cuda",
			}
			w.Header().Set("Content-Type", "application/json")
			err := json.NewEncoder(w).Encode(resp)
			require.NoError(t, err)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		result, err := client.Health(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "healthy", result.Status)
		assert.True(t, result.ModelLoaded)
		assert.Equal(t, "cuda", result.Device)
	})
}

func TestMLClient_Ready(t *testing.T) {
	t.Run("ready service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ready", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		err := client.Ready(context.Background())

		assert.NoError(t, err)
	})

	t.Run("not ready service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewMLClient(server.URL, 5*time.Second)
		err := client.Ready(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not ready")
	})
}
