package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/genforge-api/internal/config"
	"github.com/phrazzld/genforge-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(serverURL string) http.HandlerFunc) *Client {
	t.Helper()
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(serverURL)(w, r)
	}))
	serverURL = server.URL
	t.Cleanup(server.Close)

	return NewClient(config.ReplicateConfig{
		APIToken:     "r8_test",
		BaseURL:      server.URL,
		PollInterval: 10 * time.Millisecond,
	}, 5*time.Second, nil)
}

func imageRequest(model string) generation.ImageRequest {
	return generation.ImageRequest{
		Model:   model,
		Prompt:  "an oil painting of a cat in a spacesuit",
		Width:   768,
		Height:  768,
		Samples: 2,
	}
}

func TestGenerateImageSynchronous(t *testing.T) {
	t.Parallel()

	var captured predictionRequest
	client := newTestServer(t, func(string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/models/stability-ai/sdxl/predictions", r.URL.Path)
			assert.Equal(t, "Bearer r8_test", r.Header.Get("Authorization"))
			assert.Equal(t, "wait", r.Header.Get("Prefer"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			_, _ = w.Write([]byte(`{"id":"p1","status":"succeeded",
				"output":["https://replicate.delivery/a.png","https://replicate.delivery/b.png"]}`))
		}
	})

	result, err := client.GenerateImage(context.Background(), imageRequest("stability-ai/sdxl"))
	require.NoError(t, err)

	require.Len(t, result.Images, 2)
	assert.Equal(t, "https://replicate.delivery/a.png", result.Images[0].URL)
	assert.Equal(t, "https://replicate.delivery/a.png", result.Images[0].Reference())
	assert.Empty(t, captured.Version)
	assert.Equal(t, 768, captured.Input.Width)
	assert.Equal(t, 2, captured.Input.NumOutputs)
}

func TestGenerateImagePollsUntilSettled(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	var captured predictionRequest
	client := newTestServer(t, func(serverURL string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodPost:
				assert.Equal(t, "/v1/predictions", r.URL.Path)
				require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
				_, _ = fmt.Fprintf(w, `{"id":"p2","status":"starting","urls":{"get":"%s/v1/predictions/p2"}}`, serverURL)
			case polls.Add(1) < 2:
				_, _ = fmt.Fprintf(w, `{"id":"p2","status":"processing","urls":{"get":"%s/v1/predictions/p2"}}`, serverURL)
			default:
				_, _ = w.Write([]byte(`{"id":"p2","status":"succeeded","output":"https://replicate.delivery/c.png"}`))
			}
		}
	})

	result, err := client.GenerateImage(context.Background(), imageRequest("stability-ai/sdxl:39ed52f2"))
	require.NoError(t, err)

	require.Len(t, result.Images, 1)
	assert.Equal(t, "https://replicate.delivery/c.png", result.Images[0].URL)
	assert.Equal(t, "39ed52f2", captured.Version)
	assert.Equal(t, int32(2), polls.Load())
}

func TestGenerateImageFailedPrediction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    error
	}{
		{"nsfw", "NSFW content detected. Try running it again, or try a different prompt.", generation.ErrContentBlocked},
		{"model error", "CUDA out of memory", generation.ErrRequestRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestServer(t, func(string) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					body, _ := json.Marshal(map[string]string{"id": "p3", "status": "failed", "error": tt.message})
					_, _ = w.Write(body)
				}
			})

			_, err := client.GenerateImage(context.Background(), imageRequest("stability-ai/sdxl"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGenerateImagePollingHonorsContext(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(serverURL string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			_, _ = fmt.Fprintf(w, `{"id":"p4","status":"processing","urls":{"get":"%s/v1/predictions/p4"}}`, serverURL)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GenerateImage(ctx, imageRequest("stability-ai/sdxl"))
	require.Error(t, err)
	assert.True(t, generation.Retryable(err))
}

func TestGenerateImageErrorStatus(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
		}
	})

	_, err := client.GenerateImage(context.Background(), imageRequest("stability-ai/sdxl"))
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "Invalid token.")
}

func TestPredictionPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		model   string
		path    string
		version string
		wantErr bool
	}{
		{"stability-ai/sdxl", "/v1/models/stability-ai/sdxl/predictions", "", false},
		{"stability-ai/sdxl:abc123", "/v1/predictions", "abc123", false},
		{"sdxl", "", "", true},
		{"stability-ai/", "", "", true},
		{"a/b/c", "", "", true},
		{"stability-ai/sdxl:", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			t.Parallel()
			path, version, err := predictionPath(tt.model)
			if tt.wantErr {
				assert.ErrorIs(t, err, generation.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.version, version)
		})
	}
}

func TestGenerateImageWithoutToken(t *testing.T) {
	t.Parallel()

	client := NewClient(config.ReplicateConfig{BaseURL: "http://127.0.0.1:1"}, time.Second, nil)
	_, err := client.GenerateImage(context.Background(), imageRequest("stability-ai/sdxl"))
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
