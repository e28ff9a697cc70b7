package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	run := stubRunner{status: RunStatus{Variant: "anytime"}}
	s := NewServer(Config{CORSOrigin: "*", MaxUploadMB: 10, TimeoutSec: 30}, run)

	require.NotNil(t, s)
	assert.Equal(t, "*", s.corsOrigin)
	assert.Equal(t, int64(10), s.maxUploadMB)
}

func TestServer_SetupRoutes(t *testing.T) {
	server := &Server{corsOrigin: "*", maxUploadMB: 10, run: stubRunner{}}

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	assert.NotNil(t, mux)
}

func TestServer_Close(t *testing.T) {
	server := &Server{}
	assert.NoError(t, server.Close())
}

func TestHealthResponse_Serialization(t *testing.T) {
	resp := HealthResponse{Status: "healthy", Time: "2026-08-02T00:00:00Z"}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded HealthResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, resp, decoded)
}

func TestRunStatus_Serialization(t *testing.T) {
	status := RunStatus{
		Variant:   "cascade",
		Stage:     2,
		NumStages: 8,
		Iteration: 15,
		ExpLoss:   0.42,
		Error:     0.05,
		Done:      false,
	}

	data, err := json.Marshal(status)
	require.NoError(t, err)

	var decoded RunStatus
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, status, decoded)
}

func TestStatusResponse_Serialization(t *testing.T) {
	resp := StatusResponse{Success: true, Status: RunStatus{Variant: "boosted"}}

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"variant":"boosted"`)
}

func TestIterationEvent_JSONFieldNames(t *testing.T) {
	ev := IterationEvent{Type: "iteration", Stage: 1, Iteration: 3, ExpLoss: 0.1, Error: 0.02}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{"type", "stage", "iteration", "exp_loss", "error"} {
		assert.Contains(t, raw, key)
	}
}
