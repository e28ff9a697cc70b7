package server

import "net/http"

// trainingRunner defines the methods the server needs from a training run.
type trainingRunner interface {
	Status() RunStatus
	Subscribe() (ch <-chan IterationEvent, unsubscribe func())
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	run         trainingRunner
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// RunStatus describes the current state of a training run.
type RunStatus struct {
	Variant       string  `json:"variant"`
	Stage         int     `json:"stage"`
	NumStages     int     `json:"num_stages"`
	Iteration     int     `json:"iteration"`
	ExpLoss       float32 `json:"exp_loss"`
	Error         float32 `json:"error"`
	Done          bool    `json:"done"`
	FailureReason string  `json:"failure_reason,omitempty"`
}

// StatusResponse wraps RunStatus for the /status endpoint.
type StatusResponse struct {
	Success bool      `json:"success"`
	Status  RunStatus `json:"status"`
	Error   string    `json:"error,omitempty"`
}

// NewServer creates a new training-progress server instance.
func NewServer(config Config, run trainingRunner) *Server {
	return &Server{
		run:         run,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
	}
}

// Close releases server resources. No owned resources currently require
// explicit teardown; kept for symmetry with the rest of the server
// lifecycle and for future extension.
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/status", s.corsMiddleware(s.statusHandler))
	mux.HandleFunc("/progress", s.corsMiddleware(s.progressWebSocketHandler))
}
