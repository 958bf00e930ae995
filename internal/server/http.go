package server

import (
	"encoding/json"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/alfredjeanlab/cfgseed/internal/model"
)

type createAccountResponse struct {
	Account *model.Account `json:"account"`
	Copied  int            `json:"copied"`
}

type configsResponse struct {
	Configs []*model.ModelConfig `json:"configs"`
}

type eventsResponse struct {
	Events []*model.Event `json:"events"`
}

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("POST /v1/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /v1/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("POST /v1/accounts/{id}/default-configs", s.handleInitializeDefaultConfigs)
	mux.HandleFunc("GET /v1/accounts/{id}/configs", s.handleListConfigs)
	mux.HandleFunc("GET /v1/accounts/{id}/events", s.handleGetEvents)
	mux.HandleFunc("GET /v1/policy", s.handleGetPolicy)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateAccount handles POST /v1/accounts.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in createAccountInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	acct, res, err := s.createAccount(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := createAccountResponse{Account: acct}
	if res != nil {
		resp.Copied = res.Copied
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleGetAccount handles GET /v1/accounts/{id}.
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.getAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// handleInitializeDefaultConfigs handles POST /v1/accounts/{id}/default-configs.
// The call is not idempotent: every call copies the eligible templates
// again, so a second call leaves the account with duplicate configs.
func (s *Server) handleInitializeDefaultConfigs(w http.ResponseWriter, r *http.Request) {
	if err := s.initializeDefaultConfigs(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListConfigs handles GET /v1/accounts/{id}/configs.
func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.listConfigs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configsResponse{Configs: configs})
}

// handleGetEvents handles GET /v1/accounts/{id}/events.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	evts, err := s.getEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: evts})
}

// handleGetPolicy handles GET /v1/policy.
func (s *Server) handleGetPolicy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.policy.Current())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service error onto an HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	code, msg := classify(err)
	switch code {
	case codes.InvalidArgument:
		writeError(w, http.StatusBadRequest, msg)
	case codes.NotFound:
		writeError(w, http.StatusNotFound, msg)
	case codes.AlreadyExists:
		writeError(w, http.StatusConflict, msg)
	default:
		writeError(w, http.StatusInternalServerError, msg)
	}
}
