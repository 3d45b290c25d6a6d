package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-chat-backend/internal/models"
	"ai-chat-backend/internal/services"
)

// ─── Shared Helper Tests ───

func TestHandleServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"email": "bad"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", &services.ConflictError{Message: "Email already in use"}, http.StatusConflict, "CONFLICT"},
		{"not found", &services.NotFoundError{Message: "Conversation not found"}, http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", &services.UnauthorizedError{Message: "Invalid email or password"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", &services.ForbiddenError{Message: "Access denied"}, http.StatusForbidden, "FORBIDDEN"},
		{"rate limited", &services.RateLimitError{Message: "Too many requests"}, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"store error falls through", &services.StoreError{Message: "db down"}, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", "req-123")

			handleServiceError(rr, req, tc.err)

			if rr.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rr.Code)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Error.Code != tc.wantCode {
				t.Errorf("Expected code %q, got %q", tc.wantCode, resp.Error.Code)
			}
			if resp.Error.RequestID != "req-123" {
				t.Errorf("Expected request id to round-trip, got %q", resp.Error.RequestID)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()

	writeJSON(rr, http.StatusCreated, map[string]string{"message": "Account created"})

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", ct)
	}

	var result map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["message"] != "Account created" {
		t.Errorf("Expected message 'Account created', got %v", result["message"])
	}
}
