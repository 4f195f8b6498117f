// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/devote/apperr"
	"github.com/danielhkuo/devote/auth"
	"github.com/danielhkuo/devote/models"
	"github.com/danielhkuo/devote/session"
)

const testSecret = "test-session-secret"

var testAddr = models.MustParseAddress("0x1234567890abcdef1234567890abcdef12345678")

func TestWithLogging(t *testing.T) {
	// Create a simple handler that returns OK
	handlerCalled := false
	testHandler := func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	}

	wrappedHandler := WithLogging(testHandler)

	req := httptest.NewRequest("GET", "/test-path", nil)
	w := httptest.NewRecorder()

	wrappedHandler(w, req)

	if !handlerCalled {
		t.Error("Expected handler to be called")
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "success" {
		t.Errorf("Expected body 'success', got '%s'", w.Body.String())
	}
}

func TestRequireSession(t *testing.T) {
	var got session.Session
	handler := RequireSession(testSecret, func(w http.ResponseWriter, r *http.Request) {
		got = session.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	token, _, err := auth.IssueToken(testAddr, testSecret, time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	expired, _, err := auth.IssueToken(testAddr, testSecret, -time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	foreign, _, err := auth.IssueToken(testAddr, "other-secret", time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got = session.Session{}
			req := httptest.NewRequest("GET", "/me/stats", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, w.Code)
			}
			if tc.status == http.StatusOK && got.Address != testAddr {
				t.Errorf("Expected session for %s, got %q", testAddr, got.Address)
			}
			if tc.status != http.StatusOK && got.Connected() {
				t.Error("Handler should not run without a valid session")
			}
		})
	}
}

func TestJSONResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
		data       interface{}
		expected   string
	}{
		{
			name:       "simple struct",
			statusCode: http.StatusOK,
			data:       map[string]string{"message": "hello"},
			expected:   `{"message":"hello"}`,
		},
		{
			name:       "created response",
			statusCode: http.StatusCreated,
			data:       models.CastVoteResponse{PollID: "abc123", OptionIndex: 1},
			expected:   `{"poll_id":"abc123","option_index":1}`,
		},
		{
			name:       "error response",
			statusCode: http.StatusBadRequest,
			data:       models.ErrorResponse{Error: "Bad Request", Message: "missing field"},
			expected:   `{"error":"Bad Request","message":"missing field"}`,
		},
		{
			name:       "array data",
			statusCode: http.StatusOK,
			data:       []string{"a", "b", "c"},
			expected:   `["a","b","c"]`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			JSONResponse(w, tc.statusCode, tc.data)

			if w.Code != tc.statusCode {
				t.Errorf("Expected status %d, got %d", tc.statusCode, w.Code)
			}
			if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
			}

			// Check body (trim newline added by Encode)
			body := strings.TrimSpace(w.Body.String())
			if body != tc.expected {
				t.Errorf("Expected body '%s', got '%s'", tc.expected, body)
			}
		})
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()

	ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error != "Bad Request" || resp.Message != "Invalid JSON" {
		t.Errorf("Unexpected error response %+v", resp)
	}
}

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		kind   apperr.Kind
	}{
		{"validation", apperr.Validation("title", "title is required"), http.StatusBadRequest, apperr.KindValidation},
		{"invalid address", &apperr.InvalidAddressError{Input: "0x12"}, http.StatusBadRequest, apperr.KindInvalidAddress},
		{"invalid option", apperr.ErrInvalidOption, http.StatusBadRequest, apperr.KindInvalidOption},
		{"not connected", apperr.ErrNotConnected, http.StatusUnauthorized, apperr.KindNotConnected},
		{"membership", apperr.ErrMembershipRequired, http.StatusForbidden, apperr.KindMembership},
		{"poll not found", apperr.ErrPollNotFound, http.StatusNotFound, apperr.KindNotFound},
		{"duplicate vote", apperr.ErrDuplicateVote, http.StatusConflict, apperr.KindDuplicateVote},
		{"not active", apperr.ErrPollNotActive, http.StatusConflict, apperr.KindNotActive},
		{"no provider", apperr.ErrNoProvider, http.StatusPreconditionFailed, apperr.KindNoProvider},
		{"transaction", &apperr.TransactionError{Op: "delegate(address)", Err: errors.New("reverted")}, http.StatusBadGateway, apperr.KindTransaction},
		{"timeout", &apperr.TimeoutError{Op: "delegate(address)", After: time.Minute}, http.StatusGatewayTimeout, apperr.KindTimeout},
		{"store", apperr.Store("list polls", errors.New("connection refused")), http.StatusServiceUnavailable, apperr.KindStore},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError, apperr.KindInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteError(w, tc.err)

			if w.Code != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, w.Code)
			}
			var resp models.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error response: %v", err)
			}
			if resp.Error != string(tc.kind) {
				t.Errorf("Expected error kind '%s', got '%s'", tc.kind, resp.Error)
			}
			if tc.kind == apperr.KindStore && strings.Contains(resp.Message, "connection refused") {
				t.Error("Store errors should not leak driver messages")
			}
		})
	}
}

func TestWriteError_AuditDetails(t *testing.T) {
	w := httptest.NewRecorder()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	WriteError(w, &apperr.AuditWriteError{
		Delegator: "0xaaa",
		Delegatee: "0xbbb",
		TxHash:    "0xfeed",
		At:        at,
		Err:       errors.New("disk full"),
	})

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error != string(apperr.KindAuditWrite) {
		t.Errorf("Expected audit_write, got %s", resp.Error)
	}
	if resp.Details["tx_hash"] != "0xfeed" || resp.Details["delegatee"] != "0xbbb" {
		t.Errorf("Expected replay details, got %v", resp.Details)
	}
}

func TestWriteError_MembershipCheckout(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, fmt.Errorf("cast vote: %w", &apperr.MembershipError{
		Lock:        "0x8888888888888888888888888888888888888888",
		NetworkID:   8453,
		CheckoutURL: "https://app.unlock-protocol.com/checkout?locks=0x8888888888888888888888888888888888888888&network=8453",
	}))

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error != string(apperr.KindMembership) {
		t.Errorf("Expected membership_required, got %s", resp.Error)
	}
	url, _ := resp.Details["checkout_url"].(string)
	if !strings.Contains(url, "locks=0x8888888888888888888888888888888888888888") || !strings.Contains(url, "network=8453") {
		t.Errorf("Expected checkout link for the lock, got %v", resp.Details)
	}
	if resp.Details["network_id"] != float64(8453) {
		t.Errorf("Expected network_id 8453, got %v", resp.Details["network_id"])
	}
}

func TestParseJSONBody(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		body := `{"title":"Fee Change","options":["Yes","No"],"duration":"1 week"}`
		req := httptest.NewRequest("POST", "/", strings.NewReader(body))

		var parsed models.CreatePollRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if parsed.Title != "Fee Change" {
			t.Errorf("Expected title 'Fee Change', got '%s'", parsed.Title)
		}
		if len(parsed.Options) != 2 {
			t.Errorf("Expected 2 options, got %d", len(parsed.Options))
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{invalid json}`))

		var parsed models.CreatePollRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(""))

		var parsed models.CreatePollRequest
		if err := ParseJSONBody(req, &parsed); err == nil {
			t.Error("Expected error for empty body")
		}
	})

	t.Run("missing option index stays nil", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{}`))

		var parsed models.CastVoteRequest
		if err := ParseJSONBody(req, &parsed); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if parsed.OptionIndex != nil {
			t.Error("Expected nil option index")
		}
	})
}

func TestCORS(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("handled"))
	})

	corsHandler := CORS(nextHandler)

	t.Run("preflight OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/polls", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "" {
			t.Errorf("Expected empty body for preflight, got '%s'", w.Body.String())
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
			t.Error("Expected Access-Control-Allow-Origin to match request origin")
		}
		if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
			t.Error("Expected Authorization in allowed headers")
		}
	})

	t.Run("request without origin defaults to wildcard", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls", nil)
		w := httptest.NewRecorder()

		corsHandler.ServeHTTP(w, req)

		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Error("Expected Access-Control-Allow-Origin to default to '*'")
		}
		if w.Body.String() != "handled" {
			t.Error("Expected next handler to be called")
		}
	})
}

func TestGetClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expectedIP string
	}{
		{
			name:       "X-Forwarded-For single IP",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.100"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "192.168.1.100",
		},
		{
			name:       "X-Forwarded-For chained IPs",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.195, 70.41.3.18, 150.172.238.178"},
			remoteAddr: "127.0.0.1:12345",
			expectedIP: "203.0.113.195",
		},
		{
			name:       "X-Real-IP takes precedence over RemoteAddr",
			headers:    map[string]string{"X-Real-IP": "203.0.113.50"},
			remoteAddr: "10.0.0.1:12345",
			expectedIP: "203.0.113.50",
		},
		{
			name:       "RemoteAddr with port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.50:54321",
			expectedIP: "192.168.1.50",
		},
		{
			name:       "RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.50",
			expectedIP: "192.168.1.50",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			if result := GetClientIP(req); result != tc.expectedIP {
				t.Errorf("Expected IP '%s', got '%s'", tc.expectedIP, result)
			}
		})
	}
}
