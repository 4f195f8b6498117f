// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/devote/cliparse"
	"github.com/danielhkuo/devote/db"
	"github.com/danielhkuo/devote/models"
)

// Well-known test identities.
var (
	Alice   = models.MustParseAddress("0x1234567890abcdef1234567890abcdef12345678")
	Bob     = models.MustParseAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	Carol   = models.MustParseAddress("0x00000000000000000000000000000000000000c0")
	Token   = models.MustParseAddress("0x9999999999999999999999999999999999999999")
	LockKey = models.MustParseAddress("0x8888888888888888888888888888888888888888")
)

// TestNetworkID is the chain id used by test providers.
const TestNetworkID = 31337

// SetupTestDB creates a fresh SQLite database with the full schema in the
// test's temp dir. It is closed automatically.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "devote.db")
	conn, err := db.Open(context.Background(), db.TypeSQLite, "file:"+path+"?_pragma=foreign_keys(1)&_time_format=sqlite")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(context.Background(), conn, db.TypeSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:                3318,
		DatabaseType:        db.TypeSQLite,
		DatabaseURL:         "file::memory:",
		SessionSecret:       "test-session-secret",
		SessionTTL:          time.Hour,
		LedgerContract:      Token,
		MembershipContract:  LockKey,
		NetworkID:           TestNetworkID,
		SignatureTimeout:    time.Second,
		ConfirmationTimeout: 2 * time.Second,
		CacheTTL:            time.Minute,
	}
}

// CreateTestPoll inserts a poll directly, bypassing validation. createdAt
// controls the derived status.
func CreateTestPoll(t *testing.T, conn *sql.DB, creator models.Address, createdAt time.Time, options ...string) models.Poll {
	t.Helper()

	if len(options) == 0 {
		options = []string{"Yes", "No"}
	}
	p := models.Poll{
		ID:          uuid.NewString(),
		Title:       "Test Poll",
		Description: "A test poll",
		Options:     options,
		Duration:    models.Duration1Week,
		Creator:     creator,
		CreatedAt:   createdAt,
		Status:      models.StatusActive,
	}
	if err := db.NewPollRepository(conn).Insert(context.Background(), p); err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return p
}

// AddTestSteward registers a steward and returns it.
func AddTestSteward(t *testing.T, conn *sql.DB, id, name string, addr models.Address) models.Steward {
	t.Helper()

	s := models.Steward{ID: id, Name: name, Address: addr}
	if err := db.NewStewardRepository(conn).Upsert(context.Background(), s); err != nil {
		t.Fatalf("Failed to create test steward: %v", err)
	}
	return s
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
