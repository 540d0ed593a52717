package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sisa/internal/auth"
	"sisa/internal/database"
)

func testEventsDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	require.NoError(t, db.SaveCamera(&database.CameraRecord{
		ID: "cam1", Name: "Dock 3", Host: "10.0.0.5", Port: 554, Username: "u", CreatedAt: time.Now(),
	}))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := db.AddEvent(&database.EventRecord{
			ID:          string(rune('a' + i)),
			CameraID:    "cam1",
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Description: "two forklifts too close",
			ImagePath:   "/tmp/x.jpg",
		})
		require.NoError(t, err)
	}
	return db
}

func TestHandleListEvents(t *testing.T) {
	h := handleListEvents(testEventsDB(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var events []eventJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 3)
	assert.Equal(t, "c", events[0].ID, "newest first")
	assert.Equal(t, "two forklifts too close", events[0].Description)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?limit=1", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?camera_id=other", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Empty(t, events)
}

func TestHandleListEventsBadParams(t *testing.T) {
	h := handleListEvents(testEventsDB(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?since=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events?limit=-3", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLogin(t *testing.T) {
	a, err := auth.NewAuthenticator(auth.Config{
		Enabled:   true,
		Username:  "operator",
		Password:  "hunter2",
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
	})
	require.NoError(t, err)

	h := handleLogin(a)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"username":"operator","password":"hunter2"}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])

	claims, err := a.VerifyToken(resp["token"])
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Username)

	rec = httptest.NewRecorder()
	body = strings.NewReader(`{"username":"operator","password":"wrong"}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLoginDisabled(t *testing.T) {
	a, err := auth.NewAuthenticator(auth.Config{Enabled: false})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"username":"x","password":"y"}`)
	handleLogin(a).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", body))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
