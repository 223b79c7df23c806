package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rentals_backend/internal/app"
	"rentals_backend/internal/auth"
	"rentals_backend/internal/config"
	"rentals_backend/internal/email"
	"rentals_backend/internal/services"
	"rentals_backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "integration-test-secret"

type TestServer struct {
	Server *httptest.Server
	DB     *gorm.DB
	App    *app.App
	Search *MemoryEngine
	Mailer *email.NoopProvider
}

// NewTestServer поднимает полное приложение поверх sqlite, локального хранилища и поиска в памяти.
// Каждый тест получает свой сервер и свою БД.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth.Init(testJWTSecret, 15*time.Minute)

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = t.TempDir()
	cfg.Storage.BaseURL = "/uploads"
	cfg.Email.ResetURL = "http://localhost:3000/reset-password"
	cfg.JWT.RefreshTTLDays = 7

	db := NewTestDB(t)
	store, err := storage.NewLocalStorage(storage.Config{BasePath: cfg.Storage.BasePath, BaseURL: cfg.Storage.BaseURL})
	require.NoError(t, err)

	engine := NewMemoryEngine()
	mailer := email.NewNoopProvider()
	application := app.New(cfg, db, services.Dependencies{
		Storage:       store,
		Search:        engine,
		EmailProvider: mailer,
		Auth: services.AuthConfig{
			RefreshTTL: 7 * 24 * time.Hour,
			ResetURL:   cfg.Email.ResetURL,
		},
	})

	ts := &TestServer{
		Server: httptest.NewServer(application.SetupRouter()),
		DB:     db,
		App:    application,
		Search: engine,
		Mailer: mailer,
	}
	t.Cleanup(ts.Close)
	return ts
}

func (ts *TestServer) Close() {
	ts.Server.Close()
	if sqlDB, err := ts.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// RelayOutbox доставляет накопленные изменения в поисковый индекс
func (ts *TestServer) RelayOutbox(t *testing.T) int {
	t.Helper()
	n, err := ts.App.OutboxRelay().RunOnce(context.Background())
	require.NoError(t, err)
	return n
}

func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, string) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err, "failed to encode request body")
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ts.Server.Client().Do(req)
	require.NoError(t, err, "request %s %s failed", method, path)
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(resBody)
}

// DecodeJSON разбирает тело ответа в out
func DecodeJSON(t *testing.T, body string, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(body), out), "unexpected response body: %s", body)
}
