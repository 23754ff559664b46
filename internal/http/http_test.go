package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/medledger/internal/config"
	"github.com/allisson/medledger/internal/metrics"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestServer() *Server {
	return NewServer(nil, "localhost", 8080, discardLogger())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthHandler(t *testing.T) {
	server := createTestServer()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestReadinessHandler(t *testing.T) {
	t.Run("not ready without database", func(t *testing.T) {
		server := createTestServer()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

		server.readinessHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		response := decode(t, w)
		assert.Equal(t, "not_ready", response["status"])
		components, ok := response["components"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "error", components["database"])
	})

	t.Run("ready on memory backend", func(t *testing.T) {
		server := createTestServer()
		server.SetupRouter(&config.Config{DBDriver: config.DriverMemory}, nil)

		w := get(server.GetHandler(), "/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		response := decode(t, w)
		assert.Equal(t, "ready", response["status"])
		assert.Equal(t, "memory", response["components"].(map[string]any)["database"])
	})

	t.Run("ready when database answers ping", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectPing()

		server := NewServer(db, "localhost", 8080, discardLogger())
		server.SetupRouter(&config.Config{DBDriver: config.DriverPostgres}, nil)

		w := get(server.GetHandler(), "/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decode(t, w)["components"].(map[string]any)["database"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not ready when ping fails", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectPing().WillReturnError(assert.AnError)

		server := NewServer(db, "localhost", 8080, discardLogger())
		server.SetupRouter(&config.Config{DBDriver: config.DriverMySQL}, nil)

		w := get(server.GetHandler(), "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "error", decode(t, w)["components"].(map[string]any)["database"])
	})
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})
	router.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	})

	w := get(router, "/test")
	assert.Equal(t, http.StatusOK, w.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "/test", line["path"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
	assert.Equal(t, w.Header().Get("X-Request-Id"), line["request_id"])

	buf.Reset()
	get(router, "/boom")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := get(router, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSetupRouter(t *testing.T) {
	t.Run("health and request id", func(t *testing.T) {
		server := createTestServer()
		server.SetupRouter(&config.Config{DBDriver: config.DriverMemory}, nil)

		w := get(server.GetHandler(), "/health")

		assert.Equal(t, http.StatusOK, w.Code)
		requestID, err := uuid.Parse(w.Header().Get("X-Request-Id"))
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), requestID.Version())
	})

	t.Run("no metrics endpoint without provider", func(t *testing.T) {
		server := createTestServer()
		server.SetupRouter(&config.Config{DBDriver: config.DriverMemory}, nil)

		assert.Equal(t, http.StatusNotFound, get(server.GetHandler(), "/metrics").Code)
	})

	t.Run("metrics endpoint with provider", func(t *testing.T) {
		provider, err := metrics.NewProvider("medledger_test")
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, provider.Shutdown(context.Background()))
		}()

		server := createTestServer()
		server.SetupRouter(&config.Config{DBDriver: config.DriverMemory}, provider)

		get(server.GetHandler(), "/health")
		w := get(server.GetHandler(), "/metrics")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "medledger_test_http_requests_total")
	})

	t.Run("cors applied when enabled", func(t *testing.T) {
		server := createTestServer()
		server.SetupRouter(&config.Config{
			DBDriver:         config.DriverMemory,
			CORSEnabled:      true,
			CORSAllowOrigins: "https://dashboard.clinic.example",
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://dashboard.clinic.example")
		server.GetHandler().ServeHTTP(w, req)

		assert.Equal(t, "https://dashboard.clinic.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown route", func(t *testing.T) {
		server := createTestServer()
		server.SetupRouter(&config.Config{DBDriver: config.DriverMemory}, nil)

		assert.Equal(t, http.StatusNotFound, get(server.GetHandler(), "/nonexistent").Code)
	})
}

func TestServer_ShutdownGracefully(t *testing.T) {
	server := NewServer(nil, "127.0.0.1", 0, discardLogger())
	server.SetupRouter(&config.Config{DBDriver: config.DriverMemory}, nil)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
