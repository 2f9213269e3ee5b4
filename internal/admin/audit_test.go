package admin

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuditMiddleware_LogsMutatingRequests(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	body := `{"p_born":0.5,"p_die":0.5,"trials":1000,"force":true}`
	req := httptest.NewRequest(http.MethodPost, "/admin/v1/simulate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	logOutput := logBuf.String()
	if !strings.Contains(logOutput, "admin API audit") {
		t.Error("expected audit log entry")
	}
	if !strings.Contains(logOutput, "POST") {
		t.Error("expected method in audit log")
	}
	if !strings.Contains(logOutput, "/admin/v1/simulate") {
		t.Error("expected path in audit log")
	}
}

func TestAuditMiddleware_SkipsGETRequests(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/cache/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if logBuf.Len() > 0 {
		t.Error("expected no audit log for GET request")
	}
}

func TestAuditMiddleware_TruncatesLargeBody(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	largeBody := strings.Repeat("x", 2000)
	req := httptest.NewRequest(http.MethodPost, "/admin/v1/simulate", strings.NewReader(largeBody))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	logOutput := logBuf.String()
	if !strings.Contains(logOutput, "truncated") {
		t.Error("expected truncation indicator in audit log for large body")
	}
}

func TestAuditMiddleware_CapturesResponseStatus(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/cache/clear", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	logOutput := logBuf.String()
	if !strings.Contains(logOutput, "400") {
		t.Error("expected response status 400 in audit log")
	}
}
