package app

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithRequestLogging_PreservesStatus(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := WithRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}), log)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusTeapot)
	}
	if rr.Body.String() != "short and stout" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestWithRequestLogging_RecordsBytesAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	h := WithRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}), log)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	line := buf.String()
	if !strings.Contains(line, "level=ERROR") {
		t.Fatalf("5xx must log at Error, got: %s", line)
	}
	if !strings.Contains(line, "bytes=4") {
		t.Fatalf("expected bytes=4 in log line, got: %s", line)
	}
	if !strings.Contains(line, "msg=http.request") {
		t.Fatalf("expected http.request event, got: %s", line)
	}
}

func TestRequestLogLevel(t *testing.T) {
	cases := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelInfo},
		{http.StatusSwitchingProtocols, slog.LevelInfo},
		{http.StatusUnauthorized, slog.LevelWarn},
		{http.StatusNotFound, slog.LevelWarn},
		{http.StatusInternalServerError, slog.LevelError},
		{http.StatusBadGateway, slog.LevelError},
	}
	for _, c := range cases {
		if got := requestLogLevel(c.status); got != c.want {
			t.Fatalf("requestLogLevel(%d) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestResponseRecorder_Unwrap(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := &responseRecorder{ResponseWriter: rr, status: http.StatusOK}

	if rec.Unwrap() != rr {
		t.Fatalf("Unwrap did not return the underlying writer")
	}
}
