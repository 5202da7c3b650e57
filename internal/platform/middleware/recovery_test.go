package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/apperr"
)

func TestRecovery_PanicBecomesErrorPayload(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	handler := Recovery(logger)(func(c echo.Context) error {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/visits", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "rid-123")

	if err := handler(c); err != nil {
		t.Fatalf("expected recovered panic to write the response itself, got %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	var payload apperr.Payload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response body is not an error payload: %v", err)
	}
	if payload.Kind != apperr.KindInternal {
		t.Errorf("expected internal kind, got %s", payload.Kind)
	}
	// The panic value must not leak to the client
	if strings.Contains(rec.Body.String(), "something went wrong") {
		t.Error("expected panic detail stripped from the response")
	}

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if line["message"] != "panic recovered" {
		t.Errorf("expected panic recovered log line, got %v", line["message"])
	}
	if line["request_id"] != "rid-123" {
		t.Errorf("expected request_id rid-123, got %v", line["request_id"])
	}
	if stack, _ := line["stack"].(string); stack == "" {
		t.Error("expected stack trace in the log line")
	}
}

func TestRecovery_PassThrough(t *testing.T) {
	e := echo.New()
	handler := Recovery(zerolog.Nop())(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
