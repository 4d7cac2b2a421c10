package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/odontogram/internal/config"
	"github.com/ehr/odontogram/internal/domain/dentalchart"
	"github.com/ehr/odontogram/internal/platform/db"
	"github.com/ehr/odontogram/internal/platform/metrics"
)

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{Env: "production", LogLevel: "warn"}, &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("expected JSON warn line, got %s", out)
	}
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&config.Config{Env: "production", LogLevel: "loud"}, &buf)
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected info, got %s", logger.GetLevel())
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]string{
		"chart.png": "png",
		"chart.svg": "svg",
		"":          "svg",
		"-":         "svg",
	}
	for path, want := range cases {
		if got := formatFromPath(path); got != want {
			t.Errorf("formatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestWriteScene(t *testing.T) {
	scene := dentalchart.Render(dentalchart.View{State: dentalchart.NewChartState(), UI: dentalchart.NewUIState()})

	var svg bytes.Buffer
	if err := writeScene(&svg, scene, "svg", 1); err != nil {
		t.Fatalf("svg: %v", err)
	}
	if !strings.HasPrefix(svg.String(), "<svg") {
		t.Errorf("expected svg document, got %.40q", svg.String())
	}

	var png bytes.Buffer
	if err := writeScene(&png, scene, "png", 1); err != nil {
		t.Fatalf("png: %v", err)
	}
	if !bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG signature")
	}
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "dental_chart", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "chart_notes"},
	})
	out := buf.String()
	if !strings.Contains(out, "applied    2026-03-01 09:30:00") {
		t.Errorf("missing applied row: %s", out)
	}
	if !strings.Contains(out, "pending") {
		t.Errorf("missing pending row: %s", out)
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	_, err := openStore(context.Background(), &config.Config{ChartStore: "redis"}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for unknown store")
	}
}

func TestNewEcho_HealthAndMetrics(t *testing.T) {
	cfg := &config.Config{
		Env:         "production",
		ChartStore:  config.StoreSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "chart.db"),
		CORSOrigins: []string{"http://localhost:3000"},
	}
	store, err := openStore(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.close()

	e := newEcho(cfg, zerolog.Nop(), metrics.New(), store)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["store"] != config.StoreSQLite || body["status"] != "healthy" {
		t.Errorf("unexpected body %v", body)
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS in production")
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_request_duration_seconds") {
		t.Errorf("expected request histogram in exposition")
	}
}

func TestPatientFlag(t *testing.T) {
	cmd := exportCmd()
	if err := cmd.Flags().Set("patient", "not-a-uuid"); err != nil {
		t.Fatal(err)
	}
	if _, err := patientFlag(cmd); err == nil {
		t.Error("expected invalid patient error")
	}
	id := "6a1f4a52-3c0e-4a7b-9b8e-2f5c1d2e3f40"
	if err := cmd.Flags().Set("patient", id); err != nil {
		t.Fatal(err)
	}
	got, err := patientFlag(cmd)
	if err != nil || got.String() != id {
		t.Errorf("got %v, %v", got, err)
	}
}
