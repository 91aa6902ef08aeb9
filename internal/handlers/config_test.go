package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/memohai/supportdesk/internal/config"
)

func TestConfigBeforeInit(t *testing.T) {
	t.Parallel()

	e := newTestEcho(NewConfigHandler(testLogger(), fakeConfigSource{}, config.Defaults()))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if got := decodeError(t, rec); got != "Agent not initialized" {
		t.Fatalf("unexpected error: %q", got)
	}
}

func TestConfigReturnsModelAndCompany(t *testing.T) {
	t.Parallel()

	agentCfg := config.AgentConfig{Model: config.ModelSettings{Model: "doubao-seed-1-6"}}
	cfg := config.Defaults()
	cfg.Company = config.CompanyConfig{Website: "example.com", WhatsApp: "+100", Email: "sales@example.com"}
	e := newTestEcho(NewConfigHandler(testLogger(), fakeConfigSource{cfg: agentCfg, ok: true}, cfg))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["model"] != "doubao-seed-1-6" {
		t.Fatalf("unexpected model: %v", body["model"])
	}
	info, ok := body["company_info"].(map[string]any)
	if !ok {
		t.Fatalf("missing company_info: %v", body)
	}
	if info["website"] != "example.com" || info["whatsapp"] != "+100" || info["email"] != "sales@example.com" {
		t.Fatalf("unexpected company info: %v", info)
	}
}
