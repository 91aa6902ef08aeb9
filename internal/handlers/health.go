package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/supportdesk/internal/boot"
	"github.com/memohai/supportdesk/internal/healthcheck"
)

// AgentStatus reports the lazy agent lifecycle.
type AgentStatus interface {
	State() boot.State
	AgentLoaded() bool
}

// SnapshotSource returns the latest background probe results.
type SnapshotSource interface {
	Last() healthcheck.Snapshot
}

type HealthHandler struct {
	logger *slog.Logger
	agent  AgentStatus
	probes SnapshotSource
}

type HealthResponse struct {
	Status      string                `json:"status"`
	AgentLoaded bool                  `json:"agent_loaded"`
	AgentState  boot.State            `json:"agent_state"`
	Checks      *healthcheck.Snapshot `json:"checks,omitempty"`
}

// NewHealthHandler builds the liveness handler. probes may be nil.
func NewHealthHandler(log *slog.Logger, agent AgentStatus, probes SnapshotSource) *HealthHandler {
	return &HealthHandler{
		logger: log.With(slog.String("handler", "health")),
		agent:  agent,
		probes: probes,
	}
}

func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.HEAD("/health", h.HealthHead)
	e.GET("/ping", h.Ping)
}

// Health always answers 200 while the process serves requests; agent and
// probe state are informational.
func (h *HealthHandler) Health(c echo.Context) error {
	resp := HealthResponse{Status: "healthy"}
	if h.agent != nil {
		resp.AgentLoaded = h.agent.AgentLoaded()
		resp.AgentState = h.agent.State()
	}
	if h.probes != nil {
		snap := h.probes.Last()
		resp.Checks = &snap
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) HealthHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *HealthHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
