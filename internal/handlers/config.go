package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/supportdesk/internal/config"
)

// AgentConfigSource exposes the loaded agent definition, if any.
type AgentConfigSource interface {
	AgentConfig() (config.AgentConfig, bool)
}

type ConfigHandler struct {
	logger  *slog.Logger
	agent   AgentConfigSource
	company config.CompanyConfig
}

type CompanyInfo struct {
	Website  string `json:"website"`
	WhatsApp string `json:"whatsapp"`
	Email    string `json:"email"`
}

type ConfigResponse struct {
	Model       string      `json:"model"`
	CompanyInfo CompanyInfo `json:"company_info"`
}

func NewConfigHandler(log *slog.Logger, agent AgentConfigSource, cfg config.Config) *ConfigHandler {
	return &ConfigHandler{
		logger:  log.With(slog.String("handler", "config")),
		agent:   agent,
		company: cfg.Company,
	}
}

func (h *ConfigHandler) Register(e *echo.Echo) {
	e.GET("/api/config", h.GetConfig)
}

// GetConfig answers 500 until the agent has been built once.
func (h *ConfigHandler) GetConfig(c echo.Context) error {
	cfg, ok := h.agent.AgentConfig()
	if !ok {
		return writeError(c, http.StatusInternalServerError, "Agent not initialized")
	}
	return c.JSON(http.StatusOK, ConfigResponse{
		Model: cfg.Model.Model,
		CompanyInfo: CompanyInfo{
			Website:  h.company.Website,
			WhatsApp: h.company.WhatsApp,
			Email:    h.company.Email,
		},
	})
}
