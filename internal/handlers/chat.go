package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/memohai/supportdesk/internal/boot"
)

const (
	msgMessageRequired = "Message is required"
	msgAgentInitFailed = "Agent initialization failed"
)

// AgentProvider hands out the lazily built assistant.
type AgentProvider interface {
	EnsureAgent(ctx context.Context) (boot.Assistant, error)
}

type ChatHandler struct {
	logger *slog.Logger
	agents AgentProvider
}

// ChatRequest is the body of both chat routes. customer_info is accepted for
// client compatibility and only logged.
type ChatRequest struct {
	Message      string         `json:"message" validate:"required"`
	SessionID    string         `json:"session_id"`
	CustomerInfo map[string]any `json:"customer_info"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// StreamChunk is one SSE data frame of /api/chat/stream.
type StreamChunk struct {
	Content   string `json:"content"`
	Done      bool   `json:"done"`
	SessionID string `json:"session_id,omitempty"`
}

type streamError struct {
	Error string `json:"error"`
	Done  bool   `json:"done"`
}

func NewChatHandler(log *slog.Logger, agents AgentProvider) *ChatHandler {
	return &ChatHandler{
		logger: log.With(slog.String("handler", "chat")),
		agents: agents,
	}
}

func (h *ChatHandler) Register(e *echo.Echo) {
	group := e.Group("/api/chat")
	group.POST("", h.Chat)
	group.POST("/stream", h.StreamChat)
}

// parse binds and normalizes the request. A non-empty string is the 400 message.
func (h *ChatHandler) parse(c echo.Context) (ChatRequest, string) {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return req, "invalid request body"
	}
	if err := validate(c, &req); err != nil {
		return req, err.Error()
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return req, msgMessageRequired
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if len(req.CustomerInfo) > 0 {
		keys := make([]string, 0, len(req.CustomerInfo))
		for k := range req.CustomerInfo {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		h.logger.Debug("customer info received",
			slog.String("session_id", req.SessionID),
			slog.Any("keys", keys),
		)
	}
	return req, ""
}

// Chat runs one turn and returns the final reply.
func (h *ChatHandler) Chat(c echo.Context) error {
	req, invalid := h.parse(c)
	if invalid != "" {
		return writeError(c, http.StatusBadRequest, invalid)
	}
	ctx := c.Request().Context()
	assistant, err := h.agents.EnsureAgent(ctx)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, msgAgentInitFailed)
	}

	h.logger.Info("chat message",
		slog.String("session_id", req.SessionID),
		slog.String("preview", preview(req.Message)),
	)
	reply, err := assistant.Invoke(ctx, req.SessionID, req.Message)
	if err != nil {
		h.logger.Error("chat failed", slog.String("session_id", req.SessionID), slog.Any("error", err))
		return writeError(c, http.StatusInternalServerError, err.Error())
	}
	h.logger.Info("chat reply",
		slog.String("session_id", req.SessionID),
		slog.String("preview", preview(reply)),
	)
	return c.JSON(http.StatusOK, ChatResponse{Response: reply, SessionID: req.SessionID})
}

// StreamChat runs one turn and relays text fragments as server-sent events.
// The last frame is {"content":"","done":true,"session_id":...}; a failure
// mid-stream ends with {"error":...,"done":true}.
func (h *ChatHandler) StreamChat(c echo.Context) error {
	req, invalid := h.parse(c)
	if invalid != "" {
		return writeError(c, http.StatusBadRequest, invalid)
	}
	ctx := c.Request().Context()
	assistant, err := h.agents.EnsureAgent(ctx)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, msgAgentInitFailed)
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return writeError(c, http.StatusInternalServerError, "streaming not supported")
	}

	h.logger.Info("stream message",
		slog.String("session_id", req.SessionID),
		slog.String("preview", preview(req.Message)),
	)

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	writer := bufio.NewWriter(c.Response().Writer)
	send := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(writer, "data: %s\n\n", data); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	chunks, errs := assistant.Stream(ctx, req.SessionID, req.Message)
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				if errs == nil {
					return h.finish(send, req.SessionID)
				}
				continue
			}
			if chunk == "" {
				continue
			}
			if err := send(StreamChunk{Content: chunk}); err != nil {
				// client disconnected; the turn still completes in the agent
				return nil
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				if chunks == nil {
					return h.finish(send, req.SessionID)
				}
				continue
			}
			if err != nil {
				h.logger.Error("stream failed", slog.String("session_id", req.SessionID), slog.Any("error", err))
				_ = send(streamError{Error: err.Error(), Done: true})
				return nil
			}
		}
	}
}

func (h *ChatHandler) finish(send func(any) error, sessionID string) error {
	h.logger.Info("stream completed", slog.String("session_id", sessionID))
	_ = send(StreamChunk{Content: "", Done: true, SessionID: sessionID})
	return nil
}

func preview(s string) string {
	const limit = 50
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
