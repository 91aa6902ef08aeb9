package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/memohai/supportdesk/internal/media"
	"github.com/memohai/supportdesk/internal/records"
)

const (
	uploadLogTimeout = 15 * time.Second
	sniffBytes       = 3072
)

// Uploader is the subset of media.Service used by the upload routes.
type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, in media.UploadInput) (media.Asset, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type UploadHandler struct {
	logger    *slog.Logger
	storage   Uploader
	recorders records.RecorderSource
}

type UploadResponse struct {
	Success   bool   `json:"success"`
	FileID    string `json:"file_id"`
	FileURL   string `json:"file_url"`
	FileName  string `json:"file_name"`
	SessionID string `json:"session_id"`
}

// NewUploadHandler builds the upload routes. recorders may be nil, in which
// case uploads are not logged to the record table.
func NewUploadHandler(log *slog.Logger, storage Uploader, recorders records.RecorderSource) *UploadHandler {
	return &UploadHandler{
		logger:    log.With(slog.String("handler", "upload")),
		storage:   storage,
		recorders: recorders,
	}
}

func (h *UploadHandler) Register(e *echo.Echo) {
	e.POST("/api/upload", h.Upload)
	e.GET("/"+media.KeyPrefix+"/*", h.Serve)
}

// Upload stores a multipart "file" field and returns its public URL. Logging
// the upload to the record table is best effort and never fails the request.
func (h *UploadHandler) Upload(c echo.Context) error {
	if h.storage == nil || !h.storage.Enabled() {
		return writeError(c, http.StatusServiceUnavailable, "File storage is not configured")
	}
	file, err := c.FormFile("file")
	if err != nil {
		return writeError(c, http.StatusBadRequest, "No file provided")
	}
	name := strings.TrimSpace(file.Filename)
	if name == "" {
		return writeError(c, http.StatusBadRequest, "No file selected")
	}
	sessionID := strings.TrimSpace(c.FormValue("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	src, err := file.Open()
	if err != nil {
		return writeError(c, http.StatusBadRequest, "cannot read uploaded file")
	}
	defer src.Close()

	ctx := c.Request().Context()
	asset, err := h.storage.Upload(ctx, media.UploadInput{
		SessionID:    sessionID,
		OriginalName: name,
		Mime:         file.Header.Get(echo.HeaderContentType),
		Reader:       src,
	})
	switch {
	case errors.Is(err, media.ErrAssetTooLarge):
		return writeError(c, http.StatusRequestEntityTooLarge, "File is too large")
	case errors.Is(err, media.ErrEmptyAsset):
		return writeError(c, http.StatusBadRequest, "File is empty")
	case errors.Is(err, media.ErrProviderUnavailable):
		return writeError(c, http.StatusServiceUnavailable, "File storage is not configured")
	case err != nil:
		h.logger.Error("upload failed", slog.String("session_id", sessionID), slog.Any("error", err))
		return writeError(c, http.StatusInternalServerError, "Upload failed")
	}

	h.logUpload(ctx, asset)

	return c.JSON(http.StatusOK, UploadResponse{
		Success:   true,
		FileID:    asset.ID,
		FileURL:   asset.URL,
		FileName:  asset.OriginalName,
		SessionID: sessionID,
	})
}

func (h *UploadHandler) logUpload(ctx context.Context, asset media.Asset) {
	if h.recorders == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uploadLogTimeout)
	defer cancel()
	rec, err := h.recorders.Recorder(ctx)
	if err != nil {
		h.logger.Debug("upload not recorded", slog.Any("error", err))
		return
	}
	_, err = rec.AppendChatRecord(ctx, records.ChatRecord{
		SessionID:       asset.SessionID,
		CustomerMessage: "[file upload] " + asset.OriginalName,
		AIResponse:      asset.URL,
		Timestamp:       asset.CreatedAt,
		Optional: map[string]string{
			"file_url": asset.URL,
			"notes":    fmt.Sprintf("file_id=%s mime=%s size=%d", asset.ID, asset.Mime, asset.SizeBytes),
		},
	})
	if err != nil {
		h.logger.Warn("upload record failed", slog.String("session_id", asset.SessionID), slog.Any("error", err))
	}
}

// Serve streams a stored upload back. Only useful for the local provider;
// object stores hand out presigned URLs instead.
func (h *UploadHandler) Serve(c echo.Context) error {
	if h.storage == nil || !h.storage.Enabled() {
		return echo.ErrNotFound
	}
	rel := strings.TrimPrefix(c.Param("*"), "/")
	if rel == "" {
		return echo.ErrNotFound
	}
	key := media.KeyPrefix + "/" + rel
	reader, err := h.storage.Open(c.Request().Context(), key)
	switch {
	case errors.Is(err, media.ErrAssetNotFound), errors.Is(err, media.ErrPathTraversal):
		return echo.ErrNotFound
	case err != nil:
		h.logger.Error("open upload failed", slog.String("key", key), slog.Any("error", err))
		return echo.ErrInternalServerError
	}
	defer reader.Close()

	br := bufio.NewReaderSize(reader, sniffBytes)
	head, _ := br.Peek(sniffBytes)
	return c.Stream(http.StatusOK, mimetype.Detect(head).String(), br)
}
