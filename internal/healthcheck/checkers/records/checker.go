package recordchecker

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/memohai/supportdesk/internal/healthcheck"
	"github.com/memohai/supportdesk/internal/records"
)

const checkTypeRecords = "records.table"

// SinkProvider resolves the record sink.
type SinkProvider interface {
	RecordSink(ctx context.Context) (*records.Sink, error)
}

// Checker verifies the chat record table is reachable and has every column.
type Checker struct {
	logger *slog.Logger
	sinks  SinkProvider
}

func NewChecker(log *slog.Logger, sinks SinkProvider) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{logger: log.With(slog.String("checker", "healthcheck_records")), sinks: sinks}
}

func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{ID: checkTypeRecords, Type: checkTypeRecords}
	if c.sinks == nil {
		item.Status = healthcheck.StatusWarn
		item.Summary = "Record sink is not wired."
		return []healthcheck.CheckResult{item}
	}
	sink, err := c.sinks.RecordSink(ctx)
	if err != nil {
		item.Detail = err.Error()
		if errors.Is(err, records.ErrNotConfigured) {
			item.Status = healthcheck.StatusWarn
			item.Summary = "Chat records are disabled."
		} else {
			item.Status = healthcheck.StatusError
			item.Summary = "Record sink could not be created."
		}
		return []healthcheck.CheckResult{item}
	}
	loc := sink.Location()
	item.Metadata = map[string]any{"app_token": loc.AppToken, "table_id": loc.TableID}

	fields, err := sink.Backend().ListFields(ctx, loc)
	if err != nil {
		c.logger.Warn("record table probe failed", slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Chat record table is unreachable."
		item.Detail = err.Error()
		return []healthcheck.CheckResult{item}
	}
	missing := records.MissingColumns(fields)
	item.Metadata["fields"] = len(fields)
	if len(missing) > 0 {
		item.Status = healthcheck.StatusWarn
		item.Summary = "Chat record table is missing columns."
		item.Detail = strings.Join(missing, ", ")
		return []healthcheck.CheckResult{item}
	}
	item.Status = healthcheck.StatusOK
	item.Summary = "Chat record table is reachable."
	return []healthcheck.CheckResult{item}
}
