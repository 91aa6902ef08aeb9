package records

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/memohai/supportdesk/internal/config"
)

// AccessURLPrefix is the public address of a bitable base.
const AccessURLPrefix = "https://feishu.cn/base/"

// AccessURL returns the browser link for appToken.
func AccessURL(appToken string) string {
	return AccessURLPrefix + appToken
}

// AppendResult reports a stored record.
type AppendResult struct {
	RecordIDs []string
	Fields    map[string]any
}

// Summary describes the records stored for one session.
type Summary struct {
	SessionID   string
	Records     int
	FirstRecord string
	LastRecord  string
	AccessURL   string
}

// Recorder is what the agent tools need from a sink.
type Recorder interface {
	AppendChatRecord(ctx context.Context, rec ChatRecord) (AppendResult, error)
	SessionSummary(ctx context.Context, sessionID string) (Summary, error)
}

// Sink writes chat records into one table.
type Sink struct {
	backend Backend
	loc     config.FeishuLocation
	logger  *slog.Logger
	now     func() time.Time
}

var _ Recorder = (*Sink)(nil)

func NewSink(backend Backend, loc config.FeishuLocation, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{
		backend: backend,
		loc:     loc,
		logger:  log.With(slog.String("component", "record_sink")),
		now:     time.Now,
	}
}

// Location is the table the sink writes to.
func (s *Sink) Location() config.FeishuLocation { return s.loc }

// Backend exposes the underlying API client.
func (s *Sink) Backend() Backend { return s.backend }

// AppendChatRecord stores rec as a single row.
func (s *Sink) AppendChatRecord(ctx context.Context, rec ChatRecord) (AppendResult, error) {
	if s == nil || s.backend == nil || !s.loc.Complete() {
		return AppendResult{}, ErrNotConfigured
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	if unknown := UnknownKeys(rec.Optional); len(unknown) > 0 {
		s.logger.Debug("ignoring uncatalogued fields", slog.Any("keys", unknown))
	}
	fields := BuildFields(rec)
	ids, err := s.backend.AppendRecords(ctx, s.loc, []map[string]any{fields})
	if err != nil {
		s.logger.Error("append chat record failed",
			slog.String("session_id", rec.SessionID),
			slog.Any("error", err),
		)
		return AppendResult{}, err
	}
	s.logger.Info("chat record saved",
		slog.String("session_id", rec.SessionID),
		slog.Int("fields", len(fields)),
	)
	return AppendResult{RecordIDs: ids, Fields: fields}, nil
}

// SessionSummary counts the rows written for sessionID.
func (s *Sink) SessionSummary(ctx context.Context, sessionID string) (Summary, error) {
	if s == nil || s.backend == nil || !s.loc.Complete() {
		return Summary{}, ErrNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Summary{}, fmt.Errorf("session id is required")
	}
	rows, total, err := s.backend.SearchRecords(ctx, s.loc, ColumnSessionID, sessionID)
	if err != nil {
		return Summary{}, err
	}
	stamps := make([]string, 0, len(rows))
	for _, row := range rows {
		if ts := TextValue(row.Fields[ColumnTimestamp]); ts != "" {
			stamps = append(stamps, ts)
		}
	}
	sort.Strings(stamps)
	sum := Summary{
		SessionID: sessionID,
		Records:   total,
		AccessURL: AccessURL(s.loc.AppToken),
	}
	if len(stamps) > 0 {
		sum.FirstRecord = stamps[0]
		sum.LastRecord = stamps[len(stamps)-1]
	}
	return sum, nil
}

// TextValue flattens a cell value. Text cells come back either as a plain
// string or as a list of {"text": ...} segments.
func TextValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		var b strings.Builder
		for _, seg := range t {
			if m, ok := seg.(map[string]any); ok {
				if s, ok := m["text"].(string); ok {
					b.WriteString(s)
				}
				continue
			}
			b.WriteString(TextValue(seg))
		}
		return b.String()
	case map[string]any:
		if s, ok := t["text"].(string); ok {
			return s
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}
