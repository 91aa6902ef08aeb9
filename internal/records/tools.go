package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memohai/supportdesk/internal/tools"
)

// Tool names exposed to the model.
const (
	ToolSaveChatRecord = "save_chat_record"
	ToolGetChatSummary = "get_chat_summary"
)

// RecorderSource resolves the sink when a tool runs, so a sink that failed
// to configure at startup can recover later.
type RecorderSource interface {
	Recorder(ctx context.Context) (Recorder, error)
}

// RecorderSourceFunc adapts a function to RecorderSource.
type RecorderSourceFunc func(ctx context.Context) (Recorder, error)

func (f RecorderSourceFunc) Recorder(ctx context.Context) (Recorder, error) { return f(ctx) }

// SaveChatRecordTool appends the current exchange to the record sink.
type SaveChatRecordTool struct {
	source RecorderSource
	now    func() time.Time
}

func NewSaveChatRecordTool(source RecorderSource) *SaveChatRecordTool {
	return &SaveChatRecordTool{source: source, now: time.Now}
}

func (t *SaveChatRecordTool) Descriptor() tools.Descriptor {
	props := map[string]string{
		"session_id":       "Conversation session ID",
		"customer_message": "The customer's latest message",
		"ai_response":      "Your reply to that message",
	}
	for _, f := range OptionalFields {
		props[f.Key] = f.Description + " (optional)"
	}
	return tools.Descriptor{
		Name:        ToolSaveChatRecord,
		Description: "Save the customer message, your reply and any collected customer details to the chat record table. Call it after every reply.",
		Parameters:  tools.ObjectSchema([]string{"customer_message", "ai_response"}, props),
	}
}

func (t *SaveChatRecordTool) Execute(ctx context.Context, call tools.Call) (tools.Result, error) {
	if t.source == nil {
		return tools.Result{}, ErrNotConfigured
	}
	rec := ChatRecord{
		SessionID:       tools.StringArg(call.Arguments, "session_id"),
		CustomerMessage: tools.StringArg(call.Arguments, "customer_message"),
		AIResponse:      tools.StringArg(call.Arguments, "ai_response"),
		Timestamp:       t.now(),
		Optional:        tools.StringArgs(call.Arguments, OptionalKeys()),
	}
	if rec.SessionID == "" {
		rec.SessionID = call.SessionID
	}
	if strings.TrimSpace(rec.CustomerMessage) == "" && strings.TrimSpace(rec.AIResponse) == "" {
		return tools.Result{}, errors.New("customer_message or ai_response is required")
	}
	recorder, err := t.source.Recorder(ctx)
	if err != nil {
		return tools.Result{}, fmt.Errorf("resolve record sink: %w", err)
	}
	res, err := recorder.AppendChatRecord(ctx, rec)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		CallID: call.ID,
		Name:   call.Name,
		Content: fmt.Sprintf("saved chat record for session %s at %s (%s)",
			rec.SessionID, rec.Timestamp.Format(TimestampLayout), strings.Join(res.RecordIDs, ",")),
	}, nil
}

// GetChatSummaryTool reports how many records a session has.
type GetChatSummaryTool struct {
	source RecorderSource
}

func NewGetChatSummaryTool(source RecorderSource) *GetChatSummaryTool {
	return &GetChatSummaryTool{source: source}
}

func (t *GetChatSummaryTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{
		Name:        ToolGetChatSummary,
		Description: "Summarize the chat records stored for a session.",
		Parameters: tools.ObjectSchema(nil, map[string]string{
			"session_id": "Conversation session ID; defaults to the current session",
		}),
	}
}

func (t *GetChatSummaryTool) Execute(ctx context.Context, call tools.Call) (tools.Result, error) {
	if t.source == nil {
		return tools.Result{}, ErrNotConfigured
	}
	sessionID := tools.StringArg(call.Arguments, "session_id")
	if sessionID == "" {
		sessionID = call.SessionID
	}
	recorder, err := t.source.Recorder(ctx)
	if err != nil {
		return tools.Result{}, fmt.Errorf("resolve record sink: %w", err)
	}
	sum, err := recorder.SessionSummary(ctx, sessionID)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{
		CallID: call.ID,
		Name:   call.Name,
		Content: fmt.Sprintf("session %s has %d records (first %s, last %s): %s",
			sum.SessionID, sum.Records, sum.FirstRecord, sum.LastRecord, sum.AccessURL),
	}, nil
}

// RegisterTools adds both record tools to registry.
func RegisterTools(registry *tools.Registry, source RecorderSource) error {
	if err := registry.Register(NewSaveChatRecordTool(source)); err != nil {
		return err
	}
	return registry.Register(NewGetChatSummaryTool(source))
}
