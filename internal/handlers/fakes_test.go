package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/memohai/supportdesk/internal/boot"
	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/records"
	"github.com/memohai/supportdesk/internal/server"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEcho(handlers ...server.Handler) *echo.Echo {
	e := echo.New()
	e.Validator = server.NewValidator()
	for _, h := range handlers {
		h.Register(e)
	}
	return e
}

type fakeAssistant struct {
	mu        sync.Mutex
	reply     string
	invokeErr error
	chunks    []string
	streamErr error
	sessions  []string
	messages  []string
}

func (a *fakeAssistant) record(sessionID, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, sessionID)
	a.messages = append(a.messages, text)
}

func (a *fakeAssistant) Invoke(_ context.Context, sessionID, text string) (string, error) {
	a.record(sessionID, text)
	if a.invokeErr != nil {
		return "", a.invokeErr
	}
	return a.reply, nil
}

func (a *fakeAssistant) Stream(_ context.Context, sessionID, text string) (<-chan string, <-chan error) {
	a.record(sessionID, text)
	chunks := make(chan string, len(a.chunks))
	errs := make(chan error, 1)
	for _, c := range a.chunks {
		chunks <- c
	}
	close(chunks)
	if a.streamErr != nil {
		errs <- a.streamErr
	}
	close(errs)
	return chunks, errs
}

type fakeAgents struct {
	assistant boot.Assistant
	err       error
	calls     int
}

func (f *fakeAgents) EnsureAgent(context.Context) (boot.Assistant, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.assistant, nil
}

type fakeStatus struct {
	state boot.State
}

func (f fakeStatus) State() boot.State { return f.state }
func (f fakeStatus) AgentLoaded() bool { return f.state == boot.StateReady }

type fakeConfigSource struct {
	cfg config.AgentConfig
	ok  bool
}

func (f fakeConfigSource) AgentConfig() (config.AgentConfig, bool) { return f.cfg, f.ok }

type fakeRecorder struct {
	mu      sync.Mutex
	records []records.ChatRecord
	err     error
}

func (r *fakeRecorder) AppendChatRecord(_ context.Context, rec records.ChatRecord) (records.AppendResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return records.AppendResult{}, r.err
	}
	r.records = append(r.records, rec)
	return records.AppendResult{RecordIDs: []string{"rec1"}}, nil
}

func (r *fakeRecorder) SessionSummary(context.Context, string) (records.Summary, error) {
	return records.Summary{}, nil
}
