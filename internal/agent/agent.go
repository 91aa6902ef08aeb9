// Package agent runs customer chat turns against the model, executing tool
// calls through the tool filter and persisting the windowed transcript.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"

	"github.com/memohai/supportdesk/internal/checkpoint"
	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/conversation"
	"github.com/memohai/supportdesk/internal/tools"
)

// ErrEmptyResponse is returned when the model produced no choice.
var ErrEmptyResponse = errors.New("model returned no choices")

// Options configures New.
type Options struct {
	Model         Model
	Settings      config.ModelSettings
	SystemPrompt  string
	Tools         *tools.Registry
	Store         checkpoint.Store
	MaxMessages   int
	MaxToolRounds int
	Logger        *slog.Logger
}

// Agent answers customer messages for many sessions.
type Agent struct {
	model        Model
	settings     config.ModelSettings
	systemPrompt string
	registry     *tools.Registry
	dispatch     tools.Handler
	store        checkpoint.Store
	maxMessages  int
	maxRounds    int
	logger       *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, errors.New("agent: model is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	store := opts.Store
	if store == nil {
		store = checkpoint.NewMemoryStore()
	}
	registry := opts.Tools
	if registry == nil {
		registry = tools.NewRegistry()
	}
	maxMessages := opts.MaxMessages
	if maxMessages <= 0 {
		maxMessages = conversation.MaxMessages
	}
	maxRounds := opts.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = config.DefaultMaxToolRounds
	}
	log = log.With(slog.String("service", "agent"), slog.String("model", opts.Settings.Model))
	return &Agent{
		model:        opts.Model,
		settings:     opts.Settings,
		systemPrompt: opts.SystemPrompt,
		registry:     registry,
		dispatch:     tools.Filter(log)(registry.Dispatch),
		store:        store,
		maxMessages:  maxMessages,
		maxRounds:    maxRounds,
		logger:       log,
		locks:        map[string]*sessionLock{},
	}, nil
}

// Settings returns the model settings the agent was built with.
func (a *Agent) Settings() config.ModelSettings { return a.settings }

// History returns the stored window of sessionID.
func (a *Agent) History(ctx context.Context, sessionID string) ([]conversation.Message, error) {
	return a.store.Load(ctx, sessionID)
}

// Invoke runs one turn and returns the final assistant text. The turn is not
// cancelled when ctx is; only ctx values are kept.
func (a *Agent) Invoke(ctx context.Context, sessionID, text string) (string, error) {
	return a.runTurn(context.WithoutCancel(ctx), sessionID, text, nil)
}

// Stream runs one turn and emits assistant text chunks as the model produces
// them. Tool-call deltas are never emitted. Both channels are closed when the
// turn ends; the error channel carries at most one error. Once ctx is done,
// remaining chunks are discarded but the turn still completes and is saved.
func (a *Agent) Stream(ctx context.Context, sessionID, text string) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		emit := func(s string) {
			select {
			case chunks <- s:
			case <-ctx.Done():
			}
		}
		if _, err := a.runTurn(context.WithoutCancel(ctx), sessionID, text, emit); err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}

func (a *Agent) runTurn(ctx context.Context, sessionID, text string, emit func(string)) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", checkpoint.ErrEmptySession
	}
	unlock := a.lockSession(sessionID)
	defer unlock()

	history, err := a.store.Load(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	msgs := conversation.AppendN(history, []conversation.Message{conversation.UserMessage(text)}, a.maxMessages)

	baseOpts := callOptions(a.settings)
	if a.registry.Len() > 0 {
		baseOpts = append(baseOpts, llms.WithTools(toLLMTools(a.registry.List())))
	}

	var final string
	for round := 0; ; round++ {
		streamed := false
		opts := baseOpts
		if emit != nil {
			opts = append(append([]llms.CallOption(nil), baseOpts...), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				if len(chunk) == 0 || isToolCallChunk(chunk) {
					return nil
				}
				streamed = true
				emit(string(chunk))
				return nil
			}))
		}

		resp, err := a.model.GenerateContent(ctx, toLLMMessages(a.systemPrompt, conversation.ModelView(msgs)), opts...)
		if err != nil {
			a.logger.Error("model call failed",
				slog.String("session_id", sessionID),
				slog.Int("round", round),
				slog.Any("error", err),
			)
			return "", a.keepPartial(ctx, sessionID, msgs, fmt.Errorf("generate content: %w", err))
		}
		if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
			return "", a.keepPartial(ctx, sessionID, msgs, ErrEmptyResponse)
		}
		choice := resp.Choices[0]

		if len(choice.ToolCalls) == 0 || round >= a.maxRounds {
			if len(choice.ToolCalls) > 0 {
				a.logger.Warn("tool round limit reached, dropping tool calls",
					slog.String("session_id", sessionID),
					slog.Int("max_rounds", a.maxRounds),
				)
			}
			final = choice.Content
			if emit != nil && !streamed && final != "" {
				emit(final)
			}
			msgs = conversation.AppendN(msgs, []conversation.Message{conversation.AssistantMessage(final)}, a.maxMessages)
			break
		}

		calls := fromLLMToolCalls(choice.ToolCalls)
		step := []conversation.Message{conversation.AssistantMessage(choice.Content, calls...)}
		for _, call := range calls {
			step = append(step, a.runTool(ctx, sessionID, call))
		}
		msgs = conversation.AppendN(msgs, step, a.maxMessages)
	}

	if err := a.store.Save(ctx, sessionID, msgs); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	a.logger.Info("turn completed",
		slog.String("session_id", sessionID),
		slog.Int("window", len(msgs)),
	)
	return final, nil
}

// keepPartial saves the window reached before a failed model call, so the
// customer's message and any finished tool steps stay in the session. cause is
// returned unchanged.
func (a *Agent) keepPartial(ctx context.Context, sessionID string, msgs []conversation.Message, cause error) error {
	if err := a.store.Save(ctx, sessionID, msgs); err != nil {
		a.logger.Warn("save partial session failed",
			slog.String("session_id", sessionID),
			slog.Any("error", err),
		)
	}
	return cause
}

// runTool executes call through the filter and returns the tool message that
// answers it. Its content is always empty.
func (a *Agent) runTool(ctx context.Context, sessionID string, call conversation.ToolCall) conversation.Message {
	args, err := tools.ParseArguments(call.Function.Arguments)
	if err != nil {
		a.logger.Warn("tool arguments are not valid json",
			slog.String("tool", call.Function.Name),
			slog.String("call_id", call.ID),
			slog.Any("error", err),
		)
	}
	result, _ := a.dispatch(ctx, tools.Call{
		ID:        call.ID,
		Name:      call.Function.Name,
		Arguments: args,
		SessionID: sessionID,
	})
	return conversation.ToolMessage(call.ID, call.Function.Name, result.Content)
}

func (a *Agent) lockSession(sessionID string) func() {
	a.locksMu.Lock()
	l, ok := a.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		a.locks[sessionID] = l
	}
	l.refs++
	a.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		a.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(a.locks, sessionID)
		}
		a.locksMu.Unlock()
	}
}
