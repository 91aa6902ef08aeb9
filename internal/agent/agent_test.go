package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/memohai/supportdesk/internal/checkpoint"
	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/conversation"
	"github.com/memohai/supportdesk/internal/tools"
)

type step struct {
	content string
	chunks  []string
	calls   []llms.ToolCall
	err     error
}

type scriptedModel struct {
	mu    sync.Mutex
	steps []step
	seen  [][]llms.MessageContent
	opts  []llms.CallOptions
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	m.mu.Lock()
	m.seen = append(m.seen, messages)
	m.opts = append(m.opts, opts)
	var s step
	if len(m.steps) > 0 {
		s = m.steps[0]
		if len(m.steps) > 1 {
			m.steps = m.steps[1:]
		}
	}
	m.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if opts.StreamingFunc != nil {
		for _, c := range s.chunks {
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s.content, ToolCalls: s.calls}}}, nil
}

type recordingTool struct {
	name  string
	calls []tools.Call
	err   error
}

func (t *recordingTool) Descriptor() tools.Descriptor {
	return tools.Descriptor{Name: t.name, Parameters: tools.ObjectSchema(nil, map[string]string{"x": "x"})}
}

func (t *recordingTool) Execute(_ context.Context, call tools.Call) (tools.Result, error) {
	t.calls = append(t.calls, call)
	if t.err != nil {
		return tools.Result{}, t.err
	}
	return tools.Result{CallID: call.ID, Content: "internal detail the customer must not see"}, nil
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{ID: id, Type: "function", FunctionCall: &llms.FunctionCall{Name: name, Arguments: args}}
}

func newTestAgent(t *testing.T, model Model, tool *recordingTool, maxMessages int) (*Agent, *checkpoint.MemoryStore) {
	t.Helper()
	registry := tools.NewRegistry()
	if tool != nil {
		require.NoError(t, registry.Register(tool))
	}
	store := checkpoint.NewMemoryStore()
	a, err := New(Options{
		Model:        model,
		Settings:     config.ModelSettings{Model: "test-model", Temperature: 0.65, TopP: 0.9, MaxCompletionTokens: 100},
		SystemPrompt: "You are Larry.",
		Tools:        registry,
		Store:        store,
		MaxMessages:  maxMessages,
	})
	require.NoError(t, err)
	return a, store
}

func TestInvokeTwoTurnsKeepsFourMessages(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{steps: []step{{content: "Hello! How can I help?"}, {content: "We ship worldwide."}}}
	a, _ := newTestAgent(t, model, nil, 0)
	ctx := context.Background()

	reply, err := a.Invoke(ctx, "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply)

	reply, err = a.Invoke(ctx, "s1", "do you ship to Peru?")
	require.NoError(t, err)
	assert.Equal(t, "We ship worldwide.", reply)

	history, err := a.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, []string{conversation.RoleUser, conversation.RoleAssistant, conversation.RoleUser, conversation.RoleAssistant},
		[]string{history[0].Role, history[1].Role, history[2].Role, history[3].Role})

	second := model.seen[1]
	require.Len(t, second, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, second[0].Role)
	assert.InDelta(t, 0.65, model.opts[0].Temperature, 1e-9)
	assert.InDelta(t, 0.9, model.opts[0].TopP, 1e-9)
	assert.Equal(t, 100, model.opts[0].MaxTokens)
}

func TestInvokeToolResultIsBlankedBeforeModel(t *testing.T) {
	t.Parallel()

	tool := &recordingTool{name: "save_chat_record"}
	model := &scriptedModel{steps: []step{
		{calls: []llms.ToolCall{toolCall("call_1", "save_chat_record", `{"customer_message":"hi"}`)}},
		{content: "Thanks, noted!"},
	}}
	a, _ := newTestAgent(t, model, tool, 0)

	reply, err := a.Invoke(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Thanks, noted!", reply)
	require.Len(t, tool.calls, 1)
	assert.Equal(t, "s1", tool.calls[0].SessionID)
	assert.Equal(t, "hi", tool.calls[0].Arguments["customer_message"])

	require.Len(t, model.seen, 2)
	last := model.seen[1][len(model.seen[1])-1]
	assert.Equal(t, llms.ChatMessageTypeTool, last.Role)
	resp, ok := last.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Equal(t, "", resp.Content)
	assert.NotEmpty(t, model.opts[0].Tools)

	history, err := a.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, conversation.RoleTool, history[2].Role)
	assert.Equal(t, "", history[2].Content)
}

func TestInvokeSucceedsWhenToolFails(t *testing.T) {
	t.Parallel()

	tool := &recordingTool{name: "save_chat_record", err: errors.New("feishu 403")}
	model := &scriptedModel{steps: []step{
		{calls: []llms.ToolCall{toolCall("c", "save_chat_record", `not json`)}},
		{content: "Happy to help."},
	}}
	a, _ := newTestAgent(t, model, tool, 0)

	reply, err := a.Invoke(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Happy to help.", reply)
	require.Len(t, tool.calls, 1)
}

func TestInvokeUnknownToolStillAnswers(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{steps: []step{
		{calls: []llms.ToolCall{toolCall("c", "does_not_exist", `{}`)}},
		{content: "ok"},
	}}
	a, _ := newTestAgent(t, model, nil, 0)
	reply, err := a.Invoke(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
}

func TestInvokeStopsAfterMaxToolRounds(t *testing.T) {
	t.Parallel()

	tool := &recordingTool{name: "loop"}
	model := &scriptedModel{steps: []step{
		{content: "still thinking", calls: []llms.ToolCall{toolCall("c", "loop", `{}`)}},
	}}
	a, _ := newTestAgent(t, model, tool, 0)

	reply, err := a.Invoke(context.Background(), "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "still thinking", reply)
	assert.Len(t, tool.calls, config.DefaultMaxToolRounds)
	assert.Len(t, model.seen, config.DefaultMaxToolRounds+1)
}

func TestInvokeWindowIsBounded(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{steps: []step{{content: "reply"}}}
	a, _ := newTestAgent(t, model, nil, 4)
	for i := 0; i < 5; i++ {
		_, err := a.Invoke(context.Background(), "s1", "msg")
		require.NoError(t, err)
	}
	history, err := a.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, history, 4)
	for _, seen := range model.seen {
		assert.LessOrEqual(t, len(seen), 5)
	}
}

func TestInvokeModelErrorKeepsCustomerMessage(t *testing.T) {
	t.Parallel()

	boom := errors.New("upstream 500")
	model := &scriptedModel{steps: []step{{err: boom}, {content: "Hello again"}}}
	a, store := newTestAgent(t, model, nil, 0)

	_, err := a.Invoke(context.Background(), "s1", "hi")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.Sessions())
	history, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, conversation.RoleUser, history[0].Role)
	assert.Equal(t, "hi", history[0].Content)

	reply, err := a.Invoke(context.Background(), "s1", "are you there?")
	require.NoError(t, err)
	assert.Equal(t, "Hello again", reply)
	history, err = store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, history, 3)

	_, err = a.Invoke(context.Background(), " ", "hi")
	assert.ErrorIs(t, err, checkpoint.ErrEmptySession)
}

func TestInvokeSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{steps: []step{{content: "r"}}}
	a, _ := newTestAgent(t, model, nil, 0)
	var wg sync.WaitGroup
	for _, s := range []string{"a", "b", "a", "b"} {
		wg.Add(1)
		go func(s string) {
			defer wg.Done()
			_, err := a.Invoke(context.Background(), s, "hi")
			assert.NoError(t, err)
		}(s)
	}
	wg.Wait()
	for _, s := range []string{"a", "b"} {
		h, err := a.History(context.Background(), s)
		require.NoError(t, err)
		assert.Len(t, h, 4)
	}
}

func drain(chunks <-chan string, errs <-chan error) ([]string, error) {
	var out []string
	for c := range chunks {
		out = append(out, c)
	}
	return out, <-errs
}

func TestStreamDropsToolCallChunks(t *testing.T) {
	t.Parallel()

	tool := &recordingTool{name: "save_chat_record"}
	model := &scriptedModel{steps: []step{
		{
			chunks: []string{`[{"id":"c1","type":"function","function":{"name":"save_chat_record","arguments":"{}"}}]`},
			calls:  []llms.ToolCall{toolCall("c1", "save_chat_record", `{}`)},
		},
		{content: "Hello there", chunks: []string{"Hello", " there"}},
	}}
	a, _ := newTestAgent(t, model, tool, 0)

	chunks, err := drain(a.Stream(context.Background(), "s1", "hi"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", " there"}, chunks)
	assert.Len(t, tool.calls, 1)
}

func TestStreamEmitsFinalTextWhenModelDoesNotStream(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{steps: []step{{content: "whole reply"}}}
	a, _ := newTestAgent(t, model, nil, 0)
	chunks, err := drain(a.Stream(context.Background(), "s1", "hi"))
	require.NoError(t, err)
	assert.Equal(t, []string{"whole reply"}, chunks)
}

func TestStreamReportsError(t *testing.T) {
	t.Parallel()

	boom := errors.New("timeout")
	a, _ := newTestAgent(t, &scriptedModel{steps: []step{{err: boom}}}, nil, 0)
	chunks, err := drain(a.Stream(context.Background(), "s1", "hi"))
	assert.Empty(t, chunks)
	assert.ErrorIs(t, err, boom)
}

func TestStreamCompletesAfterClientLeaves(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{steps: []step{{content: "abc", chunks: []string{"a", "b", "c"}}}}
	a, _ := newTestAgent(t, model, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := drain(a.Stream(ctx, "s1", "hi"))
	require.NoError(t, err)
	h, err := a.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, h, 2)
}

func TestIsToolCallChunk(t *testing.T) {
	t.Parallel()

	assert.True(t, isToolCallChunk([]byte(`[{"type":"function","function":{"name":"x"}}]`)))
	assert.False(t, isToolCallChunk([]byte(`[1, 2]`)))
	assert.False(t, isToolCallChunk([]byte(`[see attached]`)))
	assert.False(t, isToolCallChunk([]byte(`Hello`)))
}

func TestNewModelRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewModel(config.ModelSettings{Model: "m"}, "", "", nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	m, err := NewModel(config.ModelSettings{Model: "m", Thinking: "disabled", Timeout: 5}, "key", "https://llm.example.com/v1/", nil)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestCallOptionsSkipUnsetTopP(t *testing.T) {
	t.Parallel()

	var opts llms.CallOptions
	for _, o := range callOptions(config.ModelSettings{Temperature: 0.7}) {
		o(&opts)
	}
	assert.InDelta(t, 0.7, opts.Temperature, 1e-9)
	assert.Zero(t, opts.TopP)
	assert.Zero(t, opts.MaxTokens)
}
