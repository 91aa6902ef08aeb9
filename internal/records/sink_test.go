package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/supportdesk/internal/config"
)

func TestSinkAppendChatRecord(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	sink := NewSink(backend, testLocation, nil)
	sink.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local) }

	res, err := sink.AppendChatRecord(context.Background(), ChatRecord{
		SessionID:       "s1",
		CustomerMessage: "hi",
		AIResponse:      "hello",
		Optional:        map[string]string{"product_interest": "PVAc glue"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1"}, res.RecordIDs)
	require.Len(t, backend.rows, 1)
	assert.Equal(t, "2025-01-02 03:04:05", backend.rows[0][ColumnTimestamp])
	assert.Equal(t, "PVAc glue", backend.rows[0]["产品兴趣"])
}

func TestSinkNotConfigured(t *testing.T) {
	t.Parallel()

	sink := NewSink(&fakeBackend{}, config.FeishuLocation{AppToken: "only"}, nil)
	_, err := sink.AppendChatRecord(context.Background(), ChatRecord{SessionID: "s"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = sink.SessionSummary(context.Background(), "s")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSinkPropagatesAPIError(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{appendErr: &APIError{Op: "batch create records", Code: 1254045, Msg: "FieldNameNotFound"}}
	sink := NewSink(backend, testLocation, nil)
	_, err := sink.AppendChatRecord(context.Background(), ChatRecord{SessionID: "s"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 1254045, apiErr.Code)
	assert.Contains(t, err.Error(), "FieldNameNotFound")
}

func TestSinkSessionSummary(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	sink := NewSink(backend, testLocation, nil)
	ctx := context.Background()
	stamps := []time.Time{
		time.Date(2025, 1, 2, 10, 0, 0, 0, time.Local),
		time.Date(2025, 1, 2, 9, 0, 0, 0, time.Local),
	}
	for _, ts := range stamps {
		_, err := sink.AppendChatRecord(ctx, ChatRecord{SessionID: "s1", Timestamp: ts})
		require.NoError(t, err)
	}
	_, err := sink.AppendChatRecord(ctx, ChatRecord{SessionID: "other"})
	require.NoError(t, err)

	sum, err := sink.SessionSummary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Records)
	assert.Equal(t, "2025-01-02 09:00:00", sum.FirstRecord)
	assert.Equal(t, "2025-01-02 10:00:00", sum.LastRecord)
	assert.Equal(t, "https://feishu.cn/base/bascnTest", sum.AccessURL)

	_, err = sink.SessionSummary(ctx, "  ")
	assert.Error(t, err)
}

func TestTextValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", TextValue(nil))
	assert.Equal(t, "plain", TextValue("plain"))
	assert.Equal(t, "ab", TextValue([]any{
		map[string]any{"text": "a", "type": "text"},
		map[string]any{"text": "b", "type": "text"},
	}))
	assert.Equal(t, "x", TextValue(map[string]any{"text": "x"}))
	assert.Equal(t, "42", TextValue(42))
}
