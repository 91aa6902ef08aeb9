package records

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureFieldsAddsOnlyMissing(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{fields: []Field{
		{Name: ColumnSessionID, Type: FieldTypeText},
		{Name: ColumnCustomerMessage, Type: FieldTypeText},
		{Name: "自定义列", Type: FieldTypeText},
	}}
	added, err := EnsureFields(context.Background(), backend, testLocation)
	require.NoError(t, err)
	assert.Len(t, added, len(Columns())-2)
	assert.NotContains(t, added, ColumnSessionID)
	assert.Equal(t, ColumnAIResponse, added[0])

	again, err := EnsureFields(context.Background(), backend, testLocation)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Empty(t, MissingColumns(backend.fields))
}

func TestEnsureFieldsStopsOnFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	backend := &fakeBackend{addErr: map[string]error{ColumnTimestamp: boom}}
	added, err := EnsureFields(context.Background(), backend, testLocation)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{ColumnSessionID, ColumnCustomerMessage, ColumnAIResponse}, added)
}

func TestInitTable(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	loc, err := InitTable(context.Background(), backend, InitOptions{BaseURL: "https://open.feishu.cn"})
	require.NoError(t, err)
	assert.True(t, loc.Complete())
	assert.Equal(t, "app1", loc.AppToken)
	assert.Equal(t, []string{DefaultBaseName}, backend.bases)
	assert.Equal(t, Columns(), backend.tables[loc.TableID])
	assert.Equal(t, "app1-"+DefaultTableName, loc.TableID)
}
