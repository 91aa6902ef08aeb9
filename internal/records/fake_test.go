package records

import (
	"context"
	"fmt"
	"sync"

	"github.com/memohai/supportdesk/internal/config"
)

type fakeBackend struct {
	mu        sync.Mutex
	rows      []map[string]any
	fields    []Field
	appendErr error
	searchErr error
	addErr    map[string]error
	bases     []string
	tables    map[string][]string
}

var _ Backend = (*fakeBackend)(nil)

func (f *fakeBackend) AppendRecords(_ context.Context, loc config.FeishuLocation, rows []map[string]any) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		f.rows = append(f.rows, row)
		ids = append(ids, fmt.Sprintf("rec%d", len(f.rows)))
	}
	return ids, nil
}

func (f *fakeBackend) SearchRecords(_ context.Context, _ config.FeishuLocation, column, value string) ([]Record, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	var out []Record
	for i, row := range f.rows {
		if TextValue(row[column]) == value {
			out = append(out, Record{ID: fmt.Sprintf("rec%d", i+1), Fields: row})
		}
	}
	return out, len(out), nil
}

func (f *fakeBackend) CreateBase(_ context.Context, name, _ string) (Base, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bases = append(f.bases, name)
	return Base{AppToken: fmt.Sprintf("app%d", len(f.bases))}, nil
}

func (f *fakeBackend) CreateTable(_ context.Context, appToken, name string, columns []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tables == nil {
		f.tables = map[string][]string{}
	}
	id := appToken + "-" + name
	f.tables[id] = append([]string(nil), columns...)
	return id, nil
}

func (f *fakeBackend) ListFields(context.Context, config.FeishuLocation) ([]Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Field(nil), f.fields...), nil
}

func (f *fakeBackend) AddField(_ context.Context, _ config.FeishuLocation, name string, fieldType int) (Field, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.addErr[name]; err != nil {
		return Field{}, err
	}
	field := Field{ID: fmt.Sprintf("fld%d", len(f.fields)+1), Name: name, Type: fieldType}
	f.fields = append(f.fields, field)
	return field, nil
}

var testLocation = config.FeishuLocation{AppToken: "bascnTest", TableID: "tblTest"}
