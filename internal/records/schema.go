package records

import (
	"context"
	"fmt"
	"strings"

	"github.com/memohai/supportdesk/internal/config"
)

// Names used when provisioning a new table.
const (
	DefaultBaseName  = "客户聊天记录"
	DefaultTableName = "聊天记录"
)

// MissingColumns returns the schema columns absent from existing, in table order.
func MissingColumns(existing []Field) []string {
	have := make(map[string]struct{}, len(existing))
	for _, f := range existing {
		have[strings.TrimSpace(f.Name)] = struct{}{}
	}
	var missing []string
	for _, col := range Columns() {
		if _, ok := have[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// EnsureFields adds every missing schema column to the table at loc as a
// text field and returns the columns it created. It stops at the first
// failure and reports what was added until then.
func EnsureFields(ctx context.Context, backend Backend, loc config.FeishuLocation) ([]string, error) {
	existing, err := backend.ListFields(ctx, loc)
	if err != nil {
		return nil, err
	}
	var added []string
	for _, col := range MissingColumns(existing) {
		if _, err := backend.AddField(ctx, loc, col, FieldTypeText); err != nil {
			return added, fmt.Errorf("add column %s: %w", col, err)
		}
		added = append(added, col)
	}
	return added, nil
}

// InitOptions names the base and table created by InitTable.
type InitOptions struct {
	BaseName    string
	TableName   string
	FolderToken string
	BaseURL     string
}

// InitTable creates a base holding one table with the full schema and
// returns its location.
func InitTable(ctx context.Context, backend Backend, opts InitOptions) (config.FeishuLocation, error) {
	baseName := strings.TrimSpace(opts.BaseName)
	if baseName == "" {
		baseName = DefaultBaseName
	}
	tableName := strings.TrimSpace(opts.TableName)
	if tableName == "" {
		tableName = DefaultTableName
	}
	base, err := backend.CreateBase(ctx, baseName, opts.FolderToken)
	if err != nil {
		return config.FeishuLocation{}, err
	}
	tableID, err := backend.CreateTable(ctx, base.AppToken, tableName, Columns())
	if err != nil {
		return config.FeishuLocation{AppToken: base.AppToken, BaseURL: opts.BaseURL}, err
	}
	return config.FeishuLocation{
		AppToken: base.AppToken,
		TableID:  tableID,
		BaseURL:  opts.BaseURL,
	}, nil
}
