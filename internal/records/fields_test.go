package records

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildFieldsMandatoryAndNonEmptyOptionals(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local)
	fields := BuildFields(ChatRecord{
		SessionID:       "s-1",
		CustomerMessage: "Do you ship to Brazil?",
		AIResponse:      "Yes!",
		Timestamp:       ts,
		Optional: map[string]string{
			"country":          "Brazil",
			"product_interest": "  ",
			"notes":            "",
			"email":            " buyer@example.com ",
			"unknown_key":      "ignored",
		},
	})

	assert.Equal(t, map[string]any{
		ColumnSessionID:       "s-1",
		ColumnCustomerMessage: "Do you ship to Brazil?",
		ColumnAIResponse:      "Yes!",
		ColumnTimestamp:       "2025-03-04 05:06:07",
		"国家":                  "Brazil",
		"邮箱":                  "buyer@example.com",
	}, fields)
}

func TestBuildFieldsAlwaysHasMandatoryColumns(t *testing.T) {
	t.Parallel()

	fields := BuildFields(ChatRecord{})
	for _, col := range MandatoryColumns() {
		if _, ok := fields[col]; !ok {
			t.Fatalf("missing mandatory column %s", col)
		}
	}
	if len(fields) != 4 {
		t.Fatalf("expected only mandatory columns, got %v", fields)
	}
	if fields[ColumnTimestamp] == "" {
		t.Fatalf("zero timestamp should default to now")
	}
}

func TestCatalogueIsConsistent(t *testing.T) {
	t.Parallel()

	seenKeys := map[string]bool{}
	seenCols := map[string]bool{}
	for _, col := range MandatoryColumns() {
		seenCols[col] = true
	}
	for _, f := range OptionalFields {
		if seenKeys[f.Key] {
			t.Fatalf("duplicate key %s", f.Key)
		}
		if seenCols[f.Column] {
			t.Fatalf("duplicate column %s", f.Column)
		}
		seenKeys[f.Key] = true
		seenCols[f.Column] = true
	}
	assert.Len(t, Columns(), 4+len(OptionalFields))
	assert.Equal(t, len(OptionalFields), len(OptionalKeys()))
	for _, key := range []string{"product_interest", "contact_info", "notes"} {
		assert.True(t, seenKeys[key], "catalogue must contain %s", key)
	}
}

func TestUnknownKeys(t *testing.T) {
	t.Parallel()

	got := UnknownKeys(map[string]string{"zeta": "1", "email": "x", "alpha": "2"})
	assert.Equal(t, []string{"alpha", "zeta"}, got)
}
