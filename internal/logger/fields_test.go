package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestStringFieldsSkipsEmptyEntries(t *testing.T) {
	t.Parallel()

	fields := StringFields(
		StringField{Key: "ai_provider", Value: "gemini"},
		StringField{Key: "  ", Value: "ignored"},
		StringField{Key: "ai_model", Value: "   "},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != FieldProvider {
		t.Fatalf("unexpected field key: %s", fields[0].Key)
	}
}

func TestWithFieldsNilLogger(t *testing.T) {
	t.Parallel()

	logger := WithFields(nil, zap.String("k", "v"))
	if logger == nil {
		t.Fatalf("expected non-nil logger")
	}
}

func TestScoringFieldsTrimsValues(t *testing.T) {
	t.Parallel()

	fields := ScoringFields(" gemini ", "")
	if len(fields) != 1 {
		t.Fatalf("expected provider field only, got %d fields", len(fields))
	}
}
