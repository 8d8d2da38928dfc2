package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPrefersFileOverValue(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte(" from-file \n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	secret, err := Load(Source{Name: "token", Value: "inline", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if secret != "from-file" {
		t.Fatalf("unexpected secret: %q", secret)
	}
}

func TestLoadFailsWhenNothingConfigured(t *testing.T) {
	t.Parallel()

	if _, err := Load(Source{Name: "token"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadListSplitsCommaSeparatedValues(t *testing.T) {
	t.Parallel()

	values, err := LoadList(ListSource{Name: "api keys", Values: []string{"one, two", "three"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d: %v", len(values), values)
	}
}

func TestLoadListReadsOnePerLineFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys")
	if err := os.WriteFile(path, []byte("alpha\n\n beta \n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	values, err := LoadList(ListSource{Name: "api keys", File: path, Values: []string{"ignored"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(values) != 2 || values[0] != "alpha" || values[1] != "beta" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestLoadListFailsOnEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys")
	if err := os.WriteFile(path, []byte("\n\n"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := LoadList(ListSource{Name: "api keys", File: path}); err == nil {
		t.Fatalf("expected error")
	}
}
