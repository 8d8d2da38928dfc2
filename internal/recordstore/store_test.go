package recordstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(context.Background(), zap.NewNop(), "test-token")
	client.APIURL = server.URL
	return client, server
}

func TestListCandidatesWalksAllPages(t *testing.T) {
	t.Parallel()

	pages := []ItemResponse{
		{
			Items: []Item{map[string]any{"id": "1", "name": "Alice"}},
			Pages: 2, Page: 0, PerPage: 1,
		},
		{
			Items: []Item{map[string]any{"id": "2", "name": "Bob"}},
			Pages: 2, Page: 1, PerPage: 1,
		},
	}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header: %q", got)
		}

		page := 0
		if r.URL.Query().Get("page") == "1" {
			page = 1
		}
		json.NewEncoder(w).Encode(pages[page])
	}))

	candidates, err := client.ListCandidates(&ListParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if candidates.Len() != 2 {
		t.Fatalf("expected 2 candidates, got %d", candidates.Len())
	}
	if candidates.Items[0].ID != "1" || candidates.Items[1].ID != "2" {
		t.Fatalf("unexpected candidates: %v", candidates.IDs())
	}
}

func TestListCandidatesBadStatus(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))

	if _, err := client.ListCandidates(nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestUpdateCandidatePatchesOnlyProvidedFields(t *testing.T) {
	t.Parallel()

	var patched map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/candidates/42" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&patched)
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.UpdateCandidate("42", map[string]any{"email": "new@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if patched["email"] != "new@example.com" || len(patched) != 1 {
		t.Fatalf("unexpected patch payload: %v", patched)
	}
}

func TestUpdateCandidateSkipsEmptyFieldSet(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Errorf("no request expected")
	}))

	if err := client.UpdateCandidate("42", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetCandidate(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/candidates/7" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(&Candidate{ID: "7", Name: "Carol", Text: "résumé text"})
	}))

	candidate, err := client.GetCandidate("7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if candidate.ID != "7" || candidate.Name != "Carol" {
		t.Fatalf("unexpected candidate: %+v", candidate)
	}
}
