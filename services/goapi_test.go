package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchEpisodes_Batch(t *testing.T) {
	var gotPath string
	var gotBody batchRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"ep1","episode_no":1,"title":"開幕","content":"本文","created_at":"2024-01-01T00:00:00Z"}]`))
	}))
	defer server.Close()

	client := NewGoAPIClient(server.URL)
	episodes, err := client.FetchEpisodes(context.Background(), "book42", []string{"ep1", "ep2"})
	if err != nil {
		t.Fatalf("FetchEpisodes failed: %v", err)
	}

	if gotPath != "/api/books/book42/episodes/batch" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if len(gotBody.IDs) != 2 || gotBody.IDs[0] != "ep1" {
		t.Fatalf("unexpected ids in body: %v", gotBody.IDs)
	}
	if len(episodes) != 1 || episodes[0].Title != "開幕" {
		t.Fatalf("unexpected episodes: %+v", episodes)
	}
}

func TestFetchMaterials_EmptyIDsStillSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if string(body["ids"]) != "[]" {
			t.Errorf("expected ids to serialize as [], got %s", body["ids"])
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewGoAPIClient(server.URL)
	materials, err := client.FetchMaterials(context.Background(), "book1", nil)
	if err != nil {
		t.Fatalf("FetchMaterials failed: %v", err)
	}
	if len(materials) != 0 {
		t.Fatalf("expected no materials, got %d", len(materials))
	}
}

func TestFetchEpisodes_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGoAPIClient(server.URL)
	if _, err := client.FetchEpisodes(context.Background(), "book1", []string{"ep1"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestFetchEpisodes_Unreachable(t *testing.T) {
	client := NewGoAPIClient("http://127.0.0.1:1")
	if _, err := client.FetchEpisodes(context.Background(), "book1", []string{"ep1"}); err == nil {
		t.Fatal("expected transport error")
	}
}
