package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("pull used %s, want GET", r.Method)
		}
		if got := r.URL.Query().Get("action"); got != "get" {
			t.Errorf("action = %q, want %q", got, "get")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"a1","name":"Garbage","assignment":1,"trimmed":0,"lastUpdated":"2024-06-01T10:00:00Z"},
			{"id":"b2","name":"Laundry","assignment":3,"trimmed":1,"lastUpdated":"2024-06-02T08:30:00Z"}
		]`))
	}))
	defer server.Close()

	client := New(server.URL)
	rows, err := client.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Name != "Garbage" || rows[0].Assignment != 1 {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Trimmed != 1 {
		t.Errorf("expected second row trimmed, got %+v", rows[1])
	}
}

func TestPullDefaultsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Dishes"}]`))
	}))
	defer server.Close()

	before := time.Now().Add(-time.Second)
	rows, err := New(server.URL).Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.Assignment != 0 || row.Trimmed != 0 || row.ID != "" {
		t.Errorf("missing fields should default to zero: %+v", row)
	}
	if row.LastUpdated == "" {
		t.Fatal("missing lastUpdated should default to current time")
	}
	if ts := row.LastUpdatedTime(); ts.Before(before) {
		t.Errorf("defaulted lastUpdated %v is not current", ts)
	}
}

func TestPullHTMLResponse(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"content type", "text/html; charset=utf-8", `<!DOCTYPE html><html><body>Sign in</body></html>`},
		{"leading markup", "application/octet-stream", `<html><body>Moved</body></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL).Pull(context.Background())
			if err == nil {
				t.Fatal("expected error for HTML response")
			}
			if !errors.Is(err, ErrHTMLResponse) {
				t.Errorf("expected ErrHTMLResponse, got: %v", err)
			}
			if strings.Contains(err.Error(), "JSON row array") {
				t.Errorf("HTML should be detected before JSON parsing: %v", err)
			}
		})
	}
}

func TestPullHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("script exhausted quota"))
	}))
	defer server.Close()

	_, err := New(server.URL).Pull(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 500")
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if terr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", terr.StatusCode)
	}
	if !strings.Contains(err.Error(), "script exhausted quota") {
		t.Errorf("error should include response body: %v", err)
	}
}

func TestPullNotAnArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Pull(context.Background())
	if err == nil {
		t.Fatal("expected error for non-array JSON")
	}
	if !strings.Contains(err.Error(), "JSON row array") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPullNoEndpoint(t *testing.T) {
	_, err := New("").Pull(context.Background())
	if !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestPush(t *testing.T) {
	var gotAction string
	var gotRows []Row

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("push used %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/x-www-form-urlencoded") {
			t.Errorf("Content-Type = %q, want form encoding", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		gotAction = r.PostFormValue("action")
		if err := json.Unmarshal([]byte(r.PostFormValue("data")), &gotRows); err != nil {
			t.Errorf("data field is not a JSON row array: %v", err)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	rows := []Row{
		{ID: "a1", Name: "Garbage", Assignment: 1, LastUpdated: "2024-06-01T10:00:00Z"},
		{ID: "b2", Name: "Laundry", Assignment: 2, Trimmed: 1, LastUpdated: "2024-06-02T08:30:00Z"},
	}

	if err := New(server.URL).Push(context.Background(), rows); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if gotAction != "update" {
		t.Errorf("action = %q, want %q", gotAction, "update")
	}
	if len(gotRows) != 2 || gotRows[0].Name != "Garbage" || gotRows[1].Trimmed != 1 {
		t.Errorf("unexpected pushed rows: %+v", gotRows)
	}
}

func TestPushHTTPErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("sheet is read-only for this account"))
	}))
	defer server.Close()

	err := New(server.URL).Push(context.Background(), []Row{{Name: "Garbage"}})
	if err == nil {
		t.Fatal("expected error for HTTP 403")
	}

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if terr.Op != "push" {
		t.Errorf("Op = %q, want push", terr.Op)
	}
	if terr.Body != "sheet is read-only for this account" {
		t.Errorf("Body = %q", terr.Body)
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("error message should include body text: %v", err)
	}
}

func TestPushEmptyRowSet(t *testing.T) {
	var gotData string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotData = r.PostFormValue("data")
	}))
	defer server.Close()

	if err := New(server.URL).Push(context.Background(), nil); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if gotData != "[]" {
		t.Errorf("empty push data = %q, want %q", gotData, "[]")
	}
}

func TestPushNoEndpoint(t *testing.T) {
	err := New("").Push(context.Background(), nil)
	if !errors.Is(err, ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestPullContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(server.URL).Pull(ctx)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
